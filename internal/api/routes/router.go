package routes

import (
	"net/http"

	"github.com/mondokter/mondokter-backend/internal/api/handlers"
	"github.com/mondokter/mondokter-backend/internal/api/middleware"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	bookingHandler   *handlers.BookingHandler
	directoryHandler *handlers.DirectoryHandler
	webhookHandler   *handlers.SimplybookWebhookHandler
	sseHandler       *handlers.SSEHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	bookingHandler *handlers.BookingHandler,
	directoryHandler *handlers.DirectoryHandler,
	webhookHandler *handlers.SimplybookWebhookHandler,
	sseHandler *handlers.SSEHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		bookingHandler:   bookingHandler,
		directoryHandler: directoryHandler,
		webhookHandler:   webhookHandler,
		sseHandler:       sseHandler,
		cacheMiddleware:  cacheMiddleware,
		metrics:          metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Booking endpoints
	r.mux.HandleFunc("POST /api/bookings", r.bookingHandler.CreateBooking)
	r.mux.HandleFunc("GET /api/bookings/{id}", r.bookingHandler.GetBooking)
	r.mux.HandleFunc("PATCH /api/bookings/{id}/status", r.bookingHandler.UpdateBookingStatus)
	r.mux.HandleFunc("GET /api/providers/{id}/bookings", r.bookingHandler.ListBookings)
	r.mux.HandleFunc("GET /api/availability", r.bookingHandler.GetAvailability)

	// Directory endpoints
	if r.directoryHandler != nil {
		r.mux.HandleFunc("GET /api/directory/search", r.directoryHandler.Search)
	}

	// Inbound scheduling webhooks
	r.mux.HandleFunc("GET /webhooks/simplybook", r.webhookHandler.HandleChallenge)
	r.mux.HandleFunc("POST /webhooks/simplybook", r.webhookHandler.HandleWebhook)

	// Real-time booking feed
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/bookings", r.sseHandler.StreamBookingUpdates)
	}

	// Apply middleware chain
	var handler http.Handler = r.mux
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	if r.metrics != nil {
		handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	}
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}

package repositories

import (
	"context"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
)

// DirectorySearchQuery describes a patient-facing directory search
type DirectorySearchQuery struct {
	Query     string
	Island    string
	Specialty string
	Limit     int
	Offset    int
}

// DirectorySearchResult holds one page of directory hits
type DirectorySearchResult struct {
	Clinics   []*entities.Clinic
	Providers []*entities.Provider
	Total     int
}

// DirectorySearchRepository indexes and searches the clinic directory
type DirectorySearchRepository interface {
	// EnsureCollections creates the search collections if missing
	EnsureCollections(ctx context.Context) error

	// IndexClinics upserts clinics into the search index
	IndexClinics(ctx context.Context, clinics []*entities.Clinic) error

	// IndexProviders upserts providers into the search index
	IndexProviders(ctx context.Context, providers []*entities.Provider) error

	// Search runs a full-text directory search
	Search(ctx context.Context, query DirectorySearchQuery) (*DirectorySearchResult, error)
}

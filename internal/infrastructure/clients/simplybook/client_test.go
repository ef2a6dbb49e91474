package simplybook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mondokter/mondokter-backend/pkg/config"
)

type fakeServer struct {
	t            *testing.T
	loginCalls   int
	apiCalls     int
	tokens       []string
	failFirstAPI bool
	failAllAPI   bool
	loginErr     bool

	lastMethod  string
	lastCompany string
	lastToken   string
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		f.loginCalls++
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Fatalf("malformed login request: %v", err)
		}
		if req.Method != "getToken" {
			f.t.Errorf("login method = %q, want getToken", req.Method)
		}
		if f.loginErr {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"jsonrpc": "2.0",
				"error":   map[string]interface{}{"code": -32001, "message": "wrong api key"},
				"id":      req.ID,
			})
			return
		}
		token := fmt.Sprintf("token-%d", f.loginCalls)
		f.tokens = append(f.tokens, token)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"result":  token,
			"id":      req.ID,
		})
	})

	mux.HandleFunc("/admin", func(w http.ResponseWriter, r *http.Request) {
		f.apiCalls++
		f.lastCompany = r.Header.Get("X-Company-Login")
		f.lastToken = r.Header.Get("X-Token")

		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Fatalf("malformed api request: %v", err)
		}
		f.lastMethod = req.Method

		if f.failAllAPI || (f.failFirstAPI && f.apiCalls == 1) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"jsonrpc": "2.0",
				"error":   map[string]interface{}{"code": codeTokenExpired, "message": "Token expired"},
				"id":      req.ID,
			})
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"result": map[string]interface{}{
				"101": map[string]interface{}{"id": "101", "name": "General Consultation", "duration": "30", "price": "500"},
			},
			"id": req.ID,
		})
	})

	return mux
}

func newTestClient(t *testing.T, f *fakeServer) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(&config.SimplybookConfig{
		CompanyAlias: "victoria-clinic",
		APIUser:      "api-user",
		APIKey:       "api-key",
		LoginURL:     srv.URL + "/login",
		APIURL:       srv.URL + "/admin",
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, srv
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(&config.SimplybookConfig{
		CompanyAlias: "victoria-clinic",
		APIUser:      "api-user",
	})
	if err == nil {
		t.Fatal("NewClient() should fail without an api key")
	}
}

func TestCall_LazyLoginAndHeaders(t *testing.T) {
	fake := &fakeServer{t: t}
	client, _ := newTestClient(t, fake)

	events, err := client.GetEventList(context.Background())
	if err != nil {
		t.Fatalf("GetEventList() error = %v", err)
	}

	if fake.loginCalls != 1 {
		t.Errorf("login calls = %d, want 1", fake.loginCalls)
	}
	if fake.lastCompany != "victoria-clinic" {
		t.Errorf("X-Company-Login = %q, want victoria-clinic", fake.lastCompany)
	}
	if fake.lastToken != "token-1" {
		t.Errorf("X-Token = %q, want token-1", fake.lastToken)
	}
	if fake.lastMethod != "getEventList" {
		t.Errorf("method = %q, want getEventList", fake.lastMethod)
	}
	if got := events["101"].Name; got != "General Consultation" {
		t.Errorf("event name = %q, want General Consultation", got)
	}

	// Second call reuses the cached token.
	if _, err := client.GetEventList(context.Background()); err != nil {
		t.Fatalf("second GetEventList() error = %v", err)
	}
	if fake.loginCalls != 1 {
		t.Errorf("login calls after second request = %d, want 1", fake.loginCalls)
	}
}

func TestCall_LoginFailure(t *testing.T) {
	fake := &fakeServer{t: t, loginErr: true}
	client, _ := newTestClient(t, fake)

	_, err := client.GetEventList(context.Background())
	if err == nil {
		t.Fatal("GetEventList() should fail when login fails")
	}
	if fake.apiCalls != 0 {
		t.Errorf("api calls = %d, want 0 when login never succeeds", fake.apiCalls)
	}
}

func TestCall_ReloginOnceOnExpiredToken(t *testing.T) {
	fake := &fakeServer{t: t, failFirstAPI: true}
	client, _ := newTestClient(t, fake)

	if _, err := client.GetEventList(context.Background()); err != nil {
		t.Fatalf("GetEventList() error = %v", err)
	}

	if fake.apiCalls != 2 {
		t.Errorf("api calls = %d, want exactly 2 (original + one retry)", fake.apiCalls)
	}
	if fake.loginCalls != 2 {
		t.Errorf("login calls = %d, want 2 (initial + refresh)", fake.loginCalls)
	}
	if fake.lastToken != "token-2" {
		t.Errorf("retry used token %q, want token-2", fake.lastToken)
	}
}

func TestCall_SecondAuthFailureSurfaces(t *testing.T) {
	fake := &fakeServer{t: t, failAllAPI: true}
	client, _ := newTestClient(t, fake)

	_, err := client.GetEventList(context.Background())
	if err == nil {
		t.Fatal("GetEventList() should fail when the refreshed token is also rejected")
	}
	// One retry, never more.
	if fake.apiCalls != 2 {
		t.Errorf("api calls = %d, want exactly 2", fake.apiCalls)
	}
}

func TestErrorAuthExpired(t *testing.T) {
	tests := []struct {
		name string
		err  Error
		want bool
	}{
		{"expired code", Error{Code: codeTokenExpired, Message: "Token expired"}, true},
		{"expired message only", Error{Code: -1, Message: "Token expired"}, true},
		{"invalid token message", Error{Code: -1, Message: "Invalid token"}, true},
		{"other error", Error{Code: -32001, Message: "wrong api key"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.AuthExpired(); got != tt.want {
				t.Errorf("AuthExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

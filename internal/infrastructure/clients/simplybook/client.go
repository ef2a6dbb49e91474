// Package simplybook implements a JSON-RPC 2.0 client for the SimplyBook
// scheduling API. Authentication is lazy: the first call logs in with the
// configured API credentials, and a token reported expired by the server is
// refreshed with exactly one re-login before the call fails.
package simplybook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mondokter/mondokter-backend/pkg/config"
)

// DateTimeLayout is the timestamp format the API speaks.
const DateTimeLayout = "2006-01-02 15:04:05"

// codeTokenExpired is the JSON-RPC error code the server returns when the
// session token is no longer valid.
const codeTokenExpired = -32089

// Error is a JSON-RPC error returned by the API.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("simplybook rpc error %d: %s", e.Code, e.Message)
}

// AuthExpired reports whether the error means the session token must be
// refreshed.
func (e *Error) AuthExpired() bool {
	if e.Code == codeTokenExpired {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "token expired") || strings.Contains(msg, "invalid token")
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
	ID      int             `json:"id"`
}

// Client talks to the SimplyBook admin API on behalf of one company account.
// It is safe for concurrent use.
type Client struct {
	companyAlias string
	apiUser      string
	apiKey       string
	loginURL     string
	apiURL       string
	httpClient   *http.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a client from configuration. All credentials are
// required; there is no anonymous access to the admin API.
func NewClient(cfg *config.SimplybookConfig) (*Client, error) {
	if cfg.CompanyAlias == "" || cfg.APIUser == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("simplybook credentials incomplete (SIMPLYBOOK_COMPANY, SIMPLYBOOK_API_USER, SIMPLYBOOK_API_KEY)")
	}

	return &Client{
		companyAlias: cfg.CompanyAlias,
		apiUser:      cfg.APIUser,
		apiKey:       cfg.APIKey,
		loginURL:     strings.TrimRight(cfg.LoginURL, "/"),
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Login obtains a fresh session token, replacing any cached one.
func (c *Client) Login(ctx context.Context) error {
	token, err := c.login(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	result, err := c.post(ctx, c.loginURL, rpcRequest{
		JSONRPC: "2.0",
		Method:  "getToken",
		Params:  []interface{}{c.apiUser, c.apiKey},
		ID:      1,
	}, "")
	if err != nil {
		return "", fmt.Errorf("simplybook login failed: %w", err)
	}

	var token string
	if err := json.Unmarshal(result, &token); err != nil {
		return "", fmt.Errorf("simplybook login returned unexpected token payload: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("simplybook login returned empty token")
	}
	return token, nil
}

func (c *Client) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	if err := c.Login(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	token = c.token
	c.mu.Unlock()
	return token, nil
}

// Call invokes an RPC method against the admin API, decoding the result into
// out when out is non-nil. A token the server reports expired is refreshed
// once; a second auth failure is returned to the caller.
func (c *Client) Call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	token, err := c.currentToken(ctx)
	if err != nil {
		return err
	}

	result, err := c.post(ctx, c.apiURL, rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}, token)

	if rpcErr, ok := err.(*Error); ok && rpcErr.AuthExpired() {
		if err := c.Login(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		token = c.token
		c.mu.Unlock()

		result, err = c.post(ctx, c.apiURL, rpcRequest{
			JSONRPC: "2.0",
			Method:  method,
			Params:  params,
			ID:      1,
		}, token)
	}

	if err != nil {
		return fmt.Errorf("simplybook %s failed: %w", method, err)
	}

	if out != nil {
		if err := json.Unmarshal(result, out); err != nil {
			return fmt.Errorf("simplybook %s returned unexpected payload: %w", method, err)
		}
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body rpcRequest, token string) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Company-Login", c.companyAlias)
	if token != "" {
		req.Header.Set("X-Token", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, fmt.Errorf("malformed rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

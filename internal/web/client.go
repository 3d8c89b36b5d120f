package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"KataSweetShop/internal/catalog"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrAPIUnavailable = errors.New("api unavailable")
)

// APIClient is the storefront's typed view of the REST API.
type APIClient struct {
	BaseURL string
	Client  *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

func (c *APIClient) do(ctx context.Context, method, path, token string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPIUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	if err := classify(resp.StatusCode, env.Message); err != nil {
		return err
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return nil
}

func classify(status int, message string) error {
	switch {
	case status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return catalog.ErrNotFound
	case status == http.StatusBadRequest && strings.Contains(message, "insufficient"):
		return catalog.ErrInsufficientStock
	default:
		if message == "" {
			message = http.StatusText(status)
		}
		return fmt.Errorf("api error (%d): %s", status, message)
	}
}

type LoginResult struct {
	AccessToken string  `json:"access_token"`
	User        APIUser `json:"user"`
}

type APIUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (c *APIClient) Register(ctx context.Context, username, email, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, nil)
}

func (c *APIClient) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var res LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &res)
	return res, err
}

func (c *APIClient) WhoAmI(ctx context.Context, token string) (APIUser, error) {
	var u APIUser
	err := c.do(ctx, http.MethodGet, "/api/auth/whoami", token, nil, &u)
	return u, err
}

func (c *APIClient) ListSweets(ctx context.Context, token string) ([]catalog.Sweet, error) {
	var out []catalog.Sweet
	err := c.do(ctx, http.MethodGet, "/api/sweets", token, nil, &out)
	return out, err
}

func (c *APIClient) SearchSweets(ctx context.Context, token string, f catalog.Filter) ([]catalog.Sweet, error) {
	q := url.Values{}
	if f.Query != "" {
		q.Set("query", f.Query)
	}
	if f.Category != "" {
		q.Set("category", string(f.Category))
	}
	if f.MinPriceCents != nil {
		q.Set("min_price_cents", strconv.FormatInt(*f.MinPriceCents, 10))
	}
	if f.MaxPriceCents != nil {
		q.Set("max_price_cents", strconv.FormatInt(*f.MaxPriceCents, 10))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}

	path := "/api/sweets/search"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var out []catalog.Sweet
	err := c.do(ctx, http.MethodGet, path, token, nil, &out)
	return out, err
}

func (c *APIClient) GetSweet(ctx context.Context, token, id string) (catalog.Sweet, error) {
	var sw catalog.Sweet
	err := c.do(ctx, http.MethodGet, "/api/sweets/"+id, token, nil, &sw)
	return sw, err
}

// SweetInput carries the admin create/edit form fields.
type SweetInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents"`
	Quantity    int64  `json:"quantity"`
	Image       string `json:"image,omitempty"`
}

func (c *APIClient) CreateSweet(ctx context.Context, token string, in SweetInput) (catalog.Sweet, error) {
	var sw catalog.Sweet
	err := c.do(ctx, http.MethodPost, "/api/sweets", token, in, &sw)
	return sw, err
}

func (c *APIClient) UpdateSweet(ctx context.Context, token, id string, in SweetInput) (catalog.Sweet, error) {
	var sw catalog.Sweet
	err := c.do(ctx, http.MethodPut, "/api/sweets/"+id, token, in, &sw)
	return sw, err
}

func (c *APIClient) DeleteSweet(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sweets/"+id, token, nil, nil)
}

func (c *APIClient) Purchase(ctx context.Context, token, id string, qty int64) (catalog.Sweet, error) {
	var sw catalog.Sweet
	err := c.do(ctx, http.MethodPost, "/api/sweets/"+id+"/purchase", token, map[string]int64{"quantity": qty}, &sw)
	return sw, err
}

func (c *APIClient) Restock(ctx context.Context, token, id string, qty int64) (catalog.Sweet, error) {
	var sw catalog.Sweet
	err := c.do(ctx, http.MethodPost, "/api/sweets/"+id+"/restock", token, map[string]int64{"quantity": qty}, &sw)
	return sw, err
}

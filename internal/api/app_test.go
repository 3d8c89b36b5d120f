package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"KataSweetShop/internal/api"
	"KataSweetShop/internal/auth"
	"KataSweetShop/internal/catalog"
	"KataSweetShop/internal/events"
)

const jwtSecret = "test-secret"

func newAPITS(t *testing.T) *httptest.Server {
	t.Helper()

	jwt := auth.NewTokenMaker(jwtSecret)

	users := auth.NewMemStore()
	if err := users.Create(context.Background(), "u_admin", "admin", "admin@shop.test", "admin-secret-pw", auth.RoleAdmin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	authSrv := &auth.Server{Log: zap.NewNop(), Store: users, JWT: jwt}
	catalogSrv := &catalog.Server{
		Store:  catalog.NewMemStore(),
		Log:    zap.NewNop(),
		JWT:    jwt,
		Events: events.Nop{},
	}

	h := api.NewHandler(authSrv, catalogSrv, api.HTTPDeps{
		Log:     zap.NewNop(),
		Service: "api",
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, envelope) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope: %v body=%s", err, string(raw))
		}
	}
	return resp, env
}

func login(t *testing.T, tsURL, email, password string) string {
	t.Helper()

	resp, env := doJSON(t, http.MethodPost, tsURL+"/api/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status=%d message=%s", resp.StatusCode, env.Message)
	}

	var lr struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &lr); err != nil {
		t.Fatalf("decode login data: %v", err)
	}
	if lr.AccessToken == "" {
		t.Fatalf("empty access_token")
	}
	return lr.AccessToken
}

func decodeSweet(t *testing.T, data json.RawMessage) catalog.Sweet {
	t.Helper()

	var sw catalog.Sweet
	if err := json.Unmarshal(data, &sw); err != nil {
		t.Fatalf("decode sweet: %v data=%s", err, string(data))
	}
	return sw
}

func TestAPI_InventoryLifecycle(t *testing.T) {
	ts := newAPITS(t)

	{
		resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]any{
			"username": "shopper",
			"email":    "shopper@shop.test",
			"password": "shopper-pw-1",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("register status=%d message=%s", resp.StatusCode, env.Message)
		}
		if !env.Success {
			t.Fatalf("register success=false")
		}
	}

	adminTok := login(t, ts.URL, "admin@shop.test", "admin-secret-pw")
	userTok := login(t, ts.URL, "shopper@shop.test", "shopper-pw-1")

	var sweetID string
	{
		resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/sweets/", adminTok, map[string]any{
			"name":        "Fudge Square",
			"description": "dense and dark",
			"category":    "chocolate",
			"price_cents": 100,
			"quantity":    10,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status=%d message=%s errors=%s", resp.StatusCode, env.Message, string(env.Errors))
		}
		sw := decodeSweet(t, env.Data)
		if sw.ID == "" || sw.CreatedBy != "u_admin" {
			t.Fatalf("created sweet id=%q created_by=%q", sw.ID, sw.CreatedBy)
		}
		if sw.Image != catalog.DefaultImage {
			t.Fatalf("image=%q", sw.Image)
		}
		sweetID = sw.ID
	}

	{
		resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/sweets/"+sweetID, userTok, map[string]any{
			"price_cents": 1,
		})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("non-admin update status=%d", resp.StatusCode)
		}
	}

	{
		resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/sweets/"+sweetID+"/purchase", userTok, map[string]any{
			"quantity": 7,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("purchase status=%d message=%s", resp.StatusCode, env.Message)
		}
		if sw := decodeSweet(t, env.Data); sw.Quantity != 3 {
			t.Fatalf("after purchase quantity=%d want=3", sw.Quantity)
		}
	}

	{
		resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/sweets/"+sweetID+"/purchase", userTok, map[string]any{
			"quantity": 5,
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("oversell status=%d", resp.StatusCode)
		}
		if env.Success || env.Message != "insufficient quantity available" {
			t.Fatalf("oversell success=%v message=%q", env.Success, env.Message)
		}
	}

	{
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/sweets/"+sweetID+"/restock", userTok, map[string]any{
			"quantity": 5,
		})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("non-admin restock status=%d", resp.StatusCode)
		}
	}

	{
		resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/sweets/"+sweetID+"/restock", adminTok, map[string]any{
			"quantity": 5,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("restock status=%d message=%s", resp.StatusCode, env.Message)
		}
		if sw := decodeSweet(t, env.Data); sw.Quantity != 8 {
			t.Fatalf("after restock quantity=%d want=8", sw.Quantity)
		}
	}
}

func TestAPI_RequiresAuth(t *testing.T) {
	ts := newAPITS(t)

	for _, path := range []string{"/api/sweets/", "/api/sweets/search", "/api/sweets/s_1"} {
		resp, env := doJSON(t, http.MethodGet, ts.URL+path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s status=%d", path, resp.StatusCode)
		}
		if env.Success || env.Message != "unauthorized" {
			t.Fatalf("%s success=%v message=%q", path, env.Success, env.Message)
		}
	}

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/sweets/", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status=%d", resp.StatusCode)
	}
}

func TestAPI_Search(t *testing.T) {
	ts := newAPITS(t)
	adminTok := login(t, ts.URL, "admin@shop.test", "admin-secret-pw")

	seeds := []map[string]any{
		{"name": "Chocolate Bar", "description": "milk chocolate", "category": "chocolate", "price_cents": 1000, "quantity": 5},
		{"name": "Gummy Bears", "description": "fruit flavored", "category": "gummy", "price_cents": 1500, "quantity": 5},
		{"name": "Choco Drops", "description": "bite sized", "category": "chocolate", "price_cents": 2500, "quantity": 5},
	}
	for _, s := range seeds {
		resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/sweets/", adminTok, s)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed %v status=%d message=%s", s["name"], resp.StatusCode, env.Message)
		}
	}

	names := func(data json.RawMessage) []string {
		var sweets []catalog.Sweet
		if err := json.Unmarshal(data, &sweets); err != nil {
			t.Fatalf("decode sweets: %v", err)
		}
		out := make([]string, 0, len(sweets))
		for _, sw := range sweets {
			out = append(out, sw.Name)
		}
		return out
	}

	{
		resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/sweets/search?query=cho&max_price_cents=1200", adminTok, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("search status=%d message=%s", resp.StatusCode, env.Message)
		}
		got := names(env.Data)
		if len(got) != 1 || got[0] != "Chocolate Bar" {
			t.Fatalf("search names=%v", got)
		}
	}

	{
		resp, env := doJSON(t, http.MethodGet, ts.URL+"/api/sweets/search?category=licorice", adminTok, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("bad category status=%d", resp.StatusCode)
		}
		if env.Message != "invalid search parameters" {
			t.Fatalf("message=%q", env.Message)
		}
	}
}

func TestAPI_CreateValidation(t *testing.T) {
	ts := newAPITS(t)
	adminTok := login(t, ts.URL, "admin@shop.test", "admin-secret-pw")

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"description": "d", "category": "candy", "price_cents": 1, "quantity": 1}},
		{"unknown category", map[string]any{"name": "X", "description": "d", "category": "licorice", "price_cents": 1, "quantity": 1}},
		{"negative price", map[string]any{"name": "X", "description": "d", "category": "candy", "price_cents": -1, "quantity": 1}},
		{"unknown field", map[string]any{"name": "X", "description": "d", "category": "candy", "price_cents": 1, "quantity": 1, "created_by": "u_evil"}},
	}
	for _, tc := range cases {
		resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/sweets/", adminTok, tc.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status=%d message=%s", tc.name, resp.StatusCode, env.Message)
		}
		if env.Success {
			t.Fatalf("%s: success=true", tc.name)
		}
	}
}

func TestAPI_RegisterNeverGrantsAdmin(t *testing.T) {
	ts := newAPITS(t)

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]any{
		"username": "sneaky",
		"email":    "sneaky@shop.test",
		"password": "sneaky-pw-1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status=%d message=%s", resp.StatusCode, env.Message)
	}

	tok := login(t, ts.URL, "sneaky@shop.test", "sneaky-pw-1")

	resp, env = doJSON(t, http.MethodGet, ts.URL+"/api/auth/whoami", tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("whoami status=%d", resp.StatusCode)
	}
	var u struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(env.Data, &u); err != nil {
		t.Fatalf("decode whoami: %v", err)
	}
	if u.Role != auth.RoleUser {
		t.Fatalf("role=%q want=%q", u.Role, auth.RoleUser)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/sweets/", tok, map[string]any{
		"name": "X", "description": "d", "category": "candy", "price_cents": 1, "quantity": 1,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("create as user status=%d", resp.StatusCode)
	}
}

func TestAPI_DuplicateEmailConflict(t *testing.T) {
	ts := newAPITS(t)

	body := map[string]any{
		"username": "bob",
		"email":    "bob@shop.test",
		"password": "bob-password",
	}
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register status=%d", resp.StatusCode)
	}

	resp, env := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second register status=%d message=%s", resp.StatusCode, env.Message)
	}
}

func TestAPI_HealthProbes(t *testing.T) {
	ts := newAPITS(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d", path, resp.StatusCode)
		}
	}
}

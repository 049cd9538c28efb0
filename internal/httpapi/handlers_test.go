package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"estoquepro/backend/internal/domain"
	"estoquepro/backend/internal/service"
	"estoquepro/backend/internal/store/memory"
)

type testEnv struct {
	handler http.Handler
	token   string
	repo    *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := memory.New()
	svc := service.New(repo, nil)
	auth := NewAuthManager("test-secret", time.Hour, repo)
	api := New(svc, auth, "*")

	env := &testEnv{handler: api.Handler(), repo: repo}
	resp := env.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"email":    "dona@loja.com",
		"password": "segredo1",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("signup failed: %d %s", resp.Code, resp.Body.String())
	}
	var login domain.LoginResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	env.token = login.AccessToken
	return env
}

func (e *testEnv) do(t *testing.T, method, path, contentType string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequiredOnProtectedRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	for _, path := range []string{"/api/v1/products", "/api/v1/sales/summary", "/api/v1/audit-logs"} {
		resp := env.do(t, http.MethodGet, path, "", nil)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.Code)
		}
	}
}

func TestProductCreateListSearch(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/products", "", map[string]any{
		"barcode":    "7891000100103",
		"name":       "Café Pilão 500g",
		"quantity":   12,
		"sale_cents": 2190,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(t, http.MethodGet, "/api/v1/products", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list: %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Café Pilão") {
		t.Fatalf("list should contain the product, got %s", resp.Body.String())
	}

	resp = env.do(t, http.MethodGet, "/api/v1/products/search?q=cafe", "", nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "Café Pilão") {
		t.Fatalf("search: %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(t, http.MethodGet, "/api/v1/products/search?q=7891000100103", "", nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "Café Pilão") {
		t.Fatalf("barcode search: %d %s", resp.Code, resp.Body.String())
	}
}

func TestBatchEntryCSVUpload(t *testing.T) {
	env := newTestEnv(t)

	csv := "codigo;nome;qtd;custo;venda\n100;Pilha AA;4;1,20;3,50\n200;Cabo USB;2;;12,50\n"
	resp := env.do(t, http.MethodPost, "/api/v1/stock/batch", "text/csv", csv)
	if resp.Code != http.StatusOK {
		t.Fatalf("batch: %d %s", resp.Code, resp.Body.String())
	}
	var out domain.BatchEntryResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Created != 2 || out.Updated != 0 {
		t.Fatalf("expected 2 creates, got %+v", out)
	}
}

func TestBatchEntryAllRowsInvalidIs422(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/stock/batch", "", map[string]any{
		"rows": []map[string]string{{"barcode": "", "quantity": "x"}},
	})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "row 1") {
		t.Fatalf("row errors must be enumerated, got %s", resp.Body.String())
	}
}

func TestFinalizeSaleEndpoint(t *testing.T) {
	env := newTestEnv(t)

	create := env.do(t, http.MethodPost, "/api/v1/products", "", map[string]any{
		"barcode":    "100",
		"name":       "Café",
		"quantity":   10,
		"sale_cents": 1000,
	})
	var created struct {
		Product domain.Product `json:"product"`
	}
	if err := json.Unmarshal(create.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	resp := env.do(t, http.MethodPost, "/api/v1/sales/finalize", "", map[string]any{
		"cart": []map[string]any{{
			"product_id": created.Product.ID,
			"barcode":    "100",
			"name":       "Café",
			"unit_cents": 1000,
			"quantity":   2,
		}},
		"discount": "2,00",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("finalize: %d %s", resp.Code, resp.Body.String())
	}
	var out domain.FinalizeSaleResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TotalCents != 1800 || out.LinesSettled != 1 {
		t.Fatalf("unexpected settlement: %+v", out)
	}

	hist := env.do(t, http.MethodGet, "/api/v1/sales/history", "", nil)
	if hist.Code != http.StatusOK || !strings.Contains(hist.Body.String(), out.SaleID) {
		t.Fatalf("history should contain the sale: %d %s", hist.Code, hist.Body.String())
	}
}

func TestFinalizeSaleInsufficientStockIs409(t *testing.T) {
	env := newTestEnv(t)

	create := env.do(t, http.MethodPost, "/api/v1/products", "", map[string]any{
		"barcode":    "100",
		"name":       "Café",
		"quantity":   1,
		"sale_cents": 1000,
	})
	var created struct {
		Product domain.Product `json:"product"`
	}
	if err := json.Unmarshal(create.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	resp := env.do(t, http.MethodPost, "/api/v1/sales/finalize", "", map[string]any{
		"cart": []map[string]any{{
			"product_id": created.Product.ID,
			"unit_cents": 1000,
			"quantity":   5,
		}},
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestPricingQuoteEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/pricing/quote", "", map[string]any{
		"cost":          "100",
		"simple_mode":   true,
		"tax_percent":   "10",
		"mode":          "margin",
		"target_margin": "20",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("quote: %d %s", resp.Code, resp.Body.String())
	}
	var out domain.PricingResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.SaleCents != 13750 {
		t.Fatalf("expected 13750, got %d", out.SaleCents)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/pricing/quote", "", map[string]any{
		"cost":          "100",
		"mode":          "margin",
		"target_margin": "150",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for margin >= 100, got %d", resp.Code)
	}
}

func TestStoreSettingsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/api/v1/settings/store", "", map[string]any{
		"name":     "Mercadinho da Ana",
		"logo_url": "https://cdn/logo.png",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("save settings: %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(t, http.MethodGet, "/api/v1/settings/store", "", nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "Mercadinho da Ana") {
		t.Fatalf("get settings: %d %s", resp.Code, resp.Body.String())
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/products", "", map[string]any{
		"barcode":    "100",
		"name":       "Café",
		"sale_cents": 1000,
		"bogus":      true,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unknown fields must be rejected, got %d", resp.Code)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("healthz: %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

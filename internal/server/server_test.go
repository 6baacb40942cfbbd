package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	auditdomain "github.com/billfold/billfold/internal/audit/domain"
	auditservice "github.com/billfold/billfold/internal/audit/service"
	authdomain "github.com/billfold/billfold/internal/auth/domain"
	authservice "github.com/billfold/billfold/internal/auth/service"
	"github.com/billfold/billfold/internal/clock"
	"github.com/billfold/billfold/internal/config"
	dashboardservice "github.com/billfold/billfold/internal/dashboard/service"
	invoicedomain "github.com/billfold/billfold/internal/invoice/domain"
	"github.com/billfold/billfold/internal/invoice/render"
	invoiceservice "github.com/billfold/billfold/internal/invoice/service"
	obscontext "github.com/billfold/billfold/internal/observability/context"
)

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&authdomain.User{}, &invoicedomain.Invoice{}, &auditdomain.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	log := zap.NewNop()
	cfg := config.Config{
		Environment: "test",
		HTTPAddr:    ":0",
		JWTSecret:   "test-secret",
		TokenTTL:    time.Hour,
	}

	return NewServer(ServerParam{
		Cfg: cfg,
		DB:  db,
		Log: log,
		AuthSvc: authservice.NewService(authservice.ServiceParam{
			DB: db, Log: log, GenID: node, Clock: clock.SystemClock{}, Cfg: cfg,
		}),
		InvoiceSvc: invoiceservice.NewService(invoiceservice.ServiceParam{
			DB: db, Log: log, GenID: node, Clock: clock.SystemClock{}, Renderer: render.NewRenderer(),
		}),
		DashboardSvc: dashboardservice.NewService(dashboardservice.ServiceParam{DB: db, Log: log}),
		AuditSvc: auditservice.NewService(auditservice.ServiceParam{
			DB: db, Log: log, GenID: node, Clock: clock.SystemClock{},
		}),
	}), db
}

func setupTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	srv, db := newTestServer(t)

	engine := gin.New()
	engine.Use(srv.AuditContext())
	srv.RegisterRoutes(engine)
	return engine, db
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func signUp(t *testing.T, engine *gin.Engine, email string) string {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email":    email,
		"password": "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signup status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	if resp.Data.Token == "" {
		t.Fatalf("signup returned no token")
	}
	return resp.Data.Token
}

func TestAuthRequiredStampsObservabilityUserID(t *testing.T) {
	srv, _ := newTestServer(t)

	// Mimic the request logger: it reads the user id after the chain ran.
	var logged string
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Next()
		logged = obscontext.UserIDFromGin(c)
	})
	engine.Use(srv.AuditContext())
	srv.RegisterRoutes(engine)

	token := signUp(t, engine, "ann@example.com")
	logged = ""
	rec := doJSON(t, engine, http.MethodGet, "/v1/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	if logged == "" {
		t.Fatalf("authenticated request left no user id for the request log")
	}
}

func TestInvoiceEndpointsRequireAuth(t *testing.T) {
	engine, _ := setupTestServer(t)

	rec := doJSON(t, engine, http.MethodGet, "/v1/invoices", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/v1/invoices", "garbage-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d for bad token, want 401", rec.Code)
	}
}

func TestInvoiceLifecycleOverHTTP(t *testing.T) {
	engine, db := setupTestServer(t)
	token := signUp(t, engine, "ann@example.com")

	rec := doJSON(t, engine, http.MethodPost, "/v1/invoices", token, map[string]any{
		"invoice_number": "INV-001",
		"receiver":       map[string]string{"name": "Bob"},
		"items": []map[string]any{
			{"description": "Design", "qty": 2, "rate": 100},
		},
		"tax_rate_percent": 10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Data struct {
			ID       string  `json:"id"`
			Status   string  `json:"status"`
			Subtotal float64 `json:"subtotal"`
			Total    float64 `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Data.Status != "draft" {
		t.Fatalf("status = %q, want draft", created.Data.Status)
	}
	if created.Data.Subtotal != 200 || created.Data.Total != 220 {
		t.Fatalf("totals = %v/%v, want 200/220", created.Data.Subtotal, created.Data.Total)
	}

	rec = doJSON(t, engine, http.MethodPatch, "/v1/invoices/"+created.Data.ID+"/status", token, map[string]string{
		"status": "sent",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status update = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodGet, "/v1/invoices", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Data struct {
			Invoices []struct {
				Status string `json:"status"`
			} `json:"invoices"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Data.Invoices) != 1 || list.Data.Invoices[0].Status != "sent" {
		t.Fatalf("unexpected list %+v", list.Data.Invoices)
	}

	rec = doJSON(t, engine, http.MethodGet, "/v1/invoices/"+created.Data.ID+"/html", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("html status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("content type = %q", got)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("INV-001")) {
		t.Fatalf("rendered html missing invoice number")
	}

	var auditCount int64
	if err := db.Table("audit_logs").Count(&auditCount).Error; err != nil {
		t.Fatalf("count audit logs: %v", err)
	}
	if auditCount < 3 {
		t.Fatalf("audit logs = %d, want signup + create + status change", auditCount)
	}
}

func TestInvoicesAreIsolatedPerUser(t *testing.T) {
	engine, _ := setupTestServer(t)
	annToken := signUp(t, engine, "ann@example.com")
	bobToken := signUp(t, engine, "bob@example.com")

	rec := doJSON(t, engine, http.MethodPost, "/v1/invoices", annToken, map[string]any{
		"invoice_number": "INV-ANN",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, engine, http.MethodGet, "/v1/invoices/"+created.Data.ID, bobToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-user read status = %d, want 404", rec.Code)
	}
}

func TestProfileUpdateOverHTTP(t *testing.T) {
	engine, _ := setupTestServer(t)
	token := signUp(t, engine, "ann@example.com")

	rec := doJSON(t, engine, http.MethodPut, "/v1/auth/profile", token, map[string]string{
		"display_name": "Ann Archer",
		"email":        "ann.archer@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("profile update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodGet, "/v1/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	var me struct {
		Data struct {
			DisplayName string `json:"display_name"`
			Email       string `json:"email"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Data.DisplayName != "Ann Archer" || me.Data.Email != "ann.archer@example.com" {
		t.Fatalf("profile not updated: %+v", me.Data)
	}
}

func TestDashboardStatsOverHTTP(t *testing.T) {
	engine, _ := setupTestServer(t)
	token := signUp(t, engine, "ann@example.com")

	rec := doJSON(t, engine, http.MethodPost, "/v1/invoices", token, map[string]any{
		"items":            []map[string]any{{"qty": 1, "rate": 100}},
		"tax_rate_percent": 0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/v1/dashboard/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d: %s", rec.Code, rec.Body.String())
	}
	var stats struct {
		Data struct {
			TotalInvoices int64 `json:"total_invoices"`
			Statuses      struct {
				Draft int64 `json:"draft"`
			} `json:"statuses"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Data.TotalInvoices != 1 || stats.Data.Statuses.Draft != 1 {
		t.Fatalf("unexpected stats %+v", stats.Data)
	}
}

func TestHealthz(t *testing.T) {
	engine, _ := setupTestServer(t)

	rec := doJSON(t, engine, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

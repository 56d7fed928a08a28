package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/scaf-dev/scaf/internal/auth"
	"github.com/scaf-dev/scaf/internal/counter"
	"github.com/scaf-dev/scaf/internal/models"
	"github.com/scaf-dev/scaf/internal/pagination"
	"github.com/scaf-dev/scaf/internal/rbac"
	"github.com/scaf-dev/scaf/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a file-backed database: every :memory: connection in the pool is
	// its own empty database, but the casbin adapter needs two connections
	// at once when saving policies.
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Template{}, &models.AuditLog{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := rbac.InitEnforcer(db, slog.Default()); err != nil {
		t.Fatalf("failed to init rbac: %v", err)
	}
	return db
}

// asUser is a test middleware that injects an authenticated user into
// the request context, standing in for the real bearer middleware.
func asUser(user auth.CurrentUser) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.UserContextKey, user)
		c.Next()
	}
}

func testRouter(t *testing.T, db *gorm.DB, user auth.CurrentUser) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewTemplateHandler(service.New(db), counter.NewMemoryCounter())

	r := gin.New()
	r.GET("/template", h.ListTemplates)
	r.GET("/template/:username/:id", h.GetTemplate)
	r.GET("/template/:username/:id/export", h.ExportTemplate)

	protected := r.Group("", asUser(user))
	protected.POST("/template", h.CreateTemplate)
	protected.PUT("/template/:username/:id", h.UpdateTemplate)
	protected.DELETE("/template/:username/:id", h.DeleteTemplate)
	protected.POST("/template/:username/:id", h.StarTemplate)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testUser(username string) auth.CurrentUser {
	return auth.CurrentUser{ID: uuid.New(), Username: username, Email: username + "@test.com"}
}

func TestCreateTemplate_Returns201(t *testing.T) {
	db := setupTestDB(t)
	alice := testUser("alice")
	r := testRouter(t, db, alice)

	w := doJSON(t, r, http.MethodPost, "/template", CreateTemplateRequest{
		Name: "react-starter",
		Tags: []string{"react"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var tpl models.Template
	if err := json.Unmarshal(w.Body.Bytes(), &tpl); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if tpl.ID != "alice/react-starter" {
		t.Errorf("expected id alice/react-starter, got %q", tpl.ID)
	}
	if tpl.Status != models.StatusDraft {
		t.Errorf("expected draft, got %q", tpl.Status)
	}

	// Creator can now edit the template
	allowed, err := rbac.CanEditTemplate(alice.ID, tpl.ID)
	if err != nil {
		t.Fatalf("rbac check: %v", err)
	}
	if !allowed {
		t.Error("expected creator to own the template")
	}
}

func TestCreateTemplate_InvalidBody(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter(t, db, testUser("alice"))

	// name is required at the binding layer
	w := doJSON(t, r, http.MethodPost, "/template", map[string]any{"tags": []string{"x"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCreateTemplate_DuplicateReturns409(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter(t, db, testUser("alice"))

	body := CreateTemplateRequest{Name: "dup", Tags: []string{"x"}}
	if w := doJSON(t, r, http.MethodPost, "/template", body); w.Code != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/template", body); w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetTemplate_NotFoundReturns404(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter(t, db, testUser("alice"))

	w := doJSON(t, r, http.MethodGet, "/template/alice/absent", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestListTemplates_Envelope(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter(t, db, testUser("alice"))

	for _, name := range []string{"one", "two", "three"} {
		doJSON(t, r, http.MethodPost, "/template", CreateTemplateRequest{Name: name, Tags: []string{"x"}})
	}

	w := doJSON(t, r, http.MethodGet, "/template?page=1&limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var result pagination.Response[models.Template]
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Pagination.Total != 3 || result.Pagination.TotalPages != 2 {
		t.Errorf("unexpected envelope: %+v", result.Pagination)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 items, got %d", len(result.Data))
	}
}

func TestListTemplates_BadPageParamsFallBack(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter(t, db, testUser("alice"))

	doJSON(t, r, http.MethodPost, "/template", CreateTemplateRequest{Name: "only", Tags: []string{"x"}})

	// Out-of-range and non-numeric params never fail the request
	w := doJSON(t, r, http.MethodGet, "/template?page=zero&limit=9999", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var result pagination.Response[models.Template]
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Pagination.Page != 1 || result.Pagination.Limit != pagination.DefaultLimit {
		t.Errorf("expected normalized page/limit, got %+v", result.Pagination)
	}
}

func TestUpdateTemplate_OwnerCanPatch(t *testing.T) {
	db := setupTestDB(t)
	alice := testUser("alice")
	r := testRouter(t, db, alice)

	doJSON(t, r, http.MethodPost, "/template", CreateTemplateRequest{Name: "patchy", Tags: []string{"x"}})

	w := doJSON(t, r, http.MethodPut, "/template/alice/patchy", map[string]any{
		"description": "fresh",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var tpl models.Template
	if err := json.Unmarshal(w.Body.Bytes(), &tpl); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if tpl.Description != "fresh" {
		t.Errorf("expected updated description, got %q", tpl.Description)
	}
}

func TestUpdateTemplate_NonOwnerForbidden(t *testing.T) {
	db := setupTestDB(t)
	alice := testUser("alice")
	r := testRouter(t, db, alice)
	doJSON(t, r, http.MethodPost, "/template", CreateTemplateRequest{Name: "guarded", Tags: []string{"x"}})

	// Same routes, different caller
	mallory := testUser("mallory")
	r2 := testRouter(t, db, mallory)
	w := doJSON(t, r2, http.MethodPut, "/template/alice/guarded", map[string]any{
		"description": "hijacked",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateTemplate_AdminBypassesOwnership(t *testing.T) {
	db := setupTestDB(t)
	alice := testUser("alice")
	r := testRouter(t, db, alice)
	doJSON(t, r, http.MethodPost, "/template", CreateTemplateRequest{Name: "moderated", Tags: []string{"x"}})

	admin := testUser("root")
	if err := rbac.MakeAdmin(admin.ID); err != nil {
		t.Fatalf("make admin: %v", err)
	}
	r2 := testRouter(t, db, admin)
	w := doJSON(t, r2, http.MethodDelete, "/template/alice/moderated", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected admin to discard, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDeleteTemplate_SoftDiscard(t *testing.T) {
	db := setupTestDB(t)
	alice := testUser("alice")
	r := testRouter(t, db, alice)
	doJSON(t, r, http.MethodPost, "/template", CreateTemplateRequest{Name: "gone", Tags: []string{"x"}})

	w := doJSON(t, r, http.MethodDelete, "/template/alice/gone", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var tpl models.Template
	if err := json.Unmarshal(w.Body.Bytes(), &tpl); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if tpl.Status != models.StatusDiscarded {
		t.Errorf("expected discarded, got %q", tpl.Status)
	}

	// Still readable by ID after discard
	w = doJSON(t, r, http.MethodGet, "/template/alice/gone", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected discarded template to stay readable, got %d", w.Code)
	}

	// But absent from the default listing
	w = doJSON(t, r, http.MethodGet, "/template", nil)
	var result pagination.Response[models.Template]
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Pagination.Total != 0 {
		t.Errorf("expected empty listing after discard, got %d", result.Pagination.Total)
	}
}

func TestStarTemplate_ReturnsEmptyObject(t *testing.T) {
	db := setupTestDB(t)
	alice := testUser("alice")
	r := testRouter(t, db, alice)
	doJSON(t, r, http.MethodPost, "/template", CreateTemplateRequest{Name: "starry", Tags: []string{"x"}})

	w := doJSON(t, r, http.MethodPost, "/template/alice/starry", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != "{}" {
		t.Errorf("expected empty object body, got %s", body)
	}
}

func TestExportTemplate_CountsDownloads(t *testing.T) {
	db := setupTestDB(t)
	alice := testUser("alice")
	r := testRouter(t, db, alice)
	doJSON(t, r, http.MethodPost, "/template", CreateTemplateRequest{Name: "exported", Tags: []string{"x"}})

	w := doJSON(t, r, http.MethodGet, "/template/alice/exported/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="alice-exported.json"` {
		t.Errorf("unexpected Content-Disposition: %q", cd)
	}

	var tpl models.Template
	if err := json.Unmarshal(w.Body.Bytes(), &tpl); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if tpl.Downloads != 1 {
		t.Errorf("expected downloads=1, got %d", tpl.Downloads)
	}

	// A second export bumps the counter again
	w = doJSON(t, r, http.MethodGet, "/template/alice/exported/export", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &tpl); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if tpl.Downloads != 2 {
		t.Errorf("expected downloads=2, got %d", tpl.Downloads)
	}
}

func TestExportTemplate_NotFound(t *testing.T) {
	db := setupTestDB(t)
	r := testRouter(t, db, testUser("alice"))

	w := doJSON(t, r, http.MethodGet, "/template/alice/absent/export", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

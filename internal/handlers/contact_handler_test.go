package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pulsecrm/internal/models"
	"pulsecrm/internal/services"
)

func newContactRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := newHandlerTestDB(t)
	svc := services.NewContactService(db, quietLogger())
	h := NewContactHandler(svc, quietLogger())

	r := newTestEngine(testUserID)
	api := r.Group("/api")
	RegisterContactRoutes(api, h)
	return r, db
}

func TestContactHandler_CRUDLifecycle(t *testing.T) {
	r, _ := newContactRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/contacts", map[string]interface{}{
		"email":      "ada@example.com",
		"first_name": "Ada",
		"company":    "Analytical Engines",
		"custom_fields": map[string]interface{}{
			"industry": "computing",
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	var created models.Contact
	decodeJSON(t, w, &created)
	if created.ID == 0 || created.Email != "ada@example.com" {
		t.Fatalf("unexpected contact: %+v", created)
	}
	if created.Status != "lead" {
		t.Fatalf("expected default status lead, got %q", created.Status)
	}

	w = doJSON(t, r, http.MethodGet, "/api/contacts/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/contacts?page=1&page_size=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d", w.Code)
	}
	var page PaginatedResponse
	decodeJSON(t, w, &page)
	if page.Total != 1 {
		t.Fatalf("expected 1 contact, got %d", page.Total)
	}

	w = doJSON(t, r, http.MethodPut, "/api/contacts/1", map[string]interface{}{
		"email":      "ada@example.com",
		"first_name": "Ada",
		"status":     "customer",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", w.Code, w.Body.String())
	}
	var updated models.Contact
	decodeJSON(t, w, &updated)
	if updated.Status != "customer" {
		t.Fatalf("update not applied: %+v", updated)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/contacts/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status=%d body=%s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodGet, "/api/contacts/1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestContactHandler_CreateRequiresIdentity(t *testing.T) {
	r, _ := newContactRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/contacts", map[string]interface{}{
		"company": "Nameless Inc",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestContactHandler_TagEndpoints(t *testing.T) {
	r, db := newContactRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/contacts", map[string]interface{}{
		"email": "grace@example.com",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/contacts/1/tags", map[string]interface{}{"tag": "vip"})
	if w.Code != http.StatusOK {
		t.Fatalf("add tag status=%d body=%s", w.Code, w.Body.String())
	}

	// missing tag body
	w = doJSON(t, r, http.MethodPost, "/api/contacts/1/tags", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing tag, got %d", w.Code)
	}

	var contact models.Contact
	if err := db.First(&contact, 1).Error; err != nil {
		t.Fatalf("load contact: %v", err)
	}
	if tags := contact.Tags(); len(tags) != 1 || tags[0] != "vip" {
		t.Fatalf("tags = %v", tags)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/contacts/1/tags/vip", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("remove tag status=%d body=%s", w.Code, w.Body.String())
	}
	if err := db.First(&contact, 1).Error; err != nil {
		t.Fatalf("reload contact: %v", err)
	}
	if tags := contact.Tags(); len(tags) != 0 {
		t.Fatalf("expected no tags, got %v", tags)
	}
}

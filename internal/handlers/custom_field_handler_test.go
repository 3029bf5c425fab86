package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"pulsecrm/internal/models"
	"pulsecrm/internal/services"
)

func newCustomFieldRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db := newHandlerTestDB(t)
	h := NewCustomFieldHandler(services.NewCustomFieldService(db), quietLogger())

	r := newTestEngine(testUserID)
	api := r.Group("/api")
	RegisterCustomFieldRoutes(api, h)
	return r
}

func TestCustomFieldHandler_Lifecycle(t *testing.T) {
	r := newCustomFieldRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/custom-fields", map[string]interface{}{
		"resource": "contact",
		"key":      "industry",
		"name":     "Industry",
		"type":     "select",
		"options":  []string{"computing", "retail"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	var created models.CustomField
	decodeJSON(t, w, &created)
	if created.ID == 0 || created.Key != "industry" {
		t.Fatalf("unexpected field: %+v", created)
	}
	if !created.Active {
		t.Fatal("new field should default to active")
	}

	w = doJSON(t, r, http.MethodGet, "/api/custom-fields?resource=contact", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d", w.Code)
	}
	var fields []models.CustomField
	decodeJSON(t, w, &fields)
	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	// deactivate, then the active-only listing hides it
	w = doJSON(t, r, http.MethodPut, "/api/custom-fields/1", map[string]interface{}{
		"active": false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodGet, "/api/custom-fields?resource=contact&active=true", nil)
	decodeJSON(t, w, &fields)
	if len(fields) != 0 {
		t.Fatalf("expected inactive field hidden, got %+v", fields)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/custom-fields/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status=%d body=%s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodDelete, "/api/custom-fields/1", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on double delete, got %d", w.Code)
	}
}

func TestCustomFieldHandler_CreateValidation(t *testing.T) {
	r := newCustomFieldRouter(t)

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing key", map[string]interface{}{"name": "X", "type": "string"}},
		{"bad key", map[string]interface{}{"key": "9lives", "name": "X", "type": "string"}},
		{"bad type", map[string]interface{}{"key": "score", "name": "Score", "type": "decimal"}},
		{"bad resource", map[string]interface{}{"resource": "ticket", "key": "score", "name": "Score", "type": "number"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/custom-fields", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
		})
	}
}

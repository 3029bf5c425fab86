package services

import (
	"context"
	"testing"
)

func TestCustomFieldService_Create(t *testing.T) {
	svc := NewCustomFieldService(newEngineTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *CustomFieldCreateRequest
		wantErr bool
	}{
		{"valid string field", &CustomFieldCreateRequest{Key: "industry", Name: "Industry", Type: "string"}, false},
		{"valid select with options", &CustomFieldCreateRequest{
			Key: "tier", Name: "Tier", Type: "select", Options: []string{"gold", "silver"},
		}, false},
		{"deal resource", &CustomFieldCreateRequest{
			Resource: EntityDeal, Key: "region", Name: "Region", Type: "string",
		}, false},
		{"nil request", nil, true},
		{"bad key with spaces", &CustomFieldCreateRequest{Key: "has space", Name: "X", Type: "string"}, true},
		{"key starting with digit", &CustomFieldCreateRequest{Key: "1st", Name: "X", Type: "string"}, true},
		{"bad type", &CustomFieldCreateRequest{Key: "x", Name: "X", Type: "json"}, true},
		{"missing name", &CustomFieldCreateRequest{Key: "x", Type: "string"}, true},
		{"bad resource", &CustomFieldCreateRequest{Resource: "ticket", Key: "x", Name: "X", Type: "string"}, true},
		{"raw json options", &CustomFieldCreateRequest{
			Key: "level", Name: "Level", Type: "select", Options: `["a","b"]`,
		}, false},
		{"invalid raw json options", &CustomFieldCreateRequest{
			Key: "bad", Name: "Bad", Type: "select", Options: `[not json`,
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, err := svc.Create(ctx, 1, tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !field.Active {
				t.Error("new field should default to active")
			}
		})
	}
}

func TestCustomFieldService_ListAndUpdate(t *testing.T) {
	svc := NewCustomFieldService(newEngineTestDB(t))
	ctx := context.Background()

	field, _ := svc.Create(ctx, 1, &CustomFieldCreateRequest{Key: "a", Name: "A", Type: "string"})
	svc.Create(ctx, 1, &CustomFieldCreateRequest{Resource: EntityDeal, Key: "b", Name: "B", Type: "number"})
	svc.Create(ctx, 2, &CustomFieldCreateRequest{Key: "c", Name: "C", Type: "string"})

	contactFields, err := svc.List(ctx, 1, EntityContact, false)
	if err != nil || len(contactFields) != 1 {
		t.Fatalf("List contact = %d err %v", len(contactFields), err)
	}
	dealFields, _ := svc.List(ctx, 1, EntityDeal, false)
	if len(dealFields) != 1 {
		t.Errorf("List deal = %d", len(dealFields))
	}

	inactive := false
	updated, err := svc.Update(ctx, 1, field.ID, &CustomFieldUpdateRequest{Active: &inactive})
	if err != nil || updated.Active {
		t.Fatalf("deactivate: active=%v err %v", updated.Active, err)
	}
	activeOnly, _ := svc.List(ctx, 1, EntityContact, true)
	if len(activeOnly) != 0 {
		t.Errorf("active-only list = %d, want deactivated field excluded", len(activeOnly))
	}

	badType := "json"
	if _, err := svc.Update(ctx, 1, field.ID, &CustomFieldUpdateRequest{Type: &badType}); err == nil {
		t.Error("bad type accepted on update")
	}
	if _, err := svc.Update(ctx, 2, field.ID, &CustomFieldUpdateRequest{}); err == nil {
		t.Error("cross-tenant update succeeded")
	}

	if err := svc.Delete(ctx, 1, field.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, 1, field.ID); err == nil {
		t.Error("double delete succeeded")
	}
}

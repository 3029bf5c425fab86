package services

import "testing"

func TestTriggerHelpers(t *testing.T) {
	for _, trigger := range []string{
		TriggerContactCreated, TriggerContactUpdated,
		TriggerDealCreated, TriggerDealUpdated, TriggerDealStageChanged,
	} {
		if !IsSupportedTrigger(trigger) {
			t.Errorf("trigger %q not supported", trigger)
		}
	}
	if IsSupportedTrigger("contact_deleted") {
		t.Error("unknown trigger accepted")
	}

	if got := TriggerEntityType(TriggerDealStageChanged); got != EntityDeal {
		t.Errorf("entity for stage change = %s", got)
	}
	if got := TriggerEntityType(TriggerContactUpdated); got != EntityContact {
		t.Errorf("entity for contact update = %s", got)
	}
}

func TestEventRootNormalization(t *testing.T) {
	ev := NewEvent(TriggerContactUpdated, 1, EntityContact, 5, map[string]interface{}{
		"email":  "a@b.c",
		"status": "lead",
	}, []string{"status"})

	root := ev.Root()
	if root["email"] != "a@b.c" {
		t.Errorf("unqualified key missing: %v", root)
	}
	nested, ok := root["contact"].(map[string]interface{})
	if !ok || nested["email"] != "a@b.c" {
		t.Errorf("qualified entity missing: %v", root)
	}
	changed, ok := root["changedFields"].([]string)
	if !ok || len(changed) != 1 || changed[0] != "status" {
		t.Errorf("changedFields = %v", root["changedFields"])
	}

	// payload keys always win over merged entity attributes
	ev.Data["status"] = "payload-level"
	if got := ev.Root()["status"]; got != "payload-level" {
		t.Errorf("payload key shadowed: %v", got)
	}
}

func TestEventSnapshotMissingEntity(t *testing.T) {
	ev := Event{Type: TriggerContactCreated, EntityType: EntityContact, Data: map[string]interface{}{}}
	snap := ev.Snapshot()
	if snap == nil || len(snap) != 0 {
		t.Errorf("snapshot = %v, want empty map", snap)
	}
	if root := ev.Root(); root == nil {
		t.Error("root nil for empty event")
	}
}

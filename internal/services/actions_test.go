package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pulsecrm/internal/models"

	"github.com/sirupsen/logrus"
)

type fakeContactMutator struct {
	addedTags   []string
	removedTags []string
	fields      map[string]interface{}
	err         error
}

func (f *fakeContactMutator) AddTag(ctx context.Context, userID, contactID uint, tag string) error {
	if f.err != nil {
		return f.err
	}
	f.addedTags = append(f.addedTags, tag)
	return nil
}

func (f *fakeContactMutator) RemoveTag(ctx context.Context, userID, contactID uint, tag string) error {
	if f.err != nil {
		return f.err
	}
	f.removedTags = append(f.removedTags, tag)
	return nil
}

func (f *fakeContactMutator) UpdateField(ctx context.Context, userID, contactID uint, field string, value interface{}) error {
	if f.err != nil {
		return f.err
	}
	if f.fields == nil {
		f.fields = map[string]interface{}{}
	}
	f.fields[field] = value
	return nil
}

type fakeDealMutator struct {
	fields  map[string]interface{}
	stageID uint
	err     error
}

func (f *fakeDealMutator) UpdateField(ctx context.Context, userID, dealID uint, field string, value interface{}) error {
	if f.err != nil {
		return f.err
	}
	if f.fields == nil {
		f.fields = map[string]interface{}{}
	}
	f.fields[field] = value
	return nil
}

func (f *fakeDealMutator) MoveToStageSilent(ctx context.Context, userID, dealID, stageID uint) error {
	if f.err != nil {
		return f.err
	}
	f.stageID = stageID
	return nil
}

type fakeEmailSender struct {
	sent []OutboundEmail
	err  error
}

func (f *fakeEmailSender) Send(ctx context.Context, msg OutboundEmail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func contactEvent() Event {
	return NewEvent(TriggerContactCreated, 1, EntityContact, 7, map[string]interface{}{
		"id":         float64(7),
		"email":      "ada@example.com",
		"first_name": "Ada",
		"tags":       []interface{}{"vip"},
	}, nil)
}

func dealEvent() Event {
	return NewEvent(TriggerDealCreated, 1, EntityDeal, 12, map[string]interface{}{
		"id":    float64(12),
		"title": "Big Deal",
		"value": float64(9000),
		"contact": map[string]interface{}{
			"id":    float64(7),
			"email": "ada@example.com",
		},
	}, nil)
}

func TestActionExecutor_ContactActions(t *testing.T) {
	contacts := &fakeContactMutator{}
	exec := NewActionExecutor(contacts, &fakeDealMutator{}, &fakeEmailSender{}, logrus.New())
	ev := contactEvent()
	auto := &models.Automation{ID: 3}

	res := exec.Execute(context.Background(), auto, Action{
		Type:   ActionAddContactTag,
		Config: map[string]interface{}{"tag": "hot-lead"},
	}, ev, ev.Root())
	if res.Status != "success" {
		t.Fatalf("add tag: status = %s, error = %s", res.Status, res.Error)
	}
	if len(contacts.addedTags) != 1 || contacts.addedTags[0] != "hot-lead" {
		t.Errorf("added tags = %v", contacts.addedTags)
	}

	res = exec.Execute(context.Background(), auto, Action{
		Type:   ActionRemoveContactTag,
		Config: map[string]interface{}{"tag": "vip"},
	}, ev, ev.Root())
	if res.Status != "success" || len(contacts.removedTags) != 1 {
		t.Fatalf("remove tag: %+v removed=%v", res, contacts.removedTags)
	}

	res = exec.Execute(context.Background(), auto, Action{
		Type:   ActionUpdateContactField,
		Config: map[string]interface{}{"field": "status", "value": "customer"},
	}, ev, ev.Root())
	if res.Status != "success" || contacts.fields["status"] != "customer" {
		t.Fatalf("update field: %+v fields=%v", res, contacts.fields)
	}

	res = exec.Execute(context.Background(), auto, Action{
		Type: ActionUpdateCustomField,
		Config: map[string]interface{}{
			"entityType": "contact", "fieldName": "priority", "value": "high",
		},
	}, ev, ev.Root())
	if res.Status != "success" || contacts.fields["customFields.priority"] != "high" {
		t.Fatalf("update custom field: %+v fields=%v", res, contacts.fields)
	}
}

func TestActionExecutor_DealActions(t *testing.T) {
	deals := &fakeDealMutator{}
	exec := NewActionExecutor(&fakeContactMutator{}, deals, &fakeEmailSender{}, logrus.New())
	ev := dealEvent()
	auto := &models.Automation{ID: 3}

	res := exec.Execute(context.Background(), auto, Action{
		Type:   ActionUpdateDealField,
		Config: map[string]interface{}{"field": "status", "value": "won"},
	}, ev, ev.Root())
	if res.Status != "success" || deals.fields["status"] != "won" {
		t.Fatalf("update deal field: %+v fields=%v", res, deals.fields)
	}

	res = exec.Execute(context.Background(), auto, Action{
		Type:   ActionMoveDealToStage,
		Config: map[string]interface{}{"stageId": float64(4)},
	}, ev, ev.Root())
	if res.Status != "success" || deals.stageID != 4 {
		t.Fatalf("move to stage: %+v stage=%d", res, deals.stageID)
	}

	// deal-targeted action on a contact event has no deal to act on
	cev := contactEvent()
	res = exec.Execute(context.Background(), auto, Action{
		Type:   ActionMoveDealToStage,
		Config: map[string]interface{}{"stageId": float64(4)},
	}, cev, cev.Root())
	if res.Status != "failed" {
		t.Fatalf("expected failure for deal action on contact event, got %+v", res)
	}
}

func TestActionExecutor_SendEmail(t *testing.T) {
	email := &fakeEmailSender{}
	exec := NewActionExecutor(&fakeContactMutator{}, &fakeDealMutator{}, email, logrus.New())
	auto := &models.Automation{ID: 3}

	ev := contactEvent()
	res := exec.Execute(context.Background(), auto, Action{
		Type: ActionSendEmail,
		Config: map[string]interface{}{
			"subject": "Welcome {{first_name || 'there'}}",
			"body":    "Hi {{first_name}}, thanks for joining.",
		},
	}, ev, ev.Root())
	if res.Status != "success" {
		t.Fatalf("send email: %+v", res)
	}
	if len(email.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(email.sent))
	}
	msg := email.sent[0]
	if msg.To != "ada@example.com" {
		t.Errorf("to = %q, want entity email", msg.To)
	}
	if msg.Subject != "Welcome Ada" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Hi Ada") {
		t.Errorf("body = %q", msg.Body)
	}
	if msg.AutomationID == nil || *msg.AutomationID != 3 {
		t.Errorf("automation id not stamped: %v", msg.AutomationID)
	}

	// deal events fall back to the nested contact's address
	dev := dealEvent()
	res = exec.Execute(context.Background(), auto, Action{
		Type: ActionSendEmail,
		Config: map[string]interface{}{
			"subject": "Deal {{title}}",
			"body":    "Value: {{value}}",
		},
	}, dev, dev.Root())
	if res.Status != "success" {
		t.Fatalf("send email from deal event: %+v", res)
	}
	msg = email.sent[1]
	if msg.To != "ada@example.com" {
		t.Errorf("to = %q, want nested contact email", msg.To)
	}
	if msg.Subject != "Deal Big Deal" || msg.Body != "Value: 9000" {
		t.Errorf("rendered = %q / %q", msg.Subject, msg.Body)
	}

	// explicit config recipient wins
	res = exec.Execute(context.Background(), auto, Action{
		Type: ActionSendEmail,
		Config: map[string]interface{}{
			"to": "ops@example.com", "subject": "s", "body": "b",
		},
	}, dev, dev.Root())
	if res.Status != "success" || email.sent[2].To != "ops@example.com" {
		t.Fatalf("explicit recipient: %+v sent=%v", res, email.sent[2])
	}
}

func TestActionExecutor_ConfigErrors(t *testing.T) {
	exec := NewActionExecutor(&fakeContactMutator{}, &fakeDealMutator{}, &fakeEmailSender{}, logrus.New())
	ev := contactEvent()
	auto := &models.Automation{ID: 1}

	tests := []struct {
		name    string
		action  Action
		wantErr string
	}{
		{"missing tag", Action{Type: ActionAddContactTag, Config: map[string]interface{}{}}, `missing required config key "tag"`},
		{"empty tag", Action{Type: ActionAddContactTag, Config: map[string]interface{}{"tag": ""}}, "must be a non-empty string"},
		{"missing value", Action{Type: ActionUpdateContactField, Config: map[string]interface{}{"field": "status"}}, `missing required config key "value"`},
		{"missing stageId", Action{Type: ActionMoveDealToStage, Config: map[string]interface{}{}}, `missing required config key "stageId"`},
		{"bad entityType", Action{Type: ActionUpdateCustomField, Config: map[string]interface{}{"entityType": "ticket", "fieldName": "x", "value": 1}}, "unsupported entityType"},
		{"unknown action type", Action{Type: "launch_rocket"}, "unsupported action type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := exec.Execute(context.Background(), auto, tt.action, ev, ev.Root())
			if res.Status != "failed" {
				t.Fatalf("status = %s, want failed", res.Status)
			}
			if !strings.Contains(res.Error, tt.wantErr) {
				t.Errorf("error = %q, want substring %q", res.Error, tt.wantErr)
			}
		})
	}
}

func TestActionExecutor_CollaboratorFailure(t *testing.T) {
	contacts := &fakeContactMutator{err: errors.New("db unavailable")}
	exec := NewActionExecutor(contacts, &fakeDealMutator{}, &fakeEmailSender{}, logrus.New())
	ev := contactEvent()

	res := exec.Execute(context.Background(), &models.Automation{ID: 1}, Action{
		Type:   ActionAddContactTag,
		Config: map[string]interface{}{"tag": "x"},
	}, ev, ev.Root())
	if res.Status != "failed" || !strings.Contains(res.Error, "db unavailable") {
		t.Fatalf("collaborator failure not reported: %+v", res)
	}
}

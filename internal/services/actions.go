package services

import (
	"context"
	"fmt"

	"pulsecrm/internal/models"

	"github.com/sirupsen/logrus"
)

// ActionType is the closed set of automation actions. Adding a new action
// is a new constant plus a new case in Execute.
type ActionType string

const (
	ActionAddContactTag      ActionType = "add_contact_tag"
	ActionRemoveContactTag   ActionType = "remove_contact_tag"
	ActionUpdateContactField ActionType = "update_contact_field"
	ActionUpdateDealField    ActionType = "update_deal_field"
	ActionUpdateCustomField  ActionType = "update_custom_field"
	ActionMoveDealToStage    ActionType = "move_deal_to_stage"
	ActionSendEmail          ActionType = "send_email"
)

// Action is a single entity mutation or side effect performed when an
// automation's conditions hold.
type Action struct {
	Type   ActionType             `json:"type"`
	Config map[string]interface{} `json:"config"`
}

// ActionResult reports one action's outcome. A failed result carries the
// reason; it never propagates as an error past the enrollment service.
type ActionResult struct {
	Type   ActionType `json:"type"`
	Status string     `json:"status"` // success, failed
	Error  string     `json:"error,omitempty"`
}

// ContactMutator is the narrow contact-side collaborator contract the
// executor depends on but does not implement.
type ContactMutator interface {
	AddTag(ctx context.Context, userID, contactID uint, tag string) error
	RemoveTag(ctx context.Context, userID, contactID uint, tag string) error
	UpdateField(ctx context.Context, userID, contactID uint, field string, value interface{}) error
}

// DealMutator is the deal-side collaborator contract. Stage moves go through
// the silent variant: executor-driven mutations must not emit events or an
// automation on deal_stage_changed could retrigger itself.
type DealMutator interface {
	UpdateField(ctx context.Context, userID, dealID uint, field string, value interface{}) error
	MoveToStageSilent(ctx context.Context, userID, dealID, stageID uint) error
}

// OutboundEmail is the payload handed to the mail collaborator.
type OutboundEmail struct {
	UserID       uint
	ContactID    *uint
	AutomationID *uint
	To           string
	Subject      string
	Body         string
}

// EmailSender delivers one outbound email. Failures are reported back as
// action failures, not swallowed.
type EmailSender interface {
	Send(ctx context.Context, msg OutboundEmail) error
}

// ActionExecutor performs one mutation per action against the live entity
// via the collaborator APIs.
type ActionExecutor struct {
	contacts ContactMutator
	deals    DealMutator
	email    EmailSender
	logger   *logrus.Logger
}

func NewActionExecutor(contacts ContactMutator, deals DealMutator, email EmailSender, logger *logrus.Logger) *ActionExecutor {
	if logger == nil {
		logger = logrus.New()
	}
	return &ActionExecutor{contacts: contacts, deals: deals, email: email, logger: logger}
}

// Execute runs a single action for the triggering event. Configuration
// problems and collaborator failures both come back as a failed result with
// a descriptive error; Execute itself never panics or returns an error.
func (e *ActionExecutor) Execute(ctx context.Context, automation *models.Automation, action Action, ev Event, root map[string]interface{}) ActionResult {
	err := e.run(ctx, automation, action, ev, root)
	if err != nil {
		e.logger.Warnf("automation %d: action %s failed: %v", automation.ID, action.Type, err)
		return ActionResult{Type: action.Type, Status: "failed", Error: err.Error()}
	}
	return ActionResult{Type: action.Type, Status: "success"}
}

func (e *ActionExecutor) run(ctx context.Context, automation *models.Automation, action Action, ev Event, root map[string]interface{}) error {
	switch action.Type {
	case ActionAddContactTag:
		tag, err := requireString(action.Config, "tag")
		if err != nil {
			return err
		}
		contactID, err := contactIDFor(ev, root)
		if err != nil {
			return err
		}
		return e.contacts.AddTag(ctx, ev.UserID, contactID, tag)

	case ActionRemoveContactTag:
		tag, err := requireString(action.Config, "tag")
		if err != nil {
			return err
		}
		contactID, err := contactIDFor(ev, root)
		if err != nil {
			return err
		}
		return e.contacts.RemoveTag(ctx, ev.UserID, contactID, tag)

	case ActionUpdateContactField:
		field, err := requireString(action.Config, "field")
		if err != nil {
			return err
		}
		value, ok := action.Config["value"]
		if !ok {
			return fmt.Errorf("action %s: missing required config key %q", action.Type, "value")
		}
		contactID, err := contactIDFor(ev, root)
		if err != nil {
			return err
		}
		return e.contacts.UpdateField(ctx, ev.UserID, contactID, field, value)

	case ActionUpdateDealField:
		field, err := requireString(action.Config, "field")
		if err != nil {
			return err
		}
		value, ok := action.Config["value"]
		if !ok {
			return fmt.Errorf("action %s: missing required config key %q", action.Type, "value")
		}
		dealID, err := dealIDFor(ev)
		if err != nil {
			return err
		}
		return e.deals.UpdateField(ctx, ev.UserID, dealID, field, value)

	case ActionUpdateCustomField:
		entityType, err := requireString(action.Config, "entityType")
		if err != nil {
			return err
		}
		fieldName, err := requireString(action.Config, "fieldName")
		if err != nil {
			return err
		}
		value, ok := action.Config["value"]
		if !ok {
			return fmt.Errorf("action %s: missing required config key %q", action.Type, "value")
		}
		path := "customFields." + fieldName
		switch entityType {
		case EntityContact:
			contactID, err := contactIDFor(ev, root)
			if err != nil {
				return err
			}
			return e.contacts.UpdateField(ctx, ev.UserID, contactID, path, value)
		case EntityDeal:
			dealID, err := dealIDFor(ev)
			if err != nil {
				return err
			}
			return e.deals.UpdateField(ctx, ev.UserID, dealID, path, value)
		default:
			return fmt.Errorf("action %s: unsupported entityType %q", action.Type, entityType)
		}

	case ActionMoveDealToStage:
		stageID, ok := configUint(action.Config, "stageId")
		if !ok {
			return fmt.Errorf("action %s: missing required config key %q", action.Type, "stageId")
		}
		dealID, err := dealIDFor(ev)
		if err != nil {
			return err
		}
		return e.deals.MoveToStageSilent(ctx, ev.UserID, dealID, stageID)

	case ActionSendEmail:
		subject, err := requireString(action.Config, "subject")
		if err != nil {
			return err
		}
		body, err := requireString(action.Config, "body")
		if err != nil {
			return err
		}
		to, _ := action.Config["to"].(string)
		if to == "" {
			to = stringify(ResolveField("email", root))
		}
		if to == "" {
			to = stringify(ResolveField("contact.email", root))
		}
		if to == "" {
			return fmt.Errorf("action %s: no recipient address on entity or config", action.Type)
		}
		msg := OutboundEmail{
			UserID:  ev.UserID,
			To:      to,
			Subject: RenderTemplate(subject, root),
			Body:    RenderTemplate(body, root),
		}
		if automation != nil {
			id := automation.ID
			msg.AutomationID = &id
		}
		if contactID, err := contactIDFor(ev, root); err == nil {
			msg.ContactID = &contactID
		}
		return e.email.Send(ctx, msg)

	default:
		return fmt.Errorf("unsupported action type: %s", action.Type)
	}
}

func requireString(config map[string]interface{}, key string) (string, error) {
	raw, ok := config[key]
	if !ok {
		return "", fmt.Errorf("missing required config key %q", key)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("config key %q must be a non-empty string", key)
	}
	return s, nil
}

func configUint(config map[string]interface{}, key string) (uint, bool) {
	switch t := config[key].(type) {
	case float64:
		if t > 0 {
			return uint(t), true
		}
	case int:
		if t > 0 {
			return uint(t), true
		}
	case uint:
		if t > 0 {
			return t, true
		}
	case string:
		if f, ok := toFloat(t); ok && f > 0 {
			return uint(f), true
		}
	}
	return 0, false
}

// contactIDFor finds the contact the action targets: the event entity when
// it is a contact, otherwise the contact association nested in the deal
// snapshot.
func contactIDFor(ev Event, root map[string]interface{}) (uint, error) {
	if ev.EntityType == EntityContact {
		return ev.EntityID, nil
	}
	if id, ok := toFloat(ResolveField("contact.id", root)); ok && id > 0 {
		return uint(id), nil
	}
	return 0, fmt.Errorf("event has no associated contact")
}

func dealIDFor(ev Event) (uint, error) {
	if ev.EntityType != EntityDeal {
		return 0, fmt.Errorf("event entity is not a deal")
	}
	return ev.EntityID, nil
}

package services

import "github.com/google/uuid"

// Trigger tags. An automation is only considered when its trigger type
// equals the incoming event's type.
const (
	TriggerContactCreated   = "contact_created"
	TriggerContactUpdated   = "contact_updated"
	TriggerDealCreated      = "deal_created"
	TriggerDealUpdated      = "deal_updated"
	TriggerDealStageChanged = "deal_stage_changed"
)

// Entity type tags used on enrollments, logs and events.
const (
	EntityContact = "contact"
	EntityDeal    = "deal"
)

// IsSupportedTrigger reports whether the tag belongs to the closed trigger
// set.
func IsSupportedTrigger(trigger string) bool {
	switch trigger {
	case TriggerContactCreated, TriggerContactUpdated,
		TriggerDealCreated, TriggerDealUpdated, TriggerDealStageChanged:
		return true
	default:
		return false
	}
}

// TriggerEntityType maps a trigger tag to the entity kind it fires for.
func TriggerEntityType(trigger string) string {
	switch trigger {
	case TriggerDealCreated, TriggerDealUpdated, TriggerDealStageChanged:
		return EntityDeal
	default:
		return EntityContact
	}
}

// Event is the ephemeral unit of work handed in by the CRUD services. Data
// carries the entity snapshot under its entity-type key plus an optional
// "changedFields" list; the engine does not persist events.
type Event struct {
	ID            string
	Type          string
	UserID        uint
	EntityType    string
	EntityID      uint
	Data          map[string]interface{}
	ChangedFields []string
}

// NewEvent builds an event around an entity snapshot.
func NewEvent(triggerType string, userID uint, entityType string, entityID uint, snapshot map[string]interface{}, changed []string) Event {
	data := map[string]interface{}{
		entityType: snapshot,
	}
	if len(changed) > 0 {
		data["changedFields"] = changed
	}
	return Event{
		ID:            uuid.NewString(),
		Type:          triggerType,
		UserID:        userID,
		EntityType:    entityType,
		EntityID:      entityID,
		Data:          data,
		ChangedFields: changed,
	}
}

// Root normalizes the event payload into the resolution root condition
// authors expect: entity attributes are reachable both unqualified
// ("company") and qualified ("contact.company").
func (e Event) Root() map[string]interface{} {
	root := map[string]interface{}{}
	for key, value := range e.Data {
		root[key] = value
	}
	if entity, ok := e.Data[e.EntityType].(map[string]interface{}); ok {
		for key, value := range entity {
			if _, taken := root[key]; !taken {
				root[key] = value
			}
		}
	}
	return root
}

// Snapshot returns the entity snapshot map, or an empty map when absent.
func (e Event) Snapshot() map[string]interface{} {
	if entity, ok := e.Data[e.EntityType].(map[string]interface{}); ok {
		return entity
	}
	return map[string]interface{}{}
}

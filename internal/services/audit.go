package services

import (
	"context"
	"encoding/json"
	"time"

	"pulsecrm/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuditLogger writes one append-only AutomationLog row per execution
// attempt. Payloads are sanitized before serialization so logging never
// throws no matter what the collaborator's live object graph looks like.
type AuditLogger struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewAuditLogger(db *gorm.DB, logger *logrus.Logger) *AuditLogger {
	if logger == nil {
		logger = logrus.New()
	}
	return &AuditLogger{db: db, logger: logger}
}

// AuditRecord carries everything one log row captures.
type AuditRecord struct {
	Automation    *models.Automation
	EnrollmentID  uint
	Event         Event
	ConditionsMet bool
	Actions       []ActionResult
	Status        string
	Error         string
}

// Record persists the row. A storage failure is logged and swallowed; audit
// logging must never fail an enrollment that already ran.
func (l *AuditLogger) Record(ctx context.Context, rec AuditRecord) *models.AutomationLog {
	actionsJSON, err := json.Marshal(rec.Actions)
	if err != nil {
		actionsJSON = []byte("[]")
	}
	entityJSON, err := json.Marshal(SanitizePayload(rec.Event.Snapshot()))
	if err != nil {
		entityJSON = []byte("{}")
	}

	row := &models.AutomationLog{
		AutomationID:  rec.Automation.ID,
		EnrollmentID:  rec.EnrollmentID,
		UserID:        rec.Event.UserID,
		TriggerType:   rec.Event.Type,
		EntityType:    rec.Event.EntityType,
		EntityID:      rec.Event.EntityID,
		ConditionsMet: rec.ConditionsMet,
		ActionsJSON:   string(actionsJSON),
		EntityJSON:    string(entityJSON),
		Status:        rec.Status,
		Error:         rec.Error,
		CreatedAt:     time.Now(),
	}
	if err := l.db.WithContext(ctx).Create(row).Error; err != nil {
		l.logger.Warnf("automation %d: record log failed: %v", rec.Automation.ID, err)
	}
	return row
}

const sanitizeMaxDepth = 8

// SanitizePayload returns a copy of v containing only JSON-serializable
// scalars, maps and slices. Cycles are cut by the depth limit and anything
// that cannot be marshalled is dropped.
func SanitizePayload(v interface{}) interface{} {
	return sanitizeValue(v, 0)
}

func sanitizeValue(v interface{}, depth int) interface{} {
	if depth > sanitizeMaxDepth {
		return nil
	}
	switch t := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, time.Time:
		return t
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for key, value := range t {
			if clean := sanitizeValue(value, depth+1); clean != nil {
				out[key] = clean
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, value := range t {
			if clean := sanitizeValue(value, depth+1); clean != nil {
				out = append(out, clean)
			}
		}
		return out
	case []string:
		return t
	default:
		// unknown concrete type: keep it only if it marshals cleanly
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		var round interface{}
		if err := json.Unmarshal(b, &round); err != nil {
			return nil
		}
		return sanitizeValue(round, depth+1)
	}
}

package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"pulsecrm/internal/metrics"
	"pulsecrm/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ExecutionNotifier receives a summary after every enrollment run. The live
// feed hub implements it; tests plug in fakes.
type ExecutionNotifier interface {
	NotifyExecution(summary ExecutionSummary)
}

// ExecutionSummary is the feed payload for one automation execution.
type ExecutionSummary struct {
	AutomationID   uint      `json:"automation_id"`
	AutomationName string    `json:"automation_name"`
	UserID         uint      `json:"user_id"`
	TriggerType    string    `json:"trigger_type"`
	EntityType     string    `json:"entity_type"`
	EntityID       uint      `json:"entity_id"`
	Status         string    `json:"status"`
	ConditionsMet  bool      `json:"conditions_met"`
	Error          string    `json:"error,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// EnrollmentService owns the per-(automation, entity) participation record:
// it gates new enrollments, evaluates conditions, invokes actions and
// transitions enrollment status. No failure mode escapes Run; everything
// terminates in a terminal enrollment plus a log row.
type EnrollmentService struct {
	db       *gorm.DB
	logger   *logrus.Logger
	executor *ActionExecutor
	audit    *AuditLogger
	notifier ExecutionNotifier
}

func NewEnrollmentService(db *gorm.DB, logger *logrus.Logger, executor *ActionExecutor, audit *AuditLogger) *EnrollmentService {
	if logger == nil {
		logger = logrus.New()
	}
	return &EnrollmentService{db: db, logger: logger, executor: executor, audit: audit}
}

// SetNotifier wires the optional live feed.
func (s *EnrollmentService) SetNotifier(n ExecutionNotifier) {
	s.notifier = n
}

// Run processes one (automation, event) pair through the enrollment state
// machine. A duplicate enrollment attempt is a silent no-op.
func (s *EnrollmentService) Run(ctx context.Context, automation *models.Automation, ev Event) {
	enrollment, created := s.beginEnrollment(ctx, automation, ev)
	if !created {
		return
	}
	metrics.IncEnrollmentStarted()

	conds, err := parseConditions(automation.ConditionsJSON)
	if err != nil {
		s.logger.Warnf("automation %d: invalid conditions json: %v", automation.ID, err)
		conds = nil
	}
	root := ev.Root()
	met := EvaluateConditions(conds, root)

	var results []ActionResult
	firstError := ""
	if met {
		actions, err := parseActions(automation.ActionsJSON)
		if err != nil {
			s.logger.Warnf("automation %d: invalid actions json: %v", automation.ID, err)
			firstError = "invalid actions configuration: " + err.Error()
		}
		// each action runs independently; one failure does not stop the rest
		for _, action := range actions {
			res := s.executor.Execute(ctx, automation, action, ev, root)
			results = append(results, res)
			if res.Status == "failed" && firstError == "" {
				firstError = res.Error
			}
		}
	}

	status := models.EnrollmentCompleted
	if firstError != "" {
		status = models.EnrollmentFailed
	}
	s.finishEnrollment(ctx, enrollment, status, firstError)

	if status == models.EnrollmentCompleted && met && firstError == "" {
		s.bumpCounter(ctx, automation.ID, "completed_enrollments")
	}
	s.bumpCounter(ctx, automation.ID, "execution_count")
	metrics.IncEnrollmentFinished(status)

	s.audit.Record(ctx, AuditRecord{
		Automation:    automation,
		EnrollmentID:  enrollment.ID,
		Event:         ev,
		ConditionsMet: met,
		Actions:       results,
		Status:        status,
		Error:         firstError,
	})

	if s.notifier != nil {
		s.notifier.NotifyExecution(ExecutionSummary{
			AutomationID:   automation.ID,
			AutomationName: automation.Name,
			UserID:         ev.UserID,
			TriggerType:    ev.Type,
			EntityType:     ev.EntityType,
			EntityID:       ev.EntityID,
			Status:         status,
			ConditionsMet:  met,
			Error:          firstError,
			OccurredAt:     time.Now(),
		})
	}
}

// beginEnrollment performs the check-and-create inside one transaction. The
// partial unique index on (automation_id, entity_type, entity_id) WHERE
// status='active' closes the race two concurrent events would otherwise
// open; a unique violation is treated the same as finding an active row.
func (s *EnrollmentService) beginEnrollment(ctx context.Context, automation *models.Automation, ev Event) (*models.AutomationEnrollment, bool) {
	enrollment := &models.AutomationEnrollment{
		PublicID:     uuid.NewString(),
		AutomationID: automation.ID,
		EntityType:   ev.EntityType,
		EntityID:     ev.EntityID,
		Status:       models.EnrollmentActive,
		EnrolledAt:   time.Now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.AutomationEnrollment{}).
			Where("automation_id = ? AND entity_type = ? AND entity_id = ? AND status = ?",
				automation.ID, ev.EntityType, ev.EntityID, models.EnrollmentActive).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return gorm.ErrDuplicatedKey
		}
		return tx.Create(enrollment).Error
	})
	if err != nil {
		if err == gorm.ErrDuplicatedKey || isUniqueViolation(err) {
			s.logger.Debugf("automation %d: %s %d already enrolled, skipping",
				automation.ID, ev.EntityType, ev.EntityID)
		} else {
			s.logger.Warnf("automation %d: create enrollment failed: %v", automation.ID, err)
		}
		return nil, false
	}
	s.bumpCounter(ctx, automation.ID, "enrolled_count")
	return enrollment, true
}

// finishEnrollment moves an active enrollment to its terminal status. The
// WHERE status='active' guard keeps terminal rows immutable.
func (s *EnrollmentService) finishEnrollment(ctx context.Context, enrollment *models.AutomationEnrollment, status, errText string) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"error":        errText,
		"completed_at": &now,
	}
	if err := s.db.WithContext(ctx).Model(&models.AutomationEnrollment{}).
		Where("id = ? AND status = ?", enrollment.ID, models.EnrollmentActive).
		Updates(updates).Error; err != nil {
		s.logger.Warnf("enrollment %d: transition to %s failed: %v", enrollment.ID, status, err)
		return
	}
	enrollment.Status = status
	enrollment.Error = errText
	enrollment.CompletedAt = &now
}

// bumpCounter increments an automation statistic with a single conditional
// update statement to avoid lost updates under concurrent events.
func (s *EnrollmentService) bumpCounter(ctx context.Context, automationID uint, column string) {
	if err := s.db.WithContext(ctx).Model(&models.Automation{}).
		Where("id = ?", automationID).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error; err != nil {
		s.logger.Warnf("automation %d: increment %s failed: %v", automationID, column, err)
	}
}

func parseConditions(raw string) ([]Condition, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var conds []Condition
	if err := json.Unmarshal([]byte(raw), &conds); err != nil {
		return nil, err
	}
	return conds, nil
}

func parseActions(raw string) ([]Action, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var actions []Action
	if err := json.Unmarshal([]byte(raw), &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment status values. An enrollment only ever moves active->completed
// or active->failed; terminal rows are never updated again.
const (
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
	EnrollmentFailed    = "failed"
)

// Automation is a stored rule: one trigger, an ordered condition list and an
// ordered action list, both kept as JSON text the way the rule builder sends
// them. Counters are only ever bumped with single-statement updates.
type Automation struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"index;not null" json:"user_id"`
	Name                 string    `gorm:"not null" json:"name"`
	Description          string    `gorm:"type:text" json:"description"`
	TriggerType          string    `gorm:"index;not null" json:"trigger_type"`
	TriggerConfigJSON    string    `gorm:"column:trigger_config;type:text" json:"trigger_config_json,omitempty"`
	ConditionsJSON       string    `gorm:"column:conditions;type:text" json:"conditions_json"`
	ActionsJSON          string    `gorm:"column:actions;type:text" json:"actions_json"`
	IsActive             bool      `json:"is_active"`
	ExecutionCount       int64     `gorm:"default:0" json:"execution_count"`
	EnrolledCount        int64     `gorm:"default:0" json:"enrolled_count"`
	CompletedEnrollments int64     `gorm:"default:0" json:"completed_enrollments"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// AutomationEnrollment records one entity's participation in one automation.
// At most one active row may exist per (automation, entity) tuple; the
// partial unique index created by EnsureAutomationIndexes enforces that at
// the database level.
type AutomationEnrollment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PublicID     string     `gorm:"uniqueIndex;size:36" json:"public_id"`
	AutomationID uint       `gorm:"index:idx_enrollment_tuple" json:"automation_id"`
	EntityType   string     `gorm:"index:idx_enrollment_tuple" json:"entity_type"` // contact, deal
	EntityID     uint       `gorm:"index:idx_enrollment_tuple" json:"entity_id"`
	Status       string     `gorm:"index" json:"status"`
	Error        string     `gorm:"type:text" json:"error,omitempty"`
	EnrolledAt   time.Time  `json:"enrolled_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// AutomationLog is one append-only row per execution attempt.
type AutomationLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AutomationID  uint      `gorm:"index" json:"automation_id"`
	EnrollmentID  uint      `gorm:"index" json:"enrollment_id"`
	UserID        uint      `gorm:"index" json:"user_id"`
	TriggerType   string    `json:"trigger_type"`
	EntityType    string    `json:"entity_type"`
	EntityID      uint      `json:"entity_id"`
	ConditionsMet bool      `json:"conditions_met"`
	ActionsJSON   string    `gorm:"column:actions;type:text" json:"actions_json"` // per-action outcomes
	EntityJSON    string    `gorm:"column:entity;type:text" json:"entity_json"`   // sanitized snapshot
	Status        string    `gorm:"index" json:"status"`
	Error         string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// EnsureAutomationIndexes creates the partial unique index guarding the
// single-active-enrollment invariant. AutoMigrate cannot express partial
// indexes, so both the server and the test helpers call this after
// migration. The statement is valid on Postgres and SQLite.
func EnsureAutomationIndexes(db *gorm.DB) error {
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_enrollment_single_active
		 ON automation_enrollments (automation_id, entity_type, entity_id)
		 WHERE status = 'active'`,
	).Error
}

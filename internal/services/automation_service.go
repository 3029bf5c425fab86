package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pulsecrm/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AutomationService manages automation definitions and the read-only
// enrollment/log query surface. Execution lives in EnrollmentService.
type AutomationService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewAutomationService(db *gorm.DB, logger *logrus.Logger) *AutomationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AutomationService{db: db, logger: logger}
}

// AutomationRequest is the create/update payload from the rule builder.
type AutomationRequest struct {
	Name          string                 `json:"name" binding:"required"`
	Description   string                 `json:"description"`
	TriggerType   string                 `json:"trigger_type" binding:"required"`
	TriggerConfig map[string]interface{} `json:"trigger_config"`
	Conditions    []Condition            `json:"conditions"`
	Actions       []Action               `json:"actions"`
	IsActive      *bool                  `json:"is_active"`
}

// Create validates the shape of the rule and stores it. Required action
// config keys are deliberately not checked here: per the engine contract a
// bad config surfaces at execution time as a failed action.
func (s *AutomationService) Create(ctx context.Context, userID uint, req *AutomationRequest) (*models.Automation, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("name required")
	}
	if !IsSupportedTrigger(req.TriggerType) {
		return nil, fmt.Errorf("unsupported trigger: %s", req.TriggerType)
	}
	for _, action := range req.Actions {
		if action.Type == "" {
			return nil, errors.New("action type required")
		}
	}
	for _, cond := range req.Conditions {
		if strings.TrimSpace(cond.Field) == "" {
			return nil, errors.New("condition field required")
		}
	}

	condJSON, err := json.Marshal(req.Conditions)
	if err != nil {
		return nil, fmt.Errorf("invalid conditions: %w", err)
	}
	actJSON, err := json.Marshal(req.Actions)
	if err != nil {
		return nil, fmt.Errorf("invalid actions: %w", err)
	}
	trigJSON := ""
	if req.TriggerConfig != nil {
		b, err := json.Marshal(req.TriggerConfig)
		if err != nil {
			return nil, fmt.Errorf("invalid trigger config: %w", err)
		}
		trigJSON = string(b)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	now := time.Now()
	automation := &models.Automation{
		UserID:            userID,
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		TriggerType:       req.TriggerType,
		TriggerConfigJSON: trigJSON,
		ConditionsJSON:    string(condJSON),
		ActionsJSON:       string(actJSON),
		IsActive:          active,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.db.WithContext(ctx).Create(automation).Error; err != nil {
		return nil, err
	}
	return automation, nil
}

func (s *AutomationService) Get(ctx context.Context, userID, id uint) (*models.Automation, error) {
	var automation models.Automation
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&automation, id).Error; err != nil {
		return nil, err
	}
	return &automation, nil
}

func (s *AutomationService) List(ctx context.Context, userID uint) ([]models.Automation, error) {
	var automations []models.Automation
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&automations).Error; err != nil {
		return nil, err
	}
	return automations, nil
}

// Update replaces the rule definition. Counters are left untouched.
func (s *AutomationService) Update(ctx context.Context, userID, id uint, req *AutomationRequest) (*models.Automation, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	automation, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.TriggerType != "" && !IsSupportedTrigger(req.TriggerType) {
		return nil, fmt.Errorf("unsupported trigger: %s", req.TriggerType)
	}
	if req.Name != "" {
		automation.Name = strings.TrimSpace(req.Name)
	}
	automation.Description = req.Description
	if req.TriggerType != "" {
		automation.TriggerType = req.TriggerType
	}
	if req.Conditions != nil {
		b, err := json.Marshal(req.Conditions)
		if err != nil {
			return nil, fmt.Errorf("invalid conditions: %w", err)
		}
		automation.ConditionsJSON = string(b)
	}
	if req.Actions != nil {
		b, err := json.Marshal(req.Actions)
		if err != nil {
			return nil, fmt.Errorf("invalid actions: %w", err)
		}
		automation.ActionsJSON = string(b)
	}
	if req.IsActive != nil {
		automation.IsActive = *req.IsActive
	}
	automation.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(automation).Error; err != nil {
		return nil, err
	}
	return automation, nil
}

// SetActive toggles the automation without touching the rule body.
func (s *AutomationService) SetActive(ctx context.Context, userID, id uint, active bool) (*models.Automation, error) {
	automation, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(automation).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now()}).Error; err != nil {
		return nil, err
	}
	automation.IsActive = active
	return automation, nil
}

// Delete removes an automation. Deletion is refused while any enrollment
// still references it; deactivate instead.
func (s *AutomationService) Delete(ctx context.Context, userID, id uint) error {
	automation, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	var enrollments int64
	if err := s.db.WithContext(ctx).Model(&models.AutomationEnrollment{}).
		Where("automation_id = ?", automation.ID).
		Count(&enrollments).Error; err != nil {
		return err
	}
	if enrollments > 0 {
		return fmt.Errorf("automation has %d enrollments; deactivate it instead of deleting", enrollments)
	}
	result := s.db.WithContext(ctx).Delete(&models.Automation{}, automation.ID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("automation not found")
	}
	return nil
}

// EnrollmentListRequest filters the enrollment query surface.
type EnrollmentListRequest struct {
	AutomationID uint
	Status       string
	Page         int
	PageSize     int
}

func (s *AutomationService) ListEnrollments(ctx context.Context, userID uint, req *EnrollmentListRequest) ([]models.AutomationEnrollment, int64, error) {
	if req == nil {
		return nil, 0, errors.New("request required")
	}
	if _, err := s.Get(ctx, userID, req.AutomationID); err != nil {
		return nil, 0, err
	}
	q := s.db.WithContext(ctx).Model(&models.AutomationEnrollment{}).
		Where("automation_id = ?", req.AutomationID)
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, pageSize := normalizePage(req.Page, req.PageSize)
	var rows []models.AutomationEnrollment
	if err := q.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// LogListRequest filters the log query surface.
type LogListRequest struct {
	AutomationID uint
	Status       string
	Page         int
	PageSize     int
}

func (s *AutomationService) ListLogs(ctx context.Context, userID uint, req *LogListRequest) ([]models.AutomationLog, int64, error) {
	if req == nil {
		return nil, 0, errors.New("request required")
	}
	q := s.db.WithContext(ctx).Model(&models.AutomationLog{}).
		Where("user_id = ?", userID)
	if req.AutomationID != 0 {
		if _, err := s.Get(ctx, userID, req.AutomationID); err != nil {
			return nil, 0, err
		}
		q = q.Where("automation_id = ?", req.AutomationID)
	}
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, pageSize := normalizePage(req.Page, req.PageSize)
	var rows []models.AutomationLog
	if err := q.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// FieldDescriptor describes one condition/action target the rule builder
// may offer.
type FieldDescriptor struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	IsCustom bool   `json:"isCustom"`
}

var standardContactFields = []FieldDescriptor{
	{Key: "email", Label: "Email", Type: "string"},
	{Key: "first_name", Label: "First Name", Type: "string"},
	{Key: "last_name", Label: "Last Name", Type: "string"},
	{Key: "company", Label: "Company", Type: "string"},
	{Key: "phone", Label: "Phone", Type: "string"},
	{Key: "source", Label: "Source", Type: "string"},
	{Key: "status", Label: "Status", Type: "string"},
	{Key: "tags", Label: "Tags", Type: "multiselect"},
}

var standardDealFields = []FieldDescriptor{
	{Key: "title", Label: "Title", Type: "string"},
	{Key: "value", Label: "Value", Type: "number"},
	{Key: "status", Label: "Status", Type: "string"},
	{Key: "stage_id", Label: "Stage", Type: "number"},
	{Key: "pipeline_id", Label: "Pipeline", Type: "number"},
}

// AvailableFields lists standard plus custom fields for an entity type so
// the rule builder can offer valid condition targets. Custom fields are
// addressed through the customFields.* namespace.
func (s *AutomationService) AvailableFields(ctx context.Context, userID uint, entityType string) ([]FieldDescriptor, error) {
	var fields []FieldDescriptor
	switch entityType {
	case EntityContact:
		fields = append(fields, standardContactFields...)
	case EntityDeal:
		fields = append(fields, standardDealFields...)
	default:
		return nil, fmt.Errorf("unsupported entity type: %s", entityType)
	}

	var custom []models.CustomField
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND resource = ? AND active = ?", userID, entityType, true).
		Order("id ASC").
		Find(&custom).Error; err != nil {
		return nil, err
	}
	for _, cf := range custom {
		fields = append(fields, FieldDescriptor{
			Key:      "customFields." + cf.Key,
			Label:    cf.Name,
			Type:     cf.Type,
			IsCustom: true,
		})
	}
	return fields, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return page, pageSize
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pulsecrm/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DealService owns deals and pipelines plus the deal-side mutation APIs the
// action executor depends on. Like ContactService, only CRUD and stage
// moves emit events.
type DealService struct {
	db       *gorm.DB
	logger   *logrus.Logger
	contacts *ContactService
	events   EventSink
}

func NewDealService(db *gorm.DB, logger *logrus.Logger, contacts *ContactService) *DealService {
	if logger == nil {
		logger = logrus.New()
	}
	return &DealService{db: db, logger: logger, contacts: contacts}
}

func (s *DealService) SetEventSink(sink EventSink) {
	s.events = sink
}

type PipelineRequest struct {
	Name   string   `json:"name" binding:"required"`
	Stages []string `json:"stages"`
}

// CreatePipeline stores a pipeline with its ordered stages.
func (s *DealService) CreatePipeline(ctx context.Context, userID uint, req *PipelineRequest) (*models.Pipeline, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("name required")
	}
	now := time.Now()
	pipeline := &models.Pipeline{
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, stage := range req.Stages {
		pipeline.Stages = append(pipeline.Stages, models.Stage{
			Name:      strings.TrimSpace(stage),
			Position:  i,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := s.db.WithContext(ctx).Create(pipeline).Error; err != nil {
		return nil, err
	}
	return pipeline, nil
}

func (s *DealService) ListPipelines(ctx context.Context, userID uint) ([]models.Pipeline, error) {
	var pipelines []models.Pipeline
	if err := s.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&pipelines).Error; err != nil {
		return nil, err
	}
	return pipelines, nil
}

type DealRequest struct {
	Title        string                 `json:"title"`
	Value        *float64               `json:"value"`
	ContactID    *uint                  `json:"contact_id"`
	PipelineID   uint                   `json:"pipeline_id"`
	StageID      uint                   `json:"stage_id"`
	Status       string                 `json:"status"`
	CustomFields map[string]interface{} `json:"custom_fields"`
}

func (s *DealService) Create(ctx context.Context, userID uint, req *DealRequest) (*models.Deal, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.New("title required")
	}
	now := time.Now()
	deal := &models.Deal{
		UserID:     userID,
		ContactID:  req.ContactID,
		PipelineID: req.PipelineID,
		StageID:    req.StageID,
		Title:      strings.TrimSpace(req.Title),
		Status:     req.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Value != nil {
		deal.Value = *req.Value
	}
	if deal.Status == "" {
		deal.Status = "open"
	}
	deal.SetCustomFields(req.CustomFields)

	if err := s.db.WithContext(ctx).Create(deal).Error; err != nil {
		return nil, err
	}
	s.emit(ctx, TriggerDealCreated, deal, nil)
	return deal, nil
}

func (s *DealService) Get(ctx context.Context, userID, id uint) (*models.Deal, error) {
	var deal models.Deal
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&deal, id).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

func (s *DealService) List(ctx context.Context, userID uint, page, pageSize int) ([]models.Deal, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Deal{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, pageSize = normalizePage(page, pageSize)
	var deals []models.Deal
	if err := q.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&deals).Error; err != nil {
		return nil, 0, err
	}
	return deals, total, nil
}

func (s *DealService) Update(ctx context.Context, userID, id uint, req *DealRequest) (*models.Deal, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	deal, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	if title := strings.TrimSpace(req.Title); title != "" && title != deal.Title {
		deal.Title = title
		changed = append(changed, "title")
	}
	if req.Value != nil && *req.Value != deal.Value {
		deal.Value = *req.Value
		changed = append(changed, "value")
	}
	if req.Status != "" && req.Status != deal.Status {
		deal.Status = req.Status
		changed = append(changed, "status")
		if req.Status == "won" || req.Status == "lost" {
			now := time.Now()
			deal.ClosedAt = &now
		}
	}
	if req.ContactID != nil {
		deal.ContactID = req.ContactID
		changed = append(changed, "contact_id")
	}
	if req.CustomFields != nil {
		merged := deal.CustomFields()
		for key, value := range req.CustomFields {
			merged[key] = value
		}
		deal.SetCustomFields(merged)
		changed = append(changed, "customFields")
	}

	deal.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(deal).Error; err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		s.emit(ctx, TriggerDealUpdated, deal, changed)
	}
	return deal, nil
}

func (s *DealService) Delete(ctx context.Context, userID, id uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Deal{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("deal not found")
	}
	return nil
}

// MoveToStage reassigns the deal's stage reference and emits
// deal_stage_changed. Moving to the current stage is a no-op.
func (s *DealService) MoveToStage(ctx context.Context, userID, dealID, stageID uint) error {
	return s.moveToStage(ctx, userID, dealID, stageID, true)
}

// MoveToStageSilent is the executor-facing move. Executor-driven mutations
// never emit events, so an automation cannot retrigger itself.
func (s *DealService) MoveToStageSilent(ctx context.Context, userID, dealID, stageID uint) error {
	return s.moveToStage(ctx, userID, dealID, stageID, false)
}

func (s *DealService) moveToStage(ctx context.Context, userID, dealID, stageID uint, emit bool) error {
	deal, err := s.Get(ctx, userID, dealID)
	if err != nil {
		return fmt.Errorf("deal %d: %w", dealID, err)
	}
	if deal.StageID == stageID {
		return nil
	}
	var stage models.Stage
	if err := s.db.WithContext(ctx).First(&stage, stageID).Error; err != nil {
		return fmt.Errorf("stage %d: %w", stageID, err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Deal{}).
		Where("id = ?", deal.ID).
		Updates(map[string]interface{}{
			"stage_id":    stageID,
			"pipeline_id": stage.PipelineID,
			"updated_at":  time.Now(),
		}).Error; err != nil {
		return err
	}
	deal.StageID = stageID
	deal.PipelineID = stage.PipelineID
	if emit {
		s.emit(ctx, TriggerDealStageChanged, deal, []string{"stage_id"})
	}
	return nil
}

// deal columns an automation may write directly.
var dealFieldColumns = map[string]string{
	"title":  "title",
	"status": "status",
}

// UpdateField sets one attribute, including customFields.* paths and the
// numeric value column.
func (s *DealService) UpdateField(ctx context.Context, userID, dealID uint, field string, value interface{}) error {
	deal, err := s.Get(ctx, userID, dealID)
	if err != nil {
		return fmt.Errorf("deal %d: %w", dealID, err)
	}
	if key, ok := strings.CutPrefix(field, "customFields."); ok {
		custom := deal.CustomFields()
		custom[key] = value
		deal.SetCustomFields(custom)
		return s.db.WithContext(ctx).Model(&models.Deal{}).
			Where("id = ?", deal.ID).
			Update("custom_fields", deal.CustomJSON).Error
	}
	if field == "value" {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("deal field %q needs a numeric value", field)
		}
		return s.db.WithContext(ctx).Model(&models.Deal{}).
			Where("id = ?", deal.ID).
			Update("value", f).Error
	}
	column, ok := dealFieldColumns[field]
	if !ok {
		return fmt.Errorf("unknown deal field: %s", field)
	}
	return s.db.WithContext(ctx).Model(&models.Deal{}).
		Where("id = ?", deal.ID).
		Update(column, stringify(value)).Error
}

// Snapshot builds the deal's evaluation tree, nesting the contact
// association when one is linked.
func (s *DealService) Snapshot(ctx context.Context, deal *models.Deal) map[string]interface{} {
	snapshot := map[string]interface{}{
		"id":           float64(deal.ID),
		"title":        deal.Title,
		"value":        deal.Value,
		"status":       deal.Status,
		"pipeline_id":  float64(deal.PipelineID),
		"stage_id":     float64(deal.StageID),
		"customFields": deal.CustomFields(),
	}
	if deal.ContactID != nil && s.contacts != nil {
		if contact, err := s.contacts.Get(ctx, deal.UserID, *deal.ContactID); err == nil {
			snapshot["contact"] = s.contacts.Snapshot(contact)
		}
	}
	return snapshot
}

func (s *DealService) emit(ctx context.Context, trigger string, deal *models.Deal, changed []string) {
	if s.events == nil {
		return
	}
	s.events.Dispatch(NewEvent(trigger, deal.UserID, EntityDeal, deal.ID, s.Snapshot(ctx, deal), changed))
}

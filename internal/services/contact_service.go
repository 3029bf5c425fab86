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

// EventSink receives domain events. The event dispatcher implements it;
// tests substitute synchronous fakes.
type EventSink interface {
	Dispatch(ev Event)
}

// ContactService owns contact CRUD and the narrow mutation APIs the action
// executor depends on. CRUD operations emit domain events; the mutation
// APIs do not, so an automation's own writes cannot re-trigger it.
type ContactService struct {
	db     *gorm.DB
	logger *logrus.Logger
	events EventSink
}

func NewContactService(db *gorm.DB, logger *logrus.Logger) *ContactService {
	if logger == nil {
		logger = logrus.New()
	}
	return &ContactService{db: db, logger: logger}
}

// SetEventSink wires the automation dispatcher.
func (s *ContactService) SetEventSink(sink EventSink) {
	s.events = sink
}

type ContactRequest struct {
	Email        string                 `json:"email"`
	FirstName    string                 `json:"first_name"`
	LastName     string                 `json:"last_name"`
	Company      string                 `json:"company"`
	Phone        string                 `json:"phone"`
	Source       string                 `json:"source"`
	Status       string                 `json:"status"`
	Tags         []string               `json:"tags"`
	CustomFields map[string]interface{} `json:"custom_fields"`
}

func (s *ContactService) Create(ctx context.Context, userID uint, req *ContactRequest) (*models.Contact, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	if strings.TrimSpace(req.Email) == "" && strings.TrimSpace(req.FirstName) == "" {
		return nil, errors.New("email or first_name required")
	}

	now := time.Now()
	contact := &models.Contact{
		UserID:    userID,
		Email:     strings.TrimSpace(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Company:   strings.TrimSpace(req.Company),
		Phone:     strings.TrimSpace(req.Phone),
		Source:    req.Source,
		Status:    req.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if contact.Status == "" {
		contact.Status = "lead"
	}
	contact.SetTags(req.Tags)
	contact.SetCustomFields(req.CustomFields)

	if err := s.db.WithContext(ctx).Create(contact).Error; err != nil {
		return nil, err
	}
	s.emit(TriggerContactCreated, contact, nil)
	return contact, nil
}

func (s *ContactService) Get(ctx context.Context, userID, id uint) (*models.Contact, error) {
	var contact models.Contact
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&contact, id).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *ContactService) List(ctx context.Context, userID uint, page, pageSize int) ([]models.Contact, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Contact{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, pageSize = normalizePage(page, pageSize)
	var contacts []models.Contact
	if err := q.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&contacts).Error; err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

// Update applies the provided fields, tracks which built-in attributes
// changed and emits contact_updated with that list.
func (s *ContactService) Update(ctx context.Context, userID, id uint, req *ContactRequest) (*models.Contact, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	contact, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	apply := func(field string, current *string, next string) {
		next = strings.TrimSpace(next)
		if next != "" && next != *current {
			*current = next
			changed = append(changed, field)
		}
	}
	apply("email", &contact.Email, req.Email)
	apply("first_name", &contact.FirstName, req.FirstName)
	apply("last_name", &contact.LastName, req.LastName)
	apply("company", &contact.Company, req.Company)
	apply("phone", &contact.Phone, req.Phone)
	apply("source", &contact.Source, req.Source)
	apply("status", &contact.Status, req.Status)
	if req.Tags != nil {
		contact.SetTags(req.Tags)
		changed = append(changed, "tags")
	}
	if req.CustomFields != nil {
		merged := contact.CustomFields()
		for key, value := range req.CustomFields {
			merged[key] = value
		}
		contact.SetCustomFields(merged)
		changed = append(changed, "customFields")
	}

	contact.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(contact).Error; err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		s.emit(TriggerContactUpdated, contact, changed)
	}
	return contact, nil
}

func (s *ContactService) Delete(ctx context.Context, userID, id uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Contact{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("contact not found")
	}
	return nil
}

// AddTag adds a tag to the contact's tag set. Adding a tag that is already
// present is a no-op, not a duplicate.
func (s *ContactService) AddTag(ctx context.Context, userID, contactID uint, tag string) error {
	contact, err := s.Get(ctx, userID, contactID)
	if err != nil {
		return fmt.Errorf("contact %d: %w", contactID, err)
	}
	tags := contact.Tags()
	for _, existing := range tags {
		if existing == tag {
			return nil
		}
	}
	contact.SetTags(append(tags, tag))
	return s.db.WithContext(ctx).Model(&models.Contact{}).
		Where("id = ?", contact.ID).
		Update("tags", contact.TagsJSON).Error
}

// RemoveTag removes a tag if present; removing an absent tag is a no-op.
func (s *ContactService) RemoveTag(ctx context.Context, userID, contactID uint, tag string) error {
	contact, err := s.Get(ctx, userID, contactID)
	if err != nil {
		return fmt.Errorf("contact %d: %w", contactID, err)
	}
	tags := contact.Tags()
	kept := make([]string, 0, len(tags))
	for _, existing := range tags {
		if existing != tag {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(tags) {
		return nil
	}
	contact.SetTags(kept)
	return s.db.WithContext(ctx).Model(&models.Contact{}).
		Where("id = ?", contact.ID).
		Update("tags", contact.TagsJSON).Error
}

// contact columns an automation may write directly.
var contactFieldColumns = map[string]string{
	"email":      "email",
	"first_name": "first_name",
	"last_name":  "last_name",
	"company":    "company",
	"phone":      "phone",
	"source":     "source",
	"status":     "status",
}

// UpdateField sets one attribute, including customFields.* paths. Custom
// updates merge into the JSON map and leave sibling keys untouched.
func (s *ContactService) UpdateField(ctx context.Context, userID, contactID uint, field string, value interface{}) error {
	contact, err := s.Get(ctx, userID, contactID)
	if err != nil {
		return fmt.Errorf("contact %d: %w", contactID, err)
	}
	if key, ok := strings.CutPrefix(field, "customFields."); ok {
		custom := contact.CustomFields()
		custom[key] = value
		contact.SetCustomFields(custom)
		return s.db.WithContext(ctx).Model(&models.Contact{}).
			Where("id = ?", contact.ID).
			Update("custom_fields", contact.CustomJSON).Error
	}
	column, ok := contactFieldColumns[field]
	if !ok {
		return fmt.Errorf("unknown contact field: %s", field)
	}
	return s.db.WithContext(ctx).Model(&models.Contact{}).
		Where("id = ?", contact.ID).
		Update(column, stringify(value)).Error
}

// Snapshot builds the plain serializable tree the engine evaluates
// conditions against.
func (s *ContactService) Snapshot(contact *models.Contact) map[string]interface{} {
	return map[string]interface{}{
		"id":           float64(contact.ID),
		"email":        contact.Email,
		"first_name":   contact.FirstName,
		"last_name":    contact.LastName,
		"company":      contact.Company,
		"phone":        contact.Phone,
		"source":       contact.Source,
		"status":       contact.Status,
		"tags":         contact.Tags(),
		"customFields": contact.CustomFields(),
	}
}

func (s *ContactService) emit(trigger string, contact *models.Contact, changed []string) {
	if s.events == nil {
		return
	}
	s.events.Dispatch(NewEvent(trigger, contact.UserID, EntityContact, contact.ID, s.Snapshot(contact), changed))
}

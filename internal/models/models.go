package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// User is the tenant principal. Every CRM record and automation is scoped
// to the owning user.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Name      string         `json:"name"`
	Company   string         `json:"company"`
	Role      string         `gorm:"default:'owner'" json:"role"` // owner, member, admin
	Status    string         `gorm:"default:'active'" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Contact is a CRM contact. Tags and custom fields are stored as JSON text
// columns; use the accessor helpers rather than touching the raw columns.
type Contact struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"index;not null" json:"user_id"`
	Email        string         `gorm:"index" json:"email"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	Company      string         `json:"company"`
	Phone        string         `json:"phone"`
	Source       string         `json:"source"` // web, import, referral, manual
	Status       string         `gorm:"default:'lead'" json:"status"`
	TagsJSON     string         `gorm:"column:tags;type:text" json:"-"`
	CustomJSON   string         `gorm:"column:custom_fields;type:text" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Deals []Deal `gorm:"foreignKey:ContactID" json:"deals,omitempty"`
}

// Tags decodes the tags column. An empty or invalid column yields an empty
// slice, never nil access.
func (c *Contact) Tags() []string {
	return decodeStringList(c.TagsJSON)
}

func (c *Contact) SetTags(tags []string) {
	c.TagsJSON = encodeStringList(tags)
}

// CustomFields decodes the custom_fields column into a generic map.
func (c *Contact) CustomFields() map[string]interface{} {
	return decodeMap(c.CustomJSON)
}

func (c *Contact) SetCustomFields(m map[string]interface{}) {
	c.CustomJSON = encodeMap(m)
}

// Pipeline groups the ordered stages a deal moves through.
type Pipeline struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Name      string    `gorm:"not null" json:"name"`
	IsDefault bool      `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Stages []Stage `gorm:"foreignKey:PipelineID" json:"stages,omitempty"`
}

// Stage is a single step of a pipeline.
type Stage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PipelineID uint      `gorm:"index;not null" json:"pipeline_id"`
	Name       string    `gorm:"not null" json:"name"`
	Position   int       `gorm:"default:0" json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Deal is an opportunity attached to a pipeline stage, optionally linked to
// a contact.
type Deal struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"index;not null" json:"user_id"`
	ContactID  *uint          `gorm:"index" json:"contact_id"`
	PipelineID uint           `gorm:"index" json:"pipeline_id"`
	StageID    uint           `gorm:"index" json:"stage_id"`
	Title      string         `gorm:"not null" json:"title"`
	Value      float64        `gorm:"default:0" json:"value"`
	Status     string         `gorm:"default:'open'" json:"status"` // open, won, lost
	CustomJSON string         `gorm:"column:custom_fields;type:text" json:"-"`
	ClosedAt   *time.Time     `json:"closed_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Contact *Contact `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	Stage   Stage    `gorm:"foreignKey:StageID" json:"stage,omitempty"`
}

func (d *Deal) CustomFields() map[string]interface{} {
	return decodeMap(d.CustomJSON)
}

func (d *Deal) SetCustomFields(m map[string]interface{}) {
	d.CustomJSON = encodeMap(m)
}

// CustomField is the definition of a user-defined attribute for a resource
// (contact or deal). Values live in the JSON column of the entity itself.
type CustomField struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Resource    string    `gorm:"index;not null" json:"resource"` // contact, deal
	Key         string    `gorm:"not null" json:"key"`
	Name        string    `gorm:"not null" json:"name"`
	Type        string    `gorm:"not null" json:"type"` // string, number, boolean, date, select, multiselect
	Required    bool      `gorm:"default:false" json:"required"`
	Active      bool      `json:"active"`
	OptionsJSON string    `gorm:"type:text" json:"options_json,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EmailMessage is an audit row for each outbound email handed to the mail
// collaborator, whether it was delivered or not.
type EmailMessage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index" json:"user_id"`
	ContactID    *uint     `gorm:"index" json:"contact_id"`
	AutomationID *uint     `gorm:"index" json:"automation_id"`
	ToAddress    string    `gorm:"not null" json:"to_address"`
	Subject      string    `json:"subject"`
	Body         string    `gorm:"type:text" json:"body"`
	Status       string    `gorm:"index" json:"status"` // sent, failed
	Error        string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}

func encodeStringList(list []string) string {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeMap(raw string) map[string]interface{} {
	if raw == "" {
		return map[string]interface{}{}
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

func encodeMap(m map[string]interface{}) string {
	if m == nil {
		m = map[string]interface{}{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// TemplateStatus represents the lifecycle state of a template
type TemplateStatus string

const (
	StatusDraft     TemplateStatus = "draft"
	StatusPublished TemplateStatus = "published"
	StatusDiscarded TemplateStatus = "discarded"
)

// Valid reports whether the status is one of the enumerated values.
func (s TemplateStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusDiscarded:
		return true
	}
	return false
}

// CanTransition reports whether the status may move to the given state.
// Allowed: draft→published, draft→discarded, published→discarded.
// There is no way back to draft once left. Same-state transitions are
// treated as no-ops and allowed.
func (s TemplateStatus) CanTransition(to TemplateStatus) bool {
	if s == to {
		return true
	}
	switch s {
	case StatusDraft:
		return to == StatusPublished || to == StatusDiscarded
	case StatusPublished:
		return to == StatusDiscarded
	}
	return false
}

// Language is the implementation language a template scaffolds for
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangShell      Language = "shell"
	LangCSharp     Language = "csharp"
	LangJava       Language = "java"
	LangC          Language = "c"
)

// Valid reports whether the language is part of the closed set.
func (l Language) Valid() bool {
	switch l {
	case LangPython, LangJavaScript, LangTypeScript, LangGo, LangRust,
		LangShell, LangCSharp, LangJava, LangC:
		return true
	}
	return false
}

// Template is a named, versioned scaffold definition consumed by the
// external generator CLI. Identity is the composite "owner/name" key;
// it is assigned at creation and never changes. Args and Steps are owned
// by the template and persist as JSON columns, so they live and die with
// the row.
type Template struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name" validate:"required,max=100"`
	Version     string         `gorm:"not null;default:'latest'" json:"version" validate:"required"`
	Description string         `json:"description"`
	Language    Language       `json:"language" validate:"omitempty,oneof=python javascript typescript go rust shell csharp java c"`
	Tags        []string       `gorm:"serializer:json" json:"tags" validate:"required,min=1,dive,required"`
	Status      TemplateStatus `gorm:"not null;default:'draft';index" json:"status" validate:"required,oneof=draft published discarded"`
	Args        []Argument     `gorm:"serializer:json" json:"args,omitempty" validate:"omitempty,dive"`
	Steps       []Step         `gorm:"serializer:json" json:"steps,omitempty" validate:"omitempty,dive"`
	Downloads   int64          `gorm:"default:0" json:"downloads,omitempty"`
	CreatedBy   string         `gorm:"not null;index" json:"createdBy" validate:"required"`
	UpdatedBy   string         `gorm:"not null" json:"updatedBy" validate:"required"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// TableName ensures GORM uses the "templates" table
func (Template) TableName() string {
	return "templates"
}

// BeforeCreate hook derives the composite ID from owner and name
func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = TemplateID(t.CreatedBy, t.Name)
	}
	return nil
}

// TemplateID builds the composite "owner/name" identity.
func TemplateID(owner, name string) string {
	return owner + "/" + name
}

// ArgumentType discriminates how an argument's value is collected
type ArgumentType string

const (
	ArgTypeString ArgumentType = "string"
	ArgTypeEnum   ArgumentType = "enum"
)

// Argument is one input a template declares for its consumer.
type Argument struct {
	Key         string          `json:"key" validate:"required"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Type        ArgumentType    `json:"type" validate:"required,oneof=string enum"`
	Default     string          `json:"default,omitempty"`
	Required    bool            `json:"required"`
	Pattern     string          `json:"pattern,omitempty"`
	Values      []ArgumentValue `json:"values,omitempty"`
	Multiple    bool            `json:"multiple,omitempty"`
	Delimiter   string          `json:"delimiter,omitempty"`
}

// ArgumentValue is one selectable option of an enum argument.
type ArgumentValue struct {
	Value       string `json:"value" validate:"required"`
	Description string `json:"description"`
}

// Step is one generation action a template performs, optionally gated
// by a condition group. Type discriminates the action (file-write,
// conditional, remote-fetch, ...). The variant set is a consumer
// concern and is not validated here.
type Step struct {
	ID          string          `json:"id" validate:"required"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type" validate:"required"`
	Path        string          `json:"path,omitempty"`
	Content     string          `json:"content,omitempty"`
	URL         string          `json:"url,omitempty"`
	Conditions  *ConditionGroup `json:"conditions,omitempty"`
}

// Logical combinators for ConditionGroup. The stored value is a free
// string; these are conveniences, not an enforced set.
const (
	CombinatorAnd = "and"
	CombinatorOr  = "or"
)

// ConditionGroup is a boolean combination of conditions gating a step.
type ConditionGroup struct {
	Operator   string      `json:"operator" validate:"required"`
	Conditions []Condition `json:"conditions" validate:"required,min=1,dive"`
}

// Condition compares a declared argument's value against a comparand.
// Field must reference a declared Argument key; the service checks that
// at write time.
type Condition struct {
	Field    string `json:"field" validate:"required"`
	Operator string `json:"operator" validate:"required"`
	Value    string `json:"value"`
}

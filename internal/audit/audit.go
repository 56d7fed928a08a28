package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scaf-dev/scaf/internal/models"
	"gorm.io/gorm"
)

// LogAction records an audit log entry
func LogAction(db *gorm.DB, userID uuid.UUID, action, resource string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	log := models.AuditLog{
		UserID:      userID,
		Action:      action,
		Resource:    resource,
		DetailsJSON: string(detailsJSON),
		Timestamp:   time.Now(),
	}

	return db.Create(&log).Error
}

// TemplateResource builds the resource identifier for a template.
func TemplateResource(templateID string) string {
	return fmt.Sprintf("template:%s", templateID)
}

// Audit actions constants
const (
	ActionCreateTemplate  = "create_template"
	ActionUpdateTemplate  = "update_template"
	ActionDiscardTemplate = "discard_template"
	ActionMakeAdmin       = "make_admin"
	ActionLogin           = "login"
	ActionLoginFailed     = "login_failed"
)

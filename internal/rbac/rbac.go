package rbac

import (
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelConf string

var enforcer *casbin.Enforcer

// InitEnforcer initializes the Casbin enforcer
func InitEnforcer(db *gorm.DB, logger *slog.Logger) error {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return fmt.Errorf("failed to parse casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if err := e.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	enforcer = e
	logger.Info("RBAC enforcer initialized")
	return nil
}

// templateObject builds the policy object for a template identity.
func templateObject(templateID string) string {
	return fmt.Sprintf("tpl:%s", templateID)
}

// GrantTemplateOwnership grants write access on a template to a user.
// Called once when the template is created.
func GrantTemplateOwnership(userID uuid.UUID, templateID string) error {
	_, err := enforcer.AddPolicy(userID.String(), templateObject(templateID), "write")
	if err != nil {
		return err
	}
	return enforcer.SavePolicy()
}

// CanEditTemplate checks if the user may mutate the template.
func CanEditTemplate(userID uuid.UUID, templateID string) (bool, error) {
	return enforcer.Enforce(userID.String(), templateObject(templateID), "write")
}

// RevokeTemplateOwnership removes a user's write access on a template.
func RevokeTemplateOwnership(userID uuid.UUID, templateID string) error {
	if _, err := enforcer.RemovePolicy(userID.String(), templateObject(templateID), "write"); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}

// IsAdmin checks if user has admin privileges
func IsAdmin(userID uuid.UUID) (bool, error) {
	return enforcer.Enforce(userID.String(), "admin", "admin")
}

// MakeAdmin grants admin privileges to a user
func MakeAdmin(userID uuid.UUID) error {
	if _, err := enforcer.AddPolicy(userID.String(), "admin", "admin"); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}

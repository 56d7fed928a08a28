package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/scaf-dev/scaf/internal/audit"
	"github.com/scaf-dev/scaf/internal/auth"
	"github.com/scaf-dev/scaf/internal/models"
	"github.com/scaf-dev/scaf/internal/pagination"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// TemplateService is the only read/write path to the template store.
// It validates every write against the persistence schema and surfaces
// failures as typed errors; it performs no authorization of its own.
type TemplateService struct {
	db       *gorm.DB
	validate *validator.Validate
}

// New creates a new TemplateService.
func New(db *gorm.DB) *TemplateService {
	return &TemplateService{
		db:       db,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Create validates and stores a new template owned by the actor.
// Unset status defaults to draft, unset version to "latest". A second
// create with the same owner/name identity fails with ConflictError.
func (s *TemplateService) Create(ctx context.Context, req CreateRequest, actor auth.CurrentUser) (*models.Template, error) {
	status := models.TemplateStatus(req.Status)
	if status == "" {
		status = models.StatusDraft
	}
	version := req.Version
	if version == "" {
		version = "latest"
	}

	tpl := models.Template{
		ID:          models.TemplateID(actor.Username, req.Name),
		Name:        req.Name,
		Version:     version,
		Description: req.Description,
		Language:    models.Language(req.Language),
		Tags:        req.Tags,
		Status:      status,
		Args:        req.Args,
		Steps:       req.Steps,
		CreatedBy:   actor.Username,
		UpdatedBy:   actor.Username,
	}

	if err := s.checkSchema(&tpl); err != nil {
		return nil, err
	}

	var existing models.Template
	if err := s.db.WithContext(ctx).Select("id").Where("id = ?", tpl.ID).First(&existing).Error; err == nil {
		return nil, &ConflictError{Message: fmt.Sprintf("template %q already exists", tpl.ID)}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&tpl).Error; err != nil {
		// Concurrent creates race at the primary key; the loser lands here.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Message: fmt.Sprintf("template %q already exists", tpl.ID)}
		}
		return nil, fmt.Errorf("create template: %w", err)
	}

	if err := audit.LogAction(s.db, actor.ID, audit.ActionCreateTemplate, audit.TemplateResource(tpl.ID), nil); err != nil {
		slog.Warn("failed to write audit log", "action", audit.ActionCreateTemplate, "error", err)
	}

	return &tpl, nil
}

// List returns a page of templates sorted by creation time, most recent
// first. The search term matches name or description case-insensitively.
// Without an explicit status filter, discarded templates are excluded.
func (s *TemplateService) List(ctx context.Context, opts pagination.Options, status models.TemplateStatus) (pagination.Response[models.Template], error) {
	if status != "" && !status.Valid() {
		return pagination.Response[models.Template]{}, &ValidationError{Message: fmt.Sprintf("unknown status %q", status)}
	}

	query := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Template{})
		if status != "" {
			q = q.Where("status = ?", status)
		} else {
			q = q.Where("status <> ?", models.StatusDiscarded)
		}
		if opts.Search != "" {
			term := "%" + strings.ToLower(opts.Search) + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", term, term)
		}
		return q
	}

	var (
		templates []models.Template
		total     int64
	)

	// Fetch the page and the total match count in parallel.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return query().WithContext(gctx).
			Order("created_at DESC").
			Offset(opts.Skip).
			Limit(opts.Limit).
			Find(&templates).Error
	})
	g.Go(func() error {
		return query().WithContext(gctx).Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return pagination.Response[models.Template]{}, fmt.Errorf("list templates: %w", err)
	}

	return pagination.NewResponse(templates, total, opts), nil
}

// Get returns the template with the given composite identity. Discarded
// templates are still returned; absence is ErrNotFound.
func (s *TemplateService) Get(ctx context.Context, id string) (*models.Template, error) {
	var tpl models.Template
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&tpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

// Update applies a partial field merge onto the stored template and
// re-validates the merged state. The composite identity is immutable,
// so renames are rejected. Status changes must follow the lifecycle:
// draft→published, draft→discarded, published→discarded.
func (s *TemplateService) Update(ctx context.Context, id string, req UpdateRequest, actor auth.CurrentUser) (*models.Template, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != tpl.Name {
		return nil, &ValidationError{Message: "name is part of the template identity and cannot change"}
	}
	if req.Status != nil {
		next := models.TemplateStatus(*req.Status)
		if !next.Valid() {
			return nil, &ValidationError{Message: fmt.Sprintf("unknown status %q", next)}
		}
		if !tpl.Status.CanTransition(next) {
			return nil, &ValidationError{Message: fmt.Sprintf("status cannot change from %q to %q", tpl.Status, next)}
		}
		tpl.Status = next
	}
	if req.Version != nil {
		tpl.Version = *req.Version
	}
	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if req.Language != nil {
		tpl.Language = models.Language(*req.Language)
	}
	if req.Tags != nil {
		tpl.Tags = req.Tags
	}
	if req.Args != nil {
		tpl.Args = req.Args
	}
	if req.Steps != nil {
		tpl.Steps = req.Steps
	}
	tpl.UpdatedBy = actor.Username

	if err := s.checkSchema(tpl); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(tpl).Error; err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}

	action := audit.ActionUpdateTemplate
	if tpl.Status == models.StatusDiscarded {
		action = audit.ActionDiscardTemplate
	}
	if err := audit.LogAction(s.db, actor.ID, action, audit.TemplateResource(tpl.ID), nil); err != nil {
		slog.Warn("failed to write audit log", "action", action, "error", err)
	}

	return tpl, nil
}

// Discard is the single deletion semantic: a status transition to
// discarded. The record stays in storage, drops out of default listings,
// and remains readable by ID. Discarding twice is a no-op.
func (s *TemplateService) Discard(ctx context.Context, id string, actor auth.CurrentUser) (*models.Template, error) {
	status := string(models.StatusDiscarded)
	return s.Update(ctx, id, UpdateRequest{Status: &status}, actor)
}

// SyncDownloads mirrors the live counter value onto the stored row so
// listings reflect it. Missing rows are ignored.
func (s *TemplateService) SyncDownloads(ctx context.Context, id string, downloads int64) error {
	return s.db.WithContext(ctx).
		Model(&models.Template{}).
		Where("id = ?", id).
		Update("downloads", downloads).Error
}

// checkSchema gates every write: field-level rules via validator tags,
// then the cross-field invariants the tags cannot express.
func (s *TemplateService) checkSchema(tpl *models.Template) error {
	if err := s.validate.Struct(tpl); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Message: fieldErrorMessage(verrs[0])}
		}
		return &ValidationError{Message: err.Error()}
	}
	if err := validateArgs(tpl.Args); err != nil {
		return err
	}
	return validateSteps(tpl.Steps, tpl.Args)
}

// fieldErrorMessage turns a validator field error into a descriptive
// message without leaking struct internals.
func fieldErrorMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must not be empty", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}

// validateArgs enforces the argument invariants: unique keys, enum args
// carry values, multiple args carry a delimiter, patterns compile.
func validateArgs(args []models.Argument) error {
	seen := make(map[string]bool, len(args))
	for _, arg := range args {
		if seen[arg.Key] {
			return &ValidationError{Message: fmt.Sprintf("duplicate argument key %q", arg.Key)}
		}
		seen[arg.Key] = true

		if arg.Type == models.ArgTypeEnum && len(arg.Values) == 0 {
			return &ValidationError{Message: fmt.Sprintf("argument %q is an enum but declares no values", arg.Key)}
		}
		if arg.Multiple && arg.Delimiter == "" {
			return &ValidationError{Message: fmt.Sprintf("argument %q accepts multiple values but has no delimiter", arg.Key)}
		}
		if arg.Pattern != "" {
			if _, err := regexp.Compile(arg.Pattern); err != nil {
				return &ValidationError{Message: fmt.Sprintf("argument %q has an invalid pattern: %v", arg.Key, err)}
			}
		}
	}
	return nil
}

// validateSteps enforces unique step IDs and checks that every
// condition references a declared argument key.
func validateSteps(steps []models.Step, args []models.Argument) error {
	argKeys := make(map[string]bool, len(args))
	for _, arg := range args {
		argKeys[arg.Key] = true
	}

	seen := make(map[string]bool, len(steps))
	for _, step := range steps {
		if seen[step.ID] {
			return &ValidationError{Message: fmt.Sprintf("duplicate step id %q", step.ID)}
		}
		seen[step.ID] = true

		if step.Conditions == nil {
			continue
		}
		for _, cond := range step.Conditions.Conditions {
			if !argKeys[cond.Field] {
				return &ValidationError{Message: fmt.Sprintf("step %q condition references undeclared argument %q", step.ID, cond.Field)}
			}
		}
	}
	return nil
}

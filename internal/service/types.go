package service

import "github.com/scaf-dev/scaf/internal/models"

// CreateRequest holds parameters for creating a template.
type CreateRequest struct {
	Name        string
	Version     string
	Description string
	Language    string
	Tags        []string
	Status      string
	Args        []models.Argument
	Steps       []models.Step
}

// UpdateRequest holds a partial template update. Nil pointer fields and
// nil slices are left unchanged.
type UpdateRequest struct {
	Name        *string
	Version     *string
	Description *string
	Language    *string
	Tags        []string
	Status      *string
	Args        []models.Argument
	Steps       []models.Step
}

package queries

import (
	"kbweb/domain/core/aggregates"
	"kbweb/domain/core/entities"
	"kbweb/pkg/errors"
	"kbweb/pkg/utils"
)

// SearchTemplateQuery searches the knowledge base with an SCs template
type SearchTemplateQuery struct {
	UserID   string `json:"user_id" validate:"required"`
	Template string `json:"template" validate:"required,max=100000"`
}

// Validate validates the query
func (q SearchTemplateQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// FindByIdentifierQuery shows the main identifier of the element whose
// system identifier is the last line of Text
type FindByIdentifierQuery struct {
	UserID string `json:"user_id" validate:"required"`
	Text   string `json:"text" validate:"required,max=100000"`
}

// Validate validates the query
func (q FindByIdentifierQuery) Validate() error {
	if err := utils.ValidateStruct(q); err != nil {
		return err
	}
	if err := entities.ValidateIdentifier(entities.LastLine(q.Text)); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}

// GenerateTemplateQuery generates the template's structure in the knowledge
// base and shows what was generated
type GenerateTemplateQuery struct {
	UserID   string `json:"user_id" validate:"required"`
	Template string `json:"template" validate:"required,max=100000"`
}

// Validate validates the query
func (q GenerateTemplateQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GraphResult is the outcome of a search, find or generate query
type GraphResult struct {
	Graph   *aggregates.ResultGraph `json:"graph"`
	Matches int                     `json:"matches"`
}

// ListTemplatesQuery lists the editor templates
type ListTemplatesQuery struct{}

// Validate validates the query
func (q ListTemplatesQuery) Validate() error {
	return nil
}

// ListTemplatesResult holds the templates in display order
type ListTemplatesResult struct {
	Templates []entities.KBTemplate `json:"templates"`
}

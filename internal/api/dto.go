package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/temple/internal/commands"
	"github.com/starford/temple/internal/models"
	"github.com/starford/temple/internal/noteservice"
	"github.com/starford/temple/internal/picker"
	"github.com/starford/temple/internal/render"
)

// Outcome is the result of a render invocation (aliased from the domain layer).
type Outcome = noteservice.Outcome

// RenderTextRequest renders literal text without writing.
type RenderTextRequest struct {
	Text string `json:"text" example:"Today is {{ today | formatDate \"yyyy-MM-dd\" }}" validate:"required"`
	Path string `json:"path,omitempty" example:"notes/hello.md"`
}

func (r RenderTextRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required),
	)
}

// RenderFileRequest renders a document in place.
type RenderFileRequest struct {
	Path string `json:"path" example:"notes/hello.md" validate:"required"`
}

func (r RenderFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// RenderSelectionRequest renders a byte range of a document in place.
type RenderSelectionRequest struct {
	Path  string `json:"path" example:"notes/hello.md" validate:"required"`
	Start int    `json:"start" example:"0"`
	End   int    `json:"end" example:"42" validate:"required"`
}

func (r RenderSelectionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Start, validation.Min(0)),
		validation.Field(&r.End, validation.Min(r.Start+1)),
	)
}

func (r RenderSelectionRequest) span() render.Span { return render.Span{Start: r.Start, End: r.End} }

// InsertTemplateRequest inserts a rendered template at a position. An empty
// Template dismisses the choice.
type InsertTemplateRequest struct {
	Path     string `json:"path" example:"notes/hello.md" validate:"required"`
	Template string `json:"template" example:"daily"`
	Start    int    `json:"start" example:"0"`
	End      int    `json:"end" example:"0"`
}

func (r InsertTemplateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Start, validation.Min(0)),
		validation.Field(&r.End, validation.Min(r.Start)),
	)
}

func (r InsertTemplateRequest) span() render.Span { return render.Span{Start: r.Start, End: r.End} }

// SetSettingRequest changes one settings field.
type SetSettingRequest struct {
	Value string `json:"value" example:"_templates"`
}

func (r SetSettingRequest) Validate() error { return nil }

// TemplateListResponse wraps the candidate templates.
type TemplateListResponse struct {
	Templates []models.Document `json:"templates" validate:"required"`
}

// SettingField is one settings key with its current value.
type SettingField struct {
	Key         string `json:"key" example:"datetime.locale" validate:"required"`
	Description string `json:"description" validate:"required"`
	Value       string `json:"value" example:"fr"`
}

// RenderListResponse wraps journal rows.
type RenderListResponse struct {
	Renders []models.RenderRecord `json:"renders" validate:"required"`
}

// CommandRequest is the editor state a command runs against. Template
// answers the picker for insert-template; empty dismisses it.
type CommandRequest struct {
	Path     string `json:"path" example:"notes/hello.md" validate:"required"`
	Start    int    `json:"start" example:"0"`
	End      int    `json:"end" example:"0"`
	Template string `json:"template,omitempty" example:"daily"`
}

func (r CommandRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Start, validation.Min(0)),
		validation.Field(&r.End, validation.Min(r.Start)),
	)
}

func (r CommandRequest) state() commands.State {
	st := commands.State{Path: r.Path, Selection: render.Span{Start: r.Start, End: r.End}, Picker: picker.Dismiss}
	if r.Template != "" {
		st.Picker = picker.ByName(r.Template)
	}
	return st
}

// CommandInfo describes one command and whether it is enabled for the
// queried state.
type CommandInfo struct {
	ID      string `json:"id" example:"render-file" validate:"required"`
	Name    string `json:"name" example:"Render current file" validate:"required"`
	Enabled bool   `json:"enabled"`
}

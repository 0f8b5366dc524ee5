package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/temple/internal/commands"
	"github.com/starford/temple/internal/index"
	"github.com/starford/temple/internal/noteservice"
	"github.com/starford/temple/internal/picker"
	"github.com/starford/temple/internal/render"
	"github.com/starford/temple/internal/settings"
)

// Handler holds API route handlers.
type Handler struct {
	svc      *noteservice.Service
	commands *commands.Registry
	journal  index.Journal
}

// NewHandler creates a new Handler. journal may be nil.
func NewHandler(svc *noteservice.Service, journal index.Journal) *Handler {
	return &Handler{svc: svc, commands: commands.NewRegistry(svc), journal: journal}
}

// ListTemplates handles GET /api/templates.
//
//	@Summary		List candidate templates
//	@Tags			templates
//	@Produce		json
//	@Success		200	{object}	TemplateListResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates [get]
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Templates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TemplateListResponse{Templates: docs})
}

// RenderText handles POST /api/render.
//
//	@Summary		Render literal template text
//	@Tags			render
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenderTextRequest	true	"Template text"
//	@Success		200		{object}	Outcome
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render [post]
func (h *Handler) RenderText(w http.ResponseWriter, r *http.Request) {
	var req RenderTextRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.svc.RenderText(r.Context(), req.Text, req.Path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// InsertTemplate handles POST /api/render/insert.
//
//	@Summary		Insert a rendered template into a document
//	@Tags			render
//	@Accept			json
//	@Produce		json
//	@Param			body	body		InsertTemplateRequest	true	"Target and template"
//	@Success		200		{object}	Outcome
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render/insert [post]
func (h *Handler) InsertTemplate(w http.ResponseWriter, r *http.Request) {
	var req InsertTemplateRequest
	if !decode(w, r, &req) {
		return
	}
	var p picker.Picker = picker.Dismiss
	if req.Template != "" {
		p = picker.ByName(req.Template)
	}
	out, err := h.svc.InsertTemplate(r.Context(), req.Path, req.span(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// RenderFile handles POST /api/render/file.
//
//	@Summary		Render a document in place
//	@Tags			render
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenderFileRequest	true	"Target document"
//	@Success		200		{object}	Outcome
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render/file [post]
func (h *Handler) RenderFile(w http.ResponseWriter, r *http.Request) {
	var req RenderFileRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.svc.RenderFile(r.Context(), req.Path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// RenderSelection handles POST /api/render/selection.
//
//	@Summary		Render a selection of a document in place
//	@Tags			render
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenderSelectionRequest	true	"Target and byte range"
//	@Success		200		{object}	Outcome
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render/selection [post]
func (h *Handler) RenderSelection(w http.ResponseWriter, r *http.Request) {
	var req RenderSelectionRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.svc.RenderSelection(r.Context(), req.Path, req.span())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Current settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	settings.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings().Snapshot())
}

// ListSettingFields handles GET /api/settings/fields.
//
//	@Summary		Editable settings with their values
//	@Tags			settings
//	@Produce		json
//	@Success		200	{array}	SettingField
//	@Security		BearerAuth
//	@Router			/settings/fields [get]
func (h *Handler) ListSettingFields(w http.ResponseWriter, _ *http.Request) {
	current := h.svc.Settings().Snapshot()
	out := make([]SettingField, 0)
	for _, f := range settings.Fields() {
		out = append(out, SettingField{Key: f.Key, Description: f.Description, Value: f.Get(current)})
	}
	writeJSON(w, http.StatusOK, out)
}

// SetSetting handles PUT /api/settings/{key}.
//
//	@Summary		Change one setting
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			key		path		string				true	"Setting key"
//	@Param			body	body		SetSettingRequest	true	"New value"
//	@Success		200		{object}	settings.Settings
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/{key} [put]
func (h *Handler) SetSetting(w http.ResponseWriter, r *http.Request) {
	var req SetSettingRequest
	if !decode(w, r, &req) {
		return
	}
	next, err := h.svc.Settings().Set(chi.URLParam(r, "key"), req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// ListRenders handles GET /api/renders.
//
//	@Summary		Render journal, newest first
//	@Tags			render
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"	Enums(rendered, cancelled, failed)
//	@Param			target	query		string	false	"Filter by target document"
//	@Param			limit	query		int		false	"Maximum rows"
//	@Success		200		{object}	RenderListResponse
//	@Security		BearerAuth
//	@Router			/renders [get]
func (h *Handler) ListRenders(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusOK, RenderListResponse{Renders: nil})
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	recs, err := h.journal.Renders(r.Context(), index.RenderQuery{
		Status: q.Get("status"),
		Target: q.Get("target"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RenderListResponse{Renders: recs})
}

// ListCommands handles GET /api/commands.
//
//	@Summary		List commands with their availability
//	@Tags			commands
//	@Produce		json
//	@Param			path	query		string	false	"Active document"
//	@Param			start	query		int		false	"Selection start"
//	@Param			end		query		int		false	"Selection end"
//	@Success		200		{array}		CommandInfo
//	@Security		BearerAuth
//	@Router			/commands [get]
func (h *Handler) ListCommands(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, _ := strconv.Atoi(q.Get("start"))
	end, _ := strconv.Atoi(q.Get("end"))
	st := commands.State{Path: q.Get("path"), Selection: render.Span{Start: start, End: end}}

	out := make([]CommandInfo, 0)
	for _, c := range h.commands.List() {
		out = append(out, CommandInfo{ID: c.ID, Name: c.Name, Enabled: c.Check(st)})
	}
	writeJSON(w, http.StatusOK, out)
}

// ExecuteCommand handles POST /api/commands/{id}.
//
//	@Summary		Run a command against an editor state
//	@Tags			commands
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Command ID"
//	@Param			body	body		CommandRequest	true	"Editor state"
//	@Success		200		{object}	Outcome
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/commands/{id} [post]
func (h *Handler) ExecuteCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.commands.Execute(r.Context(), chi.URLParam(r, "id"), req.state())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

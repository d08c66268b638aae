package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/opencode-ai/promptctl/internal/format"
	"github.com/opencode-ai/promptctl/internal/prompt"
	"github.com/opencode-ai/promptctl/internal/quality"
	"github.com/opencode-ai/promptctl/internal/templates"
)

// Error codes returned in error bodies.
const (
	codeBadRequest       = "bad_request"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeRateLimited      = "rate_limited"
	codeMissingVariable  = "missing_variable"
	codeTypeCoercion     = "type_coercion"
	codeEnumViolation    = "enum_violation"
	codeUndefined        = "undefined_variable"
	codeInvalidTemplate  = "invalid_template"
	codeSyntax           = "syntax_error"
	codeInternal         = "internal"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Variable    string   `json:"variable,omitempty"`
	Field       string   `json:"field,omitempty"`
	Body        string   `json:"body,omitempty"`
	Line        int      `json:"line,omitempty"`
	Column      int      `json:"column,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type templateSummary struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source,omitempty"`
	Chat        bool     `json:"chat"`
	Variables   int      `json:"variables"`
}

type templateDetail struct {
	*prompt.Definition
	Source string `json:"source,omitempty"`
	Chat   bool   `json:"chat"`
}

type renderRequest struct {
	Variables map[string]any `json:"variables"`
	Format    string         `json:"format"`
	Provider  string         `json:"provider"`
}

type renderResponse struct {
	RenderID string   `json:"render_id"`
	Template string   `json:"template"`
	Version  string   `json:"version"`
	Format   string   `json:"format"`
	Output   string   `json:"output"`
	Chat     bool     `json:"chat"`
	System   string   `json:"system,omitempty"`
	User     string   `json:"user,omitempty"`
	Ignored  []string `json:"ignored,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  int(time.Since(s.startedAt).Seconds()),
	})
}

type limitsResponse struct {
	Enabled bool         `json:"enabled"`
	Routes  []RouteUsage `json:"routes"`
}

func (s *Server) handleLimits(w http.ResponseWriter, _ *http.Request) {
	resp := limitsResponse{Routes: []RouteUsage{}}
	if s.limiter != nil {
		resp.Enabled = s.limiter.Enabled()
		resp.Routes = s.limiter.Usage()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	tags := r.URL.Query()["tag"]

	var (
		defs []*prompt.Definition
		err  error
	)
	if query != "" || len(tags) > 0 {
		defs, err = s.catalog.Search(query, tags)
	} else {
		defs, _, err = s.catalog.List()
	}
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	out := make([]templateSummary, 0, len(defs))
	for _, def := range defs {
		out = append(out, templateSummary{
			Name:        def.Name,
			Version:     def.Version,
			Description: def.Description,
			Tags:        def.Tags,
			Source:      def.Source,
			Chat:        def.IsChat(),
			Variables:   len(def.Variables),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": out})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	def, ok := s.loadTemplate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, templateDetail{Definition: def, Source: def.Source, Chat: def.IsChat()})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	def, ok := s.loadTemplate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, prompt.Validate(def))
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	def, ok := s.loadTemplate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, quality.Score(def, quality.Options{}))
}

func (s *Server) handleValidateInline(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if !decodeBody(w, r, &doc, false) {
		return
	}
	if doc == nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "template document is required", nil)
		return
	}
	def, err := prompt.FromMap(doc)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	def.Source = "inline"
	writeJSON(w, http.StatusOK, prompt.Validate(def))
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	def, ok := s.loadTemplate(w, r)
	if !ok {
		return
	}

	var req renderRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	formatName := req.Format
	if formatName == "" {
		formatName = s.defaultFormat
	}
	formatter, err := format.Get(formatName, format.WithProvider(req.Provider))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
		return
	}

	out, err := prompt.Render(def, req.Variables, s.renderOpts...)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	res := format.NewResult(def, out)
	text, err := formatter.Format(res)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	if s.recorder != nil {
		if _, err := s.recorder.Record(r.Context(), res, formatName); err != nil {
			s.logger.Warn().Err(err).Str("template", def.Name).Msg("failed to record render")
		}
	}

	writeJSON(w, http.StatusOK, renderResponse{
		RenderID: res.RenderID,
		Template: def.Name,
		Version:  def.Version,
		Format:   formatName,
		Output:   text,
		Chat:     out.Chat,
		System:   out.System,
		User:     out.User,
		Ignored:  out.Ignored,
	})
}

func (s *Server) loadTemplate(w http.ResponseWriter, r *http.Request) (*prompt.Definition, bool) {
	name := mux.Vars(r)["name"]
	def, err := s.catalog.Load(name)
	if err != nil {
		s.writeFailure(w, err)
		return nil, false
	}
	return def, true
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, useNumber bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if useNumber {
		dec.UseNumber()
	}
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("invalid JSON body: %v", err), nil)
		return false
	}
	return true
}

// writeFailure maps domain errors to status codes.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	var (
		notFound  *templates.NotFoundError
		missing   *prompt.MissingVariableError
		coercion  *prompt.TypeCoercionError
		enum      *prompt.EnumViolationError
		undefined *prompt.UndefinedVariableError
		schema    *prompt.SchemaError
		syntax    *prompt.SyntaxError
	)

	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error(), func(d *errorDetail) {
			d.Suggestions = notFound.Suggestions
		})
	case errors.As(err, &missing):
		writeError(w, http.StatusUnprocessableEntity, codeMissingVariable, err.Error(), func(d *errorDetail) {
			d.Variable = missing.Variable
		})
	case errors.As(err, &coercion):
		writeError(w, http.StatusUnprocessableEntity, codeTypeCoercion, err.Error(), func(d *errorDetail) {
			d.Variable = coercion.Variable
		})
	case errors.As(err, &enum):
		writeError(w, http.StatusUnprocessableEntity, codeEnumViolation, err.Error(), func(d *errorDetail) {
			d.Variable = enum.Variable
		})
	case errors.As(err, &undefined):
		writeError(w, http.StatusUnprocessableEntity, codeUndefined, err.Error(), func(d *errorDetail) {
			d.Variable = undefined.Name
			d.Body = undefined.Body
			d.Line = undefined.Line
			d.Column = undefined.Column
		})
	case errors.As(err, &schema):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidTemplate, err.Error(), func(d *errorDetail) {
			d.Field = schema.Field
		})
	case errors.As(err, &syntax):
		writeError(w, http.StatusInternalServerError, codeSyntax, err.Error(), func(d *errorDetail) {
			d.Body = syntax.Body
			d.Line = syntax.Line
			d.Column = syntax.Column
		})
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error(), nil)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, fill func(*errorDetail)) {
	detail := errorDetail{Code: code, Message: message}
	if fill != nil {
		fill(&detail)
	}
	writeJSON(w, status, errorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

package httpadapter

import (
	"net/http"

	"millaudit/internal/domain"
	"millaudit/internal/services/templates"
)

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	ts, err := s.templates.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, ts)
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	t, err := s.templates.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, t)
}

func (s *Server) publishTemplate(w http.ResponseWriter, r *http.Request) {
	var t domain.ChecklistTemplate
	if err := decodeBody(r, &t); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.templates.Publish(r.Context(), t); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, t)
}

type validateResponse struct {
	Valid  bool              `json:"valid"`
	Issues []templates.Issue `json:"issues"`
}

func (s *Server) validateTemplate(w http.ResponseWriter, r *http.Request) {
	var t domain.ChecklistTemplate
	if err := decodeBody(r, &t); err != nil {
		writeDomainError(w, r, err)
		return
	}
	issues := templates.Validate(t)
	if issues == nil {
		issues = []templates.Issue{}
	}
	writeSuccess(w, http.StatusOK, validateResponse{Valid: !templates.HasErrors(issues), Issues: issues})
}

type scoreItemRequest struct {
	TemplateID string `json:"templateId"`
	ItemID     string `json:"itemId"`
	Value      any    `json:"value"`
}

func (s *Server) scoreItem(w http.ResponseWriter, r *http.Request) {
	var req scoreItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp, err := s.audits.ScoreItem(r.Context(), req.TemplateID, req.ItemID, req.Value)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

type scoreRequest struct {
	TemplateID string         `json:"templateId"`
	Responses  map[string]any `json:"responses"`
}

func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	result, err := s.audits.Score(r.Context(), req.TemplateID, req.Responses)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

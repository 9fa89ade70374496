package httpadapter

import (
	"net/http"

	"millaudit/internal/domain"
	"millaudit/internal/services/audits"
)

// sessionItem binds the {id} and {itemId} path parameters.
func sessionItem(r *http.Request) (sessionID, itemID string, err error) {
	if sessionID, err = pathParam(r, "id"); err != nil {
		return "", "", err
	}
	if itemID, err = pathParam(r, "itemId"); err != nil {
		return "", "", err
	}
	return sessionID, itemID, nil
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req audits.StartRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	sess, err := s.audits.Start(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, sess)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	sess, err := s.audits.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, sess)
}

type answerRequest struct {
	Value any `json:"value"`
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request) {
	sessionID, itemID, err := sessionItem(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req answerRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp, err := s.audits.Answer(r.Context(), sessionID, itemID, req.Value)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) clearAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID, itemID, err := sessionItem(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.audits.Clear(r.Context(), sessionID, itemID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type naRequest struct {
	Justification string `json:"justification"`
}

func (s *Server) markNA(w http.ResponseWriter, r *http.Request) {
	sessionID, itemID, err := sessionItem(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req naRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp, err := s.audits.MarkNA(r.Context(), sessionID, itemID, req.Justification)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) attachEvidence(w http.ResponseWriter, r *http.Request) {
	sessionID, itemID, err := sessionItem(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var ev domain.Evidence
	if err := decodeBody(r, &ev); err != nil {
		writeDomainError(w, r, err)
		return
	}
	out, err := s.audits.AttachEvidence(r.Context(), sessionID, itemID, ev)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, out)
}

func (s *Server) removeEvidence(w http.ResponseWriter, r *http.Request) {
	sessionID, itemID, err := sessionItem(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	evidenceID, err := pathParam(r, "evidenceId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.audits.RemoveEvidence(r.Context(), sessionID, itemID, evidenceID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type navigateRequest struct {
	SectionIndex int `json:"sectionIndex"`
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req navigateRequest
	if err := decodeBody(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	sess, err := s.audits.Navigate(r.Context(), id, req.SectionIndex)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, sess)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	result, err := s.audits.Preview(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	sub, err := s.audits.Submit(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, sub)
}

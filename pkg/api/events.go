package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/primeslot/primeslot/pkg/catalog"
	"github.com/primeslot/primeslot/pkg/types"
)

type idResponse struct {
	ID string `json:"id"`
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	q := catalog.EventQuery{
		Day:    r.URL.Query().Get("day"),
		Q:      r.URL.Query().Get("q"),
		Status: types.EventStatus(r.URL.Query().Get("status")),
	}
	var err error
	if q.Page, err = parseIntParam(r, "page"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.PageSize, err = parseIntParam(r, "pageSize"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.From, err = parseTimeParam(r, "from"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.To, err = parseTimeParam(r, "to"); err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.deps.Catalog.List(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var in catalog.EventInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	ev, err := s.deps.Catalog.Create(r.Context(), identity(r).ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: ev.ID})
}

func (s *Server) eventSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Catalog.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.deps.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	var patch catalog.EventPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	ev, err := s.deps.Catalog.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

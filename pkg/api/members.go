package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/importer"
	"github.com/primeslot/primeslot/pkg/roster"
	"github.com/primeslot/primeslot/pkg/types"
)

const maxImportBytes = 32 << 20

type memberResponse struct {
	OK     bool          `json:"ok,omitempty"`
	Member *types.Member `json:"member"`
}

type selfResponse struct {
	MemberID string        `json:"memberId"`
	Member   *types.Member `json:"member"`
}

type linkRequest struct {
	MemberID string `json:"memberId"`
	roster.LinkInput
}

type recordsResponse struct {
	Records []*roster.EventMemberView `json:"records"`
}

type importResponse struct {
	EventID string                `json:"eventId"`
	DryRun  bool                  `json:"dryRun"`
	Summary *roster.ImportSummary `json:"summary"`
}

type approveRequest struct {
	Approved *bool `json:"approved"`
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	q := roster.MemberQuery{Q: r.URL.Query().Get("q")}
	var err error
	if q.Page, err = parseIntParam(r, "page"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if q.PageSize, err = parseIntParam(r, "pageSize"); err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.deps.Roster.ListMembers(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) createMember(w http.ResponseWriter, r *http.Request) {
	var in roster.MemberInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.deps.Roster.CreateMember(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: m.ID})
}

func (s *Server) getMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.Roster.GetMember(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{Member: m})
}

// me returns the caller's own member record. Admins pick the member with
// ?memberId=.
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	caller := identity(r)
	memberID := caller.ID
	if caller.IsAdmin() {
		memberID = strings.TrimSpace(r.URL.Query().Get("memberId"))
		if memberID == "" {
			s.writeError(w, r, apperr.Validation("memberId is required"))
			return
		}
	}
	m, err := s.deps.Roster.GetMember(r.Context(), memberID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, selfResponse{MemberID: memberID, Member: m})
}

func (s *Server) updateMember(w http.ResponseWriter, r *http.Request) {
	var patch roster.MemberPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.deps.Roster.UpdateMember(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{OK: true, Member: m})
}

func (s *Server) deleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Roster.DeleteMember(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) approveMember(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Approved == nil {
		s.writeError(w, r, apperr.Validation("approved is required"))
		return
	}
	m, err := s.deps.Roster.ApproveProfile(r.Context(), chi.URLParam(r, "id"), *req.Approved)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{OK: true, Member: m})
}

func (s *Server) listEventMembers(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Roster.ListEventMembers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []*roster.EventMemberView{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: records})
}

func (s *Server) linkMember(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	link, err := s.deps.Roster.Link(r.Context(), chi.URLParam(r, "id"), req.MemberID, req.LinkInput)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (s *Server) getLink(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Roster.GetLink(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "memberId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) patchLink(w http.ResponseWriter, r *http.Request) {
	var patch roster.LinkPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	link, err := s.deps.Roster.PatchLink(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "memberId"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (s *Server) unlinkMember(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Roster.Unlink(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "memberId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

// importMembers reads a CSV upload from the "file" form field
func (s *Server) importMembers(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		s.writeError(w, r, apperr.Validation("file is required (xlsx/csv)"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, apperr.Validation("file is required (xlsx/csv)"))
		return
	}
	defer file.Close()

	dryRun := parseBool(strings.ToLower(r.FormValue("dryRun")))
	rows, err := importer.Parse(header.Filename, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := s.deps.Roster.Import(r.Context(), eventID, rows, dryRun)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{EventID: eventID, DryRun: dryRun, Summary: summary})
}

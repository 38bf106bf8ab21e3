package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/primeslot/primeslot/pkg/availability"
	"github.com/primeslot/primeslot/pkg/meeting"
	"github.com/primeslot/primeslot/pkg/types"
)

type requestResponse struct {
	ID string `json:"id"`
	OK bool   `json:"ok"`
}

type pendingResponse struct {
	Meetings []*types.Meeting `json:"meetings"`
}

type notificationsResponse struct {
	Notifications []*types.Notification `json:"notifications"`
}

func (s *Server) listMeetings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := meeting.Query{
		EventID:  query.Get("eventId"),
		MemberID: query.Get("memberId"),
		Status:   query.Get("status"),
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
	page, err := s.deps.Meetings.List(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) meetingSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Meetings.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) getMeeting(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.Meetings.Get(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "meetingId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) patchMeeting(w http.ResponseWriter, r *http.Request) {
	var patch meeting.Patch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.deps.Meetings.AdminPatch(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "meetingId"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) deleteMeeting(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Meetings.Delete(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "meetingId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

// requestMeeting asks the member in the path (bId) for a meeting on
// behalf of the requester named in the body (aId)
func (s *Server) requestMeeting(w http.ResponseWriter, r *http.Request) {
	var in meeting.RequestInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.BID = chi.URLParam(r, "id")

	m, err := s.deps.Meetings.Request(r.Context(), identity(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestResponse{ID: m.ID, OK: true})
}

func (s *Server) respondMeeting(w http.ResponseWriter, r *http.Request) {
	var in meeting.RespondInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.MemberID = chi.URLParam(r, "id")
	in.MeetingID = chi.URLParam(r, "meetingId")

	if _, err := s.deps.Meetings.Respond(r.Context(), identity(r), in); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) pendingMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := s.deps.Meetings.ListPending(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if meetings == nil {
		meetings = []*types.Meeting{}
	}
	writeJSON(w, http.StatusOK, pendingResponse{Meetings: meetings})
}

func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Meetings.Notifications(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*types.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Notifications: list})
}

// calendar defaults to a window from a week ago to thirty days ahead
func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	from, to := availability.DefaultWindow(s.now())
	if v, err := parseTimeParam(r, "from"); err != nil {
		s.writeError(w, r, err)
		return
	} else if v != nil {
		from = *v
	}
	if v, err := parseTimeParam(r, "to"); err != nil {
		s.writeError(w, r, err)
		return
	} else if v != nil {
		to = *v
	}

	cal, err := s.deps.Availability.BusyFree(r.Context(), identity(r), chi.URLParam(r, "id"), from, to, r.URL.Query().Get("eventId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

type pairRequest struct {
	AID            string            `json:"aId"`
	BID            string            `json:"bId"`
	From           *types.FlexMillis `json:"from"`
	To             *types.FlexMillis `json:"to"`
	MinDurationMin int               `json:"minDurationMin"`
	EventID        string            `json:"eventId"`
}

func (s *Server) pairAvailability(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in := availability.PairInput{
		AID:            req.AID,
		BID:            req.BID,
		MinDurationMin: req.MinDurationMin,
		EventID:        req.EventID,
		From:           -1,
		To:             -1,
	}
	if req.From != nil {
		in.From = int64(*req.From)
	}
	if req.To != nil {
		in.To = int64(*req.To)
	}

	pair, err := s.deps.Availability.Pair(r.Context(), identity(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

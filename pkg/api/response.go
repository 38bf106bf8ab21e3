package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/auth"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

type okBody struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps err onto a status code and an {"error"} body
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	msg := apperr.PublicMessage(err, s.cfg.ExposeInternalErrors)
	if errors.Is(err, storage.ErrInvalidPath) || errors.Is(err, storage.ErrOverlappingPaths) {
		status = http.StatusBadRequest
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("route", routePattern(r)).
			Msg("Request failed")
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst as is.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("Invalid JSON body")
	}
	return nil
}

func identity(r *http.Request) types.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

func parseIntParam(r *http.Request, name string) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, apperr.Validation("invalid %s", name)
	}
	return n, nil
}

// parseTimeParam accepts epoch milliseconds or an ISO date/time
func parseTimeParam(r *http.Request, name string) (*types.Millis, error) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return nil, nil
	}
	ms, err := types.ParseMillis(value)
	if err != nil {
		return nil, apperr.Validation("invalid %s", name)
	}
	return &ms, nil
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && b
}

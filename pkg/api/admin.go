package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/metrics"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminResponse struct {
	UID   string  `json:"uid"`
	Email *string `json:"email"`
}

type meResponse struct {
	Authenticated bool    `json:"authenticated"`
	UID           string  `json:"uid,omitempty"`
	Email         *string `json:"email,omitempty"`
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(clientIP(r)) {
		metrics.LoginAttempts.WithLabelValues("limited").Inc()
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many requests"})
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.writeError(w, r, apperr.Validation("Email and password are required"))
		return
	}

	admin, err := s.deps.Admins.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if apperr.Is(err, apperr.KindUnauthorized) {
			metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		}
		s.writeError(w, r, err)
		return
	}

	token, _, err := s.deps.Sessions.Create(r.Context(), admin.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.logger.Info().Str("admin_id", admin.ID).Msg("Admin logged in")

	http.SetCookie(w, &http.Cookie{
		Name:     s.deps.Resolver.AdminCookie(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.deps.Sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	email := admin.Email
	writeJSON(w, http.StatusOK, adminResponse{UID: admin.ID, Email: &email})
}

func (s *Server) adminLogout(w http.ResponseWriter, r *http.Request) {
	name := s.deps.Resolver.AdminCookie()
	if c, err := r.Cookie(name); err == nil && c.Value != "" {
		if err := s.deps.Sessions.Revoke(r.Context(), c.Value); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) adminMe(w http.ResponseWriter, r *http.Request) {
	id, err := s.deps.Resolver.Resolve(r)
	if err != nil && !apperr.Is(err, apperr.KindUnauthorized) {
		s.writeError(w, r, err)
		return
	}
	if err != nil || !id.IsAdmin() {
		writeJSON(w, http.StatusUnauthorized, meResponse{Authenticated: false})
		return
	}

	resp := meResponse{Authenticated: true, UID: id.ID}
	admin, err := s.deps.Admins.Get(r.Context(), id.ID)
	switch {
	case err == nil:
		resp.Email = &admin.Email
	case apperr.Is(err, apperr.KindNotFound), apperr.Is(err, apperr.KindValidation):
		// configured test identity without an account
	default:
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

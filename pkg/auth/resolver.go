package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/types"
)

// ResolverConfig configures how callers are identified
type ResolverConfig struct {
	Secret       string
	MemberCookie string
	AdminCookie  string
	// Disabled skips all checks and resolves every request to the admin
	// TestIdentity.
	Disabled     bool
	TestIdentity string
}

// Resolver turns request credentials into an Identity
type Resolver struct {
	cfg      ResolverConfig
	sessions *SessionManager
}

// NewResolver creates a resolver. sessions may be nil when admin
// sessions are not served.
func NewResolver(cfg ResolverConfig, sessions *SessionManager) *Resolver {
	if cfg.MemberCookie == "" {
		cfg.MemberCookie = "session"
	}
	if cfg.AdminCookie == "" {
		cfg.AdminCookie = "admin_session"
	}
	return &Resolver{cfg: cfg, sessions: sessions}
}

// AdminCookie returns the name of the admin session cookie
func (r *Resolver) AdminCookie() string {
	return r.cfg.AdminCookie
}

// Resolve identifies the caller of req. A bearer member token wins over
// a member cookie, which wins over an admin session cookie. Credentials
// that fail to verify are skipped in favour of the next source.
func (r *Resolver) Resolve(req *http.Request) (types.Identity, error) {
	if r.cfg.Disabled {
		return types.Identity{Kind: types.IdentityAdmin, ID: r.cfg.TestIdentity}, nil
	}

	if raw := bearerToken(req); raw != "" {
		if id, err := ParseMemberToken(raw, r.cfg.Secret); err == nil {
			return types.Identity{Kind: types.IdentityMember, ID: id}, nil
		}
	}

	if c, err := req.Cookie(r.cfg.MemberCookie); err == nil && c.Value != "" {
		if id, err := ParseMemberToken(c.Value, r.cfg.Secret); err == nil {
			return types.Identity{Kind: types.IdentityMember, ID: id}, nil
		}
	}

	if r.sessions != nil {
		if c, err := req.Cookie(r.cfg.AdminCookie); err == nil && c.Value != "" {
			session, err := r.sessions.Validate(req.Context(), c.Value)
			if err == nil {
				return types.Identity{Kind: types.IdentityAdmin, ID: session.AdminID}, nil
			}
			if !apperr.Is(err, apperr.KindUnauthorized) {
				return types.Identity{}, err
			}
		}
	}

	return types.Identity{}, apperr.Unauthorized("Unauthorized")
}

func bearerToken(req *http.Request) string {
	h := req.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id types.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom returns the identity stored in ctx
func IdentityFrom(ctx context.Context) (types.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(types.Identity)
	return id, ok
}

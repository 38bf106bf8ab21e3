package meeting

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/interval"
	"github.com/primeslot/primeslot/pkg/log"
	"github.com/primeslot/primeslot/pkg/storage"
)

// Config holds meeting policy switches
type Config struct {
	// RequireExistingMembership rejects requests where either member is
	// not linked to the event instead of linking them on the fly.
	RequireExistingMembership bool
	// RejectOverlaps refuses meetings that overlap an open meeting of
	// either participant.
	RejectOverlaps     bool
	DefaultDurationMin int
}

// DefaultConfig returns the policy used when none is configured
func DefaultConfig() Config {
	return Config{
		RejectOverlaps:     true,
		DefaultDurationMin: interval.DefaultDurationMin,
	}
}

// Service runs the meeting lifecycle
type Service struct {
	store     storage.Store
	publisher events.Publisher
	config    Config
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService creates a meeting service. publisher may be nil.
func NewService(store storage.Store, publisher events.Publisher, cfg Config) *Service {
	if cfg.DefaultDurationMin <= 0 {
		cfg.DefaultDurationMin = DefaultConfig().DefaultDurationMin
	}
	return &Service{
		store:     store,
		publisher: publisher,
		config:    cfg,
		now:       time.Now,
		logger:    log.WithComponent("meeting"),
	}
}

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}

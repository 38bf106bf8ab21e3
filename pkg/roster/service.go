package roster

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/primeslot/primeslot/pkg/events"
	"github.com/primeslot/primeslot/pkg/log"
	"github.com/primeslot/primeslot/pkg/storage"
)

// Service manages members, their event links, and bulk imports
type Service struct {
	store     storage.Store
	publisher events.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService creates a roster service. publisher may be nil.
func NewService(store storage.Store, publisher events.Publisher) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		logger:    log.WithComponent("roster"),
	}
}

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}

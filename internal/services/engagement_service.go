package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/steadyapp/steady/internal/core"
	"github.com/steadyapp/steady/internal/models"
)

// EngagementService writes usage events to the store. Fire-and-forget: the
// insert runs on its own goroutine and deadline, and any failure is logged
// and swallowed so it can never affect the triggering request.
type EngagementService struct {
	db core.DbClient
}

func NewEngagementService(db core.DbClient) *EngagementService {
	return &EngagementService{db: db}
}

func (s *EngagementService) Track(ev models.EngagementEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("engagement track panic: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.db.InsertEngagementEvent(ctx, &ev); err != nil {
			log.Printf("engagement track failed for user %s: %v", ev.UserID, err)
		}
	}()
}

var _ core.EngagementSink = (*EngagementService)(nil)

package ingestion

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/aevon-lab/fsevents/internal/aggregation"
	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
)

// EventManager is the part of the manager exposed over HTTP.
type EventManager interface {
	Emit(ctx context.Context, ev v1.Event) (v1.Event, error)
	Subscribe(ctx context.Context, sub v1.Subscription) error
	Unsubscribe(ctx context.Context, id int64) error
	Subscriptions(ctx context.Context) ([]aggregation.SubscriptionState, error)
}

type Service struct {
	manager          EventManager
	maxBodySizeBytes int
}

func NewService(manager EventManager, maxBodySizeMB int) *Service {
	if manager == nil {
		panic("ingestion: manager must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		manager:          manager,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events", s.EmitHandler)

	r.GET("/v1/subscriptions", s.ListSubscriptionsHandler)
	r.POST("/v1/subscriptions", s.SubscribeHandler)
	r.DELETE("/v1/subscriptions/:id", s.CancelHandler)
}

package scheduler

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_pruner.go -package=mocks github.com/mattjoyce/oneguard-gw/internal/scheduler Pruner

// Pruner removes stored deliveries older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

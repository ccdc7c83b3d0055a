package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// TaskIdempotencySweep drops idempotency reservations past retention. Old
// keys only exist to fail replays fast; after retention the document number
// uniqueness constraint covers them.
const TaskIdempotencySweep = "idempotency:sweep"

// NewIdempotencySweepTask builds the scheduled sweep task.
func NewIdempotencySweepTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencySweep, nil, asynq.Queue(QueueDefault))
}

// IdempotencySweeper handles TaskIdempotencySweep.
type IdempotencySweeper struct {
	store     *shared.IdempotencyStore
	retention time.Duration
	logger    *slog.Logger
}

func NewIdempotencySweeper(store *shared.IdempotencyStore, retention time.Duration, logger *slog.Logger) *IdempotencySweeper {
	return &IdempotencySweeper{store: store, retention: retention, logger: logger}
}

func (s *IdempotencySweeper) Handle(ctx context.Context, t *asynq.Task) error {
	dropped, err := s.store.Sweep(ctx, s.retention)
	if err != nil {
		return err
	}
	s.logger.Info("idempotency sweep complete", "dropped", dropped, "retention", s.retention.String())
	return nil
}

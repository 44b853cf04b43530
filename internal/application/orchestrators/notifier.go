package orchestrators

import (
	"context"
	"log/slog"
	"time"
)

// detachedTimeout bounds background notification tasks. They run on their
// own context so cancelling the triggering request never cancels them.
const detachedTimeout = 30 * time.Second

// runDetached executes task in a background goroutine with its own timeout
// and logs the outcome. Failures are contained: the caller has already
// committed its state change and must not be affected.
func runDetached(name string, task func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), detachedTimeout)
		defer cancel()

		if err := task(ctx); err != nil {
			slog.Error("detached_task_failed", "task", name, "error", err)
			return
		}
		slog.Info("detached_task_done", "task", name)
	}()
}

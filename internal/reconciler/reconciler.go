// reconciler периодически пересчитывает счётчики подписок профилей по рёбрам
// и исправляет расхождения (например, после сбоя между вставкой ребра и $inc в mongo).
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-shortvideo-feed/internal/models"
	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

// Repairer — источник пересчёта (реализуется service.Service).
type Repairer interface {
	ReconcileFollowCounters(ctx context.Context) ([]models.CounterRepair, error)
}

// RepairCounter — приёмник метрики исправлений (реализуется metrics.Metrics).
type RepairCounter interface {
	CounterRepairs(n int)
}

// Reconciler — фоновый пересчёт счётчиков подписок.
type Reconciler struct {
	repairer Repairer
	interval time.Duration
	counter  RepairCounter // может быть nil
}

// New создаёт реконсилер; interval <= 0 — Run возвращает ошибку.
func New(repairer Repairer, interval time.Duration, counter RepairCounter) *Reconciler {
	return &Reconciler{repairer: repairer, interval: interval, counter: counter}
}

// Run выполняет проход сразу и затем раз в interval до отмены ctx.
// Ошибка прохода логируется и не останавливает цикл.
func (r *Reconciler) Run(ctx context.Context) error {
	const op = "reconciler/Run"

	if r.interval <= 0 {
		return fmt.Errorf("%s: interval must be > 0", op)
	}

	lg := log.From(ctx)
	lg.Info("reconcile_start",
		slog.String("op", op),
		slog.Duration("interval", r.interval),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			lg.Info("reconcile_stop", slog.String("op", op))
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reconciler) tick(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
		log.From(ctx).Warn("reconcile_tick_error",
			slog.String("op", "reconciler/tick"),
			slog.String("err", err.Error()),
		)
	}
}

// RunOnce — один проход: пересчёт, лог каждого исправленного профиля, метрика.
func (r *Reconciler) RunOnce(ctx context.Context) ([]models.CounterRepair, error) {
	const op = "reconciler/RunOnce"

	lg := log.From(ctx)

	repairs, err := r.repairer.ReconcileFollowCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, rp := range repairs {
		lg.Warn("follow_counters_repaired",
			slog.String("op", op),
			slog.String("user_id", rp.UserID),
			slog.Int64("followers_before", rp.FollowersBefore),
			slog.Int64("followers_after", rp.FollowersAfter),
			slog.Int64("following_before", rp.FollowingBefore),
			slog.Int64("following_after", rp.FollowingAfter),
		)
	}

	if r.counter != nil {
		r.counter.CounterRepairs(len(repairs))
	}

	return repairs, nil
}

package internal

import (
	"context"
	"errors"
	"time"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/supervisor"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
)

// Sweeper restores stored sessions.
type Sweeper interface {
	Reconnect(ctx context.Context) ([]supervisor.SweepResult, error)
}

func summarize(results []supervisor.SweepResult) map[string]int {
	counts := make(map[string]int)
	for _, res := range results {
		counts[res.Status]++
	}
	return counts
}

// Startup reconnects every session held in the store. It blocks until the
// sweep has dialed every number or ctx is done.
func Startup(ctx context.Context, sweeper Sweeper) {
	log.Print(nil).Info("Running Startup Tasks")
	restore(ctx, sweeper)
}

func restore(ctx context.Context, sweeper Sweeper) {
	started := time.Now()
	results, err := sweeper.Reconnect(ctx)
	if errors.Is(err, supervisor.ErrNothingToReconnect) {
		log.Print(nil).Info("No stored sessions to restore")
		return
	}
	if err != nil {
		log.SysErr("startup.reconnect", err)
		return
	}

	counts := summarize(results)
	log.Print(nil).
		WithField("total", len(results)).
		WithField("initiated", counts[supervisor.SweepInitiated]).
		WithField("already_connected", counts[supervisor.SweepAlreadyConnected]).
		WithField("failed", counts[supervisor.SweepFailed]).
		WithField("elapsed", time.Since(started).Round(time.Millisecond).String()).
		Info("Reconnect pass complete")
}

package supervisor

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
)

const (
	SweepAlreadyConnected = "already_connected"
	SweepInitiated        = "connection_initiated"
	SweepInProgress       = "in_progress"
	SweepFailed           = "failed"
)

// SweepResult is the outcome of one number in a sweep.
type SweepResult struct {
	Number string `json:"number"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type limiter interface {
	Wait(ctx context.Context) error
}

func newLimiter(every time.Duration) limiter {
	if every <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(every), 1)
}

// Sweep connects every number that has no open connection. Sweeps run one
// at a time and connect attempts are spaced by the sweep delay.
func (s *Supervisor) Sweep(ctx context.Context, numbers []string) []SweepResult {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	results := make([]SweepResult, 0, len(numbers))
	for _, number := range numbers {
		res := SweepResult{Number: number}

		if _, ok := s.opts.Registry.Get(number); ok {
			res.Status = SweepAlreadyConnected
			results = append(results, res)
			continue
		}

		if err := s.sweep.Wait(ctx); err != nil {
			res.Status = SweepFailed
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		_, err := s.Connect(ctx, number)
		switch {
		case err == nil:
			res.Status = SweepInitiated
		case errors.Is(err, ErrAlreadyConnected):
			res.Status = SweepAlreadyConnected
		case errors.Is(err, ErrConnectInProgress):
			res.Status = SweepInProgress
		default:
			res.Status = SweepFailed
			res.Error = err.Error()
			log.Session(number, "supervisor.sweep").WithError(err).Warn("Sweep connect failed")
		}
		results = append(results, res)
	}
	return results
}

// Reconnect sweeps every stored session that holds credentials.
func (s *Supervisor) Reconnect(ctx context.Context) ([]SweepResult, error) {
	records, err := s.opts.Store.List(ctx)
	if err != nil {
		return nil, err
	}

	numbers := make([]string, 0, len(records))
	for _, rec := range records {
		if len(rec.Credentials) > 0 {
			numbers = append(numbers, rec.Number)
		}
	}
	if len(numbers) == 0 {
		return nil, ErrNothingToReconnect
	}
	return s.Sweep(ctx, numbers), nil
}

// ConnectKnown sweeps the known numbers list.
func (s *Supervisor) ConnectKnown(ctx context.Context) ([]SweepResult, error) {
	numbers, err := s.opts.Numbers.Load()
	if err != nil {
		return nil, err
	}
	if len(numbers) == 0 {
		return nil, ErrNothingToReconnect
	}
	return s.Sweep(ctx, numbers), nil
}

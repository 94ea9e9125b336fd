package whatsapp

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"golang.org/x/sync/singleflight"
)

type VersionStatus struct {
	CurrentVersion store.WAVersionContainer `json:"current_version"`
	LastRefreshed  *time.Time               `json:"last_refreshed,omitempty"`
	LastError      string                   `json:"last_error,omitempty"`
}

// VersionRefresher keeps the advertised WhatsApp Web version current.
type VersionRefresher struct {
	minInterval time.Duration

	fetch   func(ctx context.Context) (*store.WAVersionContainer, error)
	apply   func(store.WAVersionContainer)
	current func() store.WAVersionContainer
	now     func() time.Time

	group singleflight.Group

	mu            sync.RWMutex
	lastRefreshed *time.Time
	lastErr       string
}

// NewVersionRefresher throttles non-forced refreshes to one per minInterval.
func NewVersionRefresher(minInterval time.Duration) *VersionRefresher {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	return &VersionRefresher{
		minInterval: minInterval,
		fetch: func(ctx context.Context) (*store.WAVersionContainer, error) {
			return whatsmeow.GetLatestVersion(ctx, httpClient)
		},
		apply:   store.SetWAVersion,
		current: store.GetWAVersion,
		now:     time.Now,
	}
}

func (r *VersionRefresher) Status() VersionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last *time.Time
	if r.lastRefreshed != nil {
		t := *r.lastRefreshed
		last = &t
	}
	return VersionStatus{
		CurrentVersion: r.current(),
		LastRefreshed:  last,
		LastError:      r.lastErr,
	}
}

func (r *VersionRefresher) record(err error) {
	r.mu.Lock()
	now := r.now()
	r.lastRefreshed = &now
	r.lastErr = ""
	if err != nil {
		r.lastErr = err.Error()
	}
	r.mu.Unlock()
}

// Refresh fetches and applies the latest version. The bool reports whether a
// fetch was attempted.
func (r *VersionRefresher) Refresh(ctx context.Context, force bool) (VersionStatus, bool, error) {
	if !force && r.minInterval > 0 {
		r.mu.RLock()
		last := r.lastRefreshed
		r.mu.RUnlock()
		if last != nil && r.now().Sub(*last) < r.minInterval {
			return r.Status(), false, nil
		}
	}

	_, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		latest, err := r.fetch(ctx)
		if err == nil && latest == nil {
			err = errors.New("latest WhatsApp Web version is nil")
		}
		if err != nil {
			r.record(err)
			return nil, err
		}
		r.apply(*latest)
		r.record(nil)
		return nil, nil
	})
	return r.Status(), true, err
}

package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/config"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/whatsapp"
)

// Jobs are the collaborators of the periodic tasks.
type Jobs struct {
	Sweeper  Sweeper
	Sessions interface{ Active() []string }
	OTP      interface{ Sweep() int }
	Store    interface {
		Ping(ctx context.Context) error
	}
	Versions interface {
		Refresh(ctx context.Context, force bool) (whatsapp.VersionStatus, bool, error)
	}
}

func addJob(c *cron.Cron, name string, spec string, job func()) {
	if spec == "" {
		log.Print(nil).WithField("job", name).Info("Cron job disabled")
		return
	}
	if _, err := c.AddFunc(spec, job); err != nil {
		log.Print(nil).WithField("job", name).WithField("spec", spec).WithError(err).Error("Failed to add cron job")
		return
	}
	log.Print(nil).WithField("job", name).WithField("spec", spec).Info("Cron job enabled")
}

func Routines(c *cron.Cron, cfg *config.Config, jobs Jobs) {
	log.Print(nil).Info("Running Routine Tasks")

	addJob(c, "session-sweep", cfg.Supervisor.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		restore(ctx, jobs.Sweeper)
	})

	addJob(c, "otp-sweep", "0 * * * * *", func() {
		if removed := jobs.OTP.Sweep(); removed > 0 {
			log.Print(nil).WithField("removed", removed).Debug("Expired OTP entries removed")
		}
	})

	addJob(c, "health-check", cfg.HealthCheckSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		entry := log.Print(nil).WithField("active_sessions", len(jobs.Sessions.Active()))
		if err := jobs.Store.Ping(ctx); err != nil {
			entry.WithError(err).Error("Datastore unreachable")
			return
		}
		entry.Debug("Health check passed")
	})

	addJob(c, "wa-version-refresh", cfg.VersionRefreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		status, refreshed, err := jobs.Versions.Refresh(ctx, false)
		v := status.CurrentVersion
		version := fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
		if err != nil {
			log.Print(nil).WithField("version", version).WithError(err).Error("WA Web version refresh failed")
			return
		}
		log.Print(nil).WithField("version", version).WithField("refreshed", refreshed).Info("WA Web version refresh completed")
	})

	c.Start()
}

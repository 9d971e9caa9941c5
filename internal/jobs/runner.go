// Package jobs schedules the recurring booking, check-in and auth sweep cadences.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/deskpilot/deskpilot/internal/booking"
	"github.com/deskpilot/deskpilot/internal/checkin"
	"github.com/deskpilot/deskpilot/internal/roster"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Cadence names, also used as lock keys.
const (
	CadenceBookAndCheckIn = "book-and-check-in"
	CadenceAuthSweep      = "auth-sweep"
)

const defaultLockTTL = 30 * time.Minute

// Roster lists the users a cadence iterates over.
type Roster interface {
	GetAll() []roster.User
}

// Booker books the furthest day of the horizon for one user.
type Booker interface {
	BookInAdvance(ctx context.Context, user roster.User) booking.Outcome
}

// CheckIner checks one user in to today's reservations.
type CheckIner interface {
	Run(ctx context.Context, user roster.User) checkin.Summary
}

// Sweeper re-validates one user's cached credential.
type Sweeper interface {
	Sweep(ctx context.Context, user roster.User) bool
}

// Options configures a Runner.
type Options struct {
	BookAndCheckIn string
	AuthCheck      string
	Location       *time.Location
	Locker         Locker
	LockTTL        time.Duration
}

// Runner owns the cron scheduler and the per-cadence fan-out.
type Runner struct {
	roster  Roster
	booker  Booker
	checkIn CheckIner
	sweeper Sweeper
	locker  Locker
	lockTTL time.Duration
	cron    *cron.Cron
}

// NewRunner validates the cron expressions and registers both cadences. Call Start to begin firing.
func NewRunner(r Roster, booker Booker, checkIn CheckIner, sweeper Sweeper, opts Options) (*Runner, error) {
	if r == nil || booker == nil || checkIn == nil || sweeper == nil {
		return nil, errors.New("jobs: roster, booker, check-in engine and sweeper are required")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	locker := opts.Locker
	if locker == nil {
		locker = NoopLocker{}
	}
	lockTTL := opts.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	runner := &Runner{
		roster:  r,
		booker:  booker,
		checkIn: checkIn,
		sweeper: sweeper,
		locker:  locker,
		lockTTL: lockTTL,
		cron:    cron.New(cron.WithLocation(loc)),
	}
	if _, errAdd := runner.cron.AddFunc(opts.BookAndCheckIn, func() { runner.fire(CadenceBookAndCheckIn, runner.RunBookAndCheckIn) }); errAdd != nil {
		return nil, fmt.Errorf("jobs: invalid book-and-check-in schedule %q: %w", opts.BookAndCheckIn, errAdd)
	}
	if _, errAdd := runner.cron.AddFunc(opts.AuthCheck, func() { runner.fire(CadenceAuthSweep, runner.RunAuthSweep) }); errAdd != nil {
		return nil, fmt.Errorf("jobs: invalid auth check schedule %q: %w", opts.AuthCheck, errAdd)
	}
	log.Infof("Started Auto-Book-And-CheckIn job: `%s`", opts.BookAndCheckIn)
	log.Infof("Started Auto-CheckUserAuth job: `%s`", opts.AuthCheck)
	return runner, nil
}

// Start begins firing cadences in the background.
func (r *Runner) Start() {
	if r == nil {
		return
	}
	r.cron.Start()
}

// Stop halts the scheduler and waits for running cadences or ctx, whichever comes first.
func (r *Runner) Stop(ctx context.Context) {
	if r == nil {
		return
	}
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn("jobs: shutdown deadline reached with cadences still running")
	}
}

func (r *Runner) fire(name string, run func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), r.lockTTL)
	defer cancel()

	release, acquired, errLock := r.locker.Acquire(ctx, name, r.lockTTL)
	if errLock != nil {
		log.WithError(errLock).Warnf("jobs: lock for %s unavailable, running anyway", name)
	} else if !acquired {
		log.Infof("jobs: %s already running on another instance", name)
		return
	}
	if release != nil {
		defer release()
	}
	run(ctx)
}

// RunBookAndCheckIn books every user, waits for all bookings, then checks every user in.
func (r *Runner) RunBookAndCheckIn(ctx context.Context) {
	users := r.roster.GetAll()

	log.Info("Auto-Booking: Running job...")
	r.eachUser(users, "Auto-Booking", func(u roster.User) {
		r.booker.BookInAdvance(ctx, u)
	})
	log.Info("Auto-Booking: Completed job")

	log.Info("Auto-CheckIn: Running job...")
	r.eachUser(users, "Auto-CheckIn", func(u roster.User) {
		r.checkIn.Run(ctx, u)
	})
	log.Info("Auto-CheckIn: Completed job")
}

// RunAuthSweep re-validates every cached credential.
func (r *Runner) RunAuthSweep(ctx context.Context) {
	log.Info("Auto-CheckUserAuth: Running job...")
	r.eachUser(r.roster.GetAll(), "Auto-CheckUserAuth", func(u roster.User) {
		r.sweeper.Sweep(ctx, u)
	})
	log.Info("Auto-CheckUserAuth: Completed job")
}

// eachUser runs task for every user concurrently and returns once all have finished.
func (r *Runner) eachUser(users []roster.User, label string, task func(roster.User)) {
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u roster.User) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					log.WithField("user", u.UserName).Errorf("%s: task panicked: %v\n%s", label, rec, debug.Stack())
				}
			}()
			task(u)
		}(u)
	}
	wg.Wait()
}

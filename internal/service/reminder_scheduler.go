package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arvetta/crm-api/internal/models"
)

type snapshotProvider interface {
	Snapshot() []models.Appointment
	Subscribe(fn func())
}

type reminderDispatcher interface {
	Dispatch(appointment models.Appointment, phase models.ReminderPhase)
}

type timerKey struct {
	appointmentID string
	phase         models.ReminderPhase
}

type pendingTimer struct {
	gen       uint64
	triggerAt time.Time
	timer     *time.Timer
}

// ReminderScheduler keeps exactly the set of pending reminder timers implied
// by the store's current snapshot. Reconciliation cancels every pending timer
// and rebuilds the set from scratch; recomputing is cheap at this cache size
// and avoids diffing stale timer state.
type ReminderScheduler struct {
	store             snapshotProvider
	dispatcher        reminderDispatcher
	graceWindow       time.Duration
	reconcileInterval time.Duration
	logger            *zap.Logger
	metrics           *MetricsService
	now               func() time.Time

	mu     sync.Mutex
	timers map[timerKey]pendingTimer
	gen    uint64

	lifecycle  sync.Mutex
	cancel     context.CancelFunc
	started    bool
	subscribed bool
}

// NewReminderScheduler constructs the scheduler. graceWindow bounds how far
// in the past a computed trigger may lie and still fire immediately instead
// of being dropped.
func NewReminderScheduler(store snapshotProvider, dispatcher reminderDispatcher, graceWindow, reconcileInterval time.Duration, metrics *MetricsService, logger *zap.Logger) *ReminderScheduler {
	if graceWindow <= 0 {
		graceWindow = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderScheduler{
		store:             store,
		dispatcher:        dispatcher,
		graceWindow:       graceWindow,
		reconcileInterval: reconcileInterval,
		logger:            logger,
		metrics:           metrics,
		now:               time.Now,
		timers:            make(map[timerKey]pendingTimer),
	}
}

// Start subscribes to store changes, runs an initial reconciliation and keeps
// reconciling on a fixed interval until Stop is called.
func (s *ReminderScheduler) Start(ctx context.Context) {
	s.lifecycle.Lock()
	if s.started {
		s.lifecycle.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true
	subscribe := !s.subscribed
	s.subscribed = true
	s.lifecycle.Unlock()

	// Subscribe once per scheduler; the store offers no unsubscribe, so a
	// restart must not stack a second callback.
	if subscribe {
		s.store.Subscribe(func() {
			if s.running() {
				s.Reconcile()
			}
		})
	}
	s.Reconcile()

	if s.reconcileInterval > 0 {
		ticker := time.NewTicker(s.reconcileInterval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return
				case <-ticker.C:
					s.Reconcile()
				}
			}
		}()
	}

	s.logger.Sugar().Infow("reminder scheduler started",
		"grace_window", s.graceWindow, "reconcile_interval", s.reconcileInterval)
}

// Stop cancels the reconcile loop and every pending timer. No dispatch can
// happen after Stop returns.
func (s *ReminderScheduler) Stop() {
	s.lifecycle.Lock()
	if !s.started {
		s.lifecycle.Unlock()
		return
	}
	s.cancel()
	s.started = false
	s.lifecycle.Unlock()

	s.mu.Lock()
	for key, pending := range s.timers {
		pending.timer.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()

	s.logger.Sugar().Infow("reminder scheduler stopped")
}

// Reconcile rebuilds the pending timer set from the current snapshot:
// cancel everything, then arm one timer per due (appointment, phase) pair.
// Triggers that just slipped into the past within the grace window fire
// immediately; older ones are skipped.
func (s *ReminderScheduler) Reconcile() {
	snapshot := s.store.Snapshot()
	now := s.now()

	type immediateFire struct {
		appointment models.Appointment
		phase       models.ReminderPhase
	}
	var immediate []immediateFire

	s.mu.Lock()
	for key, pending := range s.timers {
		pending.timer.Stop()
		delete(s.timers, key)
	}

	for _, appointment := range snapshot {
		if !appointment.StartDate.After(now) {
			continue
		}
		if appointment.ReminderMinutes > 0 {
			beforeAt := appointment.StartDate.Add(-time.Duration(appointment.ReminderMinutes) * time.Minute)
			switch {
			case beforeAt.After(now):
				s.armLocked(appointment, models.ReminderPhaseBefore, beforeAt, now)
			case now.Sub(beforeAt) <= s.graceWindow:
				immediate = append(immediate, immediateFire{appointment, models.ReminderPhaseBefore})
			}
		}
		s.armLocked(appointment, models.ReminderPhaseStart, appointment.StartDate, now)
	}
	pending := len(s.timers)
	s.mu.Unlock()

	s.metrics.RecordReconciliation(pending)
	s.logger.Sugar().Debugw("reconciled reminder timers", "pending", pending, "immediate", len(immediate))

	// Reconcile runs on the store mutation path; a slow channel must not
	// stall the caller, so just-missed triggers dispatch off-thread like
	// the timer path does.
	for _, fire := range immediate {
		go s.dispatcher.Dispatch(fire.appointment, fire.phase)
	}
}

func (s *ReminderScheduler) running() bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.started
}

// PendingCount reports the number of armed timers.
func (s *ReminderScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *ReminderScheduler) armLocked(appointment models.Appointment, phase models.ReminderPhase, triggerAt, now time.Time) {
	key := timerKey{appointmentID: appointment.ID, phase: phase}
	appointmentCopy := appointment
	s.gen++
	gen := s.gen
	timer := time.AfterFunc(triggerAt.Sub(now), func() {
		s.fire(key, gen, appointmentCopy)
	})
	s.timers[key] = pendingTimer{gen: gen, triggerAt: triggerAt, timer: timer}
}

// fire runs on the timer goroutine. Timer.Stop cannot unqueue a callback
// that has already started, and reconciliation may have re-armed the same
// key for a rescheduled appointment by the time that callback gets the
// lock. The generation check pins the callback to the exact timer it was
// armed with, so a stale callback neither dispatches nor evicts the new
// timer.
func (s *ReminderScheduler) fire(key timerKey, gen uint64, appointment models.Appointment) {
	s.mu.Lock()
	pending, ok := s.timers[key]
	if ok && pending.gen == gen {
		delete(s.timers, key)
	} else {
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.dispatcher.Dispatch(appointment, key.phase)
}

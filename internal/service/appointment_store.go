package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arvetta/crm-api/internal/models"
	appErrors "github.com/arvetta/crm-api/pkg/errors"
)

type appointmentRepository interface {
	List(ctx context.Context) ([]models.Appointment, error)
	Insert(ctx context.Context, appointment *models.Appointment) error
	Update(ctx context.Context, id string, patch models.AppointmentPatch) (*models.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// AppointmentStore holds the authoritative in-memory cache of appointments
// and mediates every mutation through the repository. The cache is replaced
// as a whole on refresh; readers never observe a partially updated list.
type AppointmentStore struct {
	repo      appointmentRepository
	validator *validator.Validate
	logger    *zap.Logger

	mu           sync.RWMutex
	appointments []models.Appointment
	lastErr      string

	subMu       sync.Mutex
	subscribers []func()
}

// NewAppointmentStore constructs the store.
func NewAppointmentStore(repo appointmentRepository, validate *validator.Validate, logger *zap.Logger) *AppointmentStore {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &AppointmentStore{repo: repo, validator: validate, logger: logger}
	store.validator.RegisterValidation("appointment_type", func(fl validator.FieldLevel) bool {
		switch models.AppointmentType(fl.Field().String()) {
		case models.AppointmentTypeAppointment, models.AppointmentTypeCall, models.AppointmentTypeReminder:
			return true
		default:
			return false
		}
	})
	store.validator.RegisterValidation("appointment_status", func(fl validator.FieldLevel) bool {
		switch models.AppointmentStatus(fl.Field().String()) {
		case models.AppointmentStatusScheduled, models.AppointmentStatusCompleted,
			models.AppointmentStatusCancelled, models.AppointmentStatusRescheduled:
			return true
		default:
			return false
		}
	})
	return store
}

// CreateAppointmentRequest describes the insert payload.
type CreateAppointmentRequest struct {
	Title           string    `json:"title" validate:"required"`
	Description     *string   `json:"description"`
	Notes           *string   `json:"notes"`
	Location        *string   `json:"location"`
	CustomerID      *string   `json:"customer_id"`
	CustomerName    *string   `json:"customer_name"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date"`
	Type            string    `json:"type" validate:"required,appointment_type"`
	Status          string    `json:"status" validate:"omitempty,appointment_status"`
	ReminderMinutes int       `json:"reminder_minutes" validate:"gte=0"`
	CreatedBy       *string   `json:"created_by"`
}

// UpdateAppointmentRequest describes a partial update; nil fields stay untouched.
type UpdateAppointmentRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Notes           *string    `json:"notes"`
	Location        *string    `json:"location"`
	CustomerID      *string    `json:"customer_id"`
	CustomerName    *string    `json:"customer_name"`
	StartDate       *time.Time `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
	Type            *string    `json:"type" validate:"omitempty,appointment_type"`
	Status          *string    `json:"status" validate:"omitempty,appointment_status"`
	ReminderMinutes *int       `json:"reminder_minutes" validate:"omitempty,gte=0"`
}

// FetchAll pulls the full list from the repository and swaps the cache
// atomically. On failure the previous cache is left untouched and the
// error is captured in the store error state.
func (s *AppointmentStore) FetchAll(ctx context.Context) error {
	appointments, err := s.repo.List(ctx)
	if err != nil {
		s.setErr("failed to load appointments")
		s.logger.Sugar().Warnw("appointment fetch failed", "error", err)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointments")
	}
	sortByStartDate(appointments)

	s.mu.Lock()
	s.appointments = appointments
	s.lastErr = ""
	s.mu.Unlock()

	s.notifySubscribers()
	return nil
}

// Add validates and inserts a new appointment, appending the stored row to
// the cache on confirmed success.
func (s *AppointmentStore) Add(ctx context.Context, req CreateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	endDate := req.EndDate
	if endDate.IsZero() {
		endDate = req.StartDate
	}
	if endDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be on or after start_date")
	}
	status := models.AppointmentStatus(req.Status)
	if req.Status == "" {
		status = models.AppointmentStatusScheduled
	}

	appointment := &models.Appointment{
		Title:           req.Title,
		Description:     req.Description,
		Notes:           req.Notes,
		Location:        req.Location,
		CustomerID:      normalizeCustomerRef(req.CustomerID),
		CustomerName:    req.CustomerName,
		StartDate:       req.StartDate,
		EndDate:         endDate,
		Type:            models.AppointmentType(req.Type),
		Status:          status,
		ReminderMinutes: req.ReminderMinutes,
		CreatedBy:       req.CreatedBy,
	}
	if err := s.repo.Insert(ctx, appointment); err != nil {
		s.setErr("failed to create appointment")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}

	s.mu.Lock()
	s.appointments = append(s.appointments, *appointment)
	sortByStartDate(s.appointments)
	s.lastErr = ""
	s.mu.Unlock()

	s.notifySubscribers()
	return appointment, nil
}

// Update sends only the changed fields to the repository and replaces the
// cached row once the repository confirms. No optimistic client-side apply.
func (s *AppointmentStore) Update(ctx context.Context, id string, req UpdateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	patch := models.AppointmentPatch{
		Title:           req.Title,
		Description:     req.Description,
		Notes:           req.Notes,
		Location:        req.Location,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		ReminderMinutes: req.ReminderMinutes,
	}
	if req.CustomerID != nil {
		patch.CustomerID = normalizeCustomerRef(req.CustomerID)
		if patch.CustomerID == nil {
			empty := ""
			patch.CustomerID = &empty
		}
	}
	if req.Type != nil {
		t := models.AppointmentType(*req.Type)
		patch.Type = &t
	}
	if req.Status != nil {
		st := models.AppointmentStatus(*req.Status)
		patch.Status = &st
	}
	if patch.IsEmpty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		s.setErr("failed to update appointment")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment")
	}

	s.mu.Lock()
	for i := range s.appointments {
		if s.appointments[i].ID == id {
			s.appointments[i] = *updated
			break
		}
	}
	sortByStartDate(s.appointments)
	s.lastErr = ""
	s.mu.Unlock()

	s.notifySubscribers()
	return updated, nil
}

// Delete removes the appointment remotely, then from the cache.
func (s *AppointmentStore) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.setErr("failed to delete appointment")
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete appointment")
	}

	s.mu.Lock()
	filtered := s.appointments[:0]
	for _, appointment := range s.appointments {
		if appointment.ID != id {
			filtered = append(filtered, appointment)
		}
	}
	s.appointments = filtered
	s.lastErr = ""
	s.mu.Unlock()

	s.notifySubscribers()
	return nil
}

// GetByDate returns cached appointments starting within the given calendar
// day, ascending by start date.
func (s *AppointmentStore) GetByDate(date time.Time) []models.Appointment {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Appointment, 0)
	for _, appointment := range s.appointments {
		if !appointment.StartDate.Before(dayStart) && !appointment.StartDate.After(dayEnd) {
			result = append(result, appointment)
		}
	}
	return result
}

// Snapshot returns a copy of the current cache.
func (s *AppointmentStore) Snapshot() []models.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]models.Appointment, len(s.appointments))
	copy(snapshot, s.appointments)
	return snapshot
}

// Err returns the last repository error state, empty when healthy.
func (s *AppointmentStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Subscribe registers a listener invoked after every successful cache write.
func (s *AppointmentStore) Subscribe(fn func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// StartResync refreshes the cache on a fixed interval until ctx is cancelled.
// A failed refresh keeps the previous cache; subscribers are only notified
// after successful swaps.
func (s *AppointmentStore) StartResync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.FetchAll(ctx); err != nil {
					s.logger.Sugar().Warnw("appointment resync failed, keeping previous snapshot", "error", err)
				}
			}
		}
	}()
}

func (s *AppointmentStore) setErr(message string) {
	s.mu.Lock()
	s.lastErr = message
	s.mu.Unlock()
}

func (s *AppointmentStore) notifySubscribers() {
	s.subMu.Lock()
	subscribers := make([]func(), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.subMu.Unlock()
	for _, fn := range subscribers {
		fn()
	}
}

// normalizeCustomerRef drops malformed customer references instead of
// rejecting the whole mutation over a non-critical field.
func normalizeCustomerRef(ref *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	if _, err := uuid.Parse(*ref); err != nil {
		return nil
	}
	return ref
}

func sortByStartDate(appointments []models.Appointment) {
	sort.SliceStable(appointments, func(i, j int) bool {
		return appointments[i].StartDate.Before(appointments[j].StartDate)
	})
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvetta/crm-api/internal/models"
	appErrors "github.com/arvetta/crm-api/pkg/errors"
)

type stubAppointmentRepo struct {
	listResult   []models.Appointment
	listErr      error
	insertErr    error
	updateResult *models.Appointment
	updateErr    error
	deleteErr    error

	lastInserted *models.Appointment
	lastPatch    models.AppointmentPatch
}

func (r *stubAppointmentRepo) List(ctx context.Context) ([]models.Appointment, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.listResult, nil
}

func (r *stubAppointmentRepo) Insert(ctx context.Context, appointment *models.Appointment) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	appointment.ID = "server-assigned"
	appointment.CreatedAt = time.Now().UTC()
	appointment.UpdatedAt = appointment.CreatedAt
	r.lastInserted = appointment
	return nil
}

func (r *stubAppointmentRepo) Update(ctx context.Context, id string, patch models.AppointmentPatch) (*models.Appointment, error) {
	r.lastPatch = patch
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	return r.updateResult, nil
}

func (r *stubAppointmentRepo) Delete(ctx context.Context, id string) error {
	return r.deleteErr
}

func futureAppointment(id string, start time.Time) models.Appointment {
	return models.Appointment{
		ID:        id,
		Title:     "Appointment " + id,
		StartDate: start,
		EndDate:   start.Add(30 * time.Minute),
		Type:      models.AppointmentTypeAppointment,
		Status:    models.AppointmentStatusScheduled,
	}
}

func TestAppointmentStoreFetchAllSwapsCache(t *testing.T) {
	now := time.Now()
	repo := &stubAppointmentRepo{listResult: []models.Appointment{
		futureAppointment("appt-2", now.Add(2*time.Hour)),
		futureAppointment("appt-1", now.Add(time.Hour)),
	}}
	store := NewAppointmentStore(repo, nil, nil)

	require.NoError(t, store.FetchAll(context.Background()))

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "appt-1", snapshot[0].ID)
	assert.Equal(t, "appt-2", snapshot[1].ID)
	assert.Empty(t, store.Err())
}

func TestAppointmentStoreFetchFailureKeepsPreviousCache(t *testing.T) {
	now := time.Now()
	repo := &stubAppointmentRepo{listResult: []models.Appointment{futureAppointment("appt-1", now)}}
	store := NewAppointmentStore(repo, nil, nil)
	require.NoError(t, store.FetchAll(context.Background()))

	repo.listErr = errors.New("connection refused")
	require.Error(t, store.FetchAll(context.Background()))

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "appt-1", snapshot[0].ID)
	assert.NotEmpty(t, store.Err())
}

func TestAppointmentStoreAddAppendsServerRow(t *testing.T) {
	repo := &stubAppointmentRepo{}
	store := NewAppointmentStore(repo, nil, nil)

	created, err := store.Add(context.Background(), CreateAppointmentRequest{
		Title:           "Consultation",
		StartDate:       time.Now().Add(time.Hour),
		Type:            "appointment",
		ReminderMinutes: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, "server-assigned", created.ID)
	assert.Equal(t, models.AppointmentStatusScheduled, created.Status)
	assert.Equal(t, created.StartDate, created.EndDate)

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "server-assigned", snapshot[0].ID)
}

func TestAppointmentStoreAddValidation(t *testing.T) {
	store := NewAppointmentStore(&stubAppointmentRepo{}, nil, nil)

	_, err := store.Add(context.Background(), CreateAppointmentRequest{
		StartDate: time.Now(),
		Type:      "appointment",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = store.Add(context.Background(), CreateAppointmentRequest{
		Title:     "Bad type",
		StartDate: time.Now(),
		Type:      "meeting",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = store.Add(context.Background(), CreateAppointmentRequest{
		Title:     "Ends before it starts",
		StartDate: time.Now().Add(2 * time.Hour),
		EndDate:   time.Now().Add(time.Hour),
		Type:      "appointment",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAppointmentStoreAddCoercesMalformedCustomerRef(t *testing.T) {
	repo := &stubAppointmentRepo{}
	store := NewAppointmentStore(repo, nil, nil)

	ref := "not-a-uuid"
	name := "Jane Smith"
	created, err := store.Add(context.Background(), CreateAppointmentRequest{
		Title:        "Fitting",
		StartDate:    time.Now().Add(time.Hour),
		Type:         "appointment",
		CustomerID:   &ref,
		CustomerName: &name,
	})
	require.NoError(t, err)
	assert.Nil(t, created.CustomerID)
	require.NotNil(t, created.CustomerName)
	assert.Equal(t, "Jane Smith", *created.CustomerName)

	valid := "6f1e63d4-13a8-4f6b-9a3f-2b1a40e2a111"
	created, err = store.Add(context.Background(), CreateAppointmentRequest{
		Title:      "Fitting",
		StartDate:  time.Now().Add(time.Hour),
		Type:       "appointment",
		CustomerID: &valid,
	})
	require.NoError(t, err)
	require.NotNil(t, created.CustomerID)
	assert.Equal(t, valid, *created.CustomerID)
}

func TestAppointmentStoreUpdateReplacesRowOnSuccessOnly(t *testing.T) {
	now := time.Now()
	original := futureAppointment("appt-1", now.Add(time.Hour))
	repo := &stubAppointmentRepo{listResult: []models.Appointment{original}}
	store := NewAppointmentStore(repo, nil, nil)
	require.NoError(t, store.FetchAll(context.Background()))

	repo.updateErr = errors.New("boom")
	title := "Renamed"
	_, err := store.Update(context.Background(), "appt-1", UpdateAppointmentRequest{Title: &title})
	require.Error(t, err)
	assert.Equal(t, "Appointment appt-1", store.Snapshot()[0].Title)

	updated := original
	updated.Title = "Renamed"
	repo.updateErr = nil
	repo.updateResult = &updated
	result, err := store.Update(context.Background(), "appt-1", UpdateAppointmentRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", result.Title)
	assert.Equal(t, "Renamed", store.Snapshot()[0].Title)
	require.NotNil(t, repo.lastPatch.Title)
	assert.Nil(t, repo.lastPatch.StartDate)
}

func TestAppointmentStoreUpdateNotFound(t *testing.T) {
	repo := &stubAppointmentRepo{updateErr: sql.ErrNoRows}
	store := NewAppointmentStore(repo, nil, nil)

	title := "whatever"
	_, err := store.Update(context.Background(), "missing", UpdateAppointmentRequest{Title: &title})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAppointmentStoreUpdateRejectsEmptyPatch(t *testing.T) {
	store := NewAppointmentStore(&stubAppointmentRepo{}, nil, nil)
	_, err := store.Update(context.Background(), "appt-1", UpdateAppointmentRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAppointmentStoreDeleteRemovesRow(t *testing.T) {
	now := time.Now()
	repo := &stubAppointmentRepo{listResult: []models.Appointment{
		futureAppointment("appt-1", now.Add(time.Hour)),
		futureAppointment("appt-2", now.Add(2*time.Hour)),
	}}
	store := NewAppointmentStore(repo, nil, nil)
	require.NoError(t, store.FetchAll(context.Background()))

	require.NoError(t, store.Delete(context.Background(), "appt-1"))
	snapshot := store.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "appt-2", snapshot[0].ID)
}

func TestAppointmentStoreGetByDate(t *testing.T) {
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	repo := &stubAppointmentRepo{listResult: []models.Appointment{
		futureAppointment("yesterday", day.Add(-2*time.Hour)),
		futureAppointment("morning", day.Add(9*time.Hour)),
		futureAppointment("evening", day.Add(18*time.Hour)),
		futureAppointment("tomorrow", day.Add(26*time.Hour)),
	}}
	store := NewAppointmentStore(repo, nil, nil)
	require.NoError(t, store.FetchAll(context.Background()))

	result := store.GetByDate(day.Add(12 * time.Hour))
	require.Len(t, result, 2)
	assert.Equal(t, "morning", result[0].ID)
	assert.Equal(t, "evening", result[1].ID)
}

func TestAppointmentStoreNotifiesSubscribersOnWrites(t *testing.T) {
	repo := &stubAppointmentRepo{}
	store := NewAppointmentStore(repo, nil, nil)

	var notified int
	store.Subscribe(func() { notified++ })

	require.NoError(t, store.FetchAll(context.Background()))
	assert.Equal(t, 1, notified)

	_, err := store.Add(context.Background(), CreateAppointmentRequest{
		Title:     "Call",
		StartDate: time.Now().Add(time.Hour),
		Type:      "call",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, notified)

	repo.listErr = errors.New("down")
	require.Error(t, store.FetchAll(context.Background()))
	assert.Equal(t, 2, notified)
}

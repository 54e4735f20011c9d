package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvetta/crm-api/internal/models"
)

func newAppointmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func appointmentRows(appointments ...models.Appointment) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "title", "description", "notes", "location", "customer_id", "customer_name",
		"start_date", "end_date", "type", "status", "reminder_minutes", "created_by", "created_at", "updated_at",
	})
	for _, a := range appointments {
		rows.AddRow(a.ID, a.Title, a.Description, a.Notes, a.Location, a.CustomerID, a.CustomerName,
			a.StartDate, a.EndDate, string(a.Type), string(a.Status), a.ReminderMinutes, a.CreatedBy, a.CreatedAt, a.UpdatedAt)
	}
	return rows
}

func TestAppointmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	repo := NewAppointmentRepository(db)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM appointments ORDER BY start_date ASC").
		WillReturnRows(appointmentRows(
			models.Appointment{ID: "appt-1", Title: "Fitting", StartDate: now, EndDate: now, Type: models.AppointmentTypeAppointment, Status: models.AppointmentStatusScheduled, CreatedAt: now, UpdatedAt: now},
			models.Appointment{ID: "appt-2", Title: "Follow-up call", StartDate: now.Add(time.Hour), EndDate: now.Add(time.Hour), Type: models.AppointmentTypeCall, Status: models.AppointmentStatusScheduled, CreatedAt: now, UpdatedAt: now},
		))

	result, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "appt-1", result[0].ID)
	assert.Equal(t, "Fitting", result[0].Title)
}

func TestAppointmentRepositoryInsertAssignsID(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	repo := NewAppointmentRepository(db)
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	appointment := &models.Appointment{
		Title:     "Consultation",
		StartDate: time.Now().Add(time.Hour),
		EndDate:   time.Now().Add(2 * time.Hour),
		Type:      models.AppointmentTypeAppointment,
		Status:    models.AppointmentStatusScheduled,
	}
	require.NoError(t, repo.Insert(context.Background(), appointment))
	assert.NotEmpty(t, appointment.ID)
	assert.False(t, appointment.CreatedAt.IsZero())
	assert.False(t, appointment.UpdatedAt.IsZero())
}

func TestAppointmentRepositoryUpdatePartial(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	repo := NewAppointmentRepository(db)
	now := time.Now().UTC()
	mock.ExpectQuery("UPDATE appointments SET title = \\$1, updated_at = \\$2 WHERE id = \\$3 RETURNING").
		WithArgs("New title", sqlmock.AnyArg(), "appt-1").
		WillReturnRows(appointmentRows(models.Appointment{
			ID: "appt-1", Title: "New title", StartDate: now, EndDate: now,
			Type: models.AppointmentTypeAppointment, Status: models.AppointmentStatusScheduled,
			CreatedAt: now, UpdatedAt: now,
		}))

	title := "New title"
	updated, err := repo.Update(context.Background(), "appt-1", models.AppointmentPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
}

func TestAppointmentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	repo := NewAppointmentRepository(db)
	mock.ExpectQuery("UPDATE appointments SET").
		WillReturnError(sql.ErrNoRows)

	title := "whatever"
	_, err := repo.Update(context.Background(), "missing", models.AppointmentPatch{Title: &title})
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAppointmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	repo := NewAppointmentRepository(db)
	mock.ExpectExec("DELETE FROM appointments WHERE id = \\$1").
		WithArgs("appt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "appt-1"))
}

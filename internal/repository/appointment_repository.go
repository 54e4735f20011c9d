package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arvetta/crm-api/internal/models"
)

const appointmentColumns = `id, title, description, notes, location, customer_id, customer_name,
start_date, end_date, type, status, reminder_minutes, created_by, created_at, updated_at`

// AppointmentRepository persists appointments.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs an appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// List returns every appointment ordered by start date ascending.
func (r *AppointmentRepository) List(ctx context.Context) ([]models.Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments ORDER BY start_date ASC", appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

// Insert stores a new appointment, assigning its identifier and audit fields.
func (r *AppointmentRepository) Insert(ctx context.Context, appointment *models.Appointment) error {
	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	appointment.UpdatedAt = now
	query := `INSERT INTO appointments (id, title, description, notes, location, customer_id, customer_name,
start_date, end_date, type, status, reminder_minutes, created_by, created_at, updated_at)
VALUES (:id, :title, :description, :notes, :location, :customer_id, :customer_name,
:start_date, :end_date, :type, :status, :reminder_minutes, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appointment); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

// Update applies a partial patch and returns the stored row.
func (r *AppointmentRepository) Update(ctx context.Context, id string, patch models.AppointmentPatch) (*models.Appointment, error) {
	set := []string{}
	args := []interface{}{}

	appendSet := func(column string, value interface{}) {
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}

	if patch.Title != nil {
		appendSet("title", *patch.Title)
	}
	if patch.Description != nil {
		appendSet("description", *patch.Description)
	}
	if patch.Notes != nil {
		appendSet("notes", *patch.Notes)
	}
	if patch.Location != nil {
		appendSet("location", *patch.Location)
	}
	if patch.CustomerID != nil {
		// Empty string means the reference was cleared or failed
		// normalization upstream; persist NULL either way.
		if *patch.CustomerID == "" {
			appendSet("customer_id", nil)
		} else {
			appendSet("customer_id", *patch.CustomerID)
		}
	}
	if patch.CustomerName != nil {
		appendSet("customer_name", *patch.CustomerName)
	}
	if patch.StartDate != nil {
		appendSet("start_date", *patch.StartDate)
	}
	if patch.EndDate != nil {
		appendSet("end_date", *patch.EndDate)
	}
	if patch.Type != nil {
		appendSet("type", string(*patch.Type))
	}
	if patch.Status != nil {
		appendSet("status", string(*patch.Status))
	}
	if patch.ReminderMinutes != nil {
		appendSet("reminder_minutes", *patch.ReminderMinutes)
	}
	appendSet("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf("UPDATE appointments SET %s WHERE id = $%d RETURNING %s",
		strings.Join(set, ", "), len(args), appointmentColumns)

	var appointment models.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, args...); err != nil {
		return nil, err
	}
	return &appointment, nil
}

// Delete removes an appointment.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM appointments WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}

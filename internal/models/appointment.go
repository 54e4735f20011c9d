package models

import "time"

// AppointmentType classifies a scheduled entry.
type AppointmentType string

const (
	AppointmentTypeAppointment AppointmentType = "appointment"
	AppointmentTypeCall        AppointmentType = "call"
	AppointmentTypeReminder    AppointmentType = "reminder"
)

// AppointmentStatus tracks the lifecycle of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusScheduled   AppointmentStatus = "scheduled"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
)

// Appointment represents a scheduled event with an optional reminder lead time.
// ReminderMinutes is the pre-event lead time in minutes; zero disables the
// pre-event reminder.
type Appointment struct {
	ID              string            `db:"id" json:"id"`
	Title           string            `db:"title" json:"title"`
	Description     *string           `db:"description" json:"description,omitempty"`
	Notes           *string           `db:"notes" json:"notes,omitempty"`
	Location        *string           `db:"location" json:"location,omitempty"`
	CustomerID      *string           `db:"customer_id" json:"customer_id,omitempty"`
	CustomerName    *string           `db:"customer_name" json:"customer_name,omitempty"`
	StartDate       time.Time         `db:"start_date" json:"start_date"`
	EndDate         time.Time         `db:"end_date" json:"end_date"`
	Type            AppointmentType   `db:"type" json:"type"`
	Status          AppointmentStatus `db:"status" json:"status"`
	ReminderMinutes int               `db:"reminder_minutes" json:"reminder_minutes"`
	CreatedBy       *string           `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentPatch carries a partial update; nil fields are left unchanged.
type AppointmentPatch struct {
	Title           *string            `json:"title,omitempty"`
	Description     *string            `json:"description,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	Location        *string            `json:"location,omitempty"`
	CustomerID      *string            `json:"customer_id,omitempty"`
	CustomerName    *string            `json:"customer_name,omitempty"`
	StartDate       *time.Time         `json:"start_date,omitempty"`
	EndDate         *time.Time         `json:"end_date,omitempty"`
	Type            *AppointmentType   `json:"type,omitempty"`
	Status          *AppointmentStatus `json:"status,omitempty"`
	ReminderMinutes *int               `json:"reminder_minutes,omitempty"`
}

// IsEmpty reports whether the patch carries no changes.
func (p AppointmentPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Notes == nil &&
		p.Location == nil && p.CustomerID == nil && p.CustomerName == nil &&
		p.StartDate == nil && p.EndDate == nil && p.Type == nil &&
		p.Status == nil && p.ReminderMinutes == nil
}

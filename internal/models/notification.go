package models

import "time"

// ReminderPhase identifies which reminder of an appointment fired.
type ReminderPhase string

const (
	// ReminderPhaseBefore is the lead-time warning ahead of the start.
	ReminderPhaseBefore ReminderPhase = "before"
	// ReminderPhaseStart fires when the appointment begins.
	ReminderPhaseStart ReminderPhase = "start"
)

// FeedEntry is a single item in the in-app notification feed.
type FeedEntry struct {
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

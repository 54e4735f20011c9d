package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arvetta/crm-api/internal/models"
	"github.com/arvetta/crm-api/internal/service"
	appErrors "github.com/arvetta/crm-api/pkg/errors"
	"github.com/arvetta/crm-api/pkg/response"
)

type appointmentStore interface {
	FetchAll(ctx context.Context) error
	Add(ctx context.Context, req service.CreateAppointmentRequest) (*models.Appointment, error)
	Update(ctx context.Context, id string, req service.UpdateAppointmentRequest) (*models.Appointment, error)
	Delete(ctx context.Context, id string) error
	Snapshot() []models.Appointment
	GetByDate(date time.Time) []models.Appointment
	Err() string
}

// AppointmentHandler exposes the appointment endpoints.
type AppointmentHandler struct {
	store appointmentStore
}

// NewAppointmentHandler constructs the handler.
func NewAppointmentHandler(store appointmentStore) *AppointmentHandler {
	return &AppointmentHandler{store: store}
}

// List returns the cached appointments, optionally narrowed to one calendar
// day via ?date=YYYY-MM-DD.
func (h *AppointmentHandler) List(c *gin.Context) {
	raw := c.Query("date")
	if raw == "" {
		meta := map[string]interface{}{}
		if storeErr := h.store.Err(); storeErr != "" {
			meta["store_error"] = storeErr
		}
		response.JSON(c, http.StatusOK, h.store.Snapshot(), meta)
		return
	}

	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return
	}
	response.JSON(c, http.StatusOK, h.store.GetByDate(date))
}

// Create inserts a new appointment.
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req service.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	appointment, err := h.store.Add(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appointment)
}

// Update applies a partial update.
func (h *AppointmentHandler) Update(c *gin.Context) {
	var req service.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	appointment, err := h.store.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointment)
}

// Delete removes an appointment.
func (h *AppointmentHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Refresh forces a full cache resync from the repository.
func (h *AppointmentHandler) Refresh(c *gin.Context) {
	if err := h.store.FetchAll(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.store.Snapshot())
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
	"github.com/noah-isme/curso-asistencia-api/pkg/response"
)

type attendanceService interface {
	MarkPresent(ctx context.Context, req models.MarkAttendanceRequest, actor models.Actor) (*models.MarkResult, error)
	SessionsToday(ctx context.Context, participantRUT string) (*models.ParticipantSessions, error)
	List(ctx context.Context, courseID string) ([]models.Attendance, error)
	Delete(ctx context.Context, id string) error
}

// AttendanceHandler exposes attendance marking and administration.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Mark godoc
// @Summary Mark a participant present
// @Description Anonymous callers may only mark sessions scheduled today. An administrator token relaxes the date rule and tags the mark as MANUAL.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.MarkAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope "Session already recorded"
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	result, err := h.service.MarkPresent(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadyRecorded {
		status = http.StatusOK
	}
	response.JSON(c, status, result, nil)
}

// SessionsToday godoc
// @Summary Sessions a participant can mark today
// @Tags Attendance
// @Produce json
// @Param rut path string true "Participant RUT"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /participants/{rut}/sessions-today [get]
func (h *AttendanceHandler) SessionsToday(c *gin.Context) {
	sessions, err := h.service.SessionsToday(c.Request.Context(), c.Param("rut"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// List godoc
// @Summary List attendance of a course
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param course_id query string false "Course ID (defaults to the active course)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	marks, err := h.service.List(c.Request.Context(), c.Query("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	page, meta := paginate(c, marks)
	response.JSON(c, http.StatusOK, page, meta)
}

// Delete godoc
// @Summary Delete an attendance mark
// @Tags Attendance
// @Security BearerAuth
// @Param id path string true "Attendance ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

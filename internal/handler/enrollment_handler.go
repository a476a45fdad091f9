package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
	"github.com/noah-isme/curso-asistencia-api/pkg/response"
)

type enrollmentService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.Enrollment, error)
	List(ctx context.Context, courseID string) ([]models.Enrollment, error)
	History(ctx context.Context, limit int) ([]models.LedgerChange, error)
}

// EnrollmentHandler exposes participant registration endpoints.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(svc enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Register godoc
// @Summary Register a participant
// @Description Registers a participant under a company in a course. An empty curso_id targets the active course.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	enrollment, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// List godoc
// @Summary List enrollments of a course
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param course_id query string false "Course ID (defaults to the active course)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	enrollments, err := h.service.List(c.Request.Context(), c.Query("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	page, meta := paginate(c, enrollments)
	response.JSON(c, http.StatusOK, page, meta)
}

// History godoc
// @Summary List recent writes to the enrollment ledger
// @Description Only blob-backed stores keep a change log; other stores answer 501.
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of entries (default 50, max 200)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 501 {object} response.Envelope
// @Router /enrollments/history [get]
func (h *EnrollmentHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.WithField(appErrors.Clone(appErrors.ErrValidation, "limit must be a number"), "limit"))
			return
		}
		limit = n
	}
	changes, err := h.service.History(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, changes, nil)
}

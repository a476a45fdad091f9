package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
	"github.com/noah-isme/curso-asistencia-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context) ([]models.Course, error)
	Active(ctx context.Context) (*models.Course, error)
	Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error)
	Activate(ctx context.Context, id string) error
}

type seatCounter interface {
	Seats(ctx context.Context, courseID string) (*models.SeatAvailability, error)
}

// CourseHandler exposes course administration endpoints.
type CourseHandler struct {
	courses courseService
	seats   seatCounter
}

// NewCourseHandler constructs a course handler.
func NewCourseHandler(courses courseService, seats seatCounter) *CourseHandler {
	return &CourseHandler{courses: courses, seats: seats}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Active godoc
// @Summary Get the active course
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/active [get]
func (h *CourseHandler) Active(c *gin.Context) {
	course, err := h.courses.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create a course
// @Description The new course becomes the active one
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Activate godoc
// @Summary Activate a course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/activate [put]
func (h *CourseHandler) Activate(c *gin.Context) {
	id := c.Param("id")
	if err := h.courses.Activate(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"curso_id": id, "estado": models.CourseStatusActive}, nil)
}

// Seats godoc
// @Summary Seat availability of a course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/seats [get]
func (h *CourseHandler) Seats(c *gin.Context) {
	seats, err := h.seats.Seats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, seats, nil)
}

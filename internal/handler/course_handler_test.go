package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
)

type courseServiceMock struct {
	active      *models.Course
	activeErr   error
	created     *models.CreateCourseRequest
	createErr   error
	activated   string
	activateErr error
}

func (m *courseServiceMock) List(_ context.Context) ([]models.Course, error) {
	return []models.Course{{ID: "C1"}}, nil
}

func (m *courseServiceMock) Active(_ context.Context) (*models.Course, error) {
	return m.active, m.activeErr
}

func (m *courseServiceMock) Create(_ context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	m.created = &req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Course{ID: req.ID + "-20240301-20240331", Status: models.CourseStatusActive}, nil
}

func (m *courseServiceMock) Activate(_ context.Context, id string) error {
	m.activated = id
	return m.activateErr
}

type seatCounterMock struct{}

func (seatCounterMock) Seats(_ context.Context, courseID string) (*models.SeatAvailability, error) {
	return &models.SeatAvailability{CourseID: courseID, MaxSeats: 30, Enrolled: 29, Remaining: 1}, nil
}

func TestCourseHandlerActiveMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewCourseHandler(&courseServiceMock{activeErr: appErrors.ErrNoActiveCourse}, seatCounterMock{})

	c, w := newGinContext(http.MethodGet, "/courses/active", nil)
	h.Active(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, "NO_ACTIVE_COURSE", decodeEnvelope(t, w).Error.Code)
}

func TestCourseHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &courseServiceMock{}
	h := NewCourseHandler(svc, seatCounterMock{})

	body := []byte(`{"id":"SST","nombre":"Curso SST","fecha_inicio":"2024-03-01","fecha_fin":"2024-03-31","cupo_maximo":"25"}`)
	c, w := newGinContext(http.MethodPost, "/courses", body)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, models.FlexInt(25), svc.created.MaxSeats)
}

func TestCourseHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewCourseHandler(&courseServiceMock{createErr: appErrors.Clone(appErrors.ErrConflict, "course already exists")}, seatCounterMock{})

	c, w := newGinContext(http.MethodPost, "/courses", []byte(`{"id":"SST"}`))
	h.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCourseHandlerActivate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &courseServiceMock{}
	h := NewCourseHandler(svc, seatCounterMock{})

	c, w := newGinContext(http.MethodPut, "/courses/C1/activate", nil)
	c.Params = gin.Params{{Key: "id", Value: "C1"}}
	h.Activate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "C1", svc.activated)
}

func TestCourseHandlerSeats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewCourseHandler(&courseServiceMock{}, seatCounterMock{})

	c, w := newGinContext(http.MethodGet, "/courses/C1/seats", nil)
	c.Params = gin.Params{{Key: "id", Value: "C1"}}
	h.Seats(c)

	require.Equal(t, http.StatusOK, w.Code)
	var seats models.SeatAvailability
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &seats))
	assert.Equal(t, 1, seats.Remaining)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curso-asistencia-api/internal/middleware"
	"github.com/noah-isme/curso-asistencia-api/internal/models"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
)

type attendanceServiceMock struct {
	actor       models.Actor
	markResult  *models.MarkResult
	markErr     error
	sessionsRUT string
	sessions    *models.ParticipantSessions
	sessionsErr error
	deletedID   string
	deleteErr   error
}

func (m *attendanceServiceMock) MarkPresent(_ context.Context, _ models.MarkAttendanceRequest, actor models.Actor) (*models.MarkResult, error) {
	m.actor = actor
	return m.markResult, m.markErr
}

func (m *attendanceServiceMock) SessionsToday(_ context.Context, rut string) (*models.ParticipantSessions, error) {
	m.sessionsRUT = rut
	return m.sessions, m.sessionsErr
}

func (m *attendanceServiceMock) List(_ context.Context, _ string) ([]models.Attendance, error) {
	return []models.Attendance{{ID: "a1"}}, nil
}

func (m *attendanceServiceMock) Delete(_ context.Context, id string) error {
	m.deletedID = id
	return m.deleteErr
}

func TestAttendanceHandlerMarkActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	body := []byte(`{"rut":"12345678-5","sesion":1}`)

	t.Run("anonymous is self service", func(t *testing.T) {
		svc := &attendanceServiceMock{markResult: &models.MarkResult{Attendance: &models.Attendance{ID: "a1"}}}
		c, w := newGinContext(http.MethodPost, "/attendance", body)
		NewAttendanceHandler(svc).Mark(c)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, models.ActorSelfService, svc.actor)
	})

	t.Run("admin claims mark manually", func(t *testing.T) {
		svc := &attendanceServiceMock{markResult: &models.MarkResult{Attendance: &models.Attendance{ID: "a1"}}}
		c, w := newGinContext(http.MethodPost, "/attendance", body)
		c.Set(middleware.ContextUserKey, &models.JWTClaims{Role: models.RoleAdmin})
		NewAttendanceHandler(svc).Mark(c)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, models.ActorAdmin, svc.actor)
	})
}

func TestAttendanceHandlerMarkAlreadyRecorded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &attendanceServiceMock{markResult: &models.MarkResult{AlreadyRecorded: true}}
	c, w := newGinContext(http.MethodPost, "/attendance", []byte(`{"rut":"12345678-5","sesion":2}`))
	NewAttendanceHandler(svc).Mark(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	var result models.MarkResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.AlreadyRecorded)
}

func TestAttendanceHandlerMarkNotToday(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &attendanceServiceMock{markErr: appErrors.ErrSessionNotToday}
	c, w := newGinContext(http.MethodPost, "/attendance", []byte(`{"rut":"12345678-5","sesion":3}`))
	NewAttendanceHandler(svc).Mark(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, "SESSION_NOT_TODAY", decodeEnvelope(t, w).Error.Code)
}

func TestAttendanceHandlerSessionsToday(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &attendanceServiceMock{sessions: &models.ParticipantSessions{RUT: "12345678-5", Sessions: []models.SessionOption{}}}
	c, w := newGinContext(http.MethodGet, "/participants/12345678-5/sessions-today", nil)
	c.Params = gin.Params{{Key: "rut", Value: "12345678-5"}}
	NewAttendanceHandler(svc).SessionsToday(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345678-5", svc.sessionsRUT)
}

func TestAttendanceHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &attendanceServiceMock{}
	c, w := newGinContext(http.MethodDelete, "/attendance/a1", nil)
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	NewAttendanceHandler(svc).Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "a1", svc.deletedID)
}

func TestAttendanceHandlerDeleteMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &attendanceServiceMock{deleteErr: appErrors.Clone(appErrors.ErrNotFound, "attendance not found")}
	c, w := newGinContext(http.MethodDelete, "/attendance/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	NewAttendanceHandler(svc).Delete(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
)

func TestCourseServiceCreate(t *testing.T) {
	store := &fakeStore{courses: []models.Course{activeCourse("OLD", 5)}}
	svc := NewCourseService(store, nil, nil, 25)

	course, err := svc.Create(context.Background(), models.CreateCourseRequest{
		ID:           " TMERT ",
		Name:         "Curso TMERT",
		StartDate:    "2024-04-01",
		EndDate:      "2024-04-30",
		SessionDate1: "2024-04-02",
		Region:       "Biobío",
	})
	require.NoError(t, err)
	assert.Equal(t, "TMERT-20240401-20240430", course.ID)
	assert.Equal(t, models.FlexInt(25), course.MaxSeats)
	assert.True(t, course.IsActive())

	active, err := svc.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, course.ID, active.ID)

	_, err = svc.Create(context.Background(), models.CreateCourseRequest{
		ID: "TMERT", Name: "again", StartDate: "2024-04-01", EndDate: "2024-04-30",
	})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestCourseServiceCreateValidation(t *testing.T) {
	svc := NewCourseService(&fakeStore{}, nil, nil, 0)

	_, err := svc.Create(context.Background(), models.CreateCourseRequest{ID: "X", Name: "n", StartDate: "2024-04-30", EndDate: "2024-04-30"})
	assert.Equal(t, "fecha_fin", appErrors.FromError(err).Field)

	_, err = svc.Create(context.Background(), models.CreateCourseRequest{ID: "X", Name: "n", StartDate: "30/04/2024", EndDate: "2024-05-30"})
	assert.Equal(t, "fecha_inicio", appErrors.FromError(err).Field)

	_, err = svc.Create(context.Background(), models.CreateCourseRequest{Name: "n", StartDate: "2024-04-01", EndDate: "2024-05-30"})
	assert.Equal(t, "id", appErrors.FromError(err).Field)
}

func TestCourseServiceActivateAndResolve(t *testing.T) {
	inactive := activeCourse("B", 0)
	inactive.Status = models.CourseStatusInactive
	store := &fakeStore{courses: []models.Course{activeCourse("A", 5), inactive}}
	svc := NewCourseService(store, nil, nil, 0)

	require.NoError(t, svc.Activate(context.Background(), "B"))
	active, err := svc.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "B", active.ID)
	assert.Equal(t, models.FlexInt(DefaultMaxSeats), active.MaxSeats)

	courses, err := svc.List(context.Background())
	require.NoError(t, err)
	activeCount := 0
	for _, c := range courses {
		if c.IsActive() {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)

	err = svc.Activate(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Resolve(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCourseServiceActiveNone(t *testing.T) {
	svc := NewCourseService(&fakeStore{}, nil, nil, 0)
	_, err := svc.Active(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrNoActiveCourse))
}

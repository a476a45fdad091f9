package repository

import (
	"context"
	"errors"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
)

var (
	// ErrDuplicateRecord is returned when a unique constraint of the store
	// rejects an append.
	ErrDuplicateRecord = errors.New("repository: duplicate record")
	// ErrCapacityReached is returned by stores that enforce seat capacity in
	// the same transaction as the append.
	ErrCapacityReached = errors.New("repository: capacity reached")
	// ErrRecordNotFound is returned for lookups and deletes of unknown ids.
	ErrRecordNotFound = errors.New("repository: record not found")
	// ErrConflict is returned when an optimistic overwrite lost a race.
	ErrConflict = errors.New("repository: concurrent modification")
	// ErrUpstream wraps transport failures and malformed payloads of a
	// remote store.
	ErrUpstream = errors.New("repository: upstream failure")
)

// Store is the external source of truth for courses, enrollments and
// attendance. Reads always return a fresh copy; callers keep nothing across
// requests.
type Store interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	// ActiveCourse returns nil without error when no course is active.
	ActiveCourse(ctx context.Context) (*models.Course, error)
	CreateCourse(ctx context.Context, course models.Course) error
	ActivateCourse(ctx context.Context, courseID string) error

	ListEnrollments(ctx context.Context) ([]models.Enrollment, error)
	AppendEnrollment(ctx context.Context, enrollment models.Enrollment) error

	ListAttendance(ctx context.Context) ([]models.Attendance, error)
	AppendAttendance(ctx context.Context, attendance models.Attendance) error
	DeleteAttendance(ctx context.Context, id string) error
}

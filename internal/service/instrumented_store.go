package service

import (
	"context"
	"time"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	"github.com/noah-isme/curso-asistencia-api/internal/repository"
)

// InstrumentedStore records the latency and result of every store call.
type InstrumentedStore struct {
	next    repository.Store
	metrics *MetricsService
}

// NewInstrumentedStore decorates next with store call metrics.
func NewInstrumentedStore(next repository.Store, metrics *MetricsService) *InstrumentedStore {
	return &InstrumentedStore{next: next, metrics: metrics}
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	s.metrics.ObserveStoreCall(op, err, time.Since(start))
}

func (s *InstrumentedStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	start := time.Now()
	out, err := s.next.ListCourses(ctx)
	s.observe("list_courses", start, err)
	return out, err
}

func (s *InstrumentedStore) ActiveCourse(ctx context.Context) (*models.Course, error) {
	start := time.Now()
	course, err := s.next.ActiveCourse(ctx)
	s.observe("active_course", start, err)
	return course, err
}

func (s *InstrumentedStore) CreateCourse(ctx context.Context, course models.Course) error {
	start := time.Now()
	err := s.next.CreateCourse(ctx, course)
	s.observe("create_course", start, err)
	return err
}

func (s *InstrumentedStore) ActivateCourse(ctx context.Context, courseID string) error {
	start := time.Now()
	err := s.next.ActivateCourse(ctx, courseID)
	s.observe("activate_course", start, err)
	return err
}

func (s *InstrumentedStore) ListEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	start := time.Now()
	out, err := s.next.ListEnrollments(ctx)
	s.observe("list_enrollments", start, err)
	return out, err
}

func (s *InstrumentedStore) AppendEnrollment(ctx context.Context, enrollment models.Enrollment) error {
	start := time.Now()
	err := s.next.AppendEnrollment(ctx, enrollment)
	s.observe("append_enrollment", start, err)
	return err
}

func (s *InstrumentedStore) ListAttendance(ctx context.Context) ([]models.Attendance, error) {
	start := time.Now()
	out, err := s.next.ListAttendance(ctx)
	s.observe("list_attendance", start, err)
	return out, err
}

func (s *InstrumentedStore) AppendAttendance(ctx context.Context, attendance models.Attendance) error {
	start := time.Now()
	err := s.next.AppendAttendance(ctx, attendance)
	s.observe("append_attendance", start, err)
	return err
}

func (s *InstrumentedStore) DeleteAttendance(ctx context.Context, id string) error {
	start := time.Now()
	err := s.next.DeleteAttendance(ctx, id)
	s.observe("delete_attendance", start, err)
	return err
}

var _ repository.Store = (*InstrumentedStore)(nil)

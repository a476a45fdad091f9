package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/curso-asistencia-api/internal/ledger"
	"github.com/noah-isme/curso-asistencia-api/internal/models"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
)

// DefaultMaxSeats is used when a course has no capacity configured.
const DefaultMaxSeats = 30

type courseStore interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	ActiveCourse(ctx context.Context) (*models.Course, error)
	CreateCourse(ctx context.Context, course models.Course) error
	ActivateCourse(ctx context.Context, courseID string) error
}

// CourseService manages course configuration and the active course.
type CourseService struct {
	store           courseStore
	validator       *validator.Validate
	logger          *zap.Logger
	defaultMaxSeats int
}

// NewCourseService constructs a CourseService.
func NewCourseService(store courseStore, validate *validator.Validate, logger *zap.Logger, defaultMaxSeats int) *CourseService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultMaxSeats <= 0 {
		defaultMaxSeats = DefaultMaxSeats
	}
	return &CourseService{store: store, validator: validate, logger: logger, defaultMaxSeats: defaultMaxSeats}
}

// List returns every configured course with capacity backfilled.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, storeError(s.logger, "list_courses", err)
	}
	for i := range courses {
		s.backfill(&courses[i])
	}
	return courses, nil
}

// Active returns the active course or NO_ACTIVE_COURSE.
func (s *CourseService) Active(ctx context.Context) (*models.Course, error) {
	course, err := s.store.ActiveCourse(ctx)
	if err != nil {
		return nil, storeError(s.logger, "active_course", err)
	}
	if course == nil {
		return nil, appErrors.ErrNoActiveCourse
	}
	s.backfill(course)
	return course, nil
}

// Get returns the course with the given id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	courses, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		if courses[i].ID == id {
			return &courses[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
}

// Resolve returns the course named by id, or the active course when id is empty.
func (s *CourseService) Resolve(ctx context.Context, id string) (*models.Course, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.Active(ctx)
	}
	return s.Get(ctx, id)
}

// Create stores a new course and makes it the active one. The stored id is
// the requested id suffixed with the compact start and end dates.
func (s *CourseService) Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	trimAll(&req.ID, &req.Name, &req.StartDate, &req.EndDate, &req.SessionDate1, &req.SessionDate2, &req.SessionDate3, &req.Region)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	start := ledger.NormalizeDate(req.StartDate)
	end := ledger.NormalizeDate(req.EndDate)
	if end <= start {
		return nil, fieldError(appErrors.ErrValidation, "fecha_fin", "fecha_fin must be after fecha_inicio")
	}

	course := models.Course{
		ID:           fmt.Sprintf("%s-%s-%s", req.ID, ledger.CompactDate(start), ledger.CompactDate(end)),
		Name:         req.Name,
		StartDate:    start,
		EndDate:      end,
		SessionDate1: ledger.NormalizeDate(req.SessionDate1),
		SessionDate2: ledger.NormalizeDate(req.SessionDate2),
		SessionDate3: ledger.NormalizeDate(req.SessionDate3),
		Region:       req.Region,
		MaxSeats:     req.MaxSeats,
		Status:       models.CourseStatusActive,
	}
	s.backfill(&course)

	existing, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, storeError(s.logger, "list_courses", err)
	}
	for _, c := range existing {
		if c.ID == course.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course already exists")
		}
	}

	if err := s.store.CreateCourse(ctx, course); err != nil {
		return nil, storeError(s.logger, "create_course", err)
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.Int("max_seats", int(course.MaxSeats)))
	return &course, nil
}

// Activate marks id as the single active course.
func (s *CourseService) Activate(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fieldError(appErrors.ErrValidation, "curso_id", "curso_id is required")
	}
	if err := s.store.ActivateCourse(ctx, id); err != nil {
		return storeError(s.logger, "activate_course", err)
	}
	s.logger.Info("course activated", zap.String("course_id", id))
	return nil
}

func (s *CourseService) backfill(c *models.Course) {
	if c.MaxSeats <= 0 {
		c.MaxSeats = models.FlexInt(s.defaultMaxSeats)
	}
}

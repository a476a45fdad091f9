package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/curso-asistencia-api/internal/ledger"
	"github.com/noah-isme/curso-asistencia-api/internal/models"
	"github.com/noah-isme/curso-asistencia-api/internal/repository"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
	"github.com/noah-isme/curso-asistencia-api/pkg/rut"
)

type courseResolver interface {
	Resolve(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentStore interface {
	ListEnrollments(ctx context.Context) ([]models.Enrollment, error)
	AppendEnrollment(ctx context.Context, enrollment models.Enrollment) error
}

type changeLog interface {
	History(ctx context.Context, limit int) ([]models.LedgerChange, error)
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// EnrollmentConfig tunes registration rules.
type EnrollmentConfig struct {
	EnforceRegistrationWindow bool
	Clock                     Clock
}

// EnrollmentService implements the registration ledger.
type EnrollmentService struct {
	store     enrollmentStore
	changes   changeLog
	courses   courseResolver
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       EnrollmentConfig
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(store enrollmentStore, courses courseResolver, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg EnrollmentConfig) *EnrollmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		store:     store,
		courses:   courses,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Register appends one enrollment after validating the payload, both RUTs,
// seat capacity and the (participant, company) uniqueness within the course.
// The first failing check wins and nothing is written on failure.
func (s *EnrollmentService) Register(ctx context.Context, req models.RegisterRequest) (*models.Enrollment, error) {
	enrollment, err := s.register(ctx, req)
	s.metrics.RecordRegistration(errorCode(err))
	return enrollment, err
}

func (s *EnrollmentService) register(ctx context.Context, req models.RegisterRequest) (*models.Enrollment, error) {
	trimAll(&req.CourseID, &req.RUT, &req.FirstNames, &req.PaternalSurname, &req.MaternalSurname, &req.Nationality,
		&req.Role, &req.CompanyRUT, &req.CompanyName, &req.Region, &req.Commune, &req.Address, &req.Email, &req.Phone)

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	role, ok := participantRole(req.Role)
	if !ok {
		return nil, fieldError(appErrors.ErrValidation, "rol", "rol must be one of: "+strings.Join(models.ParticipantRoles, ", "))
	}
	if !rut.Valid(req.RUT) {
		return nil, fieldError(appErrors.ErrInvalidRUT, "rut", "invalid participant RUT")
	}
	if !rut.Valid(req.CompanyRUT) {
		return nil, fieldError(appErrors.ErrInvalidRUT, "rut_empresa", "invalid company RUT")
	}

	course, err := s.courses.Resolve(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	now := s.cfg.Clock.now()
	if s.cfg.EnforceRegistrationWindow && course.EndDate != "" {
		if ledger.NormalizeDate(course.EndDate) < ledger.Today(now, s.cfg.Clock.location()) {
			return nil, appErrors.ErrRegistrationClosed
		}
	}

	if err := s.checkAvailability(ctx, *course, req); err != nil {
		return nil, err
	}
	// Second read narrows the window in which a concurrent registration can
	// slip past the capacity and duplicate checks.
	if err := s.checkAvailability(ctx, *course, req); err != nil {
		return nil, err
	}

	enrollment := models.Enrollment{
		RegisteredAt:    ledger.Timestamp(now, s.cfg.Clock.location()),
		CourseID:        course.ID,
		RUT:             rut.Normalize(req.RUT),
		FirstNames:      req.FirstNames,
		PaternalSurname: req.PaternalSurname,
		MaternalSurname: req.MaternalSurname,
		Nationality:     req.Nationality,
		Role:            role,
		CompanyRUT:      rut.Normalize(req.CompanyRUT),
		CompanyName:     req.CompanyName,
		Region:          req.Region,
		Commune:         req.Commune,
		Address:         req.Address,
		Email:           req.Email,
		Phone:           req.Phone,
	}
	if err := s.store.AppendEnrollment(ctx, enrollment); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateRecord):
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateEnrollment.Code, appErrors.ErrDuplicateEnrollment.Status, appErrors.ErrDuplicateEnrollment.Message)
		case errors.Is(err, repository.ErrCapacityReached):
			return nil, appErrors.Wrap(err, appErrors.ErrCapacityExceeded.Code, appErrors.ErrCapacityExceeded.Status, appErrors.ErrCapacityExceeded.Message)
		}
		return nil, storeError(s.logger, "append_enrollment", err)
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, reportCacheKey(course.ID))
	}
	s.logger.Info("participant registered",
		zap.String("course_id", course.ID),
		zap.String("rut", enrollment.RUT),
		zap.String("rut_empresa", enrollment.CompanyRUT))
	return &enrollment, nil
}

func (s *EnrollmentService) checkAvailability(ctx context.Context, course models.Course, req models.RegisterRequest) error {
	all, err := s.store.ListEnrollments(ctx)
	if err != nil {
		return storeError(s.logger, "list_enrollments", err)
	}
	if ledger.SeatsRemaining(course, all) <= 0 {
		return appErrors.ErrCapacityExceeded
	}
	if _, exists := ledger.FindEnrollment(all, course.ID, req.RUT, req.CompanyRUT); exists {
		return appErrors.ErrDuplicateEnrollment
	}
	return nil
}

// List returns the enrollments of a course, or of the active course when
// courseID is empty.
func (s *EnrollmentService) List(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	course, err := s.courses.Resolve(ctx, courseID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListEnrollments(ctx)
	if err != nil {
		return nil, storeError(s.logger, "list_enrollments", err)
	}
	return ledger.CourseEnrollments(all, course.ID), nil
}

// UseChangeLog attaches the commit log of stores that keep one.
func (s *EnrollmentService) UseChangeLog(log changeLog) {
	s.changes = log
}

// History lists the most recent writes to the enrollment ledger, newest
// first. A limit of zero selects the default page.
func (s *EnrollmentService) History(ctx context.Context, limit int) ([]models.LedgerChange, error) {
	if s.changes == nil {
		return nil, appErrors.Clone(appErrors.ErrHistoryUnavailable, "")
	}
	switch {
	case limit < 0:
		return nil, fieldError(appErrors.ErrValidation, "limit", "limit must be positive")
	case limit == 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	changes, err := s.changes.History(ctx, limit)
	if err != nil {
		return nil, storeError(s.logger, "enrollment_history", err)
	}
	return changes, nil
}

// Seats reports capacity usage of a course.
func (s *EnrollmentService) Seats(ctx context.Context, courseID string) (*models.SeatAvailability, error) {
	course, err := s.courses.Resolve(ctx, courseID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListEnrollments(ctx)
	if err != nil {
		return nil, storeError(s.logger, "list_enrollments", err)
	}
	enrolled := ledger.CountEnrollments(all, course.ID)
	remaining := int(course.MaxSeats) - enrolled
	if remaining < 0 {
		remaining = 0
	}
	return &models.SeatAvailability{
		CourseID:  course.ID,
		MaxSeats:  int(course.MaxSeats),
		Enrolled:  enrolled,
		Remaining: remaining,
	}, nil
}

func participantRole(raw string) (string, bool) {
	for _, r := range models.ParticipantRoles {
		if strings.EqualFold(r, raw) {
			return r, true
		}
	}
	return "", false
}

func reportCacheKey(courseID string) string {
	return fmt.Sprintf("report:course:%s", courseID)
}

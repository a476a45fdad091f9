package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/curso-asistencia-api/internal/ledger"
	"github.com/noah-isme/curso-asistencia-api/internal/models"
	"github.com/noah-isme/curso-asistencia-api/internal/repository"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
	"github.com/noah-isme/curso-asistencia-api/pkg/rut"
)

type attendanceStore interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	ListEnrollments(ctx context.Context) ([]models.Enrollment, error)
	ListAttendance(ctx context.Context) ([]models.Attendance, error)
	AppendAttendance(ctx context.Context, attendance models.Attendance) error
	DeleteAttendance(ctx context.Context, id string) error
}

// AttendanceService implements the attendance ledger.
type AttendanceService struct {
	store     attendanceStore
	courses   courseResolver
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	clock     Clock
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(store attendanceStore, courses courseResolver, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, clock Clock) *AttendanceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		store:     store,
		courses:   courses,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		clock:     clock,
	}
}

// MarkPresent records a participant as present for a session. Self-service
// callers may only mark a session scheduled today; administrators may mark
// any session. Both require an enrollment in the course. A repeated mark
// returns the existing record with AlreadyRecorded set.
func (s *AttendanceService) MarkPresent(ctx context.Context, req models.MarkAttendanceRequest, actor models.Actor) (*models.MarkResult, error) {
	method := actor.Method()
	result, err := s.markPresent(ctx, req, actor)
	outcome := errorCode(err)
	if err == nil && result.AlreadyRecorded {
		outcome = OutcomeAlreadyRecorded
	}
	s.metrics.RecordAttendanceMark(string(method), outcome)
	return result, err
}

func (s *AttendanceService) markPresent(ctx context.Context, req models.MarkAttendanceRequest, actor models.Actor) (*models.MarkResult, error) {
	trimAll(&req.CourseID, &req.RUT)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if !ledger.ValidSession(req.Session) {
		return nil, fieldError(appErrors.ErrValidation, "sesion", "sesion must be 1, 2 or 3")
	}
	if !rut.Valid(req.RUT) {
		return nil, fieldError(appErrors.ErrInvalidRUT, "rut", "invalid participant RUT")
	}

	course, err := s.courses.Resolve(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.store.ListEnrollments(ctx)
	if err != nil {
		return nil, storeError(s.logger, "list_enrollments", err)
	}
	if len(ledger.EnrollmentsOf(enrollments, req.RUT, course.ID)) == 0 {
		return nil, appErrors.ErrNotEnrolled
	}

	now := s.clock.now()
	if actor != models.ActorAdmin {
		if !ledger.IsSessionOn(*course, req.Session, ledger.Today(now, s.clock.location())) {
			return nil, appErrors.ErrSessionNotToday
		}
	}

	if existing, found, err := s.findMark(ctx, course.ID, req.RUT, req.Session); err != nil {
		return nil, err
	} else if found {
		return &models.MarkResult{Attendance: &existing, AlreadyRecorded: true}, nil
	}

	mark := models.Attendance{
		ID:           uuid.NewString(),
		CourseID:     course.ID,
		RUT:          rut.Normalize(req.RUT),
		Session:      models.FlexInt(req.Session),
		RegisteredAt: ledger.Timestamp(now, s.clock.location()),
		State:        models.AttendancePresent,
		Method:       actor.Method(),
	}
	if err := s.store.AppendAttendance(ctx, mark); err != nil {
		if errors.Is(err, repository.ErrDuplicateRecord) {
			existing, found, findErr := s.findMark(ctx, course.ID, req.RUT, req.Session)
			if findErr == nil && found {
				return &models.MarkResult{Attendance: &existing, AlreadyRecorded: true}, nil
			}
		}
		return nil, storeError(s.logger, "append_attendance", err)
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, reportCacheKey(course.ID))
	}
	s.logger.Info("attendance recorded",
		zap.String("course_id", course.ID),
		zap.String("rut", mark.RUT),
		zap.Int("session", req.Session),
		zap.String("method", string(mark.Method)))
	return &models.MarkResult{Attendance: &mark}, nil
}

func (s *AttendanceService) findMark(ctx context.Context, courseID, participantRUT string, session int) (models.Attendance, bool, error) {
	all, err := s.store.ListAttendance(ctx)
	if err != nil {
		return models.Attendance{}, false, storeError(s.logger, "list_attendance", err)
	}
	mark, found := ledger.FindAttendance(all, courseID, participantRUT, session)
	return mark, found, nil
}

// SessionsToday returns the sessions scheduled today in the courses the
// participant is enrolled in, flagging the ones already recorded.
func (s *AttendanceService) SessionsToday(ctx context.Context, participantRUT string) (*models.ParticipantSessions, error) {
	participantRUT = strings.TrimSpace(participantRUT)
	if participantRUT == "" {
		return nil, fieldError(appErrors.ErrValidation, "rut", "rut is required")
	}
	if !rut.Valid(participantRUT) {
		return nil, fieldError(appErrors.ErrInvalidRUT, "rut", "invalid participant RUT")
	}

	enrollments, err := s.store.ListEnrollments(ctx)
	if err != nil {
		return nil, storeError(s.logger, "list_enrollments", err)
	}
	mine := ledger.EnrollmentsOf(enrollments, participantRUT, "")
	if len(mine) == 0 {
		return nil, appErrors.ErrNotEnrolled
	}
	enrolledIn := make(map[string]struct{}, len(mine))
	for _, e := range mine {
		enrolledIn[e.CourseID] = struct{}{}
	}

	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, storeError(s.logger, "list_courses", err)
	}
	eligible := make([]models.Course, 0, len(enrolledIn))
	for _, c := range courses {
		if _, ok := enrolledIn[c.ID]; ok {
			eligible = append(eligible, c)
		}
	}

	today := ledger.Today(s.clock.now(), s.clock.location())
	options := ledger.SessionsOn(eligible, today)
	if len(options) > 0 {
		marks, err := s.store.ListAttendance(ctx)
		if err != nil {
			return nil, storeError(s.logger, "list_attendance", err)
		}
		for i := range options {
			_, options[i].Recorded = ledger.FindAttendance(marks, options[i].CourseID, participantRUT, options[i].Session)
		}
	}
	if options == nil {
		options = []models.SessionOption{}
	}

	return &models.ParticipantSessions{
		RUT:      rut.Normalize(participantRUT),
		Name:     mine[len(mine)-1].FullName(),
		Today:    today,
		Sessions: options,
	}, nil
}

// List returns the attendance marks of a course, or of the active course
// when courseID is empty.
func (s *AttendanceService) List(ctx context.Context, courseID string) ([]models.Attendance, error) {
	course, err := s.courses.Resolve(ctx, courseID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListAttendance(ctx)
	if err != nil {
		return nil, storeError(s.logger, "list_attendance", err)
	}
	out := make([]models.Attendance, 0, len(all))
	for _, a := range all {
		if a.CourseID == course.ID {
			out = append(out, a)
		}
	}
	return out, nil
}

// Delete removes an attendance mark by id.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fieldError(appErrors.ErrValidation, "id", "id is required")
	}
	if err := s.store.DeleteAttendance(ctx, id); err != nil {
		return storeError(s.logger, "delete_attendance", err)
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, "report:course:*")
	}
	s.logger.Info("attendance deleted", zap.String("attendance_id", id))
	return nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/curso-asistencia-api/internal/ledger"
	"github.com/noah-isme/curso-asistencia-api/internal/models"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
	"github.com/noah-isme/curso-asistencia-api/pkg/export"
	"github.com/noah-isme/curso-asistencia-api/pkg/rut"
)

type reportStore interface {
	ListEnrollments(ctx context.Context) ([]models.Enrollment, error)
	ListAttendance(ctx context.Context) ([]models.Attendance, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportConfig tunes report derivation and caching.
type ReportConfig struct {
	ApprovalThreshold float64
	CacheTTL          time.Duration
	Clock             Clock
}

// ReportService derives attendance reports from the stored ledgers.
type ReportService struct {
	store   reportStore
	courses courseResolver
	cache   reportCache
	logger  *zap.Logger
	cfg     ReportConfig
}

// NewReportService constructs the report service.
func NewReportService(store reportStore, courses courseResolver, cache reportCache, logger *zap.Logger, cfg ReportConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ApprovalThreshold <= 0 {
		cfg.ApprovalThreshold = ledger.DefaultApprovalThreshold
	}
	return &ReportService{store: store, courses: courses, cache: cache, logger: logger, cfg: cfg}
}

// CourseReport returns the per-participant rows, the per-session statistics
// and the approval summary of a course.
func (s *ReportService) CourseReport(ctx context.Context, courseID string) (*models.CourseReport, error) {
	report, _, err := s.CourseReportCached(ctx, courseID)
	return report, err
}

// CourseReportCached is CourseReport that also reports whether the result
// came from the display cache.
func (s *ReportService) CourseReportCached(ctx context.Context, courseID string) (*models.CourseReport, bool, error) {
	course, err := s.courses.Resolve(ctx, courseID)
	if err != nil {
		return nil, false, err
	}

	key := reportCacheKey(course.ID)
	if s.cache != nil {
		var cached models.CourseReport
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	enrollments, attendance, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	rows := ledger.ComputeReport(course.ID, enrollments, attendance, s.cfg.ApprovalThreshold)
	report := &models.CourseReport{
		Course:      *course,
		Rows:        rows,
		Sessions:    ledger.SessionStats(*course, enrollments, attendance),
		Summary:     ledger.Summarize(rows),
		GeneratedAt: s.cfg.Clock.now().UTC(),
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, report, s.cfg.CacheTTL)
	}
	return report, false, nil
}

// Dataset renders the tabular export of a course for kind.
func (s *ReportService) Dataset(ctx context.Context, courseID string, kind models.ExportKind) (export.Dataset, error) {
	switch kind {
	case models.ExportAttendance:
		report, err := s.CourseReport(ctx, courseID)
		if err != nil {
			return export.Dataset{}, err
		}
		return attendanceDataset(report), nil
	case models.ExportRoster:
		course, err := s.courses.Resolve(ctx, courseID)
		if err != nil {
			return export.Dataset{}, err
		}
		enrollments, err := s.store.ListEnrollments(ctx)
		if err != nil {
			return export.Dataset{}, storeError(s.logger, "list_enrollments", err)
		}
		return rosterDataset(*course, ledger.CourseEnrollments(enrollments, course.ID)), nil
	default:
		return export.Dataset{}, fieldError(appErrors.ErrValidation, "tipo", fmt.Sprintf("unsupported export kind %q", kind))
	}
}

func (s *ReportService) load(ctx context.Context) ([]models.Enrollment, []models.Attendance, error) {
	enrollments, err := s.store.ListEnrollments(ctx)
	if err != nil {
		return nil, nil, storeError(s.logger, "list_enrollments", err)
	}
	attendance, err := s.store.ListAttendance(ctx)
	if err != nil {
		return nil, nil, storeError(s.logger, "list_attendance", err)
	}
	return enrollments, attendance, nil
}

var attendanceHeaders = []string{"RUT", "Nombre", "RUT Empresa", "Razón Social", "Sesión 1", "Sesión 2", "Sesión 3", "Porcentaje", "Estado"}

func attendanceDataset(report *models.CourseReport) export.Dataset {
	rows := make([]map[string]string, 0, len(report.Rows))
	for _, r := range report.Rows {
		rows = append(rows, map[string]string{
			"RUT":          rut.Format(r.RUT),
			"Nombre":       r.Name,
			"RUT Empresa":  rut.Format(r.CompanyRUT),
			"Razón Social": r.CompanyName,
			"Sesión 1":     string(r.Session1),
			"Sesión 2":     string(r.Session2),
			"Sesión 3":     string(r.Session3),
			"Porcentaje":   fmt.Sprintf("%.1f%%", r.Percentage),
			"Estado":       string(r.Status),
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Reporte de asistencia - %s", courseTitle(report.Course)),
		Headers: attendanceHeaders,
		Rows:    rows,
	}
}

var rosterHeaders = []string{"Fecha Registro", "RUT", "Nombres", "Apellido Paterno", "Apellido Materno", "Nacionalidad", "Rol",
	"RUT Empresa", "Razón Social", "Región", "Comuna", "Dirección", "Email", "Teléfono"}

func rosterDataset(course models.Course, enrollments []models.Enrollment) export.Dataset {
	rows := make([]map[string]string, 0, len(enrollments))
	for _, e := range enrollments {
		rows = append(rows, map[string]string{
			"Fecha Registro":   e.RegisteredAt,
			"RUT":              rut.Format(e.RUT),
			"Nombres":          e.FirstNames,
			"Apellido Paterno": e.PaternalSurname,
			"Apellido Materno": e.MaternalSurname,
			"Nacionalidad":     e.Nationality,
			"Rol":              e.Role,
			"RUT Empresa":      rut.Format(e.CompanyRUT),
			"Razón Social":     e.CompanyName,
			"Región":           e.Region,
			"Comuna":           e.Commune,
			"Dirección":        e.Address,
			"Email":            e.Email,
			"Teléfono":         e.Phone,
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Inscritos - %s", courseTitle(course)),
		Headers: rosterHeaders,
		Rows:    rows,
	}
}

func courseTitle(c models.Course) string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return c.ID
}

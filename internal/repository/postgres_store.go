package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
)

const uniqueViolation = "23505"

const courseColumns = `id, nombre, fecha_inicio, fecha_fin, fecha_sesion_1, fecha_sesion_2, fecha_sesion_3, region, cupo_maximo, estado`

const enrollmentColumns = `fecha_registro, curso_id, rut, nombres, apellido_paterno, apellido_materno, nacionalidad, rol,
rut_empresa, razon_social, region, comuna, direccion, email, telefono`

const attendanceColumns = `id, curso_id, rut, sesion, fecha_registro, estado, metodo`

// PostgresStore keeps the ledgers in PostgreSQL. Unlike the remote and blob
// stores it enforces the duplicate rules with unique indexes and checks
// capacity inside the insert transaction while holding a row lock on the
// course, so concurrent registrations cannot over-enroll.
type PostgresStore struct {
	db              *sqlx.DB
	defaultMaxSeats int
}

// NewPostgresStore wraps a connected database. defaultMaxSeats applies to
// courses stored without a capacity.
func NewPostgresStore(db *sqlx.DB, defaultMaxSeats int) *PostgresStore {
	return &PostgresStore{db: db, defaultMaxSeats: defaultMaxSeats}
}

// ListCourses implements Store.
func (s *PostgresStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	query := `SELECT ` + courseColumns + ` FROM cursos ORDER BY created_at, id`
	if err := s.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ActiveCourse implements Store.
func (s *PostgresStore) ActiveCourse(ctx context.Context) (*models.Course, error) {
	var course models.Course
	query := `SELECT ` + courseColumns + ` FROM cursos WHERE estado = $1 LIMIT 1`
	if err := s.db.GetContext(ctx, &course, query, models.CourseStatusActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active course: %w", err)
	}
	return &course, nil
}

// CreateCourse inserts the course; an active course deactivates the others
// in the same transaction.
func (s *PostgresStore) CreateCourse(ctx context.Context, course models.Course) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create course tx: %w", err)
	}
	if course.IsActive() {
		if _, err := tx.ExecContext(ctx, `UPDATE cursos SET estado = $1 WHERE estado = $2`, models.CourseStatusInactive, models.CourseStatusActive); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("deactivate courses: %w", err)
		}
	}
	const query = `INSERT INTO cursos (` + courseColumns + `)
VALUES (:id, :nombre, :fecha_inicio, :fecha_fin, :fecha_sesion_1, :fecha_sesion_2, :fecha_sesion_3, :region, :cupo_maximo, :estado)`
	if _, err := tx.NamedExecContext(ctx, query, course); err != nil {
		_ = tx.Rollback()
		return mapPQError(fmt.Errorf("insert course: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create course tx: %w", err)
	}
	return nil
}

// ActivateCourse marks courseID active and every other course inactive.
func (s *PostgresStore) ActivateCourse(ctx context.Context, courseID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate course tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE cursos SET estado = $1 WHERE estado = $2 AND id <> $3`, models.CourseStatusInactive, models.CourseStatusActive, courseID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("deactivate courses: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE cursos SET estado = $1 WHERE id = $2`, models.CourseStatusActive, courseID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("activate course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return ErrRecordNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activate course tx: %w", err)
	}
	return nil
}

// ListEnrollments implements Store.
func (s *PostgresStore) ListEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	query := `SELECT ` + enrollmentColumns + ` FROM registros ORDER BY seq`
	if err := s.db.SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// AppendEnrollment locks the course row, re-counts its enrollments and
// inserts only when a seat remains.
func (s *PostgresStore) AppendEnrollment(ctx context.Context, enrollment models.Enrollment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}

	var maxSeats int
	if err := tx.GetContext(ctx, &maxSeats, `SELECT cupo_maximo FROM cursos WHERE id = $1 FOR UPDATE`, enrollment.CourseID); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("lock course: %w", err)
	}
	if maxSeats <= 0 {
		maxSeats = s.defaultMaxSeats
	}

	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM registros WHERE curso_id = $1`, enrollment.CourseID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("count enrollments: %w", err)
	}
	if count >= maxSeats {
		_ = tx.Rollback()
		return ErrCapacityReached
	}

	const query = `INSERT INTO registros (` + enrollmentColumns + `)
VALUES (:fecha_registro, :curso_id, :rut, :nombres, :apellido_paterno, :apellido_materno, :nacionalidad, :rol,
:rut_empresa, :razon_social, :region, :comuna, :direccion, :email, :telefono)`
	if _, err := tx.NamedExecContext(ctx, query, enrollment); err != nil {
		_ = tx.Rollback()
		return mapPQError(fmt.Errorf("insert enrollment: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment tx: %w", err)
	}
	return nil
}

// ListAttendance implements Store.
func (s *PostgresStore) ListAttendance(ctx context.Context) ([]models.Attendance, error) {
	var marks []models.Attendance
	query := `SELECT ` + attendanceColumns + ` FROM asistencias ORDER BY seq`
	if err := s.db.SelectContext(ctx, &marks, query); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return marks, nil
}

// AppendAttendance implements Store. The (curso_id, rut, sesion) index turns
// a concurrent duplicate into ErrDuplicateRecord.
func (s *PostgresStore) AppendAttendance(ctx context.Context, attendance models.Attendance) error {
	const query = `INSERT INTO asistencias (` + attendanceColumns + `)
VALUES (:id, :curso_id, :rut, :sesion, :fecha_registro, :estado, :metodo)`
	if _, err := s.db.NamedExecContext(ctx, query, attendance); err != nil {
		return mapPQError(fmt.Errorf("insert attendance: %w", err))
	}
	return nil
}

// DeleteAttendance implements Store.
func (s *PostgresStore) DeleteAttendance(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM asistencias WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateRecord, pqErr.Constraint)
	}
	return err
}

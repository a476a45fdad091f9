package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
)

func newPostgresStoreMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresStore(sqlx.NewDb(db, "sqlmock"), 30), mock, func() { db.Close() }
}

func sampleEnrollment() models.Enrollment {
	return models.Enrollment{
		RegisteredAt: "2026-03-05 10:00:00", CourseID: "c1", RUT: "12345678-5",
		FirstNames: "Ana", PaternalSurname: "Pérez", MaternalSurname: "Soto",
		Nationality: "Chilena", Role: "TRABAJADOR", CompanyRUT: "76086428-5",
		CompanyName: "ACME", Region: "Valparaíso", Commune: "Viña del Mar", Address: "Calle 1",
	}
}

func TestPostgresStoreActiveCourse(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "nombre", "fecha_inicio", "fecha_fin", "fecha_sesion_1", "fecha_sesion_2", "fecha_sesion_3", "region", "cupo_maximo", "estado"}).
		AddRow("c1", "Curso", "2026-03-01", "2026-03-31", "2026-03-05", "", "", "Valparaíso", 20, "ACTIVO")
	mock.ExpectQuery("SELECT .* FROM cursos WHERE estado = \\$1").WithArgs(models.CourseStatusActive).WillReturnRows(rows)

	course, err := store.ActiveCourse(context.Background())
	require.NoError(t, err)
	require.NotNil(t, course)
	assert.Equal(t, models.FlexInt(20), course.MaxSeats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreActiveCourseNone(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM cursos WHERE estado").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	course, err := store.ActiveCourse(context.Background())
	require.NoError(t, err)
	assert.Nil(t, course)
}

func TestPostgresStoreAppendEnrollment(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT cupo_maximo FROM cursos WHERE id = \\$1 FOR UPDATE").WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"cupo_maximo"}).AddRow(2))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM registros").WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO registros").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.AppendEnrollment(context.Background(), sampleEnrollment()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreAppendEnrollmentCapacity(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT cupo_maximo FROM cursos").WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"cupo_maximo"}).AddRow(0))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM registros").WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	mock.ExpectRollback()

	err := store.AppendEnrollment(context.Background(), sampleEnrollment())
	require.ErrorIs(t, err, ErrCapacityReached)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreAppendEnrollmentDuplicate(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT cupo_maximo FROM cursos").WillReturnRows(sqlmock.NewRows([]string{"cupo_maximo"}).AddRow(10))
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO registros").WillReturnError(&pq.Error{Code: "23505", Constraint: "registros_curso_rut_empresa"})
	mock.ExpectRollback()

	err := store.AppendEnrollment(context.Background(), sampleEnrollment())
	require.ErrorIs(t, err, ErrDuplicateRecord)
}

func TestPostgresStoreActivateCourse(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cursos SET estado = \\$1 WHERE estado = \\$2 AND id <> \\$3").
		WithArgs(models.CourseStatusInactive, models.CourseStatusActive, "c9").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE cursos SET estado = \\$1 WHERE id = \\$2").
		WithArgs(models.CourseStatusActive, "c9").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	require.ErrorIs(t, store.ActivateCourse(context.Background(), "c9"), ErrRecordNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreAttendance(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO asistencias").WillReturnError(&pq.Error{Code: "23505"})
	err := store.AppendAttendance(context.Background(), models.Attendance{ID: "a1", CourseID: "c1", RUT: "12345678-5", Session: 1})
	require.ErrorIs(t, err, ErrDuplicateRecord)

	mock.ExpectExec("DELETE FROM asistencias WHERE id = \\$1").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, store.DeleteAttendance(context.Background(), "missing"), ErrRecordNotFound)

	mock.ExpectQuery("SELECT id, curso_id, rut, sesion").WillReturnRows(
		sqlmock.NewRows([]string{"id", "curso_id", "rut", "sesion", "fecha_registro", "estado", "metodo"}).
			AddRow("a1", "c1", "12345678-5", 3, "2026-03-05 10:00:00", "PRESENTE", "AUTOREGISTRO"))
	marks, err := store.ListAttendance(context.Background())
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, models.FlexInt(3), marks[0].Session)
	assert.Equal(t, models.MethodSelfService, marks[0].Method)
	require.NoError(t, mock.ExpectationsWereMet())
}

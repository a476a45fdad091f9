package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	"github.com/noah-isme/curso-asistencia-api/pkg/blob"
	"github.com/noah-isme/curso-asistencia-api/pkg/fieldcrypt"
)

var enrollmentHeaders = []string{
	"fecha_registro", "curso_id", "rut", "nombres", "apellido_paterno", "apellido_materno",
	"nacionalidad", "rol", "rut_empresa", "razon_social", "region", "comuna", "direccion",
	"email", "telefono",
}

var attendanceHeaders = []string{"id", "curso_id", "rut", "sesion", "fecha_registro", "estado", "metodo"}

// sealedColumns are the personally identifying enrollment columns encrypted
// at rest. RUTs stay in clear text because every lookup keys on them.
var sealedColumns = map[string]bool{
	"nombres":          true,
	"apellido_paterno": true,
	"apellido_materno": true,
	"direccion":        true,
	"email":            true,
	"telefono":         true,
}

// BlobPaths locates the three blobs of the store.
type BlobPaths struct {
	Records    string
	Attendance string
	Config     string
}

// configCourse is the course shape inside the JSON configuration blob.
type configCourse struct {
	ID           string         `json:"curso_id"`
	Name         string         `json:"nombre,omitempty"`
	StartDate    string         `json:"fecha_inicio"`
	EndDate      string         `json:"fecha_fin"`
	SessionDate1 string         `json:"fecha_sesion_1,omitempty"`
	SessionDate2 string         `json:"fecha_sesion_2,omitempty"`
	SessionDate3 string         `json:"fecha_sesion_3,omitempty"`
	Region       string         `json:"region,omitempty"`
	MaxSeats     models.FlexInt `json:"cupo_maximo,omitempty"`
	Status       string         `json:"estado"`
}

// BlobStore keeps enrollments and attendance as CSV blobs and courses as a
// JSON blob. Every mutation rewrites the whole blob, guarded by the content
// fingerprint read just before; a concurrent writer in between turns the
// write into ErrConflict. Validation done by callers before the append is
// not covered by that guard.
type BlobStore struct {
	bucket          blob.Bucket
	paths           BlobPaths
	cipher          *fieldcrypt.Cipher
	defaultMaxSeats int
	logger          *zap.Logger
	now             func() time.Time
}

// NewBlobStore wraps a bucket. A nil cipher stores every column in clear.
func NewBlobStore(bucket blob.Bucket, paths BlobPaths, cipher *fieldcrypt.Cipher, defaultMaxSeats int, logger *zap.Logger) *BlobStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlobStore{
		bucket:          bucket,
		paths:           paths,
		cipher:          cipher,
		defaultMaxSeats: defaultMaxSeats,
		logger:          logger,
		now:             time.Now,
	}
}

// ListCourses implements Store.
func (s *BlobStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, _, err := s.readCourses(ctx)
	return courses, err
}

// ActiveCourse implements Store.
func (s *BlobStore) ActiveCourse(ctx context.Context) (*models.Course, error) {
	courses, _, err := s.readCourses(ctx)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		if courses[i].IsActive() {
			return &courses[i], nil
		}
	}
	return nil, nil
}

// CreateCourse implements Store.
func (s *BlobStore) CreateCourse(ctx context.Context, course models.Course) error {
	courses, fp, err := s.readCourses(ctx)
	if err != nil {
		return err
	}
	for _, c := range courses {
		if c.ID == course.ID {
			return fmt.Errorf("%w: course %s", ErrDuplicateRecord, course.ID)
		}
	}
	if course.IsActive() {
		for i := range courses {
			courses[i].Status = models.CourseStatusInactive
		}
	}
	courses = append(courses, course)
	return s.writeCourses(ctx, courses, fp, fmt.Sprintf("Creación curso %s %s", course.ID, s.stamp()))
}

// ActivateCourse implements Store.
func (s *BlobStore) ActivateCourse(ctx context.Context, courseID string) error {
	courses, fp, err := s.readCourses(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range courses {
		if courses[i].ID == courseID {
			courses[i].Status = models.CourseStatusActive
			found = true
		} else {
			courses[i].Status = models.CourseStatusInactive
		}
	}
	if !found {
		return ErrRecordNotFound
	}
	return s.writeCourses(ctx, courses, fp, fmt.Sprintf("Activación de curso %s", courseID))
}

// ListEnrollments implements Store.
func (s *BlobStore) ListEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	rows, _, err := s.readTable(ctx, s.paths.Records)
	if err != nil {
		return nil, err
	}
	enrollments := make([]models.Enrollment, 0, len(rows))
	for _, row := range rows {
		if err := s.openRow(row); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enrollmentFromRow(row))
	}
	return enrollments, nil
}

// AppendEnrollment implements Store.
func (s *BlobStore) AppendEnrollment(ctx context.Context, enrollment models.Enrollment) error {
	rows, fp, err := s.readTable(ctx, s.paths.Records)
	if err != nil {
		return err
	}
	row := enrollmentToRow(enrollment)
	if err := s.sealRow(row); err != nil {
		return err
	}
	rows = append(rows, row)
	return s.writeTable(ctx, s.paths.Records, enrollmentHeaders, rows, fp, fmt.Sprintf("Nuevo registro %s", s.stamp()))
}

// ListAttendance implements Store.
func (s *BlobStore) ListAttendance(ctx context.Context) ([]models.Attendance, error) {
	rows, _, err := s.readTable(ctx, s.paths.Attendance)
	if err != nil {
		return nil, err
	}
	marks := make([]models.Attendance, 0, len(rows))
	for _, row := range rows {
		marks = append(marks, attendanceFromRow(row))
	}
	return marks, nil
}

// AppendAttendance implements Store.
func (s *BlobStore) AppendAttendance(ctx context.Context, attendance models.Attendance) error {
	rows, fp, err := s.readTable(ctx, s.paths.Attendance)
	if err != nil {
		return err
	}
	rows = append(rows, attendanceToRow(attendance))
	msg := fmt.Sprintf("Asistencia %s sesión %d %s", attendance.RUT, attendance.Session, s.stamp())
	return s.writeTable(ctx, s.paths.Attendance, attendanceHeaders, rows, fp, msg)
}

// DeleteAttendance implements Store.
func (s *BlobStore) DeleteAttendance(ctx context.Context, id string) error {
	rows, fp, err := s.readTable(ctx, s.paths.Attendance)
	if err != nil {
		return err
	}
	kept := rows[:0]
	for _, row := range rows {
		if row["id"] != id {
			kept = append(kept, row)
		}
	}
	if len(kept) == len(rows) {
		return ErrRecordNotFound
	}
	return s.writeTable(ctx, s.paths.Attendance, attendanceHeaders, kept, fp, fmt.Sprintf("Eliminación asistencia %s", id))
}

// ChangeLog reads the per-write commit log of the enrollment ledger. Only the
// blob backends keep one.
type ChangeLog interface {
	History(ctx context.Context, limit int) ([]models.LedgerChange, error)
}

var _ ChangeLog = (*BlobStore)(nil)

// History lists recent commits of the enrollment blob, newest first.
func (s *BlobStore) History(ctx context.Context, limit int) ([]models.LedgerChange, error) {
	commits, err := s.bucket.History(ctx, s.paths.Records, limit)
	if err != nil {
		return nil, err
	}
	changes := make([]models.LedgerChange, 0, len(commits))
	for _, c := range commits {
		changes = append(changes, models.LedgerChange{Message: c.Message, Fingerprint: c.Fingerprint, At: c.At})
	}
	return changes, nil
}

func (s *BlobStore) readCourses(ctx context.Context) ([]models.Course, string, error) {
	obj, err := s.bucket.Get(ctx, s.paths.Config)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("read course config: %w", err)
	}
	var raw []configCourse
	if len(bytes.TrimSpace(obj.Data)) > 0 {
		if err := json.Unmarshal(obj.Data, &raw); err != nil {
			return nil, "", fmt.Errorf("decode course config: %w", err)
		}
	}
	courses := make([]models.Course, 0, len(raw))
	for _, c := range raw {
		courses = append(courses, models.Course{
			ID:           c.ID,
			Name:         c.Name,
			StartDate:    c.StartDate,
			EndDate:      c.EndDate,
			SessionDate1: c.SessionDate1,
			SessionDate2: c.SessionDate2,
			SessionDate3: c.SessionDate3,
			Region:       c.Region,
			MaxSeats:     c.MaxSeats,
			Status:       models.CourseStatus(strings.ToUpper(c.Status)),
		})
	}
	return courses, obj.Fingerprint, nil
}

// writeCourses also backfills missing capacities with the default.
func (s *BlobStore) writeCourses(ctx context.Context, courses []models.Course, fp, message string) error {
	raw := make([]configCourse, 0, len(courses))
	for _, c := range courses {
		if c.MaxSeats <= 0 {
			c.MaxSeats = models.FlexInt(s.defaultMaxSeats)
		}
		raw = append(raw, configCourse{
			ID:           c.ID,
			Name:         c.Name,
			StartDate:    c.StartDate,
			EndDate:      c.EndDate,
			SessionDate1: c.SessionDate1,
			SessionDate2: c.SessionDate2,
			SessionDate3: c.SessionDate3,
			Region:       c.Region,
			MaxSeats:     c.MaxSeats,
			Status:       string(c.Status),
		})
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode course config: %w", err)
	}
	return s.put(ctx, s.paths.Config, data, fp, message)
}

func (s *BlobStore) readTable(ctx context.Context, path string) ([]map[string]string, string, error) {
	obj, err := s.bucket.Get(ctx, path)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	rows, err := decodeCSV(obj.Data)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", path, err)
	}
	return rows, obj.Fingerprint, nil
}

func (s *BlobStore) writeTable(ctx context.Context, path string, headers []string, rows []map[string]string, fp, message string) error {
	data, err := encodeCSV(headers, rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return s.put(ctx, path, data, fp, message)
}

func (s *BlobStore) put(ctx context.Context, path string, data []byte, fp, message string) error {
	if _, err := s.bucket.Put(ctx, path, data, fp, message); err != nil {
		if errors.Is(err, blob.ErrFingerprintMismatch) {
			s.logger.Warn("blob changed concurrently", zap.String("path", path))
			return fmt.Errorf("%w: %s", ErrConflict, path)
		}
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *BlobStore) sealRow(row map[string]string) error {
	for col := range sealedColumns {
		sealed, err := s.cipher.Seal(row[col])
		if err != nil {
			return fmt.Errorf("seal %s: %w", col, err)
		}
		row[col] = sealed
	}
	return nil
}

func (s *BlobStore) openRow(row map[string]string) error {
	for col := range sealedColumns {
		plain, err := s.cipher.Open(row[col])
		if err != nil {
			return fmt.Errorf("open %s: %w", col, err)
		}
		row[col] = plain
	}
	return nil
}

func (s *BlobStore) stamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func decodeCSV(data []byte) ([]map[string]string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	var rows []map[string]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func encodeCSV(headers []string, rows []map[string]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(headers); err != nil {
		return nil, err
	}
	record := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			record[i] = row[h]
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func enrollmentToRow(e models.Enrollment) map[string]string {
	return map[string]string{
		"fecha_registro":   e.RegisteredAt,
		"curso_id":         e.CourseID,
		"rut":              e.RUT,
		"nombres":          e.FirstNames,
		"apellido_paterno": e.PaternalSurname,
		"apellido_materno": e.MaternalSurname,
		"nacionalidad":     e.Nationality,
		"rol":              e.Role,
		"rut_empresa":      e.CompanyRUT,
		"razon_social":     e.CompanyName,
		"region":           e.Region,
		"comuna":           e.Commune,
		"direccion":        e.Address,
		"email":            e.Email,
		"telefono":         e.Phone,
	}
}

func enrollmentFromRow(row map[string]string) models.Enrollment {
	return models.Enrollment{
		RegisteredAt:    row["fecha_registro"],
		CourseID:        row["curso_id"],
		RUT:             row["rut"],
		FirstNames:      row["nombres"],
		PaternalSurname: row["apellido_paterno"],
		MaternalSurname: row["apellido_materno"],
		Nationality:     row["nacionalidad"],
		Role:            row["rol"],
		CompanyRUT:      row["rut_empresa"],
		CompanyName:     row["razon_social"],
		Region:          row["region"],
		Commune:         row["comuna"],
		Address:         row["direccion"],
		Email:           row["email"],
		Phone:           row["telefono"],
	}
}

func attendanceToRow(a models.Attendance) map[string]string {
	return map[string]string{
		"id":             a.ID,
		"curso_id":       a.CourseID,
		"rut":            a.RUT,
		"sesion":         strconv.Itoa(int(a.Session)),
		"fecha_registro": a.RegisteredAt,
		"estado":         string(a.State),
		"metodo":         string(a.Method),
	}
}

func attendanceFromRow(row map[string]string) models.Attendance {
	session, _ := strconv.Atoi(strings.TrimSpace(row["sesion"]))
	return models.Attendance{
		ID:           row["id"],
		CourseID:     row["curso_id"],
		RUT:          row["rut"],
		Session:      models.FlexInt(session),
		RegisteredAt: row["fecha_registro"],
		State:        models.AttendanceState(row["estado"]),
		Method:       models.AttendanceMethod(row["metodo"]),
	}
}

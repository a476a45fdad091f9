package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	"github.com/noah-isme/curso-asistencia-api/pkg/middleware/requestid"
)

// Remote API actions.
const (
	actionGetConfig        = "getConfig"
	actionGetRegistros     = "getRegistros"
	actionGetAsistencias   = "getAsistencias"
	actionGetCursoActivo   = "getCursoActivo"
	actionAddRegistro      = "addRegistro"
	actionAddAsistencia    = "addAsistencia"
	actionDeleteAsistencia = "deleteAsistencia"
	actionAddCurso         = "addCurso"
	actionActivarCurso     = "activarCurso"
)

const maxResponseBytes = 16 << 20

// RemoteError is a well-formed response with success=false.
type RemoteError struct {
	Action  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s failed: %s", e.Action, e.Message)
}

// Unwrap lets callers match remote failures with errors.Is(err, ErrUpstream).
func (e *RemoteError) Unwrap() error { return ErrUpstream }

type apiEnvelope struct {
	Success     bool                `json:"success"`
	Error       string              `json:"error"`
	Cursos      []models.Course     `json:"cursos"`
	Registros   []models.Enrollment `json:"registros"`
	Asistencias []models.Attendance `json:"asistencias"`
	Curso       *models.Course      `json:"curso"`
}

// APIStore talks to the remote data API: GET with ?action=&key= for reads and
// POST with a JSON body for writes. It provides no transactional guarantees;
// every check-then-append is best effort.
type APIStore struct {
	baseURL string
	key     string
	client  *http.Client
	logger  *zap.Logger
}

// NewAPIStore builds a client for baseURL. A zero timeout defaults to 15s.
func NewAPIStore(baseURL, key string, timeout time.Duration, logger *zap.Logger) *APIStore {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIStore{
		baseURL: baseURL,
		key:     key,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ListCourses implements Store.
func (s *APIStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	env, err := s.get(ctx, actionGetConfig)
	if err != nil {
		return nil, err
	}
	return env.Cursos, nil
}

// ActiveCourse implements Store.
func (s *APIStore) ActiveCourse(ctx context.Context) (*models.Course, error) {
	env, err := s.get(ctx, actionGetCursoActivo)
	if err != nil {
		return nil, err
	}
	if env.Curso == nil || env.Curso.ID == "" {
		return nil, nil
	}
	return env.Curso, nil
}

// CreateCourse implements Store.
func (s *APIStore) CreateCourse(ctx context.Context, course models.Course) error {
	_, err := s.post(ctx, actionAddCurso, course)
	return err
}

// ActivateCourse implements Store.
func (s *APIStore) ActivateCourse(ctx context.Context, courseID string) error {
	_, err := s.post(ctx, actionActivarCurso, map[string]string{"curso_id": courseID})
	return err
}

// ListEnrollments implements Store.
func (s *APIStore) ListEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	env, err := s.get(ctx, actionGetRegistros)
	if err != nil {
		return nil, err
	}
	return env.Registros, nil
}

// AppendEnrollment implements Store.
func (s *APIStore) AppendEnrollment(ctx context.Context, enrollment models.Enrollment) error {
	_, err := s.post(ctx, actionAddRegistro, enrollment)
	return err
}

// ListAttendance implements Store.
func (s *APIStore) ListAttendance(ctx context.Context) ([]models.Attendance, error) {
	env, err := s.get(ctx, actionGetAsistencias)
	if err != nil {
		return nil, err
	}
	return env.Asistencias, nil
}

// AppendAttendance implements Store.
func (s *APIStore) AppendAttendance(ctx context.Context, attendance models.Attendance) error {
	_, err := s.post(ctx, actionAddAsistencia, attendance)
	return err
}

// DeleteAttendance implements Store.
func (s *APIStore) DeleteAttendance(ctx context.Context, id string) error {
	_, err := s.post(ctx, actionDeleteAsistencia, map[string]string{"asistencia_id": id})
	return err
}

// Ping issues a cheap read so readiness checks can report the remote state.
func (s *APIStore) Ping(ctx context.Context) error {
	_, err := s.get(ctx, actionGetCursoActivo)
	return err
}

func (s *APIStore) get(ctx context.Context, action string) (*apiEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(action), nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", action, err)
	}
	return s.do(req, action)
}

func (s *APIStore) post(ctx context.Context, action string, payload interface{}) (*apiEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(action), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, action)
}

func (s *APIStore) do(req *http.Request, action string) (*apiEnvelope, error) {
	req.Header.Set("Accept", "application/json")
	if id := requestid.FromContext(req.Context()); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("remote api call failed", zap.String("action", action), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, action, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", ErrUpstream, action, err)
	}
	s.logger.Debug("remote api call",
		zap.String("action", action),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: decode %s response (status %d): %v", ErrUpstream, action, resp.StatusCode, err)
	}
	if !env.Success {
		msg := strings.TrimSpace(env.Error)
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, &RemoteError{Action: action, Message: msg}
	}
	return &env, nil
}

func (s *APIStore) endpoint(action string) string {
	q := url.Values{}
	q.Set("action", action)
	q.Set("key", s.key)
	sep := "?"
	if strings.Contains(s.baseURL, "?") {
		sep = "&"
	}
	return s.baseURL + sep + q.Encode()
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curso-asistencia-api/internal/middleware"
	"github.com/noah-isme/curso-asistencia-api/internal/models"
	"github.com/noah-isme/curso-asistencia-api/internal/service"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
)

type reporterMock struct {
	report *models.CourseReport
	hit    bool
	err    error
}

func (m *reporterMock) CourseReportCached(_ context.Context, _ string) (*models.CourseReport, bool, error) {
	return m.report, m.hit, m.err
}

type exportJobServiceMock struct {
	createReq   models.ExportRequest
	createResp  *models.ExportJob
	createErr   error
	statusResp  *models.ExportJob
	statusErr   error
	download    *service.ExportDownload
	downloadErr error
}

func (m *exportJobServiceMock) CreateJob(_ context.Context, _ string, req models.ExportRequest) (*models.ExportJob, error) {
	m.createReq = req
	return m.createResp, m.createErr
}

func (m *exportJobServiceMock) GetStatus(_ context.Context, _ string) (*models.ExportJob, error) {
	return m.statusResp, m.statusErr
}

func (m *exportJobServiceMock) ResolveDownload(_ context.Context, _ string) (*service.ExportDownload, error) {
	return m.download, m.downloadErr
}

func TestReportHandlerCourseReportCacheMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(&reporterMock{report: &models.CourseReport{}, hit: true}, nil)

	c, w := newGinContext(http.MethodGet, "/reports/courses/C1", nil)
	c.Params = gin.Params{{Key: "id", Value: "C1"}}
	middleware.WithResponseMeta()(c)
	h.CourseReport(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
}

func TestReportHandlerCourseReportNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(&reporterMock{err: appErrors.Clone(appErrors.ErrNotFound, "course not found")}, nil)

	c, w := newGinContext(http.MethodGet, "/reports/courses/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	h.CourseReport(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandlerCreateExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportJobServiceMock{createResp: &models.ExportJob{ID: "job-1", Status: models.ExportQueued}}
	h := NewReportHandler(nil, mockSvc)

	payload, _ := json.Marshal(models.ExportRequest{Kind: models.ExportAttendance, Format: "csv"})
	c, w := newGinContext(http.MethodPost, "/reports/courses/C1/exports", payload)
	c.Params = gin.Params{{Key: "id", Value: "C1"}}
	h.CreateExport(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.ExportAttendance, mockSvc.createReq.Kind)
}

func TestReportHandlerExportStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportJobServiceMock{statusResp: &models.ExportJob{ID: "job-1", Status: models.ExportFinished}}
	h := NewReportHandler(nil, mockSvc)

	c, w := newGinContext(http.MethodGet, "/reports/exports/job-1", nil)
	c.Params = gin.Params{{Key: "jobId", Value: "job-1"}}
	h.ExportStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	var job models.ExportJob
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &job))
	assert.Equal(t, models.ExportFinished, job.Status)
}

func TestReportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "asistencia.csv")
	require.NoError(t, os.WriteFile(path, []byte("rut,nombre\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	mockSvc := &exportJobServiceMock{download: &service.ExportDownload{
		File:        file,
		Filename:    "asistencia.csv",
		ContentType: "text/csv",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	h := NewReportHandler(nil, mockSvc)

	c, w := newGinContext(http.MethodGet, "/export/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}
	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "asistencia.csv")
	assert.Equal(t, "rut,nombre\n", w.Body.String())
}

func TestReportHandlerDownloadForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(nil, &exportJobServiceMock{downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid download token")})

	c, w := newGinContext(http.MethodGet, "/export/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	h.Download(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

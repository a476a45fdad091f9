package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	"github.com/noah-isme/curso-asistencia-api/pkg/middleware/requestid"
)

func TestAPIStoreReads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "req-1", r.Header.Get(requestid.Header))
		switch r.URL.Query().Get("action") {
		case "getConfig":
			_, _ = io.WriteString(w, `{"success":true,"cursos":[{"id":"c1","cupo_maximo":"25","estado":"ACTIVO","fecha_sesion_1":"2026-03-05T03:00:00.000Z"}]}`)
		case "getCursoActivo":
			_, _ = io.WriteString(w, `{"success":true,"curso":null}`)
		case "getRegistros":
			_, _ = io.WriteString(w, `{"success":true,"registros":[{"curso_id":"c1","rut":"12345678-5","rut_empresa":"76086428-5"}]}`)
		case "getAsistencias":
			_, _ = io.WriteString(w, `{"success":true,"asistencias":[{"id":"a1","curso_id":"c1","rut":"12345678-5","sesion":"2"}]}`)
		default:
			t.Errorf("unexpected action %s", r.URL.RawQuery)
		}
	}))
	defer srv.Close()

	store := NewAPIStore(srv.URL, "secret", time.Second, nil)
	ctx := requestid.WithValue(context.Background(), "req-1")

	courses, err := store.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, models.FlexInt(25), courses[0].MaxSeats)
	assert.True(t, courses[0].IsActive())

	active, err := store.ActiveCourse(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	enrollments, err := store.ListEnrollments(ctx)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "76086428-5", enrollments[0].CompanyRUT)

	marks, err := store.ListAttendance(ctx)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, models.FlexInt(2), marks[0].Session)
}

func TestAPIStoreWritesPostJSON(t *testing.T) {
	var gotAction string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotAction = r.URL.Query().Get("action")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	store := NewAPIStore(srv.URL, "k", time.Second, nil)
	require.NoError(t, store.DeleteAttendance(context.Background(), "a1"))
	assert.Equal(t, "deleteAsistencia", gotAction)
	assert.Equal(t, "a1", gotBody["asistencia_id"])

	require.NoError(t, store.AppendAttendance(context.Background(), models.Attendance{ID: "a2", CourseID: "c1", RUT: "12345678-5", Session: 1, Method: models.MethodManual}))
	assert.Equal(t, "addAsistencia", gotAction)
	assert.Equal(t, "MANUAL", gotBody["metodo"])

	require.NoError(t, store.ActivateCourse(context.Background(), "c1"))
	assert.Equal(t, "activarCurso", gotAction)
	assert.Equal(t, "c1", gotBody["curso_id"])
}

func TestAPIStoreErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "getConfig":
			_, _ = io.WriteString(w, `{"success":false,"error":"invalid key"}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `<html>bad gateway</html>`)
		}
	}))
	defer srv.Close()

	store := NewAPIStore(srv.URL, "k", time.Second, nil)

	_, err := store.ListCourses(context.Background())
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "invalid key", remote.Message)
	assert.ErrorIs(t, err, ErrUpstream)

	_, err = store.ListEnrollments(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)

	srv.Close()
	_, err = store.ListAttendance(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
}

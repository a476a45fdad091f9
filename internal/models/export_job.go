package models

import "time"

// ExportKind selects the dataset rendered by an export job.
type ExportKind string

const (
	ExportAttendance ExportKind = "asistencia"
	ExportRoster     ExportKind = "inscritos"
)

// Valid reports whether the kind is supported.
func (k ExportKind) Valid() bool {
	return k == ExportAttendance || k == ExportRoster
}

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportQueued     ExportStatus = "QUEUED"
	ExportProcessing ExportStatus = "PROCESSING"
	ExportFinished   ExportStatus = "FINISHED"
	ExportFailed     ExportStatus = "FAILED"
)

// ExportRequest asks for a course export.
type ExportRequest struct {
	Kind   ExportKind `json:"tipo" validate:"required,oneof=asistencia inscritos"`
	Format string     `json:"formato" validate:"required,oneof=csv pdf"`
}

// ExportJob is the tracked state of an asynchronous export.
type ExportJob struct {
	ID          string       `db:"id" json:"id"`
	CourseID    string       `db:"curso_id" json:"curso_id"`
	Kind        ExportKind   `db:"tipo" json:"tipo"`
	Format      string       `db:"formato" json:"formato"`
	Status      ExportStatus `db:"estado" json:"estado"`
	DownloadURL string       `db:"download_url" json:"download_url,omitempty"`
	ExpiresAt   *time.Time   `db:"expires_at" json:"expires_at,omitempty"`
	Error       string       `db:"error_message" json:"error,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	FinishedAt  *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}

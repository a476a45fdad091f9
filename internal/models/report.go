package models

import "time"

// ApprovalStatus is derived from the attendance percentage.
type ApprovalStatus string

const (
	StatusApproved ApprovalStatus = "APROBADO"
	StatusRejected ApprovalStatus = "REPROBADO"
)

// ReportRow is the derived attendance line of one enrollment.
type ReportRow struct {
	RUT         string          `json:"rut"`
	Name        string          `json:"nombre"`
	CompanyRUT  string          `json:"rut_empresa"`
	CompanyName string          `json:"razon_social"`
	Session1    AttendanceState `json:"sesion_1"`
	Session2    AttendanceState `json:"sesion_2"`
	Session3    AttendanceState `json:"sesion_3"`
	Percentage  float64         `json:"porcentaje"`
	Status      ApprovalStatus  `json:"estado"`
}

// Sessions returns the per-session states in order.
func (r ReportRow) Sessions() [SessionCount]AttendanceState {
	return [SessionCount]AttendanceState{r.Session1, r.Session2, r.Session3}
}

// SessionStat summarises presence for one session.
type SessionStat struct {
	Session    int     `json:"sesion"`
	Date       string  `json:"fecha"`
	Present    int     `json:"presentes"`
	Total      int     `json:"total_inscritos"`
	Percentage float64 `json:"porcentaje"`
}

// ApprovalSummary counts approved and rejected participants.
type ApprovalSummary struct {
	Total              int     `json:"total"`
	Approved           int     `json:"aprobados"`
	Rejected           int     `json:"reprobados"`
	ApprovedPercentage float64 `json:"porcentaje_aprobados"`
	RejectedPercentage float64 `json:"porcentaje_reprobados"`
}

// CourseReport bundles everything the report endpoint returns.
type CourseReport struct {
	Course      Course          `json:"curso"`
	Rows        []ReportRow     `json:"filas"`
	Sessions    []SessionStat   `json:"sesiones"`
	Summary     ApprovalSummary `json:"resumen"`
	GeneratedAt time.Time       `json:"generado_en"`
}

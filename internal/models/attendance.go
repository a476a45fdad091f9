package models

// AttendanceState is always PRESENTE when stored; absence is derived.
type AttendanceState string

const (
	AttendancePresent AttendanceState = "PRESENTE"
	AttendanceAbsent  AttendanceState = "AUSENTE"
)

// AttendanceMethod tags how an attendance mark was captured.
type AttendanceMethod string

const (
	MethodManual      AttendanceMethod = "MANUAL"
	MethodSelfService AttendanceMethod = "AUTOREGISTRO"
)

// Actor is the capability of the caller marking attendance.
type Actor string

const (
	ActorAdmin       Actor = "ADMIN"
	ActorSelfService Actor = "SELF_SERVICE"
)

// Method maps the actor onto the stored method tag.
func (a Actor) Method() AttendanceMethod {
	if a == ActorAdmin {
		return MethodManual
	}
	return MethodSelfService
}

// Attendance is a stored presence mark for one session.
type Attendance struct {
	ID           string           `db:"id" json:"id"`
	CourseID     string           `db:"curso_id" json:"curso_id"`
	RUT          string           `db:"rut" json:"rut"`
	Session      FlexInt          `db:"sesion" json:"sesion"`
	RegisteredAt string           `db:"fecha_registro" json:"fecha_registro"`
	State        AttendanceState  `db:"estado" json:"estado"`
	Method       AttendanceMethod `db:"metodo" json:"metodo"`
}

// MarkAttendanceRequest marks a participant present for a session. An empty
// CourseID targets the active course.
type MarkAttendanceRequest struct {
	CourseID string `json:"curso_id"`
	RUT      string `json:"rut" validate:"required"`
	Session  int    `json:"sesion" validate:"required"`
}

// MarkResult reports the outcome of a mark. AlreadyRecorded means an
// existing mark for the same session was found and nothing was appended.
type MarkResult struct {
	Attendance      *Attendance `json:"asistencia,omitempty"`
	AlreadyRecorded bool        `json:"ya_registrada"`
}

// SessionOption is a session a participant may mark today.
type SessionOption struct {
	CourseID   string `json:"curso_id"`
	CourseName string `json:"curso_nombre"`
	Session    int    `json:"sesion"`
	Date       string `json:"fecha"`
	Recorded   bool   `json:"registrada"`
}

// ParticipantSessions is the self-service lookup result.
type ParticipantSessions struct {
	RUT      string          `json:"rut"`
	Name     string          `json:"nombre"`
	Today    string          `json:"hoy"`
	Sessions []SessionOption `json:"sesiones"`
}

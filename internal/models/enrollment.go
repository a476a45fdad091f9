package models

import (
	"strings"
	"time"
)

// Participant roles accepted on registration.
var ParticipantRoles = []string{
	"TRABAJADOR",
	"PROFESIONAL SST",
	"MIEMBRO DE COMITÉ PARITARIO",
	"MONITOR O DELEGADO",
	"DIRIGENTE SINDICAL",
	"EMPLEADOR",
	"TRABAJADOR DEL OA",
	"OTROS",
}

// Enrollment is one participant registration for a course under a company.
type Enrollment struct {
	RegisteredAt    string `db:"fecha_registro" json:"fecha_registro"`
	CourseID        string `db:"curso_id" json:"curso_id"`
	RUT             string `db:"rut" json:"rut"`
	FirstNames      string `db:"nombres" json:"nombres"`
	PaternalSurname string `db:"apellido_paterno" json:"apellido_paterno"`
	MaternalSurname string `db:"apellido_materno" json:"apellido_materno"`
	Nationality     string `db:"nacionalidad" json:"nacionalidad"`
	Role            string `db:"rol" json:"rol"`
	CompanyRUT      string `db:"rut_empresa" json:"rut_empresa"`
	CompanyName     string `db:"razon_social" json:"razon_social"`
	Region          string `db:"region" json:"region"`
	Commune         string `db:"comuna" json:"comuna"`
	Address         string `db:"direccion" json:"direccion"`
	Email           string `db:"email" json:"email,omitempty"`
	Phone           string `db:"telefono" json:"telefono,omitempty"`
}

// FullName joins the name fields for reports and greetings.
func (e Enrollment) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.FirstNames, e.PaternalSurname, e.MaternalSurname} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// RegisterRequest carries the participant and company data of a registration.
// Field order is the order in which missing fields are reported.
type RegisterRequest struct {
	CourseID        string `json:"curso_id"`
	RUT             string `json:"rut" validate:"required"`
	FirstNames      string `json:"nombres" validate:"required"`
	PaternalSurname string `json:"apellido_paterno" validate:"required"`
	MaternalSurname string `json:"apellido_materno" validate:"required"`
	Nationality     string `json:"nacionalidad" validate:"required"`
	Role            string `json:"rol" validate:"required"`
	CompanyRUT      string `json:"rut_empresa" validate:"required"`
	CompanyName     string `json:"razon_social" validate:"required"`
	Region          string `json:"region" validate:"required"`
	Commune         string `json:"comuna" validate:"required"`
	Address         string `json:"direccion" validate:"required"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"telefono"`
}

// SeatAvailability reports the capacity of a course at read time.
type SeatAvailability struct {
	CourseID  string `json:"curso_id"`
	MaxSeats  int    `json:"cupo_maximo"`
	Enrolled  int    `json:"inscritos"`
	Remaining int    `json:"cupos_disponibles"`
}

// LedgerChange is one recorded write to the enrollment ledger.
type LedgerChange struct {
	Message     string    `json:"mensaje"`
	Fingerprint string    `json:"huella"`
	At          time.Time `json:"fecha"`
}

package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CourseStatus flags whether a course accepts self-service operations.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "ACTIVO"
	CourseStatusInactive CourseStatus = "INACTIVO"
)

// SessionCount is the fixed number of sessions a course may schedule.
const SessionCount = 3

// Course is a scheduled training course.
type Course struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"nombre" json:"nombre"`
	StartDate    string       `db:"fecha_inicio" json:"fecha_inicio"`
	EndDate      string       `db:"fecha_fin" json:"fecha_fin"`
	SessionDate1 string       `db:"fecha_sesion_1" json:"fecha_sesion_1"`
	SessionDate2 string       `db:"fecha_sesion_2" json:"fecha_sesion_2"`
	SessionDate3 string       `db:"fecha_sesion_3" json:"fecha_sesion_3"`
	Region       string       `db:"region" json:"region"`
	MaxSeats     FlexInt      `db:"cupo_maximo" json:"cupo_maximo"`
	Status       CourseStatus `db:"estado" json:"estado"`
}

// SessionDates returns the raw configured dates of sessions 1..3.
func (c Course) SessionDates() [SessionCount]string {
	return [SessionCount]string{c.SessionDate1, c.SessionDate2, c.SessionDate3}
}

// SessionDate returns the raw date of session n, or "" when out of range.
func (c Course) SessionDate(n int) string {
	if n < 1 || n > SessionCount {
		return ""
	}
	return c.SessionDates()[n-1]
}

// IsActive reports whether the course is the active one.
func (c Course) IsActive() bool {
	return strings.EqualFold(string(c.Status), string(CourseStatusActive))
}

// CreateCourseRequest is the administrator payload for a new course. The
// stored identifier is ID suffixed with the compact start and end dates.
type CreateCourseRequest struct {
	ID           string  `json:"id" validate:"required,max=64"`
	Name         string  `json:"nombre" validate:"required"`
	StartDate    string  `json:"fecha_inicio" validate:"required,datetime=2006-01-02"`
	EndDate      string  `json:"fecha_fin" validate:"required,datetime=2006-01-02"`
	SessionDate1 string  `json:"fecha_sesion_1" validate:"omitempty,datetime=2006-01-02"`
	SessionDate2 string  `json:"fecha_sesion_2" validate:"omitempty,datetime=2006-01-02"`
	SessionDate3 string  `json:"fecha_sesion_3" validate:"omitempty,datetime=2006-01-02"`
	Region       string  `json:"region"`
	MaxSeats     FlexInt `json:"cupo_maximo" validate:"gte=0"`
}

// FlexInt decodes from a JSON number or a numeric string, which is how the
// remote API returns capacity fields. Empty strings and null decode to 0.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*f = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*f = 0
			return nil
		}
	}
	if n, err := strconv.Atoi(raw); err == nil {
		*f = FlexInt(n)
		return nil
	}
	fl, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q", raw)
	}
	*f = FlexInt(int(fl))
	return nil
}

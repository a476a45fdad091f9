package ledger

import (
	"github.com/noah-isme/curso-asistencia-api/internal/models"
	"github.com/noah-isme/curso-asistencia-api/pkg/rut"
)

// EnrollmentKey is the de-duplication fingerprint of an enrollment within a
// course: the participant RUT paired with the company RUT.
func EnrollmentKey(participantRUT, companyRUT string) string {
	return rut.Normalize(participantRUT) + "|" + rut.Normalize(companyRUT)
}

// CourseEnrollments filters enrollments down to courseID, keeping order.
func CourseEnrollments(all []models.Enrollment, courseID string) []models.Enrollment {
	out := make([]models.Enrollment, 0, len(all))
	for _, e := range all {
		if e.CourseID == courseID {
			out = append(out, e)
		}
	}
	return out
}

// CountEnrollments counts enrollments under courseID.
func CountEnrollments(all []models.Enrollment, courseID string) int {
	n := 0
	for _, e := range all {
		if e.CourseID == courseID {
			n++
		}
	}
	return n
}

// SeatsRemaining is max seats minus current enrollments; it may go negative
// when concurrent writers over-enrolled a course.
func SeatsRemaining(course models.Course, all []models.Enrollment) int {
	return int(course.MaxSeats) - CountEnrollments(all, course.ID)
}

// FindEnrollment returns the enrollment matching the de-duplication key.
func FindEnrollment(all []models.Enrollment, courseID, participantRUT, companyRUT string) (models.Enrollment, bool) {
	key := EnrollmentKey(participantRUT, companyRUT)
	for _, e := range all {
		if e.CourseID == courseID && EnrollmentKey(e.RUT, e.CompanyRUT) == key {
			return e, true
		}
	}
	return models.Enrollment{}, false
}

// EnrollmentsOf returns every enrollment of a participant, optionally
// restricted to courseID when it is non-empty.
func EnrollmentsOf(all []models.Enrollment, participantRUT, courseID string) []models.Enrollment {
	target := rut.Normalize(participantRUT)
	var out []models.Enrollment
	for _, e := range all {
		if courseID != "" && e.CourseID != courseID {
			continue
		}
		if rut.Normalize(e.RUT) == target {
			out = append(out, e)
		}
	}
	return out
}

// FindAttendance returns the mark for (course, rut, session) if present.
func FindAttendance(all []models.Attendance, courseID, participantRUT string, session int) (models.Attendance, bool) {
	target := rut.Normalize(participantRUT)
	for _, a := range all {
		if a.CourseID == courseID && int(a.Session) == session && rut.Normalize(a.RUT) == target {
			return a, true
		}
	}
	return models.Attendance{}, false
}

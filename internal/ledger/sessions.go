package ledger

import "github.com/noah-isme/curso-asistencia-api/internal/models"

// SessionsOn lists every (course, session) pair whose configured date
// normalises to day. Several sessions on the same day each produce an entry.
func SessionsOn(courses []models.Course, day string) []models.SessionOption {
	day = NormalizeDate(day)
	var out []models.SessionOption
	if day == "" {
		return out
	}
	for _, c := range courses {
		for i, raw := range c.SessionDates() {
			if NormalizeDate(raw) != day {
				continue
			}
			out = append(out, models.SessionOption{
				CourseID:   c.ID,
				CourseName: c.Name,
				Session:    i + 1,
				Date:       day,
			})
		}
	}
	return out
}

// IsSessionOn reports whether session n of course is scheduled on day.
func IsSessionOn(course models.Course, session int, day string) bool {
	raw := course.SessionDate(session)
	return raw != "" && NormalizeDate(raw) == NormalizeDate(day)
}

// ValidSession reports whether n is a session number.
func ValidSession(n int) bool {
	return n >= 1 && n <= models.SessionCount
}

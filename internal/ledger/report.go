package ledger

import (
	"math"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	"github.com/noah-isme/curso-asistencia-api/pkg/rut"
)

// DefaultApprovalThreshold is the minimum percentage for APROBADO.
const DefaultApprovalThreshold = 75.0

// Percentage returns part/total*100 rounded to one decimal, 0 when total is 0.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

// Approval maps a percentage onto the approval status.
func Approval(percentage, threshold float64) models.ApprovalStatus {
	if percentage >= threshold {
		return models.StatusApproved
	}
	return models.StatusRejected
}

// ComputeReport derives one row per enrollment of courseID, in enrollment
// order. Sessions outside 1..3 are ignored.
func ComputeReport(courseID string, enrollments []models.Enrollment, attendance []models.Attendance, threshold float64) []models.ReportRow {
	if threshold <= 0 {
		threshold = DefaultApprovalThreshold
	}
	present := presenceIndex(courseID, attendance)

	rows := make([]models.ReportRow, 0, len(enrollments))
	for _, e := range enrollments {
		if e.CourseID != courseID {
			continue
		}
		sessions := present[rut.Normalize(e.RUT)]
		var states [models.SessionCount]models.AttendanceState
		attended := 0
		for i := range states {
			if sessions[i] {
				states[i] = models.AttendancePresent
				attended++
			} else {
				states[i] = models.AttendanceAbsent
			}
		}
		pct := Percentage(attended, models.SessionCount)
		rows = append(rows, models.ReportRow{
			RUT:         e.RUT,
			Name:        e.FullName(),
			CompanyRUT:  e.CompanyRUT,
			CompanyName: e.CompanyName,
			Session1:    states[0],
			Session2:    states[1],
			Session3:    states[2],
			Percentage:  pct,
			Status:      Approval(pct, threshold),
		})
	}
	return rows
}

// SessionStats counts, per session, the distinct enrolled participants marked
// present against the number of distinct enrolled participants.
func SessionStats(course models.Course, enrollments []models.Enrollment, attendance []models.Attendance) []models.SessionStat {
	enrolled := make(map[string]struct{})
	for _, e := range enrollments {
		if e.CourseID == course.ID {
			enrolled[rut.Normalize(e.RUT)] = struct{}{}
		}
	}
	present := presenceIndex(course.ID, attendance)

	stats := make([]models.SessionStat, 0, models.SessionCount)
	for i, date := range course.SessionDates() {
		count := 0
		for r := range enrolled {
			if present[r][i] {
				count++
			}
		}
		stats = append(stats, models.SessionStat{
			Session:    i + 1,
			Date:       NormalizeDate(date),
			Present:    count,
			Total:      len(enrolled),
			Percentage: Percentage(count, len(enrolled)),
		})
	}
	return stats
}

// Summarize counts approved and rejected rows.
func Summarize(rows []models.ReportRow) models.ApprovalSummary {
	summary := models.ApprovalSummary{Total: len(rows)}
	for _, r := range rows {
		if r.Status == models.StatusApproved {
			summary.Approved++
		} else {
			summary.Rejected++
		}
	}
	summary.ApprovedPercentage = Percentage(summary.Approved, summary.Total)
	summary.RejectedPercentage = Percentage(summary.Rejected, summary.Total)
	return summary
}

func presenceIndex(courseID string, attendance []models.Attendance) map[string][models.SessionCount]bool {
	idx := make(map[string][models.SessionCount]bool)
	for _, a := range attendance {
		s := int(a.Session)
		if a.CourseID != courseID || !ValidSession(s) {
			continue
		}
		if a.State != "" && a.State != models.AttendancePresent {
			continue
		}
		key := rut.Normalize(a.RUT)
		marks := idx[key]
		marks[s-1] = true
		idx[key] = marks
	}
	return idx
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

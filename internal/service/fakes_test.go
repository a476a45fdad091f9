package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/curso-asistencia-api/internal/models"
	"github.com/noah-isme/curso-asistencia-api/internal/repository"
)

const (
	rutAna     = "12.345.678-5"
	rutLuis    = "11111111-1"
	rutCompany = "76.086.428-5"
	rutOther   = "22222222-2"
)

var fixedNow = time.Date(2024, 3, 10, 10, 30, 0, 0, time.UTC)

func fixedClock() Clock {
	return Clock{Now: func() time.Time { return fixedNow }, Location: time.UTC}
}

type fakeStore struct {
	mu sync.Mutex

	courses     []models.Course
	enrollments []models.Enrollment
	attendance  []models.Attendance

	// enrollmentReads, when set, is served one entry per ListEnrollments call.
	enrollmentReads [][]models.Enrollment

	listErr             error
	appendEnrollmentErr error
	appendAttendanceErr error

	enrollmentAppends int
	attendanceAppends int
}

func (f *fakeStore) ListCourses(context.Context) ([]models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Course(nil), f.courses...), nil
}

func (f *fakeStore) ActiveCourse(context.Context) (*models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	for _, c := range f.courses {
		if c.IsActive() {
			course := c
			return &course, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateCourse(_ context.Context, course models.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if course.IsActive() {
		for i := range f.courses {
			f.courses[i].Status = models.CourseStatusInactive
		}
	}
	f.courses = append(f.courses, course)
	return nil
}

func (f *fakeStore) ActivateCourse(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for i := range f.courses {
		if f.courses[i].ID == id {
			found = true
		}
	}
	if !found {
		return repository.ErrRecordNotFound
	}
	for i := range f.courses {
		if f.courses[i].ID == id {
			f.courses[i].Status = models.CourseStatusActive
		} else {
			f.courses[i].Status = models.CourseStatusInactive
		}
	}
	return nil
}

func (f *fakeStore) ListEnrollments(context.Context) ([]models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.enrollmentReads) > 0 {
		next := f.enrollmentReads[0]
		f.enrollmentReads = f.enrollmentReads[1:]
		return append([]models.Enrollment(nil), next...), nil
	}
	return append([]models.Enrollment(nil), f.enrollments...), nil
}

func (f *fakeStore) AppendEnrollment(_ context.Context, e models.Enrollment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendEnrollmentErr != nil {
		return f.appendEnrollmentErr
	}
	f.enrollmentAppends++
	f.enrollments = append(f.enrollments, e)
	return nil
}

func (f *fakeStore) ListAttendance(context.Context) ([]models.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Attendance(nil), f.attendance...), nil
}

func (f *fakeStore) AppendAttendance(_ context.Context, a models.Attendance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendAttendanceErr != nil {
		return f.appendAttendanceErr
	}
	f.attendanceAppends++
	f.attendance = append(f.attendance, a)
	return nil
}

func (f *fakeStore) DeleteAttendance(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.attendance {
		if a.ID == id {
			f.attendance = append(f.attendance[:i], f.attendance[i+1:]...)
			return nil
		}
	}
	return repository.ErrRecordNotFound
}

type fakeInvalidator struct {
	patterns []string
}

func (f *fakeInvalidator) Invalidate(_ context.Context, pattern string) error {
	f.patterns = append(f.patterns, pattern)
	return nil
}

func activeCourse(id string, seats int, sessions ...string) models.Course {
	c := models.Course{
		ID:        id,
		Name:      "Curso " + id,
		StartDate: "2024-03-01",
		EndDate:   "2024-03-31",
		MaxSeats:  models.FlexInt(seats),
		Status:    models.CourseStatusActive,
	}
	for i, d := range sessions {
		switch i {
		case 0:
			c.SessionDate1 = d
		case 1:
			c.SessionDate2 = d
		case 2:
			c.SessionDate3 = d
		}
	}
	return c
}

func enrollment(courseID, participant, company string) models.Enrollment {
	return models.Enrollment{
		CourseID:        courseID,
		RUT:             participant,
		FirstNames:      "Ana",
		PaternalSurname: "Pérez",
		MaternalSurname: "Soto",
		CompanyRUT:      company,
		CompanyName:     "Constructora Sur",
	}
}

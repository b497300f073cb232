package testutil

import (
	"testing"

	"github.com/trezcool/schooladmin/core/session"
)

const (
	AdminEmail    = "admin@sunrise.test"
	AdminPassword = "secret1"
)

// Fixture is a seeded school with one admin, one teacher, one class and one student.
type Fixture struct {
	SchoolID  string
	UserID    string
	TeacherID string
	ClassID   string
	StudentID string
}

// SeedSchool creates the "Sunrise Academy" fixture.
func SeedSchool(t *testing.T, b *Backend) Fixture {
	t.Helper()
	fx := Fixture{SchoolID: b.AddSchool("Sunrise Academy")}
	fx.UserID = b.AddAdmin(AdminEmail, AdminPassword, "Neema", fx.SchoolID)

	teacher := b.Add(fx.SchoolID, "teachers", Record{
		"name":              "Wanjiru Kamau",
		"email":             "wanjiru@sunrise.test",
		"invitation_status": "accepted",
	})
	fx.TeacherID = teacher["id"].(string)

	class := b.Add(fx.SchoolID, "classes", Record{"name": "Sunflowers", "teacher_id": fx.TeacherID})
	fx.ClassID = class["id"].(string)

	student := b.Add(fx.SchoolID, "students", Record{
		"name":                "Amani",
		"class_id":            fx.ClassID,
		"icon_sequence":       []int{2, 4, 6, 8},
		"registration_status": "registered",
	})
	fx.StudentID = student["id"].(string)
	return fx
}

// SignedIn returns the session of a seeded admin, with a fresh token.
func SignedIn(t *testing.T, b *Backend, email, userID, schoolID string) session.Session {
	t.Helper()
	return session.Session{AccessToken: b.Token(email), SchoolID: schoolID, UserID: userID, Email: email}
}

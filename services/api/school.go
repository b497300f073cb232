package apisvc

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/schooladmin/core/icon"
	"github.com/trezcool/schooladmin/core/school"
)

// resource is one CRUD collection of a school, e.g. teachers.
type resource struct {
	name string // path segment and listing key
	one  string // key of a wrapped single entity
}

var (
	teachers  = resource{name: "teachers", one: "teacher"}
	locations = resource{name: "locations", one: "location"}
	classes   = resource{name: "classes", one: "class"}
	students  = resource{name: "students", one: "student"}
	admins    = resource{name: "admins", one: "admin"}
)

func (r resource) collection() string { return "/api/schools/{id}/" + r.name }

func (r resource) item() string { return r.collection() + "/{itemId}" }

func (c *Client) list(ctx context.Context, r resource, schoolID string, out interface{}) error {
	body, err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: r.collection(),
		path:     schoolPath(schoolID, r.name),
	})
	if err != nil {
		return err
	}
	return decodeList(body, r.name, out)
}

func (c *Client) create(ctx context.Context, r resource, schoolID string, payload url.Values, out interface{}) error {
	body, err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: r.collection(),
		path:     schoolPath(schoolID, r.name),
		form:     payload,
	})
	if err != nil {
		return err
	}
	return decodeOne(body, r.one, out)
}

func (c *Client) update(ctx context.Context, r resource, schoolID, id string, payload url.Values, out interface{}) error {
	body, err := c.do(ctx, request{
		method:   http.MethodPut,
		endpoint: r.item(),
		path:     schoolPath(schoolID, r.name, id),
		form:     payload,
	})
	if err != nil {
		return err
	}
	return decodeOne(body, r.one, out)
}

func (c *Client) delete(ctx context.Context, r resource, schoolID, id string) error {
	_, err := c.do(ctx, request{
		method:   http.MethodDelete,
		endpoint: r.item(),
		path:     schoolPath(schoolID, r.name, id),
	})
	return err
}

func (c *Client) resendInvitation(ctx context.Context, r resource, schoolID, id string) (school.InvitationResult, error) {
	body, err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: r.item() + "/resend-invitation",
		path:     schoolPath(schoolID, r.name, id, "resend-invitation"),
	})
	if err != nil {
		return school.InvitationResult{}, err
	}
	var res school.InvitationResult
	err = decodeOne(body, "", &res)
	return res, err
}

// teachers

func (c *Client) Teachers(ctx context.Context, schoolID string) ([]school.Teacher, error) {
	var ts []school.Teacher
	err := c.list(ctx, teachers, schoolID, &ts)
	return ts, err
}

func (c *Client) AddTeacher(ctx context.Context, schoolID string, payload url.Values) (school.Teacher, error) {
	var t school.Teacher
	err := c.create(ctx, teachers, schoolID, payload, &t)
	return t, err
}

func (c *Client) UpdateTeacher(ctx context.Context, schoolID, teacherID string, payload url.Values) (school.Teacher, error) {
	var t school.Teacher
	err := c.update(ctx, teachers, schoolID, teacherID, payload, &t)
	return t, err
}

func (c *Client) DeleteTeacher(ctx context.Context, schoolID, teacherID string) error {
	return c.delete(ctx, teachers, schoolID, teacherID)
}

func (c *Client) ResendTeacherInvitation(ctx context.Context, schoolID, teacherID string) (school.InvitationResult, error) {
	return c.resendInvitation(ctx, teachers, schoolID, teacherID)
}

// locations

func (c *Client) Locations(ctx context.Context, schoolID string) ([]school.Location, error) {
	var ls []school.Location
	err := c.list(ctx, locations, schoolID, &ls)
	return ls, err
}

func (c *Client) AddLocation(ctx context.Context, schoolID string, payload url.Values) (school.Location, error) {
	var l school.Location
	err := c.create(ctx, locations, schoolID, payload, &l)
	return l, err
}

func (c *Client) UpdateLocation(ctx context.Context, schoolID, locationID string, payload url.Values) (school.Location, error) {
	var l school.Location
	err := c.update(ctx, locations, schoolID, locationID, payload, &l)
	return l, err
}

func (c *Client) DeleteLocation(ctx context.Context, schoolID, locationID string) error {
	return c.delete(ctx, locations, schoolID, locationID)
}

// classes

func (c *Client) Classes(ctx context.Context, schoolID string) ([]school.Class, error) {
	var cs []school.Class
	err := c.list(ctx, classes, schoolID, &cs)
	return cs, err
}

func (c *Client) AddClass(ctx context.Context, schoolID string, payload url.Values) (school.Class, error) {
	var cl school.Class
	err := c.create(ctx, classes, schoolID, payload, &cl)
	return cl, err
}

func (c *Client) UpdateClass(ctx context.Context, schoolID, classID string, payload url.Values) (school.Class, error) {
	var cl school.Class
	err := c.update(ctx, classes, schoolID, classID, payload, &cl)
	return cl, err
}

func (c *Client) DeleteClass(ctx context.Context, schoolID, classID string) error {
	return c.delete(ctx, classes, schoolID, classID)
}

// students

func (c *Client) Students(ctx context.Context, schoolID string) ([]school.Student, error) {
	var ss []school.Student
	err := c.list(ctx, students, schoolID, &ss)
	return ss, err
}

func (c *Client) AddStudent(ctx context.Context, schoolID string, payload url.Values) (school.Student, error) {
	var s school.Student
	err := c.create(ctx, students, schoolID, payload, &s)
	return s, err
}

func (c *Client) UpdateStudent(ctx context.Context, schoolID, studentID string, payload url.Values) (school.Student, error) {
	var s school.Student
	err := c.update(ctx, students, schoolID, studentID, payload, &s)
	return s, err
}

func (c *Client) DeleteStudent(ctx context.Context, schoolID, studentID string) error {
	return c.delete(ctx, students, schoolID, studentID)
}

// AvailableIconSequence asks the backend for a registration code no student of the
// school uses yet. The order of the ids is returned as received.
func (c *Client) AvailableIconSequence(ctx context.Context, schoolID, studentName string) (icon.Sequence, error) {
	body, err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: students.collection() + "/available-icon-sequence",
		path:     schoolPath(schoolID, "students", "available-icon-sequence"),
		query:    url.Values{"student_name": {strings.TrimSpace(studentName)}},
	})
	if err != nil {
		return nil, err
	}
	var res icon.IconSequence
	if err := decodeOne(body, "", &res); err != nil {
		return nil, err
	}
	if res.Sequence.Empty() {
		return nil, errors.New("empty icon sequence in response")
	}
	return res.Sequence, nil
}

// team

func (c *Client) TeamMembers(ctx context.Context, schoolID string) ([]school.TeamMember, error) {
	var ms []school.TeamMember
	err := c.list(ctx, admins, schoolID, &ms)
	return ms, err
}

func (c *Client) InviteTeamMember(ctx context.Context, schoolID string, payload url.Values) (school.TeamMember, error) {
	body, err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: admins.collection() + "/invite",
		path:     schoolPath(schoolID, admins.name, "invite"),
		form:     payload,
	})
	if err != nil {
		return school.TeamMember{}, err
	}
	var m school.TeamMember
	err = decodeOne(body, admins.one, &m)
	return m, err
}

func (c *Client) UpdateTeamMember(ctx context.Context, schoolID, adminID string, payload url.Values) (school.TeamMember, error) {
	var m school.TeamMember
	err := c.update(ctx, admins, schoolID, adminID, payload, &m)
	return m, err
}

func (c *Client) DeleteTeamMember(ctx context.Context, schoolID, adminID string) error {
	return c.delete(ctx, admins, schoolID, adminID)
}

func (c *Client) ResendTeamInvitation(ctx context.Context, schoolID, adminID string) (school.InvitationResult, error) {
	return c.resendInvitation(ctx, admins, schoolID, adminID)
}

// dashboard

func (c *Client) Dashboard(ctx context.Context, schoolID string) (school.Dashboard, error) {
	body, err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: "/api/schools/{id}/dashboard",
		path:     schoolPath(schoolID, "dashboard"),
	})
	if err != nil {
		return school.Dashboard{}, err
	}
	var d school.Dashboard
	err = decodeOne(body, "", &d)
	return d, err
}

package school

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/trezcool/schooladmin/core/icon"
)

// backendMock keeps one school in memory and records every call with its payload.
type backendMock struct {
	mu sync.Mutex

	auth      AuthResult
	roles     []SchoolRole
	teachers  []Teacher
	locations []Location
	classes   []Class
	students  []Student
	members   []TeamMember
	theme     Theme
	payments  []Payment
	status    PaymentStatus
	dashboard Dashboard
	sequence  icon.Sequence
	resend    InvitationResult

	errs     map[string]error
	calls    []string
	payloads map[string]url.Values
}

func newBackendMock() *backendMock {
	return &backendMock{errs: map[string]error{}, payloads: map[string]url.Values{}}
}

func (m *backendMock) record(name string, payload url.Values) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	if payload != nil {
		m.payloads[name] = payload
	}
	return m.errs[name]
}

func (m *backendMock) payload(name string) url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payloads[name]
}

func (m *backendMock) called(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (m *backendMock) AvailableIconSequence(_ context.Context, _, _ string) (icon.Sequence, error) {
	if err := m.record("AvailableIconSequence", nil); err != nil {
		return nil, err
	}
	return m.sequence.Clone(), nil
}

func (m *backendMock) SignIn(_ context.Context, payload url.Values) (AuthResult, error) {
	return m.auth, m.record("SignIn", payload)
}

func (m *backendMock) SignUp(_ context.Context, payload url.Values) (AuthResult, error) {
	return m.auth, m.record("SignUp", payload)
}

func (m *backendMock) RequestPasswordReset(_ context.Context, payload url.Values) (Ack, error) {
	return Ack{Message: "check your inbox"}, m.record("RequestPasswordReset", payload)
}

func (m *backendMock) AcceptInvitation(_ context.Context, payload url.Values) (AuthResult, error) {
	return m.auth, m.record("AcceptInvitation", payload)
}

func (m *backendMock) SchoolRoles(context.Context) ([]SchoolRole, error) {
	return m.roles, m.record("SchoolRoles", nil)
}

func (m *backendMock) Teachers(context.Context, string) ([]Teacher, error) {
	return m.teachers, m.record("Teachers", nil)
}

func (m *backendMock) AddTeacher(_ context.Context, _ string, payload url.Values) (Teacher, error) {
	t := Teacher{ID: "t" + strconv.Itoa(len(m.teachers)+1), Name: payload.Get("name"), Email: payload.Get("email")}
	return t, m.record("AddTeacher", payload)
}

func (m *backendMock) UpdateTeacher(_ context.Context, _, id string, payload url.Values) (Teacher, error) {
	return Teacher{ID: id}, m.record("UpdateTeacher", payload)
}

func (m *backendMock) DeleteTeacher(context.Context, string, string) error {
	return m.record("DeleteTeacher", nil)
}

func (m *backendMock) ResendTeacherInvitation(context.Context, string, string) (InvitationResult, error) {
	return m.resend, m.record("ResendTeacherInvitation", nil)
}

func (m *backendMock) Locations(context.Context, string) ([]Location, error) {
	return m.locations, m.record("Locations", nil)
}

func (m *backendMock) AddLocation(_ context.Context, _ string, payload url.Values) (Location, error) {
	return Location{ID: "l1", Name: payload.Get("name")}, m.record("AddLocation", payload)
}

func (m *backendMock) UpdateLocation(_ context.Context, _, id string, payload url.Values) (Location, error) {
	return Location{ID: id}, m.record("UpdateLocation", payload)
}

func (m *backendMock) DeleteLocation(context.Context, string, string) error {
	return m.record("DeleteLocation", nil)
}

func (m *backendMock) Classes(context.Context, string) ([]Class, error) {
	return m.classes, m.record("Classes", nil)
}

func (m *backendMock) AddClass(_ context.Context, _ string, payload url.Values) (Class, error) {
	return Class{ID: "c1", Name: payload.Get("name")}, m.record("AddClass", payload)
}

func (m *backendMock) UpdateClass(_ context.Context, _, id string, payload url.Values) (Class, error) {
	return Class{ID: id}, m.record("UpdateClass", payload)
}

func (m *backendMock) DeleteClass(context.Context, string, string) error {
	return m.record("DeleteClass", nil)
}

func (m *backendMock) Students(context.Context, string) ([]Student, error) {
	return m.students, m.record("Students", nil)
}

func (m *backendMock) AddStudent(_ context.Context, _ string, payload url.Values) (Student, error) {
	seq, _ := icon.ParseSequence(payload.Get("icon_sequence"))
	s := Student{ID: "s1", Name: payload.Get("name"), ClassID: payload.Get("class_id"), IconSequence: seq}
	return s, m.record("AddStudent", payload)
}

func (m *backendMock) UpdateStudent(_ context.Context, _, id string, payload url.Values) (Student, error) {
	return Student{ID: id}, m.record("UpdateStudent", payload)
}

func (m *backendMock) DeleteStudent(context.Context, string, string) error {
	return m.record("DeleteStudent", nil)
}

func (m *backendMock) TeamMembers(context.Context, string) ([]TeamMember, error) {
	return m.members, m.record("TeamMembers", nil)
}

func (m *backendMock) InviteTeamMember(_ context.Context, _ string, payload url.Values) (TeamMember, error) {
	mem := TeamMember{InvitationID: "i1", Name: payload.Get("name"), Email: payload.Get("email")}
	mem.InvitationStatus = InvitationPending
	return mem, m.record("InviteTeamMember", payload)
}

func (m *backendMock) UpdateTeamMember(_ context.Context, _, id string, payload url.Values) (TeamMember, error) {
	return TeamMember{ID: id}, m.record("UpdateTeamMember", payload)
}

func (m *backendMock) DeleteTeamMember(context.Context, string, string) error {
	return m.record("DeleteTeamMember", nil)
}

func (m *backendMock) ResendTeamInvitation(context.Context, string, string) (InvitationResult, error) {
	return m.resend, m.record("ResendTeamInvitation", nil)
}

func (m *backendMock) Theme(context.Context, string) (Theme, error) {
	return m.theme, m.record("Theme", nil)
}

func (m *backendMock) UpdateTheme(_ context.Context, _ string, theme Theme) (Theme, error) {
	m.theme = theme
	return theme, m.record("UpdateTheme", nil)
}

func (m *backendMock) UploadBrandingAsset(_ context.Context, _ string, asset BrandingAsset) (BrandingResult, error) {
	return BrandingResult{URL: "https://cdn.test/" + asset.Filename, AssetType: asset.AssetType}, m.record("UploadBrandingAsset", nil)
}

func (m *backendMock) Payments(context.Context, string) ([]Payment, error) {
	return m.payments, m.record("Payments", nil)
}

func (m *backendMock) PaymentStatus(context.Context, string) (PaymentStatus, error) {
	return m.status, m.record("PaymentStatus", nil)
}

func (m *backendMock) CreatePayment(_ context.Context, _ string, p PaymentForm) (Payment, error) {
	return Payment{ID: "p1", Amount: p.Amount, Currency: p.Currency}, m.record("CreatePayment", nil)
}

func (m *backendMock) Dashboard(context.Context, string) (Dashboard, error) {
	return m.dashboard, m.record("Dashboard", nil)
}

package school

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schooladmin/core"
	"github.com/trezcool/schooladmin/core/icon"
	"github.com/trezcool/schooladmin/core/session"
	sessionstore "github.com/trezcool/schooladmin/storage/session"
)

func newTestService(t *testing.T, backend *backendMock, sess session.Session) (*Service, *session.Manager) {
	t.Helper()
	mgr, err := session.NewManager(sessionstore.NewMemoryStore(sess))
	require.NoError(t, err)
	gen := icon.NewGenerator(backend, icon.GeneratorOptions{})
	return NewService(backend, mgr, gen, nil), mgr
}

var signedIn = session.Session{AccessToken: "token", SchoolID: "school-1", UserID: "u1"}

func TestService_SignIn(t *testing.T) {
	backend := newBackendMock()
	backend.auth = AuthResult{AccessToken: "tok", SchoolID: "school-1", UserID: "u1"}
	svc, mgr := newTestService(t, backend, session.Session{})

	_, err := svc.SignIn(context.Background(), SignInForm{Email: "bad"})
	require.Error(t, err)
	assert.False(t, backend.called("SignIn"), "invalid forms never reach the backend")

	_, err = svc.SignIn(context.Background(), SignInForm{Email: "Admin@School.test", Password: "pwd"})
	require.NoError(t, err)
	assert.Equal(t, session.Session{AccessToken: "tok", SchoolID: "school-1", UserID: "u1", Email: "admin@school.test"}, mgr.Current())

	require.NoError(t, svc.SignOut())
	assert.False(t, mgr.Current().Authenticated())

	backend.auth = AuthResult{}
	_, err = svc.SignIn(context.Background(), SignInForm{Email: "admin@school.test", Password: "pwd"})
	assert.Equal(t, ErrNoAccessToken, err)
}

func TestService_SignUp(t *testing.T) {
	backend := newBackendMock()
	backend.auth = AuthResult{EmailConfirmationRequired: true, Email: "a@school.test"}
	svc, mgr := newTestService(t, backend, session.Session{})

	form := SignUpForm{Email: "a@school.test", Password: "secret", ConfirmPassword: "secret", Name: "Ana", SchoolName: "Hill"}
	res, err := svc.SignUp(context.Background(), form)
	require.NoError(t, err)
	assert.True(t, res.EmailConfirmationRequired)
	assert.False(t, mgr.Current().Authenticated())

	backend.auth = AuthResult{AccessToken: "tok", SchoolID: "school-9", UserID: "u9"}
	_, err = svc.SignUp(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "school-9", mgr.SchoolID())
}

func TestService_AcceptInvitation(t *testing.T) {
	backend := newBackendMock()
	backend.auth = AuthResult{AccessToken: "tok", SchoolID: "school-1", Email: "kofi@school.test"}
	svc, mgr := newTestService(t, backend, session.Session{})

	_, err := svc.AcceptInvitation(context.Background(), InvitationAcceptForm{Token: "abc", Name: "Kofi", Password: "secret", ConfirmPassword: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "tok", mgr.Token())
	assert.Equal(t, "abc", backend.payload("AcceptInvitation").Get("token"))
}

func TestService_Schools(t *testing.T) {
	backend := newBackendMock()
	backend.roles = []SchoolRole{{SchoolID: "school-2", SchoolName: "Hill"}}
	svc, mgr := newTestService(t, backend, session.Session{AccessToken: "tok"})

	roles, err := svc.Schools(context.Background())
	require.NoError(t, err)
	assert.Len(t, roles, 1)
	assert.Equal(t, "school-2", mgr.SchoolID(), "single school is auto-selected")

	backend.roles = append(backend.roles, SchoolRole{SchoolID: "school-3"})
	role, err := svc.SelectSchool(context.Background(), "school-3")
	require.NoError(t, err)
	assert.Equal(t, "Unnamed School", role.DisplayName())
	assert.Equal(t, "school-3", mgr.SchoolID())

	_, err = svc.SelectSchool(context.Background(), "school-4")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "school-3", mgr.SchoolID())

	backend.roles = nil
	_, err = svc.Schools(context.Background())
	assert.Equal(t, ErrNoSchools, err)
}

func TestService_requiresSchool(t *testing.T) {
	backend := newBackendMock()

	svc, _ := newTestService(t, backend, session.Session{})
	_, err := svc.Teachers(context.Background())
	assert.Equal(t, core.ErrUnauthenticated, err)

	svc, _ = newTestService(t, backend, session.Session{AccessToken: "tok"})
	_, err = svc.Students(context.Background())
	assert.Equal(t, core.ErrNoSchool, err)

	assert.Empty(t, backend.calls)
}

func TestService_Dashboard(t *testing.T) {
	backend := newBackendMock()
	backend.dashboard = Dashboard{SchoolLevel: SchoolLevel{ActiveStudents: 12}}
	backend.locations = []Location{
		{ID: "l1", Name: "Main"},
		{ID: "l2", Name: "Annex", IsActive: null.BoolFrom(false)},
	}
	backend.classes = []Class{{ID: "c1"}}
	backend.students = []Student{{ID: "s1"}, {ID: "s2"}}
	svc, _ := newTestService(t, backend, signedIn)

	ov, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, ov.Dashboard.SchoolLevel.ActiveStudents)
	assert.Equal(t, []Location{{ID: "l1", Name: "Main"}}, ov.Locations)
	assert.Len(t, ov.Classes, 1)
	assert.Len(t, ov.Students, 2)

	backend.errs["Classes"] = &core.APIError{Status: http.StatusInternalServerError}
	_, err = svc.Dashboard(context.Background())
	assert.Error(t, err)
}

func TestService_Teachers(t *testing.T) {
	backend := newBackendMock()
	backend.teachers = []Teacher{{ID: "t1", Name: "Ana", Email: "ana@school.test"}}
	svc, _ := newTestService(t, backend, signedIn)
	ctx := context.Background()

	_, err := svc.Teacher(ctx, "t9")
	assert.True(t, errors.Is(err, ErrNotFound))

	orig, err := svc.Teacher(ctx, "t1")
	require.NoError(t, err)

	_, err = svc.UpdateTeacher(ctx, orig, EditTeacherForm(orig))
	assert.Equal(t, core.ErrNoChanges, err)
	assert.False(t, backend.called("UpdateTeacher"))

	active, err := svc.ToggleTeacher(ctx, orig)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Equal(t, "false", backend.payload("UpdateTeacher").Get("is_active"))
	assert.Equal(t, "Ana", backend.payload("UpdateTeacher").Get("name"))

	backend.resend = InvitationResult{Error: "email_service_not_configured"}
	assert.Equal(t, ErrEmailNotConfigured, svc.ResendTeacherInvitation(ctx, "t1"))
	backend.resend = InvitationResult{InvitationSent: true}
	assert.NoError(t, svc.ResendTeacherInvitation(ctx, "t1"))
}

func TestService_Students(t *testing.T) {
	backend := newBackendMock()
	backend.sequence = icon.Sequence{5, 1, 19, 3}
	svc, _ := newTestService(t, backend, signedIn)
	ctx := context.Background()

	// code generated on creation, in server order
	s, err := svc.AddStudent(ctx, StudentForm{Name: "Amani", ClassID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, icon.Sequence{5, 1, 19, 3}, s.IconSequence)
	assert.Equal(t, "5, 1, 19, 3", backend.payload("AddStudent").Get("icon_sequence"))

	// the backend is down: the code is drawn locally
	backend.errs["AvailableIconSequence"] = &core.NetworkError{}
	var tr icon.Tracker
	res := svc.GenerateCode(ctx, &tr, "Yuki")
	assert.Equal(t, icon.OriginLocal, res.Origin)
	assert.NoError(t, res.Sequence.Validate())

	// blank names yield nothing
	res = svc.GenerateCode(ctx, &tr, "  ")
	assert.True(t, res.Sequence.Empty())

	// persisted codes are locked
	orig := Student{ID: "s1", Name: "Amani", ClassID: "c1", IconSequence: icon.Sequence{5, 1, 19, 3}}
	f := EditStudentForm(orig)
	_, err = svc.RegenerateCode(ctx, &tr, &f)
	assert.Equal(t, ErrSequenceLocked, err)

	f.Unlock()
	res, err = svc.RegenerateCode(ctx, &tr, &f)
	require.NoError(t, err)
	assert.Equal(t, res.Sequence, f.IconSequence)

	if !f.IconSequence.Equal(orig.IconSequence) {
		_, err = svc.UpdateStudent(ctx, orig, f)
		require.NoError(t, err)
		assert.Equal(t, f.IconSequence.String(), backend.payload("UpdateStudent").Get("icon_sequence"))
	}

	active, err := svc.ToggleStudent(ctx, orig)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestService_TeamMembers(t *testing.T) {
	backend := newBackendMock()
	pending := TeamMember{InvitationID: "i1", Email: "kofi@school.test"}
	pending.InvitationStatus = InvitationPending
	backend.members = []TeamMember{pending, {ID: "a1", Name: "Ana", Email: "ana@school.test"}}
	svc, _ := newTestService(t, backend, signedIn)
	ctx := context.Background()

	m, err := svc.TeamMember(ctx, "i1")
	require.NoError(t, err)
	_, err = svc.ToggleTeamMember(ctx, m)
	assert.Equal(t, ErrPendingInvitation, err)
	assert.False(t, backend.called("UpdateTeamMember"))

	m, err = svc.TeamMember(ctx, "a1")
	require.NoError(t, err)
	active, err := svc.ToggleTeamMember(ctx, m)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = svc.InviteTeamMember(ctx, TeamMemberForm{Name: "Kofi"})
	assert.EqualError(t, err, "name and email are required")

	invited, err := svc.InviteTeamMember(ctx, TeamMemberForm{Name: "Kofi", Email: "Kofi@School.test"})
	require.NoError(t, err)
	assert.True(t, invited.IsPendingInvitation())
	assert.Equal(t, "kofi@school.test", backend.payload("InviteTeamMember").Get("email"))

	backend.resend = InvitationResult{Error: "email_send_failed"}
	assert.Equal(t, ErrEmailSendFailed, svc.ResendTeamInvitation(ctx, "i1"))
}

func TestService_Branding(t *testing.T) {
	backend := newBackendMock()
	backend.theme = Theme{PrimaryColor: "#111111"}
	svc, _ := newTestService(t, backend, signedIn)
	ctx := context.Background()

	theme, err := svc.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, Theme{PrimaryColor: "#111111", SecondaryColor: "#10B981", AccentColor: "#F59E0B"}, theme)

	f := EditThemeForm(theme)
	f.AccentColor = "#abcdef"
	updated, err := svc.UpdateTheme(ctx, theme, f)
	require.NoError(t, err)
	assert.Equal(t, "#ABCDEF", updated.AccentColor)

	res, err := svc.UploadBrandingAsset(ctx, BrandingAsset{Filename: "logo.png", Reader: strings.NewReader("png"), AssetType: AssetLogo})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/logo.png", res.URL)
}

func TestService_Payments(t *testing.T) {
	backend := newBackendMock()
	svc, _ := newTestService(t, backend, signedIn)

	p, err := svc.CreatePayment(context.Background(), PaymentForm{Amount: 25, Currency: "jpy"})
	require.NoError(t, err)
	assert.Equal(t, "JPY", p.Currency)

	_, err = svc.CreatePayment(context.Background(), PaymentForm{Amount: -1, Currency: "JPY"})
	require.Error(t, err)
	assert.False(t, backend.called("Payments"))
}

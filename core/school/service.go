package school

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/schooladmin/core"
	"github.com/trezcool/schooladmin/core/icon"
	"github.com/trezcool/schooladmin/core/session"
)

var (
	ErrPendingInvitation = errors.New("cannot change status for pending invitations")
	ErrNoAccessToken     = errors.New("the server did not return an access token")
	ErrNoSchools         = errors.New("no schools found, please contact support")
)

type (
	// Backend is the school platform REST API.
	Backend interface {
		icon.Source

		SignIn(ctx context.Context, payload url.Values) (AuthResult, error)
		SignUp(ctx context.Context, payload url.Values) (AuthResult, error)
		RequestPasswordReset(ctx context.Context, payload url.Values) (Ack, error)
		AcceptInvitation(ctx context.Context, payload url.Values) (AuthResult, error)
		SchoolRoles(ctx context.Context) ([]SchoolRole, error)

		Teachers(ctx context.Context, schoolID string) ([]Teacher, error)
		AddTeacher(ctx context.Context, schoolID string, payload url.Values) (Teacher, error)
		UpdateTeacher(ctx context.Context, schoolID, teacherID string, payload url.Values) (Teacher, error)
		DeleteTeacher(ctx context.Context, schoolID, teacherID string) error
		ResendTeacherInvitation(ctx context.Context, schoolID, teacherID string) (InvitationResult, error)

		Locations(ctx context.Context, schoolID string) ([]Location, error)
		AddLocation(ctx context.Context, schoolID string, payload url.Values) (Location, error)
		UpdateLocation(ctx context.Context, schoolID, locationID string, payload url.Values) (Location, error)
		DeleteLocation(ctx context.Context, schoolID, locationID string) error

		Classes(ctx context.Context, schoolID string) ([]Class, error)
		AddClass(ctx context.Context, schoolID string, payload url.Values) (Class, error)
		UpdateClass(ctx context.Context, schoolID, classID string, payload url.Values) (Class, error)
		DeleteClass(ctx context.Context, schoolID, classID string) error

		Students(ctx context.Context, schoolID string) ([]Student, error)
		AddStudent(ctx context.Context, schoolID string, payload url.Values) (Student, error)
		UpdateStudent(ctx context.Context, schoolID, studentID string, payload url.Values) (Student, error)
		DeleteStudent(ctx context.Context, schoolID, studentID string) error

		TeamMembers(ctx context.Context, schoolID string) ([]TeamMember, error)
		InviteTeamMember(ctx context.Context, schoolID string, payload url.Values) (TeamMember, error)
		UpdateTeamMember(ctx context.Context, schoolID, adminID string, payload url.Values) (TeamMember, error)
		DeleteTeamMember(ctx context.Context, schoolID, adminID string) error
		ResendTeamInvitation(ctx context.Context, schoolID, adminID string) (InvitationResult, error)

		Theme(ctx context.Context, schoolID string) (Theme, error)
		UpdateTheme(ctx context.Context, schoolID string, theme Theme) (Theme, error)
		UploadBrandingAsset(ctx context.Context, schoolID string, asset BrandingAsset) (BrandingResult, error)

		Payments(ctx context.Context, schoolID string) ([]Payment, error)
		PaymentStatus(ctx context.Context, schoolID string) (PaymentStatus, error)
		CreatePayment(ctx context.Context, schoolID string, payment PaymentForm) (Payment, error)

		Dashboard(ctx context.Context, schoolID string) (Dashboard, error)
	}

	// Service runs the console's use cases against a Backend, on behalf of the
	// signed-in admin held by the session Manager.
	Service struct {
		backend Backend
		sess    *session.Manager
		gen     *icon.Generator
		logger  core.Logger
	}
)

var nowFunc = time.Now // mockable

func NewService(backend Backend, sess *session.Manager, gen *icon.Generator, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Service{backend: backend, sess: sess, gen: gen, logger: logger}
}

func (svc *Service) Session() session.Session { return svc.sess.Current() }

func (svc *Service) schoolID() (string, error) {
	sess := svc.sess.Current()
	if !sess.Authenticated() {
		return "", core.ErrUnauthenticated
	}
	if !sess.HasSchool() {
		return "", core.ErrNoSchool
	}
	return sess.SchoolID, nil
}

// auth

func (svc *Service) signIn(res AuthResult, email string) error {
	if res.AccessToken == "" {
		return ErrNoAccessToken
	}
	if res.Email == "" {
		res.Email = email
	}
	sess := session.Session{
		AccessToken: res.AccessToken,
		SchoolID:    res.SchoolID,
		UserID:      res.UserID,
		Email:       res.Email,
	}
	if sess.UserID == "" {
		sess.UserID = sess.Subject()
	}
	return svc.sess.SignIn(sess)
}

func (svc *Service) SignIn(ctx context.Context, f SignInForm) (AuthResult, error) {
	if err := f.Validate(); err != nil {
		return AuthResult{}, err
	}
	res, err := svc.backend.SignIn(ctx, f.Payload())
	if err != nil {
		return AuthResult{}, err
	}
	if err := svc.signIn(res, f.clean().Email); err != nil {
		return AuthResult{}, err
	}
	return res, nil
}

// SignUp registers a school and its first admin. When the backend asks for an email
// confirmation no session is opened.
func (svc *Service) SignUp(ctx context.Context, f SignUpForm) (AuthResult, error) {
	if err := f.Validate(); err != nil {
		return AuthResult{}, err
	}
	res, err := svc.backend.SignUp(ctx, f.Payload())
	if err != nil {
		return AuthResult{}, err
	}
	if res.EmailConfirmationRequired {
		return res, nil
	}
	if err := svc.signIn(res, f.clean().Email); err != nil {
		return AuthResult{}, err
	}
	return res, nil
}

func (svc *Service) RequestPasswordReset(ctx context.Context, f PasswordResetForm) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	ack, err := svc.backend.RequestPasswordReset(ctx, f.Payload())
	if err != nil {
		return "", err
	}
	return ack.Message, nil
}

func (svc *Service) AcceptInvitation(ctx context.Context, f InvitationAcceptForm) (AuthResult, error) {
	if err := f.Validate(); err != nil {
		return AuthResult{}, err
	}
	res, err := svc.backend.AcceptInvitation(ctx, f.Payload())
	if err != nil {
		return AuthResult{}, err
	}
	if err := svc.signIn(res, ""); err != nil {
		return AuthResult{}, err
	}
	return res, nil
}

func (svc *Service) SignOut() error { return svc.sess.SignOut() }

// schools

// Schools lists the schools the admin manages. A single school is selected right away.
func (svc *Service) Schools(ctx context.Context) ([]SchoolRole, error) {
	if !svc.sess.Current().Authenticated() {
		return nil, core.ErrUnauthenticated
	}
	roles, err := svc.backend.SchoolRoles(ctx)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, ErrNoSchools
	}
	if len(roles) == 1 && svc.sess.SchoolID() != roles[0].SchoolID {
		if err := svc.sess.SelectSchool(roles[0].SchoolID); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

func (svc *Service) SelectSchool(ctx context.Context, schoolID string) (SchoolRole, error) {
	roles, err := svc.Schools(ctx)
	if err != nil {
		return SchoolRole{}, err
	}
	for _, role := range roles {
		if role.SchoolID == schoolID {
			return role, svc.sess.SelectSchool(schoolID)
		}
	}
	return SchoolRole{}, errors.Wrapf(ErrNotFound, "school %s", schoolID)
}

// Dashboard loads the summary, the active locations, the classes and the students at once.
func (svc *Service) Dashboard(ctx context.Context) (Overview, error) {
	schoolID, err := svc.schoolID()
	if err != nil {
		return Overview{}, err
	}

	var ov Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ov.Dashboard, err = svc.backend.Dashboard(gctx, schoolID)
		return err
	})
	g.Go(func() error {
		locs, err := svc.backend.Locations(gctx, schoolID)
		for _, loc := range locs {
			if loc.Active() {
				ov.Locations = append(ov.Locations, loc)
			}
		}
		return err
	})
	g.Go(func() (err error) {
		ov.Classes, err = svc.backend.Classes(gctx, schoolID)
		return err
	})
	g.Go(func() (err error) {
		ov.Students, err = svc.backend.Students(gctx, schoolID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}

// teachers

func (svc *Service) Teachers(ctx context.Context) ([]Teacher, error) {
	schoolID, err := svc.schoolID()
	if err != nil {
		return nil, err
	}
	return svc.backend.Teachers(ctx, schoolID)
}

func (svc *Service) Teacher(ctx context.Context, id string) (Teacher, error) {
	teachers, err := svc.Teachers(ctx)
	if err != nil {
		return Teacher{}, err
	}
	for _, t := range teachers {
		if t.ID == id {
			return t, nil
		}
	}
	return Teacher{}, errors.Wrapf(ErrNotFound, "teacher %s", id)
}

// AddTeacher creates the teacher; the backend emails the invitation.
func (svc *Service) AddTeacher(ctx context.Context, f TeacherForm) (Teacher, error) {
	if err := f.Validate(); err != nil {
		return Teacher{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return Teacher{}, err
	}
	return svc.backend.AddTeacher(ctx, schoolID, f.Payload())
}

func (svc *Service) UpdateTeacher(ctx context.Context, orig Teacher, f TeacherForm) (Teacher, error) {
	if err := f.Validate(); err != nil {
		return Teacher{}, err
	}
	changes, err := f.Diff(orig)
	if err != nil {
		return Teacher{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return Teacher{}, err
	}
	return svc.backend.UpdateTeacher(ctx, schoolID, orig.ID, changes)
}

// ToggleTeacher activates an inactive teacher and deactivates an active one.
// It returns the new state.
func (svc *Service) ToggleTeacher(ctx context.Context, t Teacher) (bool, error) {
	schoolID, err := svc.schoolID()
	if err != nil {
		return false, err
	}
	active := !t.Active()
	payload := TogglePayload(active)
	payload.Set("name", t.Name)
	payload.Set("email", t.Email)
	if _, err := svc.backend.UpdateTeacher(ctx, schoolID, t.ID, payload); err != nil {
		return false, err
	}
	return active, nil
}

func (svc *Service) DeleteTeacher(ctx context.Context, id string) error {
	schoolID, err := svc.schoolID()
	if err != nil {
		return err
	}
	return svc.backend.DeleteTeacher(ctx, schoolID, id)
}

func (svc *Service) ResendTeacherInvitation(ctx context.Context, id string) error {
	schoolID, err := svc.schoolID()
	if err != nil {
		return err
	}
	res, err := svc.backend.ResendTeacherInvitation(ctx, schoolID, id)
	if err != nil {
		return err
	}
	return res.Err()
}

// locations

func (svc *Service) Locations(ctx context.Context) ([]Location, error) {
	schoolID, err := svc.schoolID()
	if err != nil {
		return nil, err
	}
	return svc.backend.Locations(ctx, schoolID)
}

func (svc *Service) Location(ctx context.Context, id string) (Location, error) {
	locs, err := svc.Locations(ctx)
	if err != nil {
		return Location{}, err
	}
	for _, loc := range locs {
		if loc.ID == id {
			return loc, nil
		}
	}
	return Location{}, errors.Wrapf(ErrNotFound, "location %s", id)
}

func (svc *Service) AddLocation(ctx context.Context, f LocationForm) (Location, error) {
	if err := f.Validate(); err != nil {
		return Location{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return Location{}, err
	}
	return svc.backend.AddLocation(ctx, schoolID, f.Payload())
}

func (svc *Service) UpdateLocation(ctx context.Context, orig Location, f LocationForm) (Location, error) {
	if err := f.Validate(); err != nil {
		return Location{}, err
	}
	changes, err := f.Diff(orig)
	if err != nil {
		return Location{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return Location{}, err
	}
	return svc.backend.UpdateLocation(ctx, schoolID, orig.ID, changes)
}

func (svc *Service) DeleteLocation(ctx context.Context, id string) error {
	schoolID, err := svc.schoolID()
	if err != nil {
		return err
	}
	return svc.backend.DeleteLocation(ctx, schoolID, id)
}

// classes

func (svc *Service) Classes(ctx context.Context) ([]Class, error) {
	schoolID, err := svc.schoolID()
	if err != nil {
		return nil, err
	}
	return svc.backend.Classes(ctx, schoolID)
}

func (svc *Service) Class(ctx context.Context, id string) (Class, error) {
	classes, err := svc.Classes(ctx)
	if err != nil {
		return Class{}, err
	}
	for _, c := range classes {
		if c.ID == id {
			return c, nil
		}
	}
	return Class{}, errors.Wrapf(ErrNotFound, "class %s", id)
}

func (svc *Service) AddClass(ctx context.Context, f ClassForm) (Class, error) {
	if err := f.Validate(); err != nil {
		return Class{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return Class{}, err
	}
	return svc.backend.AddClass(ctx, schoolID, f.Payload())
}

func (svc *Service) UpdateClass(ctx context.Context, orig Class, f ClassForm) (Class, error) {
	if err := f.Validate(); err != nil {
		return Class{}, err
	}
	changes, err := f.Diff(orig)
	if err != nil {
		return Class{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return Class{}, err
	}
	return svc.backend.UpdateClass(ctx, schoolID, orig.ID, changes)
}

func (svc *Service) ToggleClass(ctx context.Context, c Class) (bool, error) {
	schoolID, err := svc.schoolID()
	if err != nil {
		return false, err
	}
	active := !c.Active()
	if _, err := svc.backend.UpdateClass(ctx, schoolID, c.ID, TogglePayload(active)); err != nil {
		return false, err
	}
	return active, nil
}

func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	schoolID, err := svc.schoolID()
	if err != nil {
		return err
	}
	return svc.backend.DeleteClass(ctx, schoolID, id)
}

// students

func (svc *Service) Students(ctx context.Context) ([]Student, error) {
	schoolID, err := svc.schoolID()
	if err != nil {
		return nil, err
	}
	return svc.backend.Students(ctx, schoolID)
}

func (svc *Service) Student(ctx context.Context, id string) (Student, error) {
	students, err := svc.Students(ctx)
	if err != nil {
		return Student{}, err
	}
	for _, s := range students {
		if s.ID == id {
			return s, nil
		}
	}
	return Student{}, errors.Wrapf(ErrNotFound, "student %s", id)
}

// GenerateCode proposes a registration code for studentName and records it in tr.
// It returns the Tracker's current candidate, which stays the newer one if another
// generation started meanwhile.
func (svc *Service) GenerateCode(ctx context.Context, tr *icon.Tracker, studentName string) icon.Result {
	ticket := tr.Begin()
	res := svc.gen.Generate(ctx, svc.sess.SchoolID(), studentName)
	if !tr.Commit(ticket, res) {
		svc.logger.Debug("discarding stale icon sequence", map[string]interface{}{"ticket": ticket})
	}
	return tr.Current()
}

// RegenerateCode replaces the form's code with a new one. Locked forms are refused.
func (svc *Service) RegenerateCode(ctx context.Context, tr *icon.Tracker, f *StudentForm) (icon.Result, error) {
	if f.Locked() {
		return icon.Result{}, ErrSequenceLocked
	}
	res := svc.GenerateCode(ctx, tr, f.Name)
	if err := f.SetSequence(res.Sequence); err != nil {
		return icon.Result{}, err
	}
	return res, nil
}

// AddStudent creates the student. A form without a code gets a generated one.
func (svc *Service) AddStudent(ctx context.Context, f StudentForm) (Student, error) {
	if err := f.Validate(); err != nil {
		return Student{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return Student{}, err
	}
	if f.IconSequence.Empty() {
		if _, err := svc.RegenerateCode(ctx, &icon.Tracker{}, &f); err != nil {
			return Student{}, err
		}
	}
	return svc.backend.AddStudent(ctx, schoolID, f.Payload())
}

func (svc *Service) UpdateStudent(ctx context.Context, orig Student, f StudentForm) (Student, error) {
	if err := f.Validate(); err != nil {
		return Student{}, err
	}
	changes, err := f.Diff(orig)
	if err != nil {
		return Student{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return Student{}, err
	}
	return svc.backend.UpdateStudent(ctx, schoolID, orig.ID, changes)
}

func (svc *Service) ToggleStudent(ctx context.Context, s Student) (bool, error) {
	schoolID, err := svc.schoolID()
	if err != nil {
		return false, err
	}
	active := !s.Active()
	if _, err := svc.backend.UpdateStudent(ctx, schoolID, s.ID, TogglePayload(active)); err != nil {
		return false, err
	}
	return active, nil
}

func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	schoolID, err := svc.schoolID()
	if err != nil {
		return err
	}
	return svc.backend.DeleteStudent(ctx, schoolID, id)
}

// team

func (svc *Service) TeamMembers(ctx context.Context) ([]TeamMember, error) {
	schoolID, err := svc.schoolID()
	if err != nil {
		return nil, err
	}
	return svc.backend.TeamMembers(ctx, schoolID)
}

// TeamMember finds a member by admin id or, while pending, by invitation id.
func (svc *Service) TeamMember(ctx context.Context, id string) (TeamMember, error) {
	members, err := svc.TeamMembers(ctx)
	if err != nil {
		return TeamMember{}, err
	}
	for _, m := range members {
		if m.Identifier() == id {
			return m, nil
		}
	}
	return TeamMember{}, errors.Wrapf(ErrNotFound, "team member %s", id)
}

func (svc *Service) InviteTeamMember(ctx context.Context, f TeamMemberForm) (TeamMember, error) {
	if err := f.Validate(); err != nil {
		return TeamMember{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return TeamMember{}, err
	}
	return svc.backend.InviteTeamMember(ctx, schoolID, f.Payload())
}

func (svc *Service) UpdateTeamMember(ctx context.Context, orig TeamMember, f TeamMemberForm) (TeamMember, error) {
	if err := f.Validate(); err != nil {
		return TeamMember{}, err
	}
	changes, err := f.Diff(orig)
	if err != nil {
		return TeamMember{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return TeamMember{}, err
	}
	return svc.backend.UpdateTeamMember(ctx, schoolID, orig.Identifier(), changes)
}

// ToggleTeamMember flips an admin's active flag. Invitations nobody accepted have no
// account to deactivate.
func (svc *Service) ToggleTeamMember(ctx context.Context, m TeamMember) (bool, error) {
	if m.ID == "" {
		return false, ErrPendingInvitation
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return false, err
	}
	active := !m.Active()
	payload := TogglePayload(active)
	payload.Set("name", m.Name)
	payload.Set("email", m.Email)
	if _, err := svc.backend.UpdateTeamMember(ctx, schoolID, m.ID, payload); err != nil {
		return false, err
	}
	return active, nil
}

func (svc *Service) DeleteTeamMember(ctx context.Context, id string) error {
	schoolID, err := svc.schoolID()
	if err != nil {
		return err
	}
	return svc.backend.DeleteTeamMember(ctx, schoolID, id)
}

func (svc *Service) ResendTeamInvitation(ctx context.Context, id string) error {
	schoolID, err := svc.schoolID()
	if err != nil {
		return err
	}
	res, err := svc.backend.ResendTeamInvitation(ctx, schoolID, id)
	if err != nil {
		return err
	}
	return res.Err()
}

// branding

// Theme returns the school's theme, or the default one when the school has none.
func (svc *Service) Theme(ctx context.Context) (Theme, error) {
	schoolID, err := svc.schoolID()
	if err != nil {
		return Theme{}, err
	}
	theme, err := svc.backend.Theme(ctx, schoolID)
	if err != nil {
		return Theme{}, err
	}
	def := DefaultTheme()
	if theme.PrimaryColor == "" {
		theme.PrimaryColor = def.PrimaryColor
	}
	if theme.SecondaryColor == "" {
		theme.SecondaryColor = def.SecondaryColor
	}
	if theme.AccentColor == "" {
		theme.AccentColor = def.AccentColor
	}
	return theme, nil
}

func (svc *Service) UpdateTheme(ctx context.Context, orig Theme, f ThemeForm) (Theme, error) {
	if err := f.Validate(); err != nil {
		return Theme{}, err
	}
	theme, err := f.Diff(orig)
	if err != nil {
		return Theme{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return Theme{}, err
	}
	return svc.backend.UpdateTheme(ctx, schoolID, theme)
}

func (svc *Service) UploadBrandingAsset(ctx context.Context, asset BrandingAsset) (BrandingResult, error) {
	if err := asset.Validate(); err != nil {
		return BrandingResult{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return BrandingResult{}, err
	}
	return svc.backend.UploadBrandingAsset(ctx, schoolID, asset)
}

// payments

func (svc *Service) Payments(ctx context.Context) ([]Payment, error) {
	schoolID, err := svc.schoolID()
	if err != nil {
		return nil, err
	}
	return svc.backend.Payments(ctx, schoolID)
}

func (svc *Service) PaymentStatus(ctx context.Context) (PaymentStatus, error) {
	schoolID, err := svc.schoolID()
	if err != nil {
		return PaymentStatus{}, err
	}
	return svc.backend.PaymentStatus(ctx, schoolID)
}

func (svc *Service) CreatePayment(ctx context.Context, f PaymentForm) (Payment, error) {
	if err := f.Validate(); err != nil {
		return Payment{}, err
	}
	schoolID, err := svc.schoolID()
	if err != nil {
		return Payment{}, err
	}
	return svc.backend.CreatePayment(ctx, schoolID, f.Body())
}

// Now is the clock used for invitation badges.
func (svc *Service) Now() time.Time { return nowFunc() }

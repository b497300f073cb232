package school

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schooladmin/core/icon"
)

// Invitation statuses reported by the backend
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationExpired  = "expired"
)

// Status is the badge shown next to a teacher or a team member.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
	StatusExpired  Status = "Expired"
	StatusAwaiting Status = "Awaiting Confirmation"
)

// Asset types accepted by the branding upload
const (
	AssetLogo    = "logo"
	AssetFavicon = "favicon"
	AssetBanner  = "banner"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailNotConfigured = errors.New("email service is not configured: the invitation token has been updated, but no email was sent")
	ErrEmailSendFailed    = errors.New("invitation token updated, but the email failed to send; check the email service configuration")
	errInvitationNotSent  = errors.New("failed to send invitation email")
)

// Ref is a related record embedded in a listing (a class's teacher, a student's class).
type Ref struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Invitation is the account state shared by teachers and team members.
// A missing is_active means active.
type Invitation struct {
	IsActive            null.Bool `json:"is_active"`
	InvitationStatus    string    `json:"invitation_status,omitempty"`
	InvitationExpiresAt null.Time `json:"invitation_expires_at"`
}

func (inv Invitation) Active() bool { return !inv.IsActive.Valid || inv.IsActive.Bool }

// status derives the badge. hasAccount is false for team invitations nobody accepted yet:
// those are never shown as inactive.
func (inv Invitation) status(hasAccount bool, now time.Time) Status {
	if hasAccount && !inv.Active() {
		return StatusInactive
	}
	switch inv.InvitationStatus {
	case "", InvitationAccepted:
		return StatusActive
	case InvitationPending:
		if inv.InvitationExpiresAt.Valid && inv.InvitationExpiresAt.Time.Before(now) {
			return StatusExpired
		}
		return StatusAwaiting
	case InvitationExpired:
		return StatusExpired
	default:
		return StatusInactive
	}
}

// CanResendInvitation: pending, expired and legacy records (no invitation status) may get a new email.
func (inv Invitation) CanResendInvitation() bool {
	switch inv.InvitationStatus {
	case "", InvitationPending, InvitationExpired:
		return true
	}
	return false
}

type Teacher struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Invitation
}

func (t Teacher) Status(now time.Time) Status { return t.status(true, now) }

// TeamMember is a school admin, or an invitation to become one (no ID yet).
type TeamMember struct {
	ID           string `json:"id,omitempty"`
	InvitationID string `json:"invitation_id,omitempty"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Invitation
}

func (m TeamMember) Status(now time.Time) Status { return m.status(m.ID != "", now) }

func (m TeamMember) IsPendingInvitation() bool {
	return m.ID == "" && m.InvitationStatus == InvitationPending
}

// Identifier addresses the member in URLs: the admin id, or the invitation id while pending.
func (m TeamMember) Identifier() string {
	if m.ID != "" {
		return m.ID
	}
	return m.InvitationID
}

func (m TeamMember) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	if local := strings.SplitN(m.Email, "@", 2)[0]; local != "" {
		return local
	}
	return "School Admin"
}

type Location struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Address    string    `json:"address,omitempty"`
	City       string    `json:"city,omitempty"`
	Prefecture string    `json:"prefecture,omitempty"`
	PostalCode string    `json:"postal_code,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	IsActive   null.Bool `json:"is_active"`
}

func (l Location) Active() bool { return !l.IsActive.Valid || l.IsActive.Bool }

type Class struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	TeacherID  string      `json:"teacher_id,omitempty"`
	LocationID null.String `json:"location_id"`
	IsActive   null.Bool   `json:"is_active"`
	Teacher    *Ref        `json:"teachers,omitempty"`
}

func (c Class) Active() bool { return !c.IsActive.Valid || c.IsActive.Bool }

func (c Class) TeacherName() string {
	if c.Teacher == nil || c.Teacher.Name == "" {
		return "No teacher"
	}
	return c.Teacher.Name
}

type Student struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	ClassID            string        `json:"class_id,omitempty"`
	IconSequence       icon.Sequence `json:"icon_sequence"`
	IsActive           null.Bool     `json:"is_active"`
	RegistrationStatus string        `json:"registration_status,omitempty"`
	Class              *Ref          `json:"classes,omitempty"`
}

func (s Student) Active() bool { return !s.IsActive.Valid || s.IsActive.Bool }

func (s Student) Registration() string {
	if s.RegistrationStatus == "" {
		return "pending"
	}
	return s.RegistrationStatus
}

type Theme struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	AccentColor    string `json:"accent_color"`
}

// DefaultTheme is used until the school saves its own.
func DefaultTheme() Theme {
	return Theme{PrimaryColor: "#3B82F6", SecondaryColor: "#10B981", AccentColor: "#F59E0B"}
}

// BrandingResult is the answer to an asset upload.
type BrandingResult struct {
	URL       string `json:"url,omitempty"`
	AssetType string `json:"asset_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

type Payment struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   null.Time `json:"created_at"`
}

type PaymentStatus struct {
	Enabled bool   `json:"enabled"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

func (ps PaymentStatus) Text() string {
	if ps.Message != "" {
		return ps.Message
	}
	if !ps.Enabled {
		return "Payments not yet enabled, enjoy our service for free for now 😉"
	}
	return ps.Status
}

type (
	SchoolLevel struct {
		ActiveStudents       int     `json:"active_students"`
		SurveyCompletionRate float64 `json:"survey_completion_rate"`
	}

	TeacherLevel struct {
		TotalTeachers int `json:"total_teachers"`
	}

	Dashboard struct {
		SchoolLevel  SchoolLevel  `json:"school_level"`
		TeacherLevel TeacherLevel `json:"teacher_level"`
	}

	// Overview is the dashboard screen: the summary plus the active locations,
	// the classes and the students of the school.
	Overview struct {
		Dashboard Dashboard
		Locations []Location
		Classes   []Class
		Students  []Student
	}
)

// SchoolRole is one school the signed-in user administers.
type SchoolRole struct {
	SchoolID   string `json:"school_id"`
	SchoolName string `json:"school_name,omitempty"`
	Role       string `json:"role,omitempty"`
}

func (r SchoolRole) DisplayName() string {
	if r.SchoolName == "" {
		return "Unnamed School"
	}
	return r.SchoolName
}

// AuthResult answers sign-in, sign-up and invitation acceptance.
type AuthResult struct {
	AccessToken               string       `json:"access_token,omitempty"`
	SchoolID                  string       `json:"school_id,omitempty"`
	UserID                    string       `json:"user_id,omitempty"`
	Email                     string       `json:"email,omitempty"`
	EmailConfirmationRequired bool         `json:"email_confirmation_required,omitempty"`
	Roles                     []SchoolRole `json:"roles,omitempty"`
	Message                   string       `json:"message,omitempty"`
}

// InvitationResult answers a resend-invitation request. The backend replies 200
// even when no email went out.
type InvitationResult struct {
	InvitationSent bool   `json:"invitation_sent"`
	Error          string `json:"error,omitempty"`
	Message        string `json:"message,omitempty"`
}

func (r InvitationResult) Err() error {
	switch {
	case r.InvitationSent:
		return nil
	case r.Error == "email_service_not_configured":
		return ErrEmailNotConfigured
	case r.Error == "email_send_failed":
		return ErrEmailSendFailed
	case r.Message != "":
		return errors.New(r.Message)
	default:
		return errInvitationNotSent
	}
}

// Ack is the body of endpoints that only confirm (password reset request, deletes).
type Ack struct {
	Message string `json:"message,omitempty"`
}

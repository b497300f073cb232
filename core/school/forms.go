package school

import (
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schooladmin/core"
	"github.com/trezcool/schooladmin/core/icon"
)

// Forms are plain values: Validate, Payload and Diff never modify the receiver
// and never talk to the backend.

var (
	ErrSequenceLocked  = errors.New("the registration code of an existing student is locked, unlock it to generate a new one")
	errNameEmailNeeded = errors.New("name and email are required")
)

func boolString(b bool) string { return strconv.FormatBool(b) }

// TogglePayload flips the active flag of a teacher, class, student or team member.
func TogglePayload(active bool) url.Values {
	return url.Values{"is_active": {boolString(active)}}
}

// auth

type SignInForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

func (f SignInForm) clean() SignInForm {
	f.Email = core.CleanString(f.Email, true /* lower */)
	return f
}

func (f SignInForm) Validate() error { return core.ValidateStruct(f.clean()) }

func (f SignInForm) Payload() url.Values {
	f = f.clean()
	return url.Values{"email": {f.Email}, "password": {f.Password}}
}

type SignUpForm struct {
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" validate:"eqfield=Password"`
	Name            string `form:"name" validate:"required"`
	SchoolName      string `form:"school_name" validate:"required"`
	ContactInfo     string `form:"contact_info"`
}

func (f SignUpForm) clean() SignUpForm {
	f.Email = core.CleanString(f.Email, true /* lower */)
	f.Name = core.CleanString(f.Name)
	f.SchoolName = core.CleanString(f.SchoolName)
	f.ContactInfo = core.CleanString(f.ContactInfo)
	return f
}

func (f SignUpForm) Validate() error { return core.ValidateStruct(f.clean()) }

func (f SignUpForm) Payload() url.Values {
	f = f.clean()
	vals := url.Values{
		"email":       {f.Email},
		"password":    {f.Password},
		"name":        {f.Name},
		"school_name": {f.SchoolName},
	}
	if f.ContactInfo != "" {
		vals.Set("contact_info", f.ContactInfo)
	}
	return vals
}

// PasswordResetForm requests a reset email; the link opens the school admin app.
type PasswordResetForm struct {
	Email string `form:"email" validate:"required,email"`
}

func (f PasswordResetForm) Validate() error {
	f.Email = core.CleanString(f.Email, true /* lower */)
	return core.ValidateStruct(f)
}

func (f PasswordResetForm) Payload() url.Values {
	return url.Values{"email": {core.CleanString(f.Email, true /* lower */)}, "app": {"school_admin"}}
}

type InvitationAcceptForm struct {
	Token           string `form:"token" validate:"required"`
	Name            string `form:"name" validate:"required"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" validate:"eqfield=Password"`
}

func (f InvitationAcceptForm) clean() InvitationAcceptForm {
	f.Token = core.CleanString(f.Token)
	f.Name = core.CleanString(f.Name)
	return f
}

func (f InvitationAcceptForm) Validate() error { return core.ValidateStruct(f.clean()) }

func (f InvitationAcceptForm) Payload() url.Values {
	f = f.clean()
	return url.Values{"token": {f.Token}, "name": {f.Name}, "password": {f.Password}}
}

// teachers

type TeacherForm struct {
	Name  string `form:"name" validate:"required"`
	Email string `form:"email" validate:"required,email"`
}

func EditTeacherForm(t Teacher) TeacherForm { return TeacherForm{Name: t.Name, Email: t.Email} }

func (f TeacherForm) clean() TeacherForm {
	f.Name = core.CleanString(f.Name)
	f.Email = core.CleanString(f.Email, true /* lower */)
	return f
}

func (f TeacherForm) Validate() error { return core.ValidateStruct(f.clean()) }

func (f TeacherForm) Payload() url.Values {
	f = f.clean()
	return url.Values{"name": {f.Name}, "email": {f.Email}}
}

// Diff returns the fields that differ from orig, or core.ErrNoChanges.
func (f TeacherForm) Diff(orig Teacher) (url.Values, error) {
	f = f.clean()
	vals := url.Values{}
	if f.Name != "" && f.Name != orig.Name {
		vals.Set("name", f.Name)
	}
	if f.Email != "" && f.Email != orig.Email {
		vals.Set("email", f.Email)
	}
	if len(vals) == 0 {
		return nil, core.ErrNoChanges
	}
	return vals, nil
}

// locations

type LocationForm struct {
	Name       string    `form:"name" validate:"required"`
	Address    string    `form:"address"`
	City       string    `form:"city"`
	Prefecture string    `form:"prefecture"`
	PostalCode string    `form:"postal_code"`
	Phone      string    `form:"phone"`
	Email      string    `form:"email" validate:"omitempty,email"`
	IsActive   null.Bool `form:"is_active"` // defaults to true
}

func EditLocationForm(l Location) LocationForm {
	return LocationForm{
		Name:       l.Name,
		Address:    l.Address,
		City:       l.City,
		Prefecture: l.Prefecture,
		PostalCode: l.PostalCode,
		Phone:      l.Phone,
		Email:      l.Email,
		IsActive:   null.BoolFrom(l.Active()),
	}
}

func (f LocationForm) clean() LocationForm {
	f.Name = core.CleanString(f.Name)
	f.Address = core.CleanString(f.Address)
	f.City = core.CleanString(f.City)
	f.Prefecture = core.CleanString(f.Prefecture)
	f.PostalCode = core.CleanString(f.PostalCode)
	f.Phone = core.CleanString(f.Phone)
	f.Email = core.CleanString(f.Email, true /* lower */)
	return f
}

func (f LocationForm) Validate() error { return core.ValidateStruct(f.clean()) }

func (f LocationForm) optional() [][2]string {
	return [][2]string{
		{"address", f.Address},
		{"city", f.City},
		{"prefecture", f.Prefecture},
		{"postal_code", f.PostalCode},
		{"phone", f.Phone},
		{"email", f.Email},
	}
}

// Payload sends the name, the optional fields that were filled and is_active.
func (f LocationForm) Payload() url.Values {
	f = f.clean()
	vals := url.Values{"name": {f.Name}}
	for _, kv := range f.optional() {
		if kv[1] != "" {
			vals.Set(kv[0], kv[1])
		}
	}
	vals.Set("is_active", boolString(!f.IsActive.Valid || f.IsActive.Bool))
	return vals
}

// LocationUpdate holds the changed fields of a location. A valid empty string clears the field.
type LocationUpdate struct {
	Name       null.String
	Address    null.String
	City       null.String
	Prefecture null.String
	PostalCode null.String
	Phone      null.String
	Email      null.String
	IsActive   null.Bool
}

func (u LocationUpdate) Values() url.Values {
	vals := url.Values{}
	for key, v := range map[string]null.String{
		"name":        u.Name,
		"address":     u.Address,
		"city":        u.City,
		"prefecture":  u.Prefecture,
		"postal_code": u.PostalCode,
		"phone":       u.Phone,
		"email":       u.Email,
	} {
		if v.Valid {
			vals.Set(key, v.String)
		}
	}
	if u.IsActive.Valid {
		vals.Set("is_active", boolString(u.IsActive.Bool))
	}
	return vals
}

func changedString(orig, val string) null.String {
	if orig == val {
		return null.String{}
	}
	return null.StringFrom(val)
}

// Changes compares the form with orig field by field.
func (f LocationForm) Changes(orig Location) LocationUpdate {
	f = f.clean()
	upd := LocationUpdate{
		Address:    changedString(orig.Address, f.Address),
		City:       changedString(orig.City, f.City),
		Prefecture: changedString(orig.Prefecture, f.Prefecture),
		PostalCode: changedString(orig.PostalCode, f.PostalCode),
		Phone:      changedString(orig.Phone, f.Phone),
		Email:      changedString(orig.Email, f.Email),
	}
	// a location cannot lose its name
	if f.Name != "" {
		upd.Name = changedString(orig.Name, f.Name)
	}
	if f.IsActive.Valid && f.IsActive.Bool != orig.Active() {
		upd.IsActive = f.IsActive
	}
	return upd
}

func (f LocationForm) Diff(orig Location) (url.Values, error) {
	vals := f.Changes(orig).Values()
	if len(vals) == 0 {
		return nil, core.ErrNoChanges
	}
	return vals, nil
}

// classes

type ClassForm struct {
	Name       string `form:"name" validate:"required"`
	TeacherID  string `form:"teacher_id" validate:"required"`
	LocationID string `form:"location_id"`
}

func EditClassForm(c Class) ClassForm {
	return ClassForm{Name: c.Name, TeacherID: c.TeacherID, LocationID: c.LocationID.String}
}

func (f ClassForm) clean() ClassForm {
	f.Name = core.CleanString(f.Name)
	f.TeacherID = core.CleanString(f.TeacherID)
	f.LocationID = core.CleanString(f.LocationID)
	return f
}

func (f ClassForm) Validate() error { return core.ValidateStruct(f.clean()) }

func (f ClassForm) Payload() url.Values {
	f = f.clean()
	vals := url.Values{"name": {f.Name}, "teacher_id": {f.TeacherID}}
	if f.LocationID != "" {
		vals.Set("location_id", f.LocationID)
	}
	return vals
}

// Diff sends an empty location_id to detach the class from its location.
func (f ClassForm) Diff(orig Class) (url.Values, error) {
	f = f.clean()
	vals := url.Values{}
	if f.Name != "" && f.Name != orig.Name {
		vals.Set("name", f.Name)
	}
	if f.TeacherID != "" && f.TeacherID != orig.TeacherID {
		vals.Set("teacher_id", f.TeacherID)
	}
	if loc := changedString(orig.LocationID.String, f.LocationID); loc.Valid {
		vals.Set("location_id", loc.String)
	}
	if len(vals) == 0 {
		return nil, core.ErrNoChanges
	}
	return vals, nil
}

// students

// StudentForm creates or edits a student. The registration code of a persisted
// student is locked: it only changes after Unlock.
type StudentForm struct {
	Name         string        `form:"name" validate:"required"`
	ClassID      string        `form:"class_id" validate:"required"`
	IconSequence icon.Sequence `form:"icon_sequence" validate:"omitempty,iconseq"`

	locked bool
}

func EditStudentForm(s Student) StudentForm {
	return StudentForm{
		Name:         s.Name,
		ClassID:      s.ClassID,
		IconSequence: s.IconSequence.Clone(),
		locked:       !s.IconSequence.Empty(),
	}
}

func (f StudentForm) Locked() bool { return f.locked }

func (f *StudentForm) Unlock() { f.locked = false }

// SetSequence replaces the whole registration code.
func (f *StudentForm) SetSequence(seq icon.Sequence) error {
	if f.locked {
		return ErrSequenceLocked
	}
	f.IconSequence = seq.Clone()
	return nil
}

func (f StudentForm) clean() StudentForm {
	f.Name = core.CleanString(f.Name)
	f.ClassID = core.CleanString(f.ClassID)
	return f
}

func (f StudentForm) Validate() error { return core.ValidateStruct(f.clean()) }

// Payload submits the code in draw order, as "5, 1, 19, 3".
func (f StudentForm) Payload() url.Values {
	f = f.clean()
	vals := url.Values{"name": {f.Name}, "class_id": {f.ClassID}}
	if !f.IconSequence.Empty() {
		vals.Set("icon_sequence", f.IconSequence.String())
	}
	return vals
}

func (f StudentForm) Diff(orig Student) (url.Values, error) {
	f = f.clean()
	vals := url.Values{}
	if f.Name != "" && f.Name != orig.Name {
		vals.Set("name", f.Name)
	}
	if f.ClassID != "" && f.ClassID != orig.ClassID {
		vals.Set("class_id", f.ClassID)
	}
	if !f.IconSequence.Equal(orig.IconSequence) {
		vals.Set("icon_sequence", f.IconSequence.String())
	}
	if len(vals) == 0 {
		return nil, core.ErrNoChanges
	}
	return vals, nil
}

// team

type TeamMemberForm struct {
	Name  string `form:"name"`
	Email string `form:"email" validate:"email"`
}

func EditTeamMemberForm(m TeamMember) TeamMemberForm {
	return TeamMemberForm{Name: m.Name, Email: m.Email}
}

func (f TeamMemberForm) clean() TeamMemberForm {
	f.Name = core.CleanString(f.Name)
	f.Email = core.CleanString(f.Email, true /* lower */)
	return f
}

func (f TeamMemberForm) Validate() error {
	f = f.clean()
	if f.Name == "" || f.Email == "" {
		return core.NewValidationError(errNameEmailNeeded)
	}
	return core.ValidateStruct(f)
}

func (f TeamMemberForm) Payload() url.Values {
	f = f.clean()
	return url.Values{"email": {f.Email}, "name": {f.Name}}
}

func (f TeamMemberForm) Diff(orig TeamMember) (url.Values, error) {
	f = f.clean()
	vals := url.Values{}
	if f.Name != orig.Name {
		vals.Set("name", f.Name)
	}
	if f.Email != orig.Email {
		vals.Set("email", f.Email)
	}
	if len(vals) == 0 {
		return nil, core.ErrNoChanges
	}
	return vals, nil
}

// branding

type ThemeForm struct {
	PrimaryColor   string `form:"primary_color" validate:"required,hexcolor"`
	SecondaryColor string `form:"secondary_color" validate:"required,hexcolor"`
	AccentColor    string `form:"accent_color" validate:"required,hexcolor"`
}

func EditThemeForm(t Theme) ThemeForm {
	return ThemeForm{PrimaryColor: t.PrimaryColor, SecondaryColor: t.SecondaryColor, AccentColor: t.AccentColor}
}

func (f ThemeForm) clean() ThemeForm {
	f.PrimaryColor = strings.ToUpper(core.CleanString(f.PrimaryColor))
	f.SecondaryColor = strings.ToUpper(core.CleanString(f.SecondaryColor))
	f.AccentColor = strings.ToUpper(core.CleanString(f.AccentColor))
	return f
}

func (f ThemeForm) Validate() error { return core.ValidateStruct(f.clean()) }

// Theme is the JSON body: the whole theme is always sent.
func (f ThemeForm) Theme() Theme {
	f = f.clean()
	return Theme{PrimaryColor: f.PrimaryColor, SecondaryColor: f.SecondaryColor, AccentColor: f.AccentColor}
}

func (f ThemeForm) Diff(orig Theme) (Theme, error) {
	theme := f.Theme()
	if theme == EditThemeForm(orig).Theme() {
		return Theme{}, core.ErrNoChanges
	}
	return theme, nil
}

// BrandingAsset is a file to upload as the school's logo, favicon or banner.
type BrandingAsset struct {
	Filename  string    `form:"file" validate:"required"`
	Reader    io.Reader `form:"-"`
	AssetType string    `form:"asset_type" validate:"required,oneof=logo favicon banner"`
}

func (a BrandingAsset) Validate() error {
	if err := core.ValidateStruct(a); err != nil {
		return err
	}
	if a.Reader == nil {
		return core.NewValidationError(errors.New("no file to upload"), core.FieldError{Field: "file", Error: "file is required"})
	}
	return nil
}

// payments

type PaymentForm struct {
	Amount      float64 `json:"amount" form:"amount" validate:"gt=0"`
	Currency    string  `json:"currency" form:"currency" validate:"required,iso4217"`
	Description string  `json:"description,omitempty" form:"description"`
}

func (f PaymentForm) clean() PaymentForm {
	f.Currency = strings.ToUpper(core.CleanString(f.Currency))
	f.Description = core.CleanString(f.Description)
	return f
}

func (f PaymentForm) Validate() error { return core.ValidateStruct(f.clean()) }

// Body is the JSON body of the payment request.
func (f PaymentForm) Body() PaymentForm { return f.clean() }

package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
)

// Profile kinds
const (
	ProfileStudent = "student"
	ProfileTeacher = "teacher"
)

// Profile attaches the study- or work-related details to a UserAccount.
// Exactly one profile exists per user; its Kind decides which fields are set.
type Profile struct {
	Kind string `json:"kind"`

	// teacher profile
	ScientificDegree string `json:"scientific_degree,omitempty"`
	Position         string `json:"position,omitempty"`

	// student profile
	StudentCardID int64 `json:"student_card_id,omitempty"`
}

// User is the account model used for authentication. Email is the username field.
type User struct {
	ID             int       `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	MiddleName     string    `json:"middle_name"`
	Email          string    `json:"email"`
	EmailConfirmed bool      `json:"email_confirmed"`
	TwoFAEnabled   bool      `json:"two_fa_enabled"`
	IsActive       bool      `json:"is_active"`
	IsAdmin        bool      `json:"-"`
	PasswordHash   []byte    `json:"-"`
	Profile        *Profile  `json:"profile,omitempty"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
	LastLogin      time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) FullName() string {
	return u.LastName + " " + u.FirstName
}

// IsTeacher reports whether the account carries a teacher profile. This is the
// global teacher flag used for cross-course actions (e.g. creating a course);
// per-course roles live on CourseMember.
func (u User) IsTeacher() bool {
	return u.Profile != nil && u.Profile.Kind == ProfileTeacher
}

func (u User) IsStudent() bool {
	return u.Profile != nil && u.Profile.Kind == ProfileStudent
}

// NewUser contains information needed to register a new User.
// EmailToken must have been issued beforehand via the email-confirm flow.
type NewUser struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	MiddleName      string `json:"middle_name"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	EmailToken      string `json:"email_token" validate:"required"`

	ProfileType      string `json:"profile_type" validate:"required,oneof=student teacher"`
	ScientificDegree string `json:"scientific_degree" validate:"required_if=ProfileType teacher"`
	Position         string `json:"position" validate:"required_if=ProfileType teacher"`
	StudentCardID    int64  `json:"student_card_id" validate:"required_if=ProfileType student"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.MiddleName = core.CleanString(nu.MiddleName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, nu.Email)
}

func (nu NewUser) profile() *Profile {
	if nu.ProfileType == ProfileTeacher {
		return &Profile{
			Kind:             ProfileTeacher,
			ScientificDegree: nu.ScientificDegree,
			Position:         nu.Position,
		}
	}
	return &Profile{
		Kind:          ProfileStudent,
		StudentCardID: nu.StudentCardID,
	}
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	MiddleName   string `json:"middle_name"`
	TwoFAEnabled *bool  `json:"two_fa_enabled"`

	ScientificDegree string `json:"scientific_degree"`
	Position         string `json:"position"`
	StudentCardID    int64  `json:"student_card_id"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(uu.FirstName); name != "" {
		uu.FirstName = name
	} else {
		uu.FirstName = origUsr.FirstName
	}
	if name := core.CleanString(uu.LastName); name != "" {
		uu.LastName = name
	} else {
		uu.LastName = origUsr.LastName
	}
	if name := core.CleanString(uu.MiddleName); name != "" {
		uu.MiddleName = name
	} else {
		uu.MiddleName = origUsr.MiddleName
	}
	return validate.Struct(uu)
}

type Login struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	TwoFACode string `json:"two_fa_code"`
}

func (l *Login) Validate(validate *validator.Validate) error {
	l.Email = core.CleanString(l.Email, true /* lower */)
	return validate.Struct(l)
}

type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error { return validate.Struct(cp) }

type ResetUserPassword struct {
	Email           string `json:"email" validate:"required,email"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	return validate.Struct(rp)
}

type ChangeEmail struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

func (ce *ChangeEmail) Validate(validate *validator.Validate) error {
	ce.Email = core.CleanString(ce.Email, true /* lower */)
	return validate.Struct(ce)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

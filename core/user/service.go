package user

import (
	"context"
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
)

var (
	// errors
	ErrNotFound          = errors.New("user not found")
	ErrEmailExists       = errors.New("a user with this email already exists")
	ErrEmailNotConfirmed = errors.New("mail verification is needed")
	ErrTwoFARequired     = errors.New("2FA verification is needed")
	ErrTwoFAInvalid      = errors.New("2FA token is not valid")
	ErrInvalidToken      = errors.New("given token is invalid, make sure to check your email")
)

type (
	GetFilter struct {
		ID    int
		Email string
	}

	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of the name parts or Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUser(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	Service interface {
		Register(ctx context.Context, nu NewUser) (User, error)
		GetByID(ctx context.Context, id int) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Update(ctx context.Context, id int, uu UpdateUser) (User, error)
		Delete(ctx context.Context, id int) error
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...User) error

		// Authenticate validates the credentials and the account state. It
		// returns ErrEmailNotConfirmed, ErrTwoFARequired (after dispatching a
		// code) or ErrTwoFAInvalid when the corresponding step is missing.
		Authenticate(ctx context.Context, data Login) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		ChangePassword(ctx context.Context, usr User, data ChangePassword) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
		ChangeEmail(ctx context.Context, usr User, data ChangeEmail) error

		// SendToken issues a code for the given purpose and mails it.
		SendToken(ctx context.Context, purpose TokenPurpose, email string) error
		CheckToken(ctx context.Context, purpose TokenPurpose, email, token string, consume bool) (bool, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  *TokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, tokens *TokenGenerator) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens:  tokens,
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, excluded ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excluded); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	ok, err := svc.tokens.Check(ctx, UnregisteredEmailToken, nu.Email, nu.EmailToken, true /* consume */)
	if err != nil {
		return User{}, errors.Wrap(err, "checking email token")
	}
	if !ok {
		return User{}, core.NewValidationError(ErrInvalidToken, core.FieldError{Field: "email_token", Error: ErrInvalidToken.Error()})
	}

	now := time.Now().UTC()
	usr := User{
		FirstName:      nu.FirstName,
		LastName:       nu.LastName,
		MiddleName:     nu.MiddleName,
		Email:          nu.Email,
		EmailConfirmed: true,
		IsActive:       true,
		Profile:        nu.profile(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err = usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}

	usr.FirstName = uu.FirstName
	usr.LastName = uu.LastName
	usr.MiddleName = uu.MiddleName
	usr.UpdatedAt = time.Now().UTC()
	if uu.TwoFAEnabled != nil {
		usr.TwoFAEnabled = *uu.TwoFAEnabled
	}
	if usr.Profile != nil {
		if usr.Profile.Kind == ProfileTeacher {
			if uu.ScientificDegree != "" {
				usr.Profile.ScientificDegree = uu.ScientificDegree
			}
			if uu.Position != "" {
				usr.Profile.Position = uu.Position
			}
		} else if uu.StudentCardID != 0 {
			usr.Profile.StudentCardID = uu.StudentCardID
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteUser(ctx, id)
}

func (svc *service) Authenticate(ctx context.Context, data Login) (User, error) {
	usr, err := svc.GetByEmail(ctx, data.Email)
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(data.Password); err != nil {
		return User{}, ErrNotFound
	}
	if !usr.EmailConfirmed {
		return User{}, ErrEmailNotConfirmed
	}

	if usr.TwoFAEnabled {
		if data.TwoFACode == "" {
			if err = svc.sendTwoFAMail(ctx, usr); err != nil {
				return User{}, errors.Wrap(err, "sending 2FA code")
			}
			return User{}, ErrTwoFARequired
		}
		ok, err := svc.tokens.Check(ctx, TwoFAToken, strconv.Itoa(usr.ID), data.TwoFACode, true /* consume */)
		if err != nil {
			return User{}, errors.Wrap(err, "checking 2FA code")
		}
		if !ok {
			return User{}, ErrTwoFAInvalid
		}
	}
	return usr, nil
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) ChangePassword(ctx context.Context, usr User, data ChangePassword) error {
	if err := usr.CheckPassword(data.OldPassword); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: "old password is incorrect"})
	}
	if err := usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err := svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	usr, err := svc.GetByEmail(ctx, data.Email)
	if err != nil {
		return err
	}

	ok, err := svc.tokens.Check(ctx, PasswordResetToken, strconv.Itoa(usr.ID), data.Token, true /* consume */)
	if err != nil {
		return errors.Wrap(err, "checking password reset token")
	}
	if !ok {
		return core.NewValidationError(ErrInvalidToken, core.FieldError{Field: "token", Error: ErrInvalidToken.Error()})
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *service) ChangeEmail(ctx context.Context, usr User, data ChangeEmail) error {
	ok, err := svc.tokens.Check(ctx, UnregisteredEmailToken, data.Email, data.Token, true /* consume */)
	if err != nil {
		return errors.Wrap(err, "checking email token")
	}
	if !ok {
		return core.NewValidationError(ErrInvalidToken, core.FieldError{Field: "token", Error: ErrInvalidToken.Error()})
	}
	if err = svc.CheckEmailUniqueness(ctx, data.Email, usr); err != nil {
		return err
	}

	usr.Email = data.Email
	usr.EmailConfirmed = true
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *service) SendToken(ctx context.Context, purpose TokenPurpose, email string) error {
	email = core.CleanString(email, true /* lower */)

	switch purpose {
	case PasswordResetToken:
		usr, err := svc.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		token, err := svc.tokens.Make(ctx, purpose, strconv.Itoa(usr.ID))
		if err != nil {
			return err
		}
		svc.sendTokenMail(usr.Email, "password-reset", tokenMailData{Name: usr.FullName(), Token: token})
	case UnregisteredEmailToken:
		// the address must not belong to an existing account
		if _, err := svc.GetByEmail(ctx, email); err == nil {
			return ErrEmailExists
		} else if errors.Cause(err) != ErrNotFound {
			return err
		}
		token, err := svc.tokens.Make(ctx, purpose, email)
		if err != nil {
			return err
		}
		svc.sendTokenMail(email, "email-confirm", tokenMailData{Token: token})
	default:
		return errors.Errorf("tokens of purpose %q cannot be requested directly", purpose)
	}
	return nil
}

func (svc *service) CheckToken(ctx context.Context, purpose TokenPurpose, email, token string, consume bool) (bool, error) {
	key := core.CleanString(email, true /* lower */)
	if purpose != UnregisteredEmailToken {
		usr, err := svc.GetByEmail(ctx, key)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return false, nil
			}
			return false, err
		}
		key = strconv.Itoa(usr.ID)
	}
	return svc.tokens.Check(ctx, purpose, key, token, consume)
}

func (svc *service) sendTwoFAMail(ctx context.Context, usr User) error {
	token, err := svc.tokens.Make(ctx, TwoFAToken, strconv.Itoa(usr.ID))
	if err != nil {
		return err
	}
	svc.sendTokenMail(usr.Email, "twofa-auth", tokenMailData{Name: usr.FullName(), Token: token})
	return nil
}

type tokenMailData struct {
	Name  string
	Token string
}

func (svc *service) sendTokenMail(email, template string, data tokenMailData) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: email}},
		Subject:      "Your verification code",
		TemplateName: template,
		TemplateData: data,
	})
}

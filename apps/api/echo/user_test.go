package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
	emailsvc "github.com/kokokojo2/desk2-virtual-university-backend/services/email"
)

func TestUserApi_register(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	emailToken, err := env.tokens.Make(ctx, user.UnregisteredEmailToken, "jdoe@desk2.com")
	if err != nil {
		t.Fatalf("Make() failed: %v", err)
	}
	newUsr := func(token string) []byte {
		return marchallObj(t, user.NewUser{
			FirstName:       "Jane",
			LastName:        "Doe",
			Email:           "jdoe@desk2.com",
			Password:        "Str0ngPassw0rd",
			PasswordConfirm: "Str0ngPassw0rd",
			EmailToken:      token,
			ProfileType:     user.ProfileStudent,
			StudentCardID:   12345678,
		})
	}

	t.Run("invalid email token", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/register", "", newUsr("LMAOOOL"))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email_token": user.ErrInvalidToken.Error()}),
		}, rec)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/register", "", marchallObj(t, map[string]string{"email": "jdoe@desk2.com"}))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("ok", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/register", "", newUsr(emailToken))
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var usr user.User
		decodeObj(t, rec, &usr)
		if usr.ID == 0 {
			t.Error("registered user has no ID")
		}
		if !usr.EmailConfirmed || !usr.IsActive {
			t.Errorf("registered user not confirmed/active: %+v", usr)
		}
		if usr.Profile == nil || usr.Profile.Kind != user.ProfileStudent {
			t.Errorf("profile = %+v; want student", usr.Profile)
		}
	})

	t.Run("email taken", func(t *testing.T) {
		// email tokens are consumed on registration; uniqueness fails first anyway
		rec := env.do(http.MethodPost, "/v1/users/register", "", newUsr(emailToken))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		}, rec)
	})
}

func TestUserApi_confirmEmail(t *testing.T) {
	env := setupEnv(t)
	createUser(t, env, "John", "Doe", "taken@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)

	t.Run("existing account", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/email-confirm", "", marchallObj(t, EmailRequest{Email: "taken@desk2.com"}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		}, rec)
	})

	t.Run("ok", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		rec := env.do(http.MethodPost, "/v1/users/email-confirm", "", marchallObj(t, EmailRequest{Email: "fresh@desk2.com"}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: "An email with a confirmation code has been sent to the address supplied."}),
		}, rec)
		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("sent messages = %d; want 1", len(emailsvc.SentMessages))
		}
		if to := emailsvc.SentMessages[0].To[0].Address; to != "fresh@desk2.com" {
			t.Errorf("mail recipient = %q; want fresh@desk2.com", to)
		}
	})
}

func TestUserApi_login(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	usr := createUser(t, env, "John", "Doe", "john@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)
	twoFAUsr := createUser(t, env, "Jane", "Roe", "jane@desk2.com", "Str0ngPassw0rd", user.ProfileTeacher, false)
	twoFAUsr.TwoFAEnabled = true
	if _, err := env.usrRepo.UpdateUser(ctx, twoFAUsr); err != nil {
		t.Fatalf("UpdateUser() failed: %v", err)
	}
	unconfirmed := createUser(t, env, "Un", "Confirmed", "late@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)
	unconfirmed.EmailConfirmed = false
	if _, err := env.usrRepo.UpdateUser(ctx, unconfirmed); err != nil {
		t.Fatalf("UpdateUser() failed: %v", err)
	}

	login := func(email, pwd, code string) []byte {
		return marchallObj(t, user.Login{Email: email, Password: pwd, TwoFACode: code})
	}
	invalidCreds := marchallObj(t, httpErr{Error: "invalid credentials"})

	tests := []httpTest{
		{name: "unknown email", body: login("nobody@desk2.com", "Str0ngPassw0rd", ""), wantCode: http.StatusBadRequest, wantData: invalidCreds},
		{name: "wrong password", body: login(usr.Email, "nope", ""), wantCode: http.StatusBadRequest, wantData: invalidCreds},
		{
			name: "email not confirmed", body: login(unconfirmed.Email, "Str0ngPassw0rd", ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailNotConfirmed.Error()}),
		},
		{
			name: "2fa code required", body: login(twoFAUsr.Email, "Str0ngPassw0rd", ""),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, LoginResponse{TwoFARequired: true}),
		},
		{
			name: "2fa code invalid", body: login(twoFAUsr.Email, "Str0ngPassw0rd", "LMAOOOL"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"two_fa_code": user.ErrTwoFAInvalid.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/v1/users/login", "", tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/login", "", login(usr.Email, "Str0ngPassw0rd", ""))
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp LoginResponse
		decodeObj(t, rec, &resp)
		if resp.Token == "" {
			t.Error("login returned an empty token")
		}
	})

	t.Run("2fa ok", func(t *testing.T) {
		// regenerating within the same time bucket yields the mailed code
		code, err := env.tokens.Make(ctx, user.TwoFAToken, strconv.Itoa(twoFAUsr.ID))
		if err != nil {
			t.Fatalf("Make() failed: %v", err)
		}
		rec := env.do(http.MethodPost, "/v1/users/login", "", login(twoFAUsr.Email, "Str0ngPassw0rd", code))
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp LoginResponse
		decodeObj(t, rec, &resp)
		if resp.Token == "" {
			t.Error("2FA login returned an empty token")
		}
	})
}

func TestUserApi_me(t *testing.T) {
	env := setupEnv(t)
	usr := createUser(t, env, "John", "Doe", "john@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)
	token := getToken(t, usr)

	tests := []httpTest{
		{name: "auth required", method: http.MethodGet, path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "retrieve", method: http.MethodGet, path: "/v1/users/me", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("enable 2fa", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/v1/users/me", token, []byte(`{"two_fa_enabled": true}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var updated user.User
		decodeObj(t, rec, &updated)
		if !updated.TwoFAEnabled {
			t.Error("TwoFAEnabled = false, want true")
		}
		if updated.FirstName != usr.FirstName {
			t.Errorf("FirstName = %q; want %q", updated.FirstName, usr.FirstName)
		}
	})
}

func TestUserApi_passwordReset(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	usr := createUser(t, env, "John", "Doe", "john@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)

	successMsg := marchallObj(t, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	t.Run("request does not leak accounts", func(t *testing.T) {
		for _, email := range []string{usr.Email, "nobody@desk2.com"} {
			rec := env.do(http.MethodPost, "/v1/users/password-reset", "", marchallObj(t, EmailRequest{Email: email}))
			checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: successMsg}, rec)
		}
	})

	token, err := env.tokens.Make(ctx, user.PasswordResetToken, strconv.Itoa(usr.ID))
	if err != nil {
		t.Fatalf("Make() failed: %v", err)
	}
	confirm := marchallObj(t, user.ResetUserPassword{
		Email:           usr.Email,
		Token:           token,
		Password:        "EvenStr0nger",
		PasswordConfirm: "EvenStr0nger",
	})

	t.Run("confirm", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/password-reset-confirm", "", confirm)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
		}, rec)

		rec = env.do(http.MethodPost, "/v1/users/login", "", marchallObj(t, user.Login{Email: usr.Email, Password: "EvenStr0nger"}))
		if rec.Code != http.StatusOK {
			t.Errorf("login with new password: code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("token cannot be replayed", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/password-reset-confirm", "", confirm)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"token": user.ErrInvalidToken.Error()}),
		}, rec)
	})
}

func TestUserApi_tokenRefresh(t *testing.T) {
	env := setupEnv(t)
	usr := createUser(t, env, "John", "Doe", "john@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)

	t.Run("ok", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body = %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp LoginResponse
		decodeObj(t, rec, &resp)
		if resp.Token == "" {
			t.Error("refresh returned an empty token")
		}
	})

	t.Run("refresh expired", func(t *testing.T) {
		oriat := time.Now().Add(-(core.Conf.Server.JWTRefreshExpirationDelta + time.Hour)).Unix()
		token, err := GenerateToken(GetUserClaims(usr, oriat))
		if err != nil {
			t.Fatalf("GenerateToken() failed: %v", err)
		}
		rec := env.do(http.MethodPost, "/v1/users/token-refresh", token)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		}, rec)
	})
}

func TestUserApi_query(t *testing.T) {
	env := setupEnv(t)
	usr := createUser(t, env, "John", "Doe", "john@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)
	admin := createUser(t, env, "Ad", "Min", "admin@desk2.com", "Str0ngPassw0rd", user.ProfileTeacher, true)

	tests := []httpTest{
		{
			name: "admin only", method: http.MethodGet, path: "/v1/users", token: getToken(t, usr),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "list", method: http.MethodGet, path: "/v1/users", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, usr, admin),
		},
		{
			name: "search", method: http.MethodGet, path: "/v1/users?search=doe", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, usr),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserApi_detail(t *testing.T) {
	env := setupEnv(t)
	usr := createUser(t, env, "John", "Doe", "john@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)
	other := createUser(t, env, "Jane", "Roe", "jane@desk2.com", "Str0ngPassw0rd", user.ProfileStudent, false)
	admin := createUser(t, env, "Ad", "Min", "admin@desk2.com", "Str0ngPassw0rd", user.ProfileTeacher, true)

	usrPath := fmt.Sprintf("/v1/users/%d", usr.ID)
	notFound := marchallObj(t, httpErr{Error: "not found"})
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{
			name: "others do not exist", method: http.MethodGet, path: fmt.Sprintf("/v1/users/%d", other.ID),
			token: getToken(t, usr), wantCode: http.StatusNotFound, wantData: notFound,
		},
		{
			name: "own account", method: http.MethodGet, path: usrPath,
			token: getToken(t, usr), wantCode: http.StatusOK, wantData: marchallObj(t, usr),
		},
		{
			name: "admin sees anyone", method: http.MethodGet, path: usrPath,
			token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, usr),
		},
		{
			name: "update is admin only", method: http.MethodPut, path: usrPath,
			token: getToken(t, usr), body: []byte(`{"first_name": "Johnny"}`),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "admin cannot delete themselves", method: http.MethodDelete, path: fmt.Sprintf("/v1/users/%d", admin.ID),
			token: getToken(t, admin), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "admin deletes user", method: http.MethodDelete, path: fmt.Sprintf("/v1/users/%d", other.ID),
			token: getToken(t, admin), wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

package echoapi

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
)

// A token produced by GenerateToken must come back out of the JWT middleware
// as our *Claims. The middleware parses tokens with its own jwt dependency,
// so signing and parsing have to agree on the library.
func TestAuth_tokenRoundTrip(t *testing.T) {
	usr := user.User{
		ID:      7,
		Email:   "john@desk2.com",
		IsAdmin: true,
		Profile: &user.Profile{Kind: user.ProfileTeacher},
	}
	token, err := GenerateToken(GetUserClaims(usr))
	require.NoError(t, err)

	app := echo.New()
	app.GET("/claims", func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, claims)
	}, middleware.JWTWithConfig(appJWTConfig))

	req, rec := newAuthRequest(http.MethodGet, "/claims", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var claims Claims
	decodeObj(t, rec, &claims)
	assert.Equal(t, strconv.Itoa(usr.ID), claims.Subject)
	assert.Equal(t, usr.Email, claims.Email)
	assert.True(t, claims.IsTeacher)
	assert.True(t, claims.IsAdmin)

	// an unsigned or garbage token never reaches the handler
	req, rec = newAuthRequest(http.MethodGet, "/claims", "not.a.jwt")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

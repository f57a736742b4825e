package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/meghatales/bookstore/internal/models"
)

func TestRegisterCreatesUser(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", map[string]string{
		"email":        "reader@example.com",
		"password":     "s3cret",
		"display_name": "Reader",
	})
	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, env.DB.Where("email = ?", "reader@example.com").First(&user).Error)
	require.Equal(t, "Reader", user.DisplayName)
	require.Equal(t, "user", user.Role)
	require.NotEqual(t, "s3cret", user.PasswordHash)

	// the password hash never leaves the server
	require.NotContains(t, rec.Body.String(), user.PasswordHash)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]string{"email": "dup@example.com", "password": "pw"}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", body)
	require.NoError(t, env.A.Register(c))

	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/register", body)
	err := env.A.Register(c)
	require.Error(t, err)
	require.Equal(t, http.StatusConflict, err.(*echo.HTTPError).Code)
}

func TestRegisterRequiresEmailAndPassword(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", map[string]string{"email": "x@example.com"})
	err := env.A.Register(c)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, err.(*echo.HTTPError).Code)
}

func TestLoginReturnsTokensAndCookies(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", map[string]string{
		"email": "login@example.com", "password": "pw",
	})
	require.NoError(t, env.A.Register(c))

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/login", map[string]string{
		"email": "login@example.com", "password": "pw",
	})
	require.NoError(t, env.A.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.NotEmpty(t, resp["refresh_token"])
	require.Equal(t, false, resp["is_admin"])

	cookies := rec.Result().Cookies()
	names := make(map[string]bool, len(cookies))
	for _, ck := range cookies {
		names[ck.Name] = true
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])

	var stored models.RefreshToken
	require.NoError(t, env.DB.Where("token = ?", resp["refresh_token"]).First(&stored).Error)
	require.False(t, stored.Revoked)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", map[string]string{
		"email": "wrongpw@example.com", "password": "right",
	})
	require.NoError(t, env.A.Register(c))

	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/login", map[string]string{
		"email": "wrongpw@example.com", "password": "wrong",
	})
	err := env.A.Login(c)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, err.(*echo.HTTPError).Code)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/login", map[string]string{
		"email": "ghost@example.com", "password": "pw",
	})
	err := env.A.Login(c)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, err.(*echo.HTTPError).Code)
}

func TestLogOutRevokesRefreshToken(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", map[string]string{
		"email": "out@example.com", "password": "pw",
	})
	require.NoError(t, env.A.Register(c))

	loginRec, c := env.doJSONRequest(http.MethodPost, "/api/v1/login", map[string]string{
		"email": "out@example.com", "password": "pw",
	})
	require.NoError(t, env.A.Login(c))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &resp))
	refresh := resp["refresh_token"].(string)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/logout", nil,
		&http.Cookie{Name: "refreshToken", Value: refresh})
	require.NoError(t, env.A.LogOut(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.RefreshToken
	require.NoError(t, env.DB.Where("token = ?", refresh).First(&stored).Error)
	require.True(t, stored.Revoked)
}

func TestLogOutWithoutCookie(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/logout", nil)
	err := env.A.LogOut(c)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, err.(*echo.HTTPError).Code)
}

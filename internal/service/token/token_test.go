package token

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/meghatales/bookstore/internal/models"
)

func newTokenService(t *testing.T) *TokenService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RefreshToken{}))
	return &TokenService{
		DB:            db,
		JWTSecret:     []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}
}

func TestRotateTokenIssuesNewPair(t *testing.T) {
	svc := newTokenService(t)

	refresh, err := SignRefreshToken(7, "user", svc.RefreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(svc.DB, refresh, 7, "user"))

	access, newRefresh, err := svc.RotateToken(refresh)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEqual(t, refresh, newRefresh)

	var stored models.RefreshToken
	require.NoError(t, svc.DB.Where("token = ?", newRefresh).First(&stored).Error)
	require.Equal(t, uint(7), stored.UserID)
}

func TestRotateRejectsRevokedToken(t *testing.T) {
	svc := newTokenService(t)

	refresh, err := SignRefreshToken(7, "user", svc.RefreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(svc.DB, refresh, 7, "user"))
	require.NoError(t, svc.DB.Model(&models.RefreshToken{}).
		Where("token = ?", refresh).Update("revoked", true).Error)

	_, _, err = svc.RotateToken(refresh)
	require.Error(t, err)
}

func TestRotateRejectsAccessTokenAsRefresh(t *testing.T) {
	svc := newTokenService(t)

	// signed with the refresh secret but missing the typ claim
	access, err := SignAccessToken(7, "user", svc.RefreshSecret)
	require.NoError(t, err)

	_, _, err = svc.RotateToken(access)
	require.Error(t, err)
}

func TestRotateRejectsUnknownToken(t *testing.T) {
	svc := newTokenService(t)

	refresh, err := SignRefreshToken(7, "user", svc.RefreshSecret)
	require.NoError(t, err)

	_, _, err = svc.RotateToken(refresh)
	require.Error(t, err)
}

func TestMiddlewareSetsUserFromAccessCookie(t *testing.T) {
	svc := newTokenService(t)
	e := echo.New()

	access, err := SignAccessToken(42, "user", svc.JWTSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: access})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	next := func(c echo.Context) error {
		called = true
		require.Equal(t, uint(42), c.Get("userID"))
		require.Equal(t, "user", c.Get("role"))
		return nil
	}
	require.NoError(t, svc.AutoRefreshMiddleware(next)(c))
	require.True(t, called)
}

func TestAdminMiddlewareRejectsUserRole(t *testing.T) {
	svc := newTokenService(t)
	e := echo.New()

	access, err := SignAccessToken(42, "user", svc.JWTSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/books", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: access})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return nil }
	err = svc.AutoRefreshMiddlewareAdmin(next)(c)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, err.(*echo.HTTPError).Code)
}

func TestMiddlewareRotatesExpiredAccess(t *testing.T) {
	svc := newTokenService(t)
	e := echo.New()

	refresh, err := SignRefreshToken(42, "user", svc.RefreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(svc.DB, refresh, 42, "user"))

	// no access cookie at all, only the refresh cookie
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	next := func(c echo.Context) error {
		called = true
		require.Equal(t, uint(42), c.Get("userID"))
		return nil
	}
	require.NoError(t, svc.AutoRefreshMiddleware(next)(c))
	require.True(t, called)

	// the rotated pair lands in fresh cookies
	cookies := rec.Result().Cookies()
	names := make(map[string]bool, len(cookies))
	for _, ck := range cookies {
		names[ck.Name] = true
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])
}

func TestMiddlewareRejectsMissingCookies(t *testing.T) {
	svc := newTokenService(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return nil }
	err := svc.AutoRefreshMiddleware(next)(c)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, err.(*echo.HTTPError).Code)
}

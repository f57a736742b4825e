package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/meghatales/bookstore/internal/blobstore"
	"github.com/meghatales/bookstore/internal/cart"
	"github.com/meghatales/bookstore/internal/clock"
	"github.com/meghatales/bookstore/internal/docstore"
	"github.com/meghatales/bookstore/internal/models"
	"github.com/meghatales/bookstore/internal/preview"
)

type testEnv struct {
	T     *testing.T
	E     *echo.Echo
	DB    *gorm.DB
	Store *docstore.MemoryStore
	Blobs *blobstore.MemoryStore
	Clock *clock.Fake

	A   *AuthHandler
	C   *CartHandler
	Cat *CatalogHandler
	L   *LibraryHandler
	P   *PreviewHandler
	D   *DashboardHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.User{}, &models.RefreshToken{}, &models.Purchase{},
	))

	store := docstore.NewMemoryStore()
	blobs := blobstore.NewMemoryStore()
	clk := &clock.Fake{Current: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
	tracker := preview.NewTracker(store, clk, 5)

	jwtSecret := []byte("test_jwt_secret")
	refreshSecret := []byte("test_refresh_secret")

	env := &testEnv{
		T:     t,
		E:     echo.New(),
		DB:    gdb,
		Store: store,
		Blobs: blobs,
		Clock: clk,
	}
	env.A = &AuthHandler{DB: gdb, JWTSecret: jwtSecret, RefreshSecret: refreshSecret}
	env.C = &CartHandler{Sessions: cart.NewSessionStore(), Store: store, DB: gdb, Clock: clk}
	env.Cat = &CatalogHandler{Store: store, Clock: clk}
	env.L = &LibraryHandler{Store: store, Blobs: blobs}
	env.P = &PreviewHandler{Tracker: tracker}
	env.D = &DashboardHandler{DB: gdb, Tracker: tracker}

	return env
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) doMultipartRequest(path string, fields map[string]string, fileField, fileName string, fileBody []byte) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(env.T, w.WriteField(k, v))
	}
	fw, err := w.CreateFormFile(fileField, fileName)
	require.NoError(env.T, err)
	_, err = fw.Write(fileBody)
	require.NoError(env.T, err)
	require.NoError(env.T, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

// signIn creates a user row and marks the echo context as authenticated the
// way the token middleware would.
func (env *testEnv) signIn(c echo.Context, email string) uint {
	user := models.User{Email: email, DisplayName: "Test Reader", PasswordHash: "x", Role: "user"}
	require.NoError(env.T, env.DB.Create(&user).Error)
	c.Set("userID", user.ID)
	c.Set("role", user.Role)
	return user.ID
}

// sessionCookie pins the cart session so consecutive requests share a cart.
func sessionCookie() *http.Cookie {
	return &http.Cookie{Name: cartCookie, Value: "test-session", Path: "/"}
}

func (env *testEnv) seedBook(id, title string, price float64) {
	require.NoError(env.T, env.Store.Put(context.Background(), ColBooks, id, docstore.Record{
		"id": id, "title": title, "price": price, "genre": "Fiction",
	}))
}

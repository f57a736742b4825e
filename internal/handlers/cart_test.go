package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meghatales/bookstore/internal/models"
)

func TestGetCartStartsEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/cart", nil, sessionCookie())
	require.NoError(t, env.C.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Items)
	require.Zero(t, resp.ItemCount)
}

func TestAddToCartMergesQuantities(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook("b1", "Dune", 100)

	load := map[string]any{"product_id": "b1", "quantity": 2}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", load, sessionCookie())
	require.NoError(t, env.C.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = env.doJSONRequest(http.MethodPost, "/api/v1/cart", map[string]any{"product_id": "b1", "quantity": 3}, sessionCookie())
	require.NoError(t, env.C.AddToCart(c))

	var resp cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, 5, resp.Items[0].Quantity)
	require.Equal(t, "500", resp.Total.String())
}

func TestAddToCartUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	load := map[string]any{"product_id": "missing", "quantity": 1}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", load, sessionCookie())

	err := env.C.AddToCart(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestUpdateAndRemove(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook("a", "Dune", 100)
	env.seedBook("b", "Hobbit", 50)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", map[string]any{"product_id": "a", "quantity": 2}, sessionCookie())
	require.NoError(t, env.C.AddToCart(c))
	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/cart", map[string]any{"product_id": "b", "quantity": 1}, sessionCookie())
	require.NoError(t, env.C.AddToCart(c))

	// total = 100*2 + 50*1
	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/cart", nil, sessionCookie())
	require.NoError(t, env.C.GetCart(c))
	var resp cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "250", resp.Total.String())

	// remove b -> 200
	rec, c = env.doJSONRequest(http.MethodDelete, "/api/v1/cart/b", nil, sessionCookie())
	c.SetParamNames("id")
	c.SetParamValues("b")
	require.NoError(t, env.C.RemoveFromCart(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "200", resp.Total.String())

	// quantity 0 removes the remaining line
	rec, c = env.doJSONRequest(http.MethodPatch, "/api/v1/cart/a", map[string]any{"quantity": 0}, sessionCookie())
	c.SetParamNames("id")
	c.SetParamValues("a")
	require.NoError(t, env.C.UpdateQuantity(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Items)
}

func TestCheckoutRequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/checkout", nil, sessionCookie())
	err := env.C.Checkout(c)
	require.Error(t, err)
}

func TestCheckoutSnapshotsAndClears(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook("a", "Dune", 100)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", map[string]any{"product_id": "a", "quantity": 2}, sessionCookie())
	require.NoError(t, env.C.AddToCart(c))

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/checkout", nil, sessionCookie())
	userID := env.signIn(c, "reader@example.com")
	require.NoError(t, env.C.Checkout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var purchases []models.Purchase
	require.NoError(t, env.DB.Where("user_id = ?", userID).Find(&purchases).Error)
	require.Len(t, purchases, 1)
	require.Equal(t, "Dune", purchases[0].ItemName)
	require.Equal(t, 2, purchases[0].Quantity)
	require.True(t, purchases[0].Amount.Equal(decimal.NewFromInt(200)))

	// the cart is gone afterwards
	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/cart", nil, sessionCookie())
	require.NoError(t, env.C.GetCart(c))
	var resp cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Items)
}

func TestCheckoutEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/checkout", nil, sessionCookie())
	env.signIn(c, "reader@example.com")

	err := env.C.Checkout(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

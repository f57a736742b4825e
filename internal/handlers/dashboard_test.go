package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meghatales/bookstore/internal/models"
)

func TestDashboardShowsProfilePurchasesAndQuota(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/dashboard", nil)
	userID := env.signIn(c, "dash@example.com")

	older := models.Purchase{
		UserID: userID, ItemName: "Monsoon Tales", ItemType: "Book",
		Quantity: 1, Amount: decimal.NewFromInt(250), Status: "new",
		PurchaseDate: env.Clock.Now().Add(-48 * time.Hour),
	}
	newer := models.Purchase{
		UserID: userID, ItemName: "Anthill", ItemType: "Book",
		Quantity: 2, Amount: decimal.NewFromInt(400), Status: "new",
		PurchaseDate: env.Clock.Now(),
	}
	require.NoError(t, env.DB.Create(&older).Error)
	require.NoError(t, env.DB.Create(&newer).Error)

	// burn two seconds of today's preview budget
	_, pc := env.doJSONRequest(http.MethodPost, "/api/v1/preview/pdf-1/start", nil)
	pc.Set("userID", userID)
	pc.SetParamNames("id")
	pc.SetParamValues("pdf-1")
	require.NoError(t, env.P.Start(pc))
	for i := 0; i < 2; i++ {
		_, tc := env.doJSONRequest(http.MethodPost, "/api/v1/preview/tick", nil)
		tc.Set("userID", userID)
		require.NoError(t, env.P.Tick(tc))
	}

	require.NoError(t, env.D.GetDashboard(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Profile   models.User       `json:"profile"`
		Purchases []models.Purchase `json:"purchases"`
		Remaining int               `json:"preview_seconds_remaining"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Equal(t, "dash@example.com", resp.Profile.Email)
	require.Len(t, resp.Purchases, 2)
	require.Equal(t, "Anthill", resp.Purchases[0].ItemName)
	require.Equal(t, "Monsoon Tales", resp.Purchases[1].ItemName)
	require.Equal(t, 3, resp.Remaining)
}

func TestDashboardRequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodGet, "/api/v1/dashboard", nil)
	require.Error(t, env.D.GetDashboard(c))
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/meghatales/bookstore/internal/cart"
	"github.com/meghatales/bookstore/internal/clock"
	"github.com/meghatales/bookstore/internal/docstore"
	"github.com/meghatales/bookstore/internal/events"
	"github.com/meghatales/bookstore/internal/mail"
	"github.com/meghatales/bookstore/internal/models"
)

type CartHandler struct {
	Sessions *cart.SessionStore
	Store    docstore.Store
	DB       *gorm.DB
	Producer *events.Producer
	Mail     *mail.Sender
	Clock    clock.Clock
}

type cartView struct {
	Items     []cart.LineItem `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

func view(c *cart.Cart) cartView {
	return cartView{Items: c.Items(), Total: c.Total(), ItemCount: c.ItemCount()}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	return c.JSON(http.StatusOK, view(h.Sessions.Get(sessionID(c))))
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	rec, err := h.Store.Get(c.Request().Context(), ColBooks, req.ProductID)
	if errors.Is(err, docstore.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	title, _ := rec["title"].(string)
	price, _ := rec["price"].(float64)
	product := cart.Product{
		ID:        req.ProductID,
		Title:     title,
		UnitPrice: decimal.NewFromFloat(price),
	}

	sid := sessionID(c)
	ct := h.Sessions.Get(sid)
	if err := ct.AddItem(product, req.Quantity); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	publish(c, h.Producer, events.TopicCartEvents, sid, map[string]any{
		"type":      "cart_item_added",
		"session":   sid,
		"productID": req.ProductID,
		"quantity":  req.Quantity,
	})
	return c.JSON(http.StatusOK, view(ct))
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sid := sessionID(c)
	ct := h.Sessions.Get(sid)
	ct.UpdateQuantity(c.Param("id"), req.Quantity)

	publish(c, h.Producer, events.TopicCartEvents, sid, map[string]any{
		"type":      "cart_quantity_updated",
		"session":   sid,
		"productID": c.Param("id"),
		"quantity":  req.Quantity,
	})
	return c.JSON(http.StatusOK, view(ct))
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	sid := sessionID(c)
	ct := h.Sessions.Get(sid)
	ct.RemoveItem(c.Param("id"))

	publish(c, h.Producer, events.TopicCartEvents, sid, map[string]any{
		"type":      "cart_item_removed",
		"session":   sid,
		"productID": c.Param("id"),
	})
	return c.JSON(http.StatusOK, view(ct))
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	sid := sessionID(c)
	h.Sessions.Get(sid).Clear()
	return c.NoContent(http.StatusNoContent)
}

// Checkout snapshots the cart into purchase history, clears it and sends
// the confirmation mail. Requires a signed-in user.
func (h *CartHandler) Checkout(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	sid := sessionID(c)
	ct := h.Sessions.Get(sid)
	items := ct.Items()
	if len(items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
	}
	total := ct.Total()

	var purchases []models.Purchase
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		now := h.Clock.Now().UTC()
		for _, it := range items {
			p := models.Purchase{
				UserID:       userID,
				ItemName:     it.Title,
				ItemType:     "Book",
				Quantity:     it.Quantity,
				Amount:       it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
				Status:       "new",
				PurchaseDate: now,
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			purchases = append(purchases, p)
		}
		return nil
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	ct.Clear()

	publish(c, h.Producer, events.TopicCartEvents, eventKey(userID), map[string]any{
		"type":   "checkout_completed",
		"userID": userID,
		"total":  total.String(),
		"items":  len(items),
	})

	var user models.User
	if err := h.DB.First(&user, userID).Error; err == nil {
		if err := h.Mail.SendPurchaseConfirmation(user.Email, user.DisplayName, items, total); err != nil {
			c.Logger().Errorf("confirmation mail error: %v", err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total":     total,
		"status":    "new",
		"purchases": purchases,
	})
}

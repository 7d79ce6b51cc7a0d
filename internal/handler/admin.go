package handler

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/appletondrawingclub/registration-api/internal/utils"
)

// AdminHandler serves the small admin surface: login and per-event
// registration listing. There is a single admin identity configured
// through the environment; its password is stored as a bcrypt hash.
type AdminHandler struct {
	Store             RegistrationStore
	AdminEmail        string
	AdminPasswordHash string
	JWTSecret         string
	AccessTTLMin      int
}

// NewAdminHandler constructs an AdminHandler and panics if a required
// dependency is missing.
func NewAdminHandler(store RegistrationStore, adminEmail, adminPasswordHash, jwtSecret string, accessTTLMin int) *AdminHandler {
	if store == nil || adminEmail == "" || adminPasswordHash == "" || jwtSecret == "" {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Store:             store,
		AdminEmail:        adminEmail,
		AdminPasswordHash: adminPasswordHash,
		JWTSecret:         jwtSecret,
		AccessTTLMin:      accessTTLMin,
	}
}

// Login handles POST /api/admin/login and exchanges the admin credentials
// for a short-lived access token. Wrong email and wrong password produce
// the same response so the endpoint leaks nothing about which was wrong.
func (h *AdminHandler) Login(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if body.Email != h.AdminEmail || !utils.VerifyPassword(h.AdminPasswordHash, body.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials"})
	}

	tok, err := utils.NewAccessToken(h.JWTSecret, body.Email, h.AccessTTLMin)
	if err != nil {
		log.Printf("admin: token signing failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
	})
}

// ListRegistrations handles GET /api/admin/registrations?event_id=... and
// returns an event's registrations, newest first.
func (h *AdminHandler) ListRegistrations(c echo.Context) error {
	eventID := c.QueryParam("event_id")
	if msg := utils.ValidateRequired(utils.Field{Name: "event_id", Value: eventID}); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	regs, err := h.Store.ListByEvent(c.Request().Context(), eventID)
	if err != nil {
		log.Printf("admin: listing registrations for event %s failed: %v", eventID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"registrations": regs,
		"count":         len(regs),
	})
}

package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/appletondrawingclub/registration-api/internal/repository"
)

// EventHandler serves read-only event reference data.
type EventHandler struct {
	Events EventStore
}

// NewEventHandler constructs an EventHandler and panics if the store is nil.
func NewEventHandler(events EventStore) *EventHandler {
	if events == nil {
		panic("nil store passed to NewEventHandler")
	}
	return &EventHandler{Events: events}
}

// GetEvent handles GET /api/events/:id and returns the event joined with
// its location, the same projection the email renderer consumes.
func (h *EventHandler) GetEvent(c echo.Context) error {
	id := c.Param("id")
	detail, err := h.Events.GetDetail(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Event not found"})
		}
		log.Printf("events: lookup failed for %s: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, detail)
}

package handler

// Public, unauthenticated browse endpoints used by the storefront:
// the list of activities, the passes on sale and the scheduled time
// slots. These routes sit behind the Redis response cache since the
// catalog changes rarely and the storefront polls it often.

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/aubrac/kermesse-ticketing/internal/repository"
    "github.com/aubrac/kermesse-ticketing/internal/validation"
)

// PublicHandler exposes sanitized catalog data for guests.
type PublicHandler struct {
    Catalog *repository.CatalogRepo
}

// NewPublicHandler constructs a PublicHandler. The repository must be non-nil.
func NewPublicHandler(catalog *repository.CatalogRepo) *PublicHandler {
    if catalog == nil {
        panic("nil repository passed to NewPublicHandler")
    }
    return &PublicHandler{Catalog: catalog}
}

// GetActivities handles GET /v1/activities. The activity set is a closed
// enum, so this endpoint serves it straight from code with display labels.
func (h *PublicHandler) GetActivities(c echo.Context) error {
    type item struct {
        Name  string `json:"name"`
        Label string `json:"label"`
    }
    items := make([]item, 0, len(validation.Activities()))
    for _, a := range validation.Activities() {
        items = append(items, item{Name: string(a), Label: a.Label()})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// GetPasses handles GET /v1/passes. Only passes currently on sale are
// returned unless ?all=true is given.
func (h *PublicHandler) GetPasses(c echo.Context) error {
    activeOnly := !strings.EqualFold(c.QueryParam("all"), "true")
    passes, err := h.Catalog.ListPasses(c.Request().Context(), activeOnly)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load passes"})
    }
    type item struct {
        ID         uint64 `json:"id"`
        Name       string `json:"name"`
        PriceCents uint32 `json:"price_cents"`
    }
    items := make([]item, 0, len(passes))
    for _, p := range passes {
        items = append(items, item{ID: p.ID, Name: p.Name, PriceCents: p.PriceCents})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// GetTimeSlots handles GET /v1/time-slots. The optional ?activity=
// parameter restricts the listing to one activity; unknown names are
// rejected up front.
func (h *PublicHandler) GetTimeSlots(c echo.Context) error {
    activity := ""
    if v := strings.TrimSpace(c.QueryParam("activity")); v != "" {
        a, err := validation.ParseActivity(v)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown activity"})
        }
        activity = string(a)
    }
    slots, err := h.Catalog.ListTimeSlots(c.Request().Context(), activity)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load time slots"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": slots, "count": len(slots)})
}

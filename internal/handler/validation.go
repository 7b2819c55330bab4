package handler

// This file defines the on-site validation endpoints: providers scan or
// type a reservation code and the engine decides whether admission is
// granted; admins can revoke a recorded validation so the ticket can be
// scanned again. Business rejections come back as HTTP 200 with the
// engine's structured result — the surface renders them as distinct
// outcomes, not failures. Only infrastructure faults produce a 5xx.

import (
    "context"
    "database/sql"
    "errors"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/aubrac/kermesse-ticketing/internal/queue"
    "github.com/aubrac/kermesse-ticketing/internal/repository"
    queue_publisher "github.com/aubrac/kermesse-ticketing/internal/service"
    "github.com/aubrac/kermesse-ticketing/internal/validation"
)

// ValidationHandler bundles the engine and the user repository needed to
// resolve the acting agent. The engine takes the actor explicitly; this
// handler is the only place where JWT context state is turned into a
// validation.Actor.
type ValidationHandler struct {
    Engine *validation.Engine
    Users  *repository.UserRepo
}

// NewValidationHandler constructs a ValidationHandler. Both dependencies
// must be non-nil.
func NewValidationHandler(engine *validation.Engine, users *repository.UserRepo) *ValidationHandler {
    if engine == nil || users == nil {
        panic("nil dependency passed to NewValidationHandler")
    }
    return &ValidationHandler{Engine: engine, Users: users}
}

type validateReq struct {
    Code     string `json:"code"`
    Activity string `json:"activity"`
}

type revokeReq struct {
    Reason string `json:"reason"`
}

// Validate handles POST /v1/validations. The body carries the raw
// reservation code (as decoded from the QR scan or typed manually) and
// the activity the agent is admitting for. The engine's full result is
// returned on 200 regardless of acceptance; callers branch on the
// status flags.
func (h *ValidationHandler) Validate(c echo.Context) error {
    actor, err := h.currentActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req validateReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    activity, err := validation.ParseActivity(req.Activity)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown activity"})
    }

    ctx := c.Request().Context()
    result, err := h.Engine.Validate(ctx, req.Code, activity, actor)
    if err != nil {
        // Infrastructure fault: the store could not be reached or
        // returned garbage. This must stay distinct from a business
        // rejection so a real outage is never rendered as "Code invalide".
        log.Printf("validation: engine failure for activity=%s: %v", activity, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validation backend unavailable"})
    }

    // Fan the admission out to the audit queue, but only when a new
    // ledger row was actually written. Publish failures are logged by
    // the publisher and do not affect the agent-facing response.
    if result.Status.Validated && !result.Status.AlreadyValidated && result.Reservation != nil {
        ev := queue.TicketValidatedEvent{
            ValidationID:      result.History[0].ID,
            ReservationID:     result.Reservation.ID,
            ReservationNumber: result.Reservation.Number,
            ClientEmail:       result.Reservation.ClientEmail,
            PassName:          result.Reservation.PassName,
            Activity:          string(activity),
            AgentID:           actor.ID,
            AgentEmail:        actor.Email,
            ValidatedAt:       result.History[0].ValidatedAt.UTC().Format(time.RFC3339),
        }
        _ = queue_publisher.PublishTicketValidated(ctx, ev)
    }

    return c.JSON(http.StatusOK, result)
}

// Revoke handles POST /v1/validations/:id/revoke. Only admins reach it
// (role middleware), and the engine checks the role again before
// writing. A false result with no error means there was nothing to
// revoke: the event does not exist or was already revoked.
func (h *ValidationHandler) Revoke(c echo.Context) error {
    actor, err := h.currentActor(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || eventID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid validation id"})
    }
    var req revokeReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    if actor.Role != validation.RoleAdmin {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    ok, err := h.Engine.Revoke(c.Request().Context(), eventID, req.Reason, actor)
    if err != nil {
        log.Printf("validation: revoke failure for event=%d: %v", eventID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
    }
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"revoked": false, "error": "no active validation for this id"})
    }
    return c.JSON(http.StatusOK, echo.Map{"revoked": true})
}

// currentActor resolves the authenticated agent from the JWT context
// values and loads the account to pick up the email and the is_active
// flag. Deactivated accounts are treated as unauthorized even when
// their token has not yet expired.
func (h *ValidationHandler) currentActor(c echo.Context) (validation.Actor, error) {
    uid, err := getUserID(c)
    if err != nil {
        return validation.Actor{}, err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return validation.Actor{}, errors.New("unknown user")
        }
        return validation.Actor{}, err
    }
    if !u.IsActive {
        return validation.Actor{}, errors.New("account deactivated")
    }
    return validation.Actor{ID: u.ID, Email: u.Email, Role: u.Role}, nil
}

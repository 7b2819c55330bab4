package handler

// Admin-only agent management: creating provider/admin accounts, listing
// them and deactivating the ones that should no longer validate tickets.
// These endpoints replace public registration — nobody signs themselves
// up for the back office.

import (
    "context"
    "database/sql"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/aubrac/kermesse-ticketing/internal/config"
    "github.com/aubrac/kermesse-ticketing/internal/repository"
    "github.com/aubrac/kermesse-ticketing/internal/validation"
)

// AgentHandler bundles what the agent-management endpoints need.
type AgentHandler struct {
    Cfg   config.Config
    Users *repository.UserRepo
}

// NewAgentHandler constructs an AgentHandler. The repository must be non-nil.
func NewAgentHandler(cfg config.Config, users *repository.UserRepo) *AgentHandler {
    if users == nil {
        panic("nil repository passed to NewAgentHandler")
    }
    return &AgentHandler{Cfg: cfg, Users: users}
}

type createAgentReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
    Role     string `json:"role"` // PROVIDER | ADMIN
}

type agentResp struct {
    ID       uint64 `json:"id"`
    Email    string `json:"email"`
    Role     string `json:"role"`
    IsActive bool   `json:"is_active"`
}

// Create handles POST /v1/admin/agents. Role defaults to PROVIDER when
// absent or unknown; only ADMIN and PROVIDER are accepted.
func (h *AgentHandler) Create(c echo.Context) error {
    var req createAgentReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }
    role := strings.ToUpper(strings.TrimSpace(req.Role))
    if role != validation.RoleAdmin && role != validation.RoleProvider {
        role = validation.RoleProvider
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
    if err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create agent failed"})
    }
    return c.JSON(http.StatusCreated, agentResp{ID: uid, Email: req.Email, Role: role, IsActive: true})
}

// List handles GET /v1/admin/agents.
func (h *AgentHandler) List(c echo.Context) error {
    users, err := h.Users.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load agents"})
    }
    items := make([]agentResp, 0, len(users))
    for _, u := range users {
        items = append(items, agentResp{ID: u.ID, Email: u.Email, Role: u.Role, IsActive: u.IsActive})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Deactivate handles POST /v1/admin/agents/:id/deactivate. An admin
// cannot deactivate their own account; that would strand the back office.
func (h *AgentHandler) Deactivate(c echo.Context) error {
    adminID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid agent id"})
    }
    if id == adminID {
        return c.JSON(http.StatusConflict, echo.Map{"error": "cannot deactivate own account"})
    }
    if err := h.Users.SetActive(c.Request().Context(), id, false); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

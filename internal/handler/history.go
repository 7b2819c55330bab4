package handler

// This file exposes the admin audit surface over the validations ledger:
// a filterable JSON listing and a CSV export with a fixed column layout.
// Both read the same reporting query; neither ever writes.

import (
    "log"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/aubrac/kermesse-ticketing/internal/repository"
    "github.com/aubrac/kermesse-ticketing/internal/validation"
)

// HistoryHandler serves the ledger reporting endpoints.
type HistoryHandler struct {
    Validations *repository.ValidationRepo
}

// NewHistoryHandler constructs a HistoryHandler. The repository must be non-nil.
func NewHistoryHandler(validations *repository.ValidationRepo) *HistoryHandler {
    if validations == nil {
        panic("nil repository passed to NewHistoryHandler")
    }
    return &HistoryHandler{Validations: validations}
}

// List handles GET /v1/validations. Supported query parameters:
//
//	from, to   – RFC3339 timestamps or YYYY-MM-DD dates bounding validated_at
//	activity   – comma-separated activity names (unknown names rejected)
//	agent_id   – numeric agent filter
//	status     – "validated" or "revoked"
//	q          – free text matched against reservation number or client email
//	limit      – page size (default 100, max 1000)
//	offset     – pagination offset
func (h *HistoryHandler) List(c echo.Context) error {
    filter, err := historyFilterFrom(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    rows, err := h.Validations.List(c.Request().Context(), filter)
    if err != nil {
        log.Printf("history: list failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load history"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "items": rows,
        "count": len(rows),
    })
}

// Export handles GET /v1/validations/export. It streams the filtered
// history as CSV with the fixed header
// validated_at,reservation_number,pass_name,activity,agent_email,payment_status.
// Export ignores limit/offset and uses the repository's maximum page so
// a day's ledger fits in one download.
func (h *HistoryHandler) Export(c echo.Context) error {
    filter, err := historyFilterFrom(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    filter.Limit = 1000
    filter.Offset = 0
    rows, err := h.Validations.List(c.Request().Context(), filter)
    if err != nil {
        log.Printf("history: export failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to export history"})
    }
    c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="validations.csv"`)
    return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(buildCSV(rows)))
}

// buildCSV renders history rows as CSV. Every field is double-quoted and
// internal quotes are doubled; the header row and column order are a
// fixed contract with downstream spreadsheet tooling.
func buildCSV(rows []repository.HistoryRow) string {
    var b strings.Builder
    b.WriteString("validated_at,reservation_number,pass_name,activity,agent_email,payment_status\n")
    for _, r := range rows {
        fields := []string{
            r.ValidatedAt.UTC().Format(time.RFC3339),
            r.ReservationNumber,
            r.PassName,
            r.Activity,
            r.AgentEmail,
            r.PaymentStatus,
        }
        for i, f := range fields {
            if i > 0 {
                b.WriteByte(',')
            }
            b.WriteString(csvField(f))
        }
        b.WriteByte('\n')
    }
    return b.String()
}

// csvField double-quotes a value, doubling any quotes it contains.
func csvField(s string) string {
    return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// historyFilterFrom parses the shared filter query parameters.
func historyFilterFrom(c echo.Context) (repository.HistoryFilter, error) {
    var f repository.HistoryFilter
    if v := strings.TrimSpace(c.QueryParam("from")); v != "" {
        t, err := parseTimeParam(v, false)
        if err != nil {
            return f, err
        }
        f.From = &t
    }
    if v := strings.TrimSpace(c.QueryParam("to")); v != "" {
        t, err := parseTimeParam(v, true)
        if err != nil {
            return f, err
        }
        f.To = &t
    }
    if v := strings.TrimSpace(c.QueryParam("activity")); v != "" {
        for _, part := range strings.Split(v, ",") {
            a, err := validation.ParseActivity(part)
            if err != nil {
                return f, err
            }
            f.Activities = append(f.Activities, string(a))
        }
    }
    if v := strings.TrimSpace(c.QueryParam("agent_id")); v != "" {
        id, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            return f, errInvalidParam("agent_id")
        }
        f.AgentID = id
    }
    if v := strings.TrimSpace(c.QueryParam("status")); v != "" {
        if v != validation.StatusValidated && v != validation.StatusRevoked {
            return f, errInvalidParam("status")
        }
        f.Status = v
    }
    f.Search = strings.TrimSpace(c.QueryParam("q"))
    if v := c.QueryParam("limit"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            f.Limit = n
        }
    }
    if v := c.QueryParam("offset"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n >= 0 {
            f.Offset = n
        }
    }
    return f, nil
}

// parseTimeParam accepts RFC3339 timestamps or bare dates. A bare date
// used as an upper bound is pushed to the end of that day so "to=2026-06-01"
// includes the whole day.
func parseTimeParam(v string, endOfDay bool) (time.Time, error) {
    if t, err := time.Parse(time.RFC3339, v); err == nil {
        return t.UTC(), nil
    }
    t, err := time.Parse("2006-01-02", v)
    if err != nil {
        return time.Time{}, errInvalidParam("date")
    }
    if endOfDay {
        t = t.Add(24*time.Hour - time.Second)
    }
    return t.UTC(), nil
}

type paramError string

func (e paramError) Error() string { return "invalid " + string(e) + " parameter" }

func errInvalidParam(name string) error { return paramError(name) }

package repository

import (
    "context"
    "database/sql"

    "github.com/aubrac/kermesse-ticketing/internal/model"
)

// CatalogRepo serves the read-only public browse queries: passes on sale
// and upcoming time slots. Both feed cached, unauthenticated endpoints
// so the queries stay deliberately simple.
type CatalogRepo struct {
    db *sql.DB
}

// NewCatalogRepo returns a new CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// ListPasses returns passes, optionally restricted to those currently on
// sale, ordered by name.
func (r *CatalogRepo) ListPasses(ctx context.Context, activeOnly bool) ([]model.Pass, error) {
    q := "SELECT id, name, price_cents, is_active FROM passes"
    if activeOnly {
        q += " WHERE is_active = 1"
    }
    q += " ORDER BY name"
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    passes := make([]model.Pass, 0)
    for rows.Next() {
        var p model.Pass
        if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.IsActive); err != nil {
            return nil, err
        }
        passes = append(passes, p)
    }
    return passes, rows.Err()
}

// ListTimeSlots returns time slots ordered by start time. When activity
// is non-empty only slots for that activity are returned.
func (r *CatalogRepo) ListTimeSlots(ctx context.Context, activity string) ([]model.TimeSlot, error) {
    q := "SELECT id, activity, starts_at, capacity FROM time_slots"
    args := []interface{}{}
    if activity != "" {
        q += " WHERE activity = ?"
        args = append(args, activity)
    }
    q += " ORDER BY starts_at"
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    slots := make([]model.TimeSlot, 0)
    for rows.Next() {
        var s model.TimeSlot
        if err := rows.Scan(&s.ID, &s.Activity, &s.StartsAt, &s.Capacity); err != nil {
            return nil, err
        }
        s.StartsAt = s.StartsAt.UTC()
        slots = append(slots, s)
    }
    return slots, rows.Err()
}

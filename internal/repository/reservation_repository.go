package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/aubrac/kermesse-ticketing/internal/validation"
)

// ReservationRepo provides read-only access to reservations for the
// validation engine. Reservations are created by the checkout flow in a
// separate system; this service never inserts or updates them. The repo
// implements validation.ReservationSource by shaping each raw row into
// the engine's Reservation projection at the query boundary, so the
// decision logic never sees nullable columns or join artifacts.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// FindByNumber looks a reservation up by its exact human-facing number.
// Matching is exact and case-sensitive; the caller is responsible for
// trimming user input first. The reservation's bound activity is
// resolved from its time slot when it has one, falling back to the
// activity column on the reservation itself. validation.ErrNotFound is
// returned when no row matches.
func (r *ReservationRepo) FindByNumber(ctx context.Context, number string) (*validation.Reservation, error) {
    const q = `SELECT r.id, r.number, r.client_email, r.payment_status, r.created_at,
                      p.id, p.name,
                      r.activity, ts.id, ts.activity, ts.starts_at
               FROM reservations r
               JOIN passes p ON p.id = r.pass_id
               LEFT JOIN time_slots ts ON ts.id = r.time_slot_id
               WHERE r.number = ?`
    var (
        res          validation.Reservation
        resActivity  sql.NullString
        slotID       sql.NullInt64
        slotActivity sql.NullString
        slotStartsAt sql.NullTime
    )
    err := r.db.QueryRowContext(ctx, q, number).Scan(
        &res.ID, &res.Number, &res.ClientEmail, &res.PaymentStatus, &res.CreatedAt,
        &res.PassID, &res.PassName,
        &resActivity, &slotID, &slotActivity, &slotStartsAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, validation.ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    // The time slot is authoritative for the bound activity when present;
    // otherwise the reservation's own activity column decides. Both may
    // be absent for passes not bound to a single activity.
    if slotActivity.Valid {
        res.Activity = validation.Activity(slotActivity.String)
    } else if resActivity.Valid {
        res.Activity = validation.Activity(resActivity.String)
    }
    if slotID.Valid {
        sid := uint64(slotID.Int64)
        res.TimeSlotID = &sid
    }
    if slotStartsAt.Valid {
        t := slotStartsAt.Time.UTC()
        res.SlotStartsAt = &t
    }
    return &res, nil
}

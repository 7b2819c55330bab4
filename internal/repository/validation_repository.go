package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/aubrac/kermesse-ticketing/internal/validation"
)

// ValidationRepo owns the validations ledger table. It is the only
// writer of validated rows in the system. Revocations stamp the
// revoked_* columns on the existing row rather than appending a second
// row, so the full validate/revoke history of a reservation reads back
// as an ordered list of events.
//
// The schema carries a nullable `active` column that is 1 while a
// validation is live and NULL once revoked. A unique key over
// (reservation_id, activity, active) therefore admits at most one live
// row per pair while allowing any number of revoked ones (MySQL treats
// NULLs in a unique key as distinct). Concurrent double scans race on
// that key: one insert wins, the other fails with error 1062 which
// Append maps to validation.ErrActiveExists.
type ValidationRepo struct {
    db *sql.DB
}

// NewValidationRepo returns a new ValidationRepo bound to the given database.
func NewValidationRepo(db *sql.DB) *ValidationRepo { return &ValidationRepo{db: db} }

// HistoryFor returns every ledger event for the given reservation and
// activity, most recent first. An empty slice (not nil) is returned
// when the pair has never been validated.
func (r *ValidationRepo) HistoryFor(ctx context.Context, reservationID uint64, activity validation.Activity) ([]validation.Event, error) {
    const q = `SELECT id, reservation_id, activity, status, agent_id, validated_at,
                      revoked_at, revoked_by, revoke_reason
               FROM validations
               WHERE reservation_id = ? AND activity = ?
               ORDER BY validated_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, reservationID, string(activity))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    events := make([]validation.Event, 0)
    for rows.Next() {
        ev, err := scanEvent(rows)
        if err != nil {
            return nil, err
        }
        events = append(events, ev)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return events, nil
}

// Append inserts a new validated ledger row for the pair and returns it.
// When a live validation already exists, the unique active key rejects
// the insert and validation.ErrActiveExists is returned; no row is
// written in that case.
func (r *ValidationRepo) Append(ctx context.Context, reservationID uint64, activity validation.Activity, agentID uint64) (*validation.Event, error) {
    now := time.Now().UTC()
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO validations (reservation_id, activity, status, agent_id, validated_at, active)
         VALUES (?, ?, 'validated', ?, ?, 1)`,
        reservationID, string(activity), agentID, now)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return nil, validation.ErrActiveExists
        }
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    return &validation.Event{
        ID:            uint64(id),
        ReservationID: reservationID,
        Activity:      activity,
        Status:        validation.StatusValidated,
        AgentID:       agentID,
        ValidatedAt:   now,
    }, nil
}

// Revoke marks a live validation as revoked, recording who revoked it
// and why, and clears the active marker so the pair can be validated
// again. It returns true when a row was actually revoked and false when
// the event does not exist or was already revoked.
func (r *ValidationRepo) Revoke(ctx context.Context, eventID uint64, reason string, adminID uint64) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE validations
         SET status = 'revoked', revoked_at = UTC_TIMESTAMP(), revoked_by = ?, revoke_reason = ?, active = NULL
         WHERE id = ? AND active = 1`,
        adminID, reason, eventID)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// HistoryFilter narrows the reporting query over the ledger. Zero
// values mean "no filter". Search matches the reservation number or the
// client email (OR over the two text fields). Limit defaults to 100 and
// is capped at 1000.
type HistoryFilter struct {
    From       *time.Time // validated_at >= From
    To         *time.Time // validated_at <= To
    Activities []string   // activity IN (...)
    AgentID    uint64     // agent_id = AgentID
    Status     string     // "validated" or "revoked"
    Search     string     // free text over reservation number / client email
    Limit      int
    Offset     int
}

// HistoryRow is one line of the audit/reporting view: a ledger event
// joined with its reservation, pass and agent. It feeds both the JSON
// history endpoint and the CSV export.
type HistoryRow struct {
    ID                uint64     `json:"id"`
    ValidatedAt       time.Time  `json:"validated_at"`
    ReservationNumber string     `json:"reservation_number"`
    ClientEmail       string     `json:"client_email"`
    PassName          string     `json:"pass_name"`
    Activity          string     `json:"activity"`
    Status            string     `json:"status"`
    AgentID           uint64     `json:"agent_id"`
    AgentEmail        string     `json:"agent_email"`
    PaymentStatus     string     `json:"payment_status"`
    RevokedAt         *time.Time `json:"revoked_at,omitempty"`
    RevokeReason      *string    `json:"revoke_reason,omitempty"`
}

// List runs the audit query over the ledger with the given filter and
// returns rows ordered by validation time descending. The WHERE clause
// is assembled from the filter so that absent criteria cost nothing.
func (r *ValidationRepo) List(ctx context.Context, f HistoryFilter) ([]HistoryRow, error) {
    var (
        where []string
        args  []interface{}
    )
    if f.From != nil {
        where = append(where, "v.validated_at >= ?")
        args = append(args, f.From.UTC())
    }
    if f.To != nil {
        where = append(where, "v.validated_at <= ?")
        args = append(args, f.To.UTC())
    }
    if len(f.Activities) > 0 {
        ph := make([]string, len(f.Activities))
        for i, a := range f.Activities {
            ph[i] = "?"
            args = append(args, a)
        }
        where = append(where, "v.activity IN ("+strings.Join(ph, ",")+")")
    }
    if f.AgentID != 0 {
        where = append(where, "v.agent_id = ?")
        args = append(args, f.AgentID)
    }
    if f.Status != "" {
        where = append(where, "v.status = ?")
        args = append(args, f.Status)
    }
    if s := strings.TrimSpace(f.Search); s != "" {
        like := "%" + s + "%"
        where = append(where, "(r.number LIKE ? OR r.client_email LIKE ?)")
        args = append(args, like, like)
    }

    q := `SELECT v.id, v.validated_at, r.number, r.client_email, p.name,
                 v.activity, v.status, v.agent_id, u.email, r.payment_status,
                 v.revoked_at, v.revoke_reason
          FROM validations v
          JOIN reservations r ON r.id = v.reservation_id
          JOIN passes p ON p.id = r.pass_id
          JOIN users u ON u.id = v.agent_id`
    if len(where) > 0 {
        q += " WHERE " + strings.Join(where, " AND ")
    }
    q += " ORDER BY v.validated_at DESC, v.id DESC"

    limit := f.Limit
    if limit <= 0 {
        limit = 100
    }
    if limit > 1000 {
        limit = 1000
    }
    q += " LIMIT ? OFFSET ?"
    args = append(args, limit, f.Offset)

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]HistoryRow, 0)
    for rows.Next() {
        var (
            h         HistoryRow
            revokedAt sql.NullTime
            reason    sql.NullString
        )
        if err := rows.Scan(
            &h.ID, &h.ValidatedAt, &h.ReservationNumber, &h.ClientEmail, &h.PassName,
            &h.Activity, &h.Status, &h.AgentID, &h.AgentEmail, &h.PaymentStatus,
            &revokedAt, &reason,
        ); err != nil {
            return nil, err
        }
        if revokedAt.Valid {
            t := revokedAt.Time.UTC()
            h.RevokedAt = &t
        }
        if reason.Valid {
            s := reason.String
            h.RevokeReason = &s
        }
        out = append(out, h)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// scanEvent reads one validations row into the engine's Event type,
// converting nullable columns into pointers.
func scanEvent(rows *sql.Rows) (validation.Event, error) {
    var (
        ev        validation.Event
        activity  string
        revokedAt sql.NullTime
        revokedBy sql.NullInt64
        reason    sql.NullString
    )
    if err := rows.Scan(
        &ev.ID, &ev.ReservationID, &activity, &ev.Status, &ev.AgentID, &ev.ValidatedAt,
        &revokedAt, &revokedBy, &reason,
    ); err != nil {
        return validation.Event{}, err
    }
    ev.Activity = validation.Activity(activity)
    if revokedAt.Valid {
        t := revokedAt.Time.UTC()
        ev.RevokedAt = &t
    }
    if revokedBy.Valid {
        id := uint64(revokedBy.Int64)
        ev.RevokedBy = &id
    }
    if reason.Valid {
        s := reason.String
        ev.RevokeReason = &s
    }
    return ev, nil
}

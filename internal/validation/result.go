package validation

import "time"

// Event statuses recorded in the ledger.  A row starts as validated and
// may later be stamped revoked by an admin; it is never deleted.
const (
    StatusValidated = "validated"
    StatusRevoked   = "revoked"
)

// Payment statuses carried by a reservation.  Only paid reservations may
// be validated.
const (
    PaymentPaid     = "paid"
    PaymentPending  = "pending"
    PaymentRefunded = "refunded"
)

// Actor roles recognised by the engine.  They mirror the `role` column of
// the users table and the JWT role claim.
const (
    RoleAdmin    = "ADMIN"
    RoleProvider = "PROVIDER"
)

// Rejection reasons returned to the validation surface.  The surface
// renders these verbatim, so the wording is part of the contract.
const (
    ReasonInvalidCode      = "Code invalide"
    ReasonWrongActivity    = "Réservation invalide pour cette activité"
    ReasonUnpaid           = "Paiement non validé"
    ReasonAlreadyValidated = "Réservation déjà validée"
    ReasonAuthRequired     = "Agent non authentifié"
)

// Actor is the authenticated user performing a validation or revocation.
// It is an explicit parameter of every engine entry point; the engine
// never consults ambient session state.
type Actor struct {
    ID    uint64 // users.id; zero means unauthenticated
    Email string // informational, carried into published events
    Role  string // ADMIN or PROVIDER
}

// Reservation is the engine's validated projection of a reservation row.
// It is built at the store boundary from the raw query result so the
// decision logic never touches loosely shaped database rows.  The engine
// treats it as read-only.
type Reservation struct {
    ID            uint64     `json:"id"`
    Number        string     `json:"number"`
    ClientEmail   string     `json:"client_email"`
    PaymentStatus string     `json:"payment_status"`
    PassID        uint64     `json:"pass_id"`
    PassName      string     `json:"pass_name"`
    Activity      Activity   `json:"activity,omitempty"` // bound activity; empty when the pass is not bound to one
    TimeSlotID    *uint64    `json:"time_slot_id,omitempty"`
    SlotStartsAt  *time.Time `json:"slot_starts_at,omitempty"`
    CreatedAt     time.Time  `json:"created_at"`
}

// Event is one ledger row as seen by the engine: a validation that may
// later have been revoked.  History slices are ordered most recent first.
type Event struct {
    ID            uint64     `json:"id"`
    ReservationID uint64     `json:"reservation_id"`
    Activity      Activity   `json:"activity"`
    Status        string     `json:"status"` // validated | revoked
    AgentID       uint64     `json:"agent_id"`
    ValidatedAt   time.Time  `json:"validated_at"`
    RevokedAt     *time.Time `json:"revoked_at,omitempty"`
    RevokedBy     *uint64    `json:"revoked_by,omitempty"`
    RevokeReason  *string    `json:"revoke_reason,omitempty"`
}

// Active reports whether the event represents a currently live admission:
// a validated row that has not been revoked.
func (e Event) Active() bool {
    return e.Status == StatusValidated && e.RevokedAt == nil
}

// Status is the set of mutually informative flags describing the outcome
// of a validation attempt.  Exactly one guard sets its flag on rejection,
// except that NotFound and Invalid are reported together and a duplicate
// scan sets both AlreadyValidated and Validated.
type Status struct {
    NotFound         bool `json:"notFound"`
    Invalid          bool `json:"invalid"`
    Unpaid           bool `json:"unpaid"`
    WrongActivity    bool `json:"wrongActivity"`
    AlreadyValidated bool `json:"alreadyValidated"`
    Validated        bool `json:"validated"`
}

// Meta carries the mismatched activity pair on a wrong-activity rejection.
type Meta struct {
    ReservedActivity Activity `json:"reservedActivity"`
    Requested        Activity `json:"requested"`
}

// Result is the engine's answer to a validation attempt.  Business
// rejections are expressed here, never as Go errors; a non-nil error from
// the engine always means an infrastructure fault.
type Result struct {
    Reservation *Reservation `json:"reservation"` // nil when the code did not resolve
    Activity    Activity     `json:"activity"`
    History     []Event      `json:"history"` // prior ledger events, most recent first
    Status      Status       `json:"status"`
    OK          bool         `json:"ok"`
    Reason      string       `json:"reason,omitempty"`
    Meta        *Meta        `json:"meta,omitempty"`
}

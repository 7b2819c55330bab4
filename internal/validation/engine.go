package validation

// This file implements the admission decision engine.  Given a scanned or
// typed reservation code and a requested activity, the engine looks the
// reservation up, walks a fixed guard sequence and either appends a new
// validated event to the ledger or returns a structured rejection.  The
// engine performs no locking of its own: the at-most-one-active-validation
// invariant is upheld by the ledger store (unique key over
// reservation/activity/active), and a lost race surfaces here as
// ErrActiveExists which degrades to an already-validated result.

import (
    "context" // context bounds the store calls made during a validation
    "errors"  // errors.Is distinguishes store sentinels from real faults
    "strings" // strings trims the raw code before lookup
)

// Sentinel errors shared between the engine and its store implementations.
var (
    // ErrNotFound is returned by a ReservationSource when no reservation
    // matches the given number.  The engine converts it into a
    // notFound/invalid rejection; it never escapes to callers.
    ErrNotFound = errors.New("reservation not found")

    // ErrActiveExists is returned by a Ledger when an insert would create
    // a second active validation for the same reservation and activity.
    // It is how a concurrent double scan loses the race.
    ErrActiveExists = errors.New("active validation already exists")
)

// ReservationSource looks up reservations by their human-facing number.
// Implementations must return ErrNotFound when no row matches and must
// never mutate reservation state on behalf of the engine.
type ReservationSource interface {
    FindByNumber(ctx context.Context, number string) (*Reservation, error)
}

// Ledger is the engine's view of the validation event store.  History is
// always ordered most recent first.  Append must enforce the single
// active validation invariant atomically and return ErrActiveExists when
// it would be violated.
type Ledger interface {
    HistoryFor(ctx context.Context, reservationID uint64, activity Activity) ([]Event, error)
    Append(ctx context.Context, reservationID uint64, activity Activity, agentID uint64) (*Event, error)
    Revoke(ctx context.Context, eventID uint64, reason string, adminID uint64) (bool, error)
}

// Engine evaluates validation requests.  It is stateless; both fields
// must be non-nil.
type Engine struct {
    Reservations ReservationSource
    Ledger       Ledger
}

// NewEngine constructs an Engine and panics when a dependency is missing.
func NewEngine(src ReservationSource, ledger Ledger) *Engine {
    if src == nil || ledger == nil {
        panic("nil store passed to NewEngine")
    }
    return &Engine{Reservations: src, Ledger: ledger}
}

// Validate decides whether admission to the requested activity should be
// granted for the reservation identified by code.  Guards run in a fixed
// order and the first failing one determines the rejection.  A non-nil
// error is an infrastructure fault (store unreachable); every business
// outcome, including rejections, arrives as a Result with a nil error.
//
// Exactly one ledger write happens, and only on the path where every
// guard passes; all rejection paths are read-only.
func (e *Engine) Validate(ctx context.Context, code string, activity Activity, actor Actor) (*Result, error) {
    res := &Result{Activity: activity, History: []Event{}}

    // Guard 1: format/lookup.  A blank code is rejected without touching
    // the store at all; an unknown code is rejected after the lookup.
    // Both report notFound and invalid together.
    code = strings.TrimSpace(code)
    if code == "" {
        res.Status.NotFound = true
        res.Status.Invalid = true
        res.Reason = ReasonInvalidCode
        return res, nil
    }
    r, err := e.Reservations.FindByNumber(ctx, code)
    if errors.Is(err, ErrNotFound) {
        res.Status.NotFound = true
        res.Status.Invalid = true
        res.Reason = ReasonInvalidCode
        return res, nil
    }
    if err != nil {
        return nil, err
    }
    res.Reservation = r

    // Guard 2: activity match.  A reservation bound to a different
    // activity is rejected, but its history for the requested activity is
    // still loaded so the surface can show prior events.  A reservation
    // with no bound activity is valid for any activity.
    if r.Activity != "" && r.Activity != activity {
        hist, err := e.Ledger.HistoryFor(ctx, r.ID, activity)
        if err != nil {
            return nil, err
        }
        res.History = hist
        res.Status.WrongActivity = true
        res.Reason = ReasonWrongActivity
        res.Meta = &Meta{ReservedActivity: r.Activity, Requested: activity}
        return res, nil
    }

    // Guard 3: payment.  An unpaid reservation is never validated,
    // whatever its activity or history.
    if r.PaymentStatus != PaymentPaid {
        res.Status.Unpaid = true
        res.Reason = ReasonUnpaid
        return res, nil
    }

    // An unauthenticated actor must never reach the commit step.  This is
    // not one of the enumerated status flags; the reason alone carries it.
    if actor.ID == 0 {
        res.Reason = ReasonAuthRequired
        return res, nil
    }

    // Guard 4: history/idempotency.  The current state is whatever the
    // most recent ledger entry says: an active validated row makes this a
    // duplicate scan, a revoked row (or no row) makes it a fresh one.
    hist, err := e.Ledger.HistoryFor(ctx, r.ID, activity)
    if err != nil {
        return nil, err
    }
    res.History = hist
    if len(hist) > 0 && hist[0].Active() {
        res.Status.AlreadyValidated = true
        res.Status.Validated = true
        res.OK = true
        res.Reason = ReasonAlreadyValidated
        return res, nil
    }

    // Step 5: commit.  The ledger's unique active key makes the
    // read-then-write race safe: if another agent committed between our
    // history read and this insert, we observe ErrActiveExists and report
    // the duplicate exactly as guard 4 would have.
    ev, err := e.Ledger.Append(ctx, r.ID, activity, actor.ID)
    if errors.Is(err, ErrActiveExists) {
        if hist2, err2 := e.Ledger.HistoryFor(ctx, r.ID, activity); err2 == nil {
            res.History = hist2
        }
        res.Status.AlreadyValidated = true
        res.Status.Validated = true
        res.OK = true
        res.Reason = ReasonAlreadyValidated
        return res, nil
    }
    if err != nil {
        return nil, err
    }
    res.History = append([]Event{*ev}, hist...)
    res.Status.Validated = true
    res.OK = true
    return res, nil
}

// Revoke voids a previously recorded validation so the reservation can be
// validated again.  Only an admin actor may revoke; any other caller gets
// a false return without a ledger write (a business rejection, not an
// error).  The boolean reports whether an active validation was actually
// revoked; false with a nil error also covers the case where the event
// does not exist or was already revoked.
func (e *Engine) Revoke(ctx context.Context, eventID uint64, reason string, actor Actor) (bool, error) {
    if actor.ID == 0 || actor.Role != RoleAdmin {
        return false, nil
    }
    return e.Ledger.Revoke(ctx, eventID, strings.TrimSpace(reason), actor.ID)
}

package validation_test

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/aubrac/kermesse-ticketing/internal/validation"
)

// fakeReservations is an in-memory ReservationSource keyed by number.
type fakeReservations struct {
    byNumber map[string]validation.Reservation
    err      error
    lookups  int
}

func (f *fakeReservations) FindByNumber(_ context.Context, number string) (*validation.Reservation, error) {
    f.lookups++
    if f.err != nil {
        return nil, f.err
    }
    r, ok := f.byNumber[number]
    if !ok {
        return nil, validation.ErrNotFound
    }
    cp := r
    return &cp, nil
}

// fakeLedger is an in-memory Ledger that mimics the storage layer's
// unique active key: Append refuses a second live row for a pair.
type fakeLedger struct {
    events      []validation.Event
    nextID      uint64
    historyErr  error
    appendErr   error
    raceOnce    bool // next Append fails with ErrActiveExists, simulating a lost race
    appendCalls int
    reads       int
}

func (f *fakeLedger) HistoryFor(_ context.Context, reservationID uint64, activity validation.Activity) ([]validation.Event, error) {
    f.reads++
    if f.historyErr != nil {
        return nil, f.historyErr
    }
    out := make([]validation.Event, 0)
    for i := len(f.events) - 1; i >= 0; i-- {
        ev := f.events[i]
        if ev.ReservationID == reservationID && ev.Activity == activity {
            out = append(out, ev)
        }
    }
    return out, nil
}

func (f *fakeLedger) Append(_ context.Context, reservationID uint64, activity validation.Activity, agentID uint64) (*validation.Event, error) {
    f.appendCalls++
    if f.appendErr != nil {
        return nil, f.appendErr
    }
    if f.raceOnce {
        f.raceOnce = false
        return nil, validation.ErrActiveExists
    }
    for _, ev := range f.events {
        if ev.ReservationID == reservationID && ev.Activity == activity && ev.Active() {
            return nil, validation.ErrActiveExists
        }
    }
    f.nextID++
    ev := validation.Event{
        ID:            f.nextID,
        ReservationID: reservationID,
        Activity:      activity,
        Status:        validation.StatusValidated,
        AgentID:       agentID,
        ValidatedAt:   time.Now().UTC(),
    }
    f.events = append(f.events, ev)
    cp := ev
    return &cp, nil
}

func (f *fakeLedger) Revoke(_ context.Context, eventID uint64, reason string, adminID uint64) (bool, error) {
    for i := range f.events {
        if f.events[i].ID == eventID && f.events[i].Active() {
            now := time.Now().UTC()
            f.events[i].Status = validation.StatusRevoked
            f.events[i].RevokedAt = &now
            f.events[i].RevokedBy = &adminID
            f.events[i].RevokeReason = &reason
            return true, nil
        }
    }
    return false, nil
}

func paidReservation(number string, activity validation.Activity) validation.Reservation {
    return validation.Reservation{
        ID:            1,
        Number:        number,
        ClientEmail:   "famille.durand@example.org",
        PaymentStatus: validation.PaymentPaid,
        PassID:        7,
        PassName:      "Pass poney",
        Activity:      activity,
        CreatedAt:     time.Date(2026, time.May, 2, 10, 0, 0, 0, time.UTC),
    }
}

func newTestEngine(reservations ...validation.Reservation) (*validation.Engine, *fakeReservations, *fakeLedger) {
    src := &fakeReservations{byNumber: map[string]validation.Reservation{}}
    for _, r := range reservations {
        src.byNumber[r.Number] = r
    }
    ledger := &fakeLedger{}
    return validation.NewEngine(src, ledger), src, ledger
}

var (
    agent = validation.Actor{ID: 42, Email: "agent@kermesse.fr", Role: validation.RoleProvider}
    admin = validation.Actor{ID: 9, Email: "admin@kermesse.fr", Role: validation.RoleAdmin}
)

func TestValidate_PaidMatchingReservation(t *testing.T) {
    // A paid reservation bound to the requested activity validates and
    // writes exactly one ledger row carrying the acting agent's id.
    eng, _, ledger := newTestEngine(paidReservation("RES-2025-001-0001", validation.ActivityPoney))

    res, err := eng.Validate(context.Background(), "RES-2025-001-0001", validation.ActivityPoney, agent)
    require.NoError(t, err)

    assert.True(t, res.OK)
    assert.True(t, res.Status.Validated)
    assert.False(t, res.Status.AlreadyValidated)
    assert.Empty(t, res.Reason)
    require.NotNil(t, res.Reservation)
    assert.Equal(t, "RES-2025-001-0001", res.Reservation.Number)
    require.Len(t, ledger.events, 1)
    assert.Equal(t, validation.StatusValidated, ledger.events[0].Status)
    assert.Equal(t, agent.ID, ledger.events[0].AgentID)
    require.Len(t, res.History, 1)
    assert.Equal(t, ledger.events[0].ID, res.History[0].ID)
}

func TestValidate_TrimsCodeBeforeLookup(t *testing.T) {
    eng, _, ledger := newTestEngine(paidReservation("RES-2025-001-0001", validation.ActivityPoney))

    res, err := eng.Validate(context.Background(), "  RES-2025-001-0001\n", validation.ActivityPoney, agent)
    require.NoError(t, err)
    assert.True(t, res.OK)
    assert.Len(t, ledger.events, 1)
}

func TestValidate_DuplicateScanIsIdempotent(t *testing.T) {
    // Scanning the same ticket twice yields validated on the first call
    // and alreadyValidated on the second, with exactly one ledger row.
    eng, _, ledger := newTestEngine(paidReservation("RES-2025-001-0001", validation.ActivityPoney))
    ctx := context.Background()

    first, err := eng.Validate(ctx, "RES-2025-001-0001", validation.ActivityPoney, agent)
    require.NoError(t, err)
    require.True(t, first.Status.Validated)

    second, err := eng.Validate(ctx, "RES-2025-001-0001", validation.ActivityPoney, agent)
    require.NoError(t, err)

    assert.True(t, second.Status.AlreadyValidated)
    assert.True(t, second.Status.Validated)
    assert.True(t, second.OK, "a duplicate scan is a success for the caller")
    assert.Equal(t, validation.ReasonAlreadyValidated, second.Reason)
    assert.Len(t, ledger.events, 1, "no second row may be written")
    assert.Equal(t, 1, ledger.appendCalls, "the insert must not even be attempted")
}

func TestValidate_WrongActivity(t *testing.T) {
    // A reservation bound to poney must not admit to the archery range,
    // whatever its payment status, and nothing is written.
    for _, payment := range []string{validation.PaymentPaid, validation.PaymentPending} {
        r := paidReservation("RES-2025-001-0002", validation.ActivityPoney)
        r.PaymentStatus = payment
        eng, _, ledger := newTestEngine(r)

        res, err := eng.Validate(context.Background(), "RES-2025-001-0002", validation.ActivityTirArc, agent)
        require.NoError(t, err)

        assert.True(t, res.Status.WrongActivity)
        assert.False(t, res.OK)
        assert.Equal(t, validation.ReasonWrongActivity, res.Reason)
        require.NotNil(t, res.Meta)
        assert.Equal(t, validation.ActivityPoney, res.Meta.ReservedActivity)
        assert.Equal(t, validation.ActivityTirArc, res.Meta.Requested)
        assert.Empty(t, ledger.events)
        assert.Zero(t, ledger.appendCalls)
    }
}

func TestValidate_WrongActivityStillReportsHistory(t *testing.T) {
    // Prior events for the requested activity are surfaced even on a
    // wrong-activity rejection so the agent sees what happened before.
    eng, _, ledger := newTestEngine(paidReservation("RES-2025-001-0002", validation.ActivityPoney))
    ledger.nextID = 10
    ledger.events = append(ledger.events, validation.Event{
        ID: 11, ReservationID: 1, Activity: validation.ActivityTirArc,
        Status: validation.StatusValidated, AgentID: 5, ValidatedAt: time.Now().UTC(),
    })

    res, err := eng.Validate(context.Background(), "RES-2025-001-0002", validation.ActivityTirArc, agent)
    require.NoError(t, err)
    assert.True(t, res.Status.WrongActivity)
    require.Len(t, res.History, 1)
    assert.Equal(t, uint64(11), res.History[0].ID)
}

func TestValidate_UnpaidNeverValidates(t *testing.T) {
    for _, payment := range []string{validation.PaymentPending, validation.PaymentRefunded} {
        r := paidReservation("RES-2025-001-0003", validation.ActivityLugeBracelet)
        r.PaymentStatus = payment
        eng, _, ledger := newTestEngine(r)

        res, err := eng.Validate(context.Background(), "RES-2025-001-0003", validation.ActivityLugeBracelet, agent)
        require.NoError(t, err)

        assert.True(t, res.Status.Unpaid, "payment=%s", payment)
        assert.False(t, res.Status.Validated)
        assert.False(t, res.OK)
        assert.Equal(t, validation.ReasonUnpaid, res.Reason)
        assert.Empty(t, ledger.events)
    }
}

func TestValidate_RevokeThenRevalidate(t *testing.T) {
    // After an admin revokes a validation, the same ticket validates
    // again with a fresh ledger row; the revoked row stays in history.
    eng, _, _ := newTestEngine(paidReservation("RES-2025-001-0001", validation.ActivityPoney))
    ctx := context.Background()

    first, err := eng.Validate(ctx, "RES-2025-001-0001", validation.ActivityPoney, agent)
    require.NoError(t, err)
    firstID := first.History[0].ID

    revoked, err := eng.Revoke(ctx, firstID, "validated the wrong child", admin)
    require.NoError(t, err)
    require.True(t, revoked)

    second, err := eng.Validate(ctx, "RES-2025-001-0001", validation.ActivityPoney, agent)
    require.NoError(t, err)

    assert.True(t, second.OK)
    assert.True(t, second.Status.Validated)
    assert.False(t, second.Status.AlreadyValidated)
    require.Len(t, second.History, 2)
    assert.NotEqual(t, firstID, second.History[0].ID)
    assert.Equal(t, validation.StatusValidated, second.History[0].Status)
    assert.Equal(t, validation.StatusRevoked, second.History[1].Status)
    assert.Equal(t, agent.ID, second.History[0].AgentID)
}

func TestValidate_RevokedHistoryRevalidates(t *testing.T) {
    // A ledger whose most recent entry is revoked behaves like a fresh
    // validation even when the revocation happened out of band.
    eng, _, ledger := newTestEngine(paidReservation("RES-2025-001-0001", validation.ActivityPoney))
    now := time.Now().UTC()
    reason := "refund reversal"
    adminID := uint64(9)
    ledger.nextID = 1
    ledger.events = append(ledger.events, validation.Event{
        ID: 1, ReservationID: 1, Activity: validation.ActivityPoney,
        Status: validation.StatusRevoked, AgentID: 5, ValidatedAt: now.Add(-time.Hour),
        RevokedAt: &now, RevokedBy: &adminID, RevokeReason: &reason,
    })

    res, err := eng.Validate(context.Background(), "RES-2025-001-0001", validation.ActivityPoney, agent)
    require.NoError(t, err)
    assert.True(t, res.OK)
    assert.True(t, res.Status.Validated)
    assert.Equal(t, 1, ledger.appendCalls)
    assert.Len(t, ledger.events, 2)
}

func TestValidate_NotFound(t *testing.T) {
    eng, src, ledger := newTestEngine()

    for _, code := range []string{"", "   ", "RES-DOES-NOT-EXIST"} {
        res, err := eng.Validate(context.Background(), code, validation.ActivityPoney, agent)
        require.NoError(t, err)

        assert.True(t, res.Status.NotFound, "code=%q", code)
        assert.True(t, res.Status.Invalid, "code=%q", code)
        assert.False(t, res.OK)
        assert.Equal(t, validation.ReasonInvalidCode, res.Reason)
        assert.Nil(t, res.Reservation)
        assert.Empty(t, res.History)
    }
    assert.Equal(t, 1, src.lookups, "blank codes must not reach the store")
    assert.Zero(t, ledger.reads, "no ledger read happens on the not-found path")
    assert.Empty(t, ledger.events)
}

func TestValidate_UnboundPassAdmitsAnyActivity(t *testing.T) {
    // A pass not bound to a single activity (empty bound activity, e.g.
    // a multi-attraction bracelet) passes the activity guard for all of
    // them, with an independent history per activity.
    r := paidReservation("RES-2025-002-0001", "")
    eng, _, _ := newTestEngine(r)
    ctx := context.Background()

    for _, a := range validation.Activities() {
        res, err := eng.Validate(ctx, "RES-2025-002-0001", a, agent)
        require.NoError(t, err)
        assert.True(t, res.OK, "activity=%s", a)
        assert.True(t, res.Status.Validated)
    }
}

func TestValidate_UnauthenticatedActorRejected(t *testing.T) {
    eng, _, ledger := newTestEngine(paidReservation("RES-2025-001-0001", validation.ActivityPoney))

    res, err := eng.Validate(context.Background(), "RES-2025-001-0001", validation.ActivityPoney, validation.Actor{})
    require.NoError(t, err)

    assert.False(t, res.OK)
    assert.Equal(t, validation.ReasonAuthRequired, res.Reason)
    assert.Equal(t, validation.Status{}, res.Status, "no enumerated flag covers this rejection")
    assert.Empty(t, ledger.events)
}

func TestValidate_LostRaceDegradesToDuplicate(t *testing.T) {
    // When a concurrent scan commits between our history read and our
    // insert, the storage layer's unique key rejects the insert and the
    // result reports the duplicate instead of failing.
    eng, _, ledger := newTestEngine(paidReservation("RES-2025-001-0001", validation.ActivityPoney))
    ledger.raceOnce = true

    res, err := eng.Validate(context.Background(), "RES-2025-001-0001", validation.ActivityPoney, agent)
    require.NoError(t, err)

    assert.True(t, res.OK)
    assert.True(t, res.Status.AlreadyValidated)
    assert.True(t, res.Status.Validated)
    assert.Equal(t, validation.ReasonAlreadyValidated, res.Reason)
    assert.Empty(t, ledger.events, "the losing writer must not create a row")
}

func TestValidate_InfrastructureFaultsAreErrors(t *testing.T) {
    // Store failures must surface as errors, never be coerced into a
    // business rejection that would hide an outage behind "Code invalide".
    boom := errors.New("connection refused")

    eng, src, _ := newTestEngine(paidReservation("RES-2025-001-0001", validation.ActivityPoney))
    src.err = boom
    res, err := eng.Validate(context.Background(), "RES-2025-001-0001", validation.ActivityPoney, agent)
    assert.Nil(t, res)
    assert.ErrorIs(t, err, boom)

    eng, _, ledger := newTestEngine(paidReservation("RES-2025-001-0001", validation.ActivityPoney))
    ledger.historyErr = boom
    res, err = eng.Validate(context.Background(), "RES-2025-001-0001", validation.ActivityPoney, agent)
    assert.Nil(t, res)
    assert.ErrorIs(t, err, boom)

    eng, _, ledger = newTestEngine(paidReservation("RES-2025-001-0001", validation.ActivityPoney))
    ledger.appendErr = boom
    res, err = eng.Validate(context.Background(), "RES-2025-001-0001", validation.ActivityPoney, agent)
    assert.Nil(t, res)
    assert.ErrorIs(t, err, boom)
}

func TestRevoke_RequiresAdmin(t *testing.T) {
    eng, _, ledger := newTestEngine(paidReservation("RES-2025-001-0001", validation.ActivityPoney))
    ctx := context.Background()

    first, err := eng.Validate(ctx, "RES-2025-001-0001", validation.ActivityPoney, agent)
    require.NoError(t, err)
    eventID := first.History[0].ID

    for _, actor := range []validation.Actor{agent, {}, {ID: 3, Role: "GUEST"}} {
        ok, err := eng.Revoke(ctx, eventID, "should not happen", actor)
        require.NoError(t, err)
        assert.False(t, ok)
    }
    assert.Equal(t, validation.StatusValidated, ledger.events[0].Status, "the row must stay untouched")
}

func TestRevoke_NothingActive(t *testing.T) {
    eng, _, _ := newTestEngine(paidReservation("RES-2025-001-0001", validation.ActivityPoney))
    ctx := context.Background()

    ok, err := eng.Revoke(ctx, 12345, "unknown event", admin)
    require.NoError(t, err)
    assert.False(t, ok)

    // Revoking the same event twice: the second call finds nothing live.
    first, err := eng.Validate(ctx, "RES-2025-001-0001", validation.ActivityPoney, agent)
    require.NoError(t, err)
    eventID := first.History[0].ID

    ok, err = eng.Revoke(ctx, eventID, "first revoke", admin)
    require.NoError(t, err)
    require.True(t, ok)
    ok, err = eng.Revoke(ctx, eventID, "second revoke", admin)
    require.NoError(t, err)
    assert.False(t, ok)
}

func TestValidate_ActivitiesAreIsolated(t *testing.T) {
    // Validating a bracelet for the luge leaves its pony history alone:
    // each (reservation, activity) pair keeps an independent ledger.
    r := paidReservation("RES-2025-002-0001", "")
    eng, _, ledger := newTestEngine(r)
    ctx := context.Background()

    _, err := eng.Validate(ctx, "RES-2025-002-0001", validation.ActivityLugeBracelet, agent)
    require.NoError(t, err)

    res, err := eng.Validate(ctx, "RES-2025-002-0001", validation.ActivityPoney, agent)
    require.NoError(t, err)
    assert.True(t, res.Status.Validated)
    assert.False(t, res.Status.AlreadyValidated)
    assert.Len(t, ledger.events, 2)
}

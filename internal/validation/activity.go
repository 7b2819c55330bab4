package validation

import (
    "fmt"     // fmt builds the error message returned for unknown activities
    "strings" // strings normalizes raw activity input before matching
)

// Activity identifies one of the physical attractions a reservation can
// grant admission to.  The set is closed: new attractions are added by
// declaring a new constant here and nowhere else.  Values match the
// `activity` enum column in the validations and time_slots tables.
type Activity string

const (
    ActivityPoney        Activity = "poney"         // pony rides
    ActivityTirArc       Activity = "tir_arc"       // archery range
    ActivityLugeBracelet Activity = "luge_bracelet" // all-day luge bracelet
)

// Activities lists every known activity in a stable order.  Handlers use
// it for the public browse endpoint and for validating query filters.
func Activities() []Activity {
    return []Activity{ActivityPoney, ActivityTirArc, ActivityLugeBracelet}
}

// Valid reports whether the activity is one of the known enumerators.
func (a Activity) Valid() bool {
    switch a {
    case ActivityPoney, ActivityTirArc, ActivityLugeBracelet:
        return true
    }
    return false
}

// Label returns a human-readable French label for the activity, used by
// the browse endpoint and CSV export consumers.
func (a Activity) Label() string {
    switch a {
    case ActivityPoney:
        return "Balade à poney"
    case ActivityTirArc:
        return "Tir à l'arc"
    case ActivityLugeBracelet:
        return "Bracelet luge"
    }
    return string(a)
}

// ParseActivity converts raw request input into an Activity.  Input is
// trimmed and lower-cased before matching; anything outside the closed
// set is an error so callers can reject the request up front instead of
// letting an unknown value reach the ledger.
func ParseActivity(s string) (Activity, error) {
    a := Activity(strings.ToLower(strings.TrimSpace(s)))
    if !a.Valid() {
        return "", fmt.Errorf("unknown activity %q", s)
    }
    return a, nil
}

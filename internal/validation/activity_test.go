package validation_test

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/aubrac/kermesse-ticketing/internal/validation"
)

func TestParseActivity(t *testing.T) {
    cases := []struct {
        in   string
        want validation.Activity
        ok   bool
    }{
        {"poney", validation.ActivityPoney, true},
        {"tir_arc", validation.ActivityTirArc, true},
        {"luge_bracelet", validation.ActivityLugeBracelet, true},
        {"  Poney  ", validation.ActivityPoney, true},
        {"TIR_ARC", validation.ActivityTirArc, true},
        {"", "", false},
        {"poney ride", "", false},
        {"tir-arc", "", false},
    }
    for _, tc := range cases {
        got, err := validation.ParseActivity(tc.in)
        if tc.ok {
            require.NoError(t, err, "input %q", tc.in)
            assert.Equal(t, tc.want, got)
        } else {
            assert.Error(t, err, "input %q", tc.in)
        }
    }
}

func TestActivityValid(t *testing.T) {
    for _, a := range validation.Activities() {
        assert.True(t, a.Valid())
    }
    assert.False(t, validation.Activity("carrousel").Valid())
    assert.False(t, validation.Activity("").Valid())
}

func TestActivityLabels(t *testing.T) {
    // Labels feed the public browse endpoint; every known activity must
    // carry a non-default label.
    for _, a := range validation.Activities() {
        assert.NotEqual(t, string(a), a.Label())
    }
    assert.Equal(t, "Balade à poney", validation.ActivityPoney.Label())
}

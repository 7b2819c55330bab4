package handler

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/aubrac/kermesse-ticketing/internal/repository"
)

func TestBuildCSV(t *testing.T) {
    rows := []repository.HistoryRow{
        {
            ValidatedAt:       time.Date(2026, time.June, 1, 14, 30, 0, 0, time.UTC),
            ReservationNumber: "RES-2026-001-0001",
            PassName:          `Pass "découverte" poney`,
            Activity:          "poney",
            AgentEmail:        "agent@kermesse.fr",
            PaymentStatus:     "paid",
        },
        {
            ValidatedAt:       time.Date(2026, time.June, 1, 15, 0, 0, 0, time.UTC),
            ReservationNumber: "RES-2026-001-0002",
            PassName:          "Bracelet luge",
            Activity:          "luge_bracelet",
            AgentEmail:        "admin@kermesse.fr",
            PaymentStatus:     "paid",
        },
    }

    got := buildCSV(rows)
    want := "validated_at,reservation_number,pass_name,activity,agent_email,payment_status\n" +
        `"2026-06-01T14:30:00Z","RES-2026-001-0001","Pass ""découverte"" poney","poney","agent@kermesse.fr","paid"` + "\n" +
        `"2026-06-01T15:00:00Z","RES-2026-001-0002","Bracelet luge","luge_bracelet","admin@kermesse.fr","paid"` + "\n"
    assert.Equal(t, want, got)
}

func TestBuildCSV_EmptyLedger(t *testing.T) {
    got := buildCSV(nil)
    assert.Equal(t, "validated_at,reservation_number,pass_name,activity,agent_email,payment_status\n", got)
}

func TestCSVField(t *testing.T) {
    assert.Equal(t, `"plain"`, csvField("plain"))
    assert.Equal(t, `""`, csvField(""))
    assert.Equal(t, `"with ""quotes"""`, csvField(`with "quotes"`))
    assert.Equal(t, `"comma, inside"`, csvField("comma, inside"))
}

func queryContext(t *testing.T, rawQuery string) echo.Context {
    t.Helper()
    req := httptest.NewRequest(http.MethodGet, "/v1/validations?"+rawQuery, nil)
    rec := httptest.NewRecorder()
    return echo.New().NewContext(req, rec)
}

func TestHistoryFilterFrom(t *testing.T) {
    c := queryContext(t, "from=2026-06-01&to=2026-06-01&activity=poney,tir_arc&agent_id=7&status=validated&q=durand&limit=50&offset=10")

    f, err := historyFilterFrom(c)
    require.NoError(t, err)

    require.NotNil(t, f.From)
    assert.Equal(t, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), *f.From)
    require.NotNil(t, f.To)
    // A bare date upper bound covers the whole day.
    assert.Equal(t, time.Date(2026, time.June, 1, 23, 59, 59, 0, time.UTC), *f.To)
    assert.Equal(t, []string{"poney", "tir_arc"}, f.Activities)
    assert.Equal(t, uint64(7), f.AgentID)
    assert.Equal(t, "validated", f.Status)
    assert.Equal(t, "durand", f.Search)
    assert.Equal(t, 50, f.Limit)
    assert.Equal(t, 10, f.Offset)
}

func TestHistoryFilterFrom_Defaults(t *testing.T) {
    f, err := historyFilterFrom(queryContext(t, ""))
    require.NoError(t, err)
    assert.Nil(t, f.From)
    assert.Nil(t, f.To)
    assert.Empty(t, f.Activities)
    assert.Zero(t, f.AgentID)
    assert.Zero(t, f.Limit)
}

func TestHistoryFilterFrom_Rejections(t *testing.T) {
    cases := []string{
        "from=yesterday",
        "to=06/01/2026",
        "activity=carrousel",
        "agent_id=abc",
        "status=pending",
    }
    for _, q := range cases {
        _, err := historyFilterFrom(queryContext(t, q))
        assert.Error(t, err, "query %q", q)
    }
}

func TestHistoryFilterFrom_RFC3339Bounds(t *testing.T) {
    c := queryContext(t, "from=2026-06-01T09:00:00%2B02:00")
    f, err := historyFilterFrom(c)
    require.NoError(t, err)
    require.NotNil(t, f.From)
    assert.Equal(t, time.Date(2026, time.June, 1, 7, 0, 0, 0, time.UTC), *f.From)
}

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	client "github.com/caarlos0/homekit-lupusec"
	"github.com/caarlos0/homekit-lupusec/reconciler"
	"github.com/stretchr/testify/require"
)

type staticSnapshot reconciler.Snapshot

func (s staticSnapshot) Snapshot() reconciler.Snapshot {
	return reconciler.Snapshot(s)
}

var testSnapshot = staticSnapshot{
	Panel: client.PanelState{ArmedAway: true},
	Devices: []client.Device{
		{Area: 1, Zone: 1, Name: "Front Door", ContactOpen: true},
		{Area: 1, Zone: 2, Name: "Kid's Room"},
	},
	PanelAt:   time.Date(2024, 1, 2, 10, 11, 12, 0, time.UTC),
	DevicesAt: time.Date(2024, 1, 2, 10, 11, 13, 0, time.UTC),
}

func TestStatusJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	statusJSON(testSnapshot).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var view stateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "ArmedAway", view.Mode)
	require.True(t, view.ArmedAway)
	require.False(t, view.ArmedHome)
	require.Equal(t, []deviceView{
		{Area: 1, Zone: 1, Name: "Front Door", Open: true},
		{Area: 1, Zone: 2, Name: "Kid's Room"},
	}, view.Devices)
}

func TestViewOfEmpty(t *testing.T) {
	b, err := json.Marshal(viewOf(reconciler.Snapshot{}))
	require.NoError(t, err)
	require.Contains(t, string(b), `"devices":[]`)
	require.Contains(t, string(b), `"mode":"Disarmed"`)
}

func TestStatusPage(t *testing.T) {
	rec := httptest.NewRecorder()
	statusPage(testSnapshot).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Alarm: ArmedAway")
	require.Contains(t, body, "Front Door")
	require.Contains(t, body, "Kid&#39;s Room")
	require.Contains(t, body, "10:11:12")

	rec = httptest.NewRecorder()
	statusPage(testSnapshot).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

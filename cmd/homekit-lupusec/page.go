package main

import (
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/caarlos0/homekit-lupusec/reconciler"
)

//go:embed index.html
var index []byte

var indexTpl = template.Must(template.New("index").Parse(string(index)))

type stateView struct {
	Mode      string       `json:"mode"`
	ArmedAway bool         `json:"armed_away"`
	ArmedHome bool         `json:"armed_home"`
	Devices   []deviceView `json:"devices"`
	PanelAt   time.Time    `json:"panel_updated_at"`
	DevicesAt time.Time    `json:"devices_updated_at"`
}

type deviceView struct {
	Area int    `json:"area"`
	Zone int    `json:"zone"`
	Name string `json:"name"`
	Open bool   `json:"open"`
}

func viewOf(snap reconciler.Snapshot) stateView {
	view := stateView{
		Mode:      snap.Panel.Mode().String(),
		ArmedAway: snap.Panel.ArmedAway,
		ArmedHome: snap.Panel.ArmedHome,
		Devices:   []deviceView{},
		PanelAt:   snap.PanelAt,
		DevicesAt: snap.DevicesAt,
	}
	for _, d := range snap.Devices {
		view.Devices = append(view.Devices, deviceView{
			Area: d.Area,
			Zone: d.Zone,
			Name: d.Name,
			Open: d.ContactOpen,
		})
	}
	return view
}

type snapshotter interface {
	Snapshot() reconciler.Snapshot
}

func statusPage(rec snapshotter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTpl.Execute(w, viewOf(rec.Snapshot())); err != nil {
			log.Error("could not render status page", "err", err)
		}
	})
}

func statusJSON(rec snapshotter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(viewOf(rec.Snapshot())); err != nil {
			log.Error("could not encode state", "err", err)
		}
	})
}

package reconciler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var panelModeGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "homekit_lupusec",
	Subsystem: "alarm",
	Name:      "mode",
	Help:      "Last reconciled panel mode: 0 disarmed, 1 armed away, 2 armed home.",
})

var deviceOpenGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "homekit_lupusec",
	Subsystem: "alarm",
	Name:      "open",
	Help:      "Whether the device contact is open.",
}, []string{"zone", "name"})

var pollCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "homekit_lupusec",
	Subsystem: "reconciler",
	Name:      "polls_total",
	Help:      "",
}, []string{"kind"})

var pollErrorCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "homekit_lupusec",
	Subsystem: "reconciler",
	Name:      "poll_errors_total",
	Help:      "",
}, []string{"kind"})

var dispatchCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "homekit_lupusec",
	Subsystem: "reconciler",
	Name:      "dispatches_total",
	Help:      "",
}, []string{"target"})

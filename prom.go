package lupusec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "homekit_lupusec",
	Subsystem: "client",
	Name:      "requests_total",
	Help:      "Requests made to the panel, by operation.",
}, []string{"op"})

var requestErrorCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "homekit_lupusec",
	Subsystem: "client",
	Name:      "request_errors_total",
	Help:      "Failed requests to the panel, by operation.",
}, []string{"op"})

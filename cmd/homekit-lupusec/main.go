package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/caarlos0/env/v11"
	client "github.com/caarlos0/homekit-lupusec"
	"github.com/caarlos0/homekit-lupusec/reconciler"
	"github.com/carlmjohnson/versioninfo"
	"github.com/cenkalti/backoff/v4"
	logp "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "homekit",
})

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const manufacturer = "LUPUSEC"

func main() {
	if version == "dev" {
		version = versioninfo.Short()
	}
	log.Info(
		"homekit-lupusec",
		"version", version,
		"commit", commit,
		"date", date,
		"info", "Homekit bridge for LUPUSEC XT alarm systems",
	)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(
			"could not parse env",
			"err",
			strings.TrimPrefix(strings.ReplaceAll(err.Error(), "; ", "\n"), "env: ")+"\n",
		)
	}

	level, err := logp.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal("invalid log level", "level", cfg.LogLevel, "err", err)
	}
	log.SetLevel(level)
	client.SetLogLevel(level)
	reconciler.SetLogLevel(level)

	cli, err := client.New(client.Credentials{
		URL:      cfg.URL,
		Username: cfg.Username,
		Password: cfg.Password,
	}, client.WithTimeout(cfg.Timeout))
	if err != nil {
		log.Fatal("could not create client", "err", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-c
		log.Info("stopping server")
		signal.Stop(c)
		cancel()
	}()

	if err := waitReachable(ctx, cli, cfg.StartupTimeout); err != nil {
		log.Fatal("panel is not reachable", "url", cfg.URL, "err", err)
	}

	rec := reconciler.New(
		cli,
		reconciler.WithPanelInterval(cfg.PollInterval),
		reconciler.WithDeviceInterval(cfg.DevicePollInterval),
	)
	if err := rec.ReconcileDevices(ctx); err != nil {
		log.Fatal("could not init accessories", "err", err)
	}
	if err := rec.ReconcilePanel(ctx); err != nil {
		log.Fatal("could not init accessories", "err", err)
	}
	snap := rec.Snapshot()

	macAddr, err := client.MacAddress(cli.Host())
	if err != nil {
		log.Warn(
			"could not get the mac address, needs 'cap_net_raw+ep' capabilities",
			"err", err,
		)
	}
	devices := cfg.sensorDevices(snap.Devices)
	log.Info(
		"got alarm system information",
		"manufacturer", manufacturer,
		"state", snap.Panel,
		"mac", macAddr,
		"sensors", sensorDevices(devices).String(),
	)

	dispatcher := reconciler.NewDispatcher(
		cli,
		rec.Reconcile,
		reconciler.WithSettleDelay(cfg.SettleDelay),
	)

	bridge := accessory.NewBridge(accessory.Info{
		Name:         "Alarm Bridge",
		Manufacturer: manufacturer,
		Firmware:     version,
	})

	alarm := NewSecuritySystem(accessory.Info{
		Name:         "Alarm",
		SerialNumber: macAddr,
		Manufacturer: manufacturer,
		Model:        "XT",
	}, dispatcher)
	alarm.Id = 2
	alarm.Update(snap.Panel)

	sensors := setupSensors(devices)

	rec.Observe(func(s reconciler.Snapshot) {
		alarm.Update(s.Panel)
		sensors.Update(s.Devices)
	})

	if cfg.MQTTURL != "" {
		mirror, err := NewMirror(cfg.MQTTURL, cfg.MQTTTopic, dispatcher)
		if err != nil {
			log.Fatal("could not start mqtt mirror", "err", err)
		}
		defer mirror.Close()
		mirror.Publish(snap)
		rec.Observe(mirror.Publish)
	}

	go rec.Run(ctx)

	fs := hap.NewFsStore(cfg.DB)

	server, err := hap.NewServer(fs, bridge.A, securityAccessories(alarm, sensors)...)
	if err != nil {
		log.Fatal("fail to create server", "error", err)
	}
	server.Addr = cfg.Address
	if cfg.Pin != "" {
		server.Pin = cfg.Pin
	}
	server.ServeMux().Handle("/metrics", promhttp.Handler())
	server.ServeMux().Handle("/api/state", statusJSON(rec))
	server.ServeMux().Handle("/", statusPage(rec))

	log.Info("starting server", "addr", server.Addr)
	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("failed to close server", "err", err)
	}
}

// waitReachable blocks until the panel answers, so the bridge does not
// start with an empty device list after a power outage.
func waitReachable(ctx context.Context, cli *client.Client, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = time.Second * 30
	bo.MaxElapsedTime = maxWait

	return backoff.RetryNotify(func() error {
		if !cli.Reachable(ctx) {
			return fmt.Errorf("no answer from %s", cli.Host())
		}
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		log.Warn("waiting for the panel", "err", err, "next", next)
	})
}

func securityAccessories(alarm *SecuritySystem, sensors ContactSensors) []*accessory.A {
	result := []*accessory.A{alarm.A}
	for _, s := range sensors {
		result = append(result, s.A)
	}
	return result
}

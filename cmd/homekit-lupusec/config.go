package main

import (
	"fmt"
	"strings"
	"time"

	client "github.com/caarlos0/homekit-lupusec"
	"golang.org/x/exp/slices"
)

type Config struct {
	URL                string        `env:"URL,notEmpty"`
	Username           string        `env:"USERNAME,notEmpty"`
	Password           string        `env:"PASSWORD,notEmpty"`
	Timeout            time.Duration `env:"TIMEOUT"              envDefault:"10s"`
	PollInterval       time.Duration `env:"POLL_INTERVAL"        envDefault:"15s"`
	DevicePollInterval time.Duration `env:"DEVICE_POLL_INTERVAL" envDefault:"15s"`
	SettleDelay        time.Duration `env:"SETTLE_DELAY"         envDefault:"2s"`
	StartupTimeout     time.Duration `env:"STARTUP_TIMEOUT"      envDefault:"5m"`
	ExcludeDevices     []string      `env:"EXCLUDE"`
	Address            string        `env:"LISTEN"               envDefault:":9009"`
	DB                 string        `env:"DB"                   envDefault:"./db"`
	Pin                string        `env:"PIN"`
	MQTTURL            string        `env:"MQTT_URL"`
	MQTTTopic          string        `env:"MQTT_TOPIC"           envDefault:"homekit-lupusec"`
	LogLevel           string        `env:"LOG_LEVEL"            envDefault:"info"`
}

// sensorDevices are the devices that get a contact sensor: the ones with
// a name that were not excluded.
func (c Config) sensorDevices(devices []client.Device) []client.Device {
	var result []client.Device
	for _, d := range devices {
		if d.Name == "" {
			continue
		}
		if slices.Contains(c.ExcludeDevices, d.Name) {
			continue
		}
		result = append(result, d)
	}
	return result
}

type sensorDevices []client.Device

func (s sensorDevices) String() string {
	var lines []string
	for _, d := range s {
		lines = append(lines, fmt.Sprintf("zone %s: %q", d.Key(), d.Name))
	}
	return strings.Join(lines, "\n")
}

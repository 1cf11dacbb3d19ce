package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/homekit-lupusec/reconciler"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const mqttTimeout = 10 * time.Second

// Mirror publishes every reconciled snapshot to <topic>/state and accepts
// targets (disarm, armAway, armHome) on <topic>/set.
type Mirror struct {
	client     mqtt.Client
	topic      string
	dispatcher Dispatcher
}

func NewMirror(rawURL, topic string, dispatcher Dispatcher) (*Mirror, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("mqtt url parse: %w", err)
	}

	m := &Mirror{
		topic:      strings.TrimSuffix(topic, "/"),
		dispatcher: dispatcher,
	}

	opts := mqtt.NewClientOptions()
	opts.Servers = []*url.URL{u}
	opts.SetClientID("homekit-lupusec-" + uuid.NewString()[:8])
	opts.SetAutoReconnect(true)
	opts.SetWill(m.availabilityTopic(), "offline", 1, true)
	opts.SetOnConnectHandler(m.connected)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("disconnected from mqtt", "err", err)
	})

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("could not connect to mqtt: timeout after %s", mqttTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("could not connect to mqtt: %w", err)
	}
	return m, nil
}

func (m *Mirror) stateTopic() string        { return m.topic + "/state" }
func (m *Mirror) setTopic() string          { return m.topic + "/set" }
func (m *Mirror) availabilityTopic() string { return m.topic + "/availability" }

func (m *Mirror) connected(c mqtt.Client) {
	log.Info("connected to mqtt", "topic", m.topic)
	c.Publish(m.availabilityTopic(), 1, true, "online")
	token := c.Subscribe(m.setTopic(), 1, func(_ mqtt.Client, msg mqtt.Message) {
		if err := m.handleSet(msg.Payload()); err != nil {
			log.Error("invalid mqtt command", "topic", msg.Topic(), "err", err)
		}
	})
	if !token.WaitTimeout(mqttTimeout) || token.Error() != nil {
		log.Error("could not subscribe", "topic", m.setTopic(), "err", token.Error())
	}
}

func (m *Mirror) handleSet(payload []byte) error {
	target, err := reconciler.ParseTarget(strings.TrimSpace(string(payload)))
	if err != nil {
		return err
	}
	return m.dispatcher.Dispatch(context.Background(), target)
}

// Publish is a reconciler.Observer.
func (m *Mirror) Publish(snap reconciler.Snapshot) {
	if !m.client.IsConnectionOpen() {
		log.Debug("mqtt not connected, skipping publish")
		return
	}
	payload, err := json.Marshal(viewOf(snap))
	if err != nil {
		log.Error("could not encode state", "err", err)
		return
	}
	token := m.client.Publish(m.stateTopic(), 1, true, payload)
	if !token.WaitTimeout(mqttTimeout) {
		log.Error("could not publish state", "topic", m.stateTopic(), "err", "timeout")
		return
	}
	if err := token.Error(); err != nil {
		log.Error("could not publish state", "topic", m.stateTopic(), "err", err)
	}
}

func (m *Mirror) Close() {
	m.client.Publish(m.availabilityTopic(), 1, true, "offline").WaitTimeout(time.Second)
	m.client.Disconnect(250)
}

package main

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/service"
	client "github.com/caarlos0/homekit-lupusec"
)

type ContactSensors []*ContactSensor

// Update sets every sensor from the reconciled devices. Sensors whose
// device is gone from the list keep their last state.
func (sensors ContactSensors) Update(devices []client.Device) {
	byKey := make(map[client.Key]client.Device, len(devices))
	for _, d := range devices {
		byKey[d.Key()] = d
	}
	for _, sensor := range sensors {
		d, ok := byKey[sensor.Key]
		if !ok {
			log.Debug("device not in list", "zone", sensor.Key, "name", sensor.Name())
			continue
		}
		sensor.Update(d)
	}
}

type ContactSensor struct {
	*accessory.A
	Key     client.Key
	Contact *service.ContactSensor
}

func (sensor *ContactSensor) Update(device client.Device) {
	current := boolToInt(device.ContactOpen)
	if v := sensor.Contact.ContactSensorState.Value(); v == current {
		return
	}
	_ = sensor.Contact.ContactSensorState.SetValue(current)
	log.Info(
		"contact",
		"zone", device.Key(),
		"name", device.Name,
		"open", device.ContactOpen,
	)
}

func newContactSensor(info accessory.Info, key client.Key) *ContactSensor {
	a := ContactSensor{
		Key: key,
	}
	a.A = accessory.New(info, accessory.TypeSensor)

	a.Contact = service.NewContactSensor()
	a.AddS(a.Contact.S)

	return &a
}

func setupSensors(devices []client.Device) ContactSensors {
	var sensors ContactSensors
	seen := map[uint64]bool{}
	for _, d := range devices {
		id, ok := sensorID(d.Key())
		if !ok {
			log.Warn("zone out of range, skipping sensor", "zone", d.Key(), "name", d.Name)
			continue
		}
		if seen[id] {
			log.Warn("duplicated zone, skipping sensor", "zone", d.Key(), "name", d.Name)
			continue
		}
		seen[id] = true

		a := newContactSensor(accessory.Info{
			Name:         d.Name,
			SerialNumber: d.Key().String(),
			Manufacturer: manufacturer,
			Model:        "Sensor",
		}, d.Key())
		a.Update(d)
		a.Id = id
		sensors = append(sensors, a)
	}
	return sensors
}

// maxZone keeps 1000*area+zone unique per key.
const maxZone = 999

// sensorID is 1000*area+zone, always above the bridge (1) and alarm (2)
// ids. Keys it cannot map uniquely are refused.
func sensorID(key client.Key) (uint64, bool) {
	if key.Area < 1 || key.Zone < 0 || key.Zone > maxZone {
		return 0, false
	}
	return uint64(1000*key.Area + key.Zone), true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

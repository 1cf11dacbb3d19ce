package reconciler

import (
	"testing"

	client "github.com/caarlos0/homekit-lupusec"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	var reg Registry
	require.Empty(t, reg.Devices())
	_, ok := reg.Device("Front Door")
	require.False(t, ok)

	reg.replace([]client.Device{
		{Area: 1, Zone: 7, Name: "Window"},
		{Area: 1, Zone: 2, Name: "Front Door", ContactOpen: true},
		{Area: 1, Zone: 5, Name: "Window", ContactOpen: true},
	})

	require.Equal(t, []client.Device{
		{Area: 1, Zone: 2, Name: "Front Door", ContactOpen: true},
		{Area: 1, Zone: 5, Name: "Window", ContactOpen: true},
		{Area: 1, Zone: 7, Name: "Window"},
	}, reg.Devices())

	t.Run("by name", func(t *testing.T) {
		d, ok := reg.Device("Front Door")
		require.True(t, ok)
		require.True(t, d.ContactOpen)

		d, ok = reg.Device("Window")
		require.True(t, ok)
		require.Equal(t, 5, d.Zone)
	})

	t.Run("by key", func(t *testing.T) {
		d, ok := reg.DeviceAt(client.Key{Area: 1, Zone: 7})
		require.True(t, ok)
		require.False(t, d.ContactOpen)

		_, ok = reg.DeviceAt(client.Key{Area: 2, Zone: 7})
		require.False(t, ok)
	})

	t.Run("copies", func(t *testing.T) {
		devices := reg.Devices()
		devices[0].Name = "changed"
		d, ok := reg.DeviceAt(client.Key{Area: 1, Zone: 2})
		require.True(t, ok)
		require.Equal(t, "Front Door", d.Name)
	})

	t.Run("replaced wholesale", func(t *testing.T) {
		reg.replace([]client.Device{{Area: 1, Zone: 9, Name: "Garage"}})
		require.Equal(t, []client.Device{{Area: 1, Zone: 9, Name: "Garage"}}, reg.Devices())
		_, ok := reg.Device("Front Door")
		require.False(t, ok)
	})
}

func TestDuplicateNames(t *testing.T) {
	require.Empty(t, duplicateNames(nil))
	require.Equal(t, map[string][]string{
		"Window": {"1/5", "1/7"},
	}, duplicateNames([]client.Device{
		{Area: 1, Zone: 2, Name: "Front Door"},
		{Area: 1, Zone: 5, Name: "Window"},
		{Area: 1, Zone: 7, Name: "Window"},
	}))
}

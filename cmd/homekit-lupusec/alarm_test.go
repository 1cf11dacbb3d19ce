package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	client "github.com/caarlos0/homekit-lupusec"
	"github.com/caarlos0/homekit-lupusec/reconciler"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	targets []reconciler.Target
}

func (f *fakeDispatcher) Dispatch(_ context.Context, target reconciler.Target) error {
	if _, ok := target.Mode(); !ok {
		return fmt.Errorf("%w: %s", reconciler.ErrInvalidArgument, target)
	}
	f.targets = append(f.targets, target)
	return nil
}

func TestCurrentState(t *testing.T) {
	require.Equal(
		t,
		characteristic.SecuritySystemCurrentStateDisarmed,
		currentState(client.PanelState{}),
	)
	require.Equal(
		t,
		characteristic.SecuritySystemCurrentStateAwayArm,
		currentState(client.PanelState{ArmedAway: true}),
	)
	require.Equal(
		t,
		characteristic.SecuritySystemCurrentStateNightArm,
		currentState(client.PanelState{ArmedHome: true}),
	)
}

func TestDispatchTarget(t *testing.T) {
	for value, expected := range map[int]reconciler.Target{
		characteristic.SecuritySystemTargetStateDisarm:   reconciler.TargetDisarm,
		characteristic.SecuritySystemTargetStateStayArm:  reconciler.TargetDisarm,
		characteristic.SecuritySystemTargetStateAwayArm:  reconciler.TargetArmAway,
		characteristic.SecuritySystemTargetStateNightArm: reconciler.TargetArmHome,
	} {
		target, ok := dispatchTarget(value)
		require.True(t, ok)
		require.Equal(t, expected, target)
	}

	_, ok := dispatchTarget(42)
	require.False(t, ok)
}

func TestSecuritySystem(t *testing.T) {
	disp := &fakeDispatcher{}
	alarm := NewSecuritySystem(accessory.Info{Name: "Alarm"}, disp)

	t.Run("update", func(t *testing.T) {
		alarm.Update(client.PanelState{ArmedHome: true})
		require.Equal(t, characteristic.SecuritySystemCurrentStateNightArm, alarm.SecuritySystem.SecuritySystemCurrentState.Value())
		require.Equal(t, characteristic.SecuritySystemTargetStateNightArm, alarm.SecuritySystem.SecuritySystemTargetState.Value())

		alarm.Update(client.PanelState{})
		require.Equal(t, characteristic.SecuritySystemCurrentStateDisarmed, alarm.SecuritySystem.SecuritySystemCurrentState.Value())
		require.Equal(t, characteristic.SecuritySystemTargetStateDisarm, alarm.SecuritySystem.SecuritySystemTargetState.Value())
	})

	t.Run("handler", func(t *testing.T) {
		_, code := alarm.updateHandler(characteristic.SecuritySystemTargetStateAwayArm, nil)
		require.Equal(t, hap.JsonStatusSuccess, code)
		_, code = alarm.updateHandler(characteristic.SecuritySystemTargetStateNightArm, nil)
		require.Equal(t, hap.JsonStatusSuccess, code)
		_, code = alarm.updateHandler(characteristic.SecuritySystemTargetStateStayArm, nil)
		require.Equal(t, hap.JsonStatusSuccess, code)

		_, code = alarm.updateHandler(9, nil)
		require.Equal(t, hap.JsonStatusResourceDoesNotExist, code)
		_, code = alarm.updateHandler("armAway", nil)
		require.Equal(t, hap.JsonStatusInvalidValueInRequest, code)

		require.Equal(t, []reconciler.Target{
			reconciler.TargetArmAway,
			reconciler.TargetArmHome,
			reconciler.TargetDisarm,
		}, disp.targets)
	})
}

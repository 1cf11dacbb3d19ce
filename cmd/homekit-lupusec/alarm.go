package main

import (
	"context"
	"net/http"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	client "github.com/caarlos0/homekit-lupusec"
	"github.com/caarlos0/homekit-lupusec/reconciler"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, target reconciler.Target) error
}

type SecuritySystem struct {
	*accessory.A
	SecuritySystem *service.SecuritySystem

	dispatcher Dispatcher
}

func NewSecuritySystem(info accessory.Info, dispatcher Dispatcher) *SecuritySystem {
	a := &SecuritySystem{
		dispatcher: dispatcher,
	}
	a.A = accessory.New(info, accessory.TypeSecuritySystem)

	a.SecuritySystem = service.NewSecuritySystem()
	a.AddS(a.SecuritySystem.S)

	a.SecuritySystem.SecuritySystemTargetState.SetValueRequestFunc = a.updateHandler

	return a
}

// Update reflects the reconciled panel state. The target state follows it
// too, otherwise the Home app keeps a refused or keypad-overridden target
// as pending forever.
func (a *SecuritySystem) Update(state client.PanelState) {
	if current := currentState(state); a.SecuritySystem.SecuritySystemCurrentState.Value() != current {
		err := a.SecuritySystem.SecuritySystemCurrentState.SetValue(current)
		log.Info("set current state", "state", state, "err", err)
	}

	if target := targetState(state); a.SecuritySystem.SecuritySystemTargetState.Value() != target {
		err := a.SecuritySystem.SecuritySystemTargetState.SetValue(target)
		log.Info("set target state", "state", state, "err", err)
	}
}

func (a *SecuritySystem) updateHandler(
	v interface{},
	r *http.Request,
) (response interface{}, code int) {
	value, ok := v.(int)
	if !ok {
		return nil, hap.JsonStatusInvalidValueInRequest
	}
	target, ok := dispatchTarget(value)
	if !ok {
		return nil, hap.JsonStatusResourceDoesNotExist
	}

	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}
	if err := a.dispatcher.Dispatch(ctx, target); err != nil {
		log.Error("could not dispatch", "target", target, "err", err)
		return nil, hap.JsonStatusInvalidValueInRequest
	}
	return nil, hap.JsonStatusSuccess
}

// The panel has no stay mode: stay disarms, night arms in home mode.
func dispatchTarget(v int) (reconciler.Target, bool) {
	switch v {
	case characteristic.SecuritySystemTargetStateDisarm,
		characteristic.SecuritySystemTargetStateStayArm:
		return reconciler.TargetDisarm, true
	case characteristic.SecuritySystemTargetStateAwayArm:
		return reconciler.TargetArmAway, true
	case characteristic.SecuritySystemTargetStateNightArm:
		return reconciler.TargetArmHome, true
	default:
		return "", false
	}
}

func currentState(state client.PanelState) int {
	switch state.Mode() {
	case client.ModeArmedAway:
		return characteristic.SecuritySystemCurrentStateAwayArm
	case client.ModeArmedHome:
		return characteristic.SecuritySystemCurrentStateNightArm
	default:
		return characteristic.SecuritySystemCurrentStateDisarmed
	}
}

func targetState(state client.PanelState) int {
	switch state.Mode() {
	case client.ModeArmedAway:
		return characteristic.SecuritySystemTargetStateAwayArm
	case client.ModeArmedHome:
		return characteristic.SecuritySystemTargetStateNightArm
	default:
		return characteristic.SecuritySystemTargetStateDisarm
	}
}

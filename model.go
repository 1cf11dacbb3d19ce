package lupusec

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode is the panel arm mode, as understood by panelCondPost.
type Mode int

const (
	ModeDisarmed  Mode = 0
	ModeArmedAway Mode = 1
	ModeArmedHome Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeDisarmed:
		return "Disarmed"
	case ModeArmedAway:
		return "ArmedAway"
	case ModeArmedHome:
		return "ArmedHome"
	default:
		return "Unknown"
	}
}

func (m Mode) valid() bool {
	return m >= ModeDisarmed && m <= ModeArmedHome
}

// PanelState is the arm state of the panel. At most one flag is set, both
// false means disarmed.
type PanelState struct {
	ArmedAway bool
	ArmedHome bool
}

// PanelStateFromCode maps the mode code reported by panelCondGet.
// Anything but "1" and "2", padded codes included, is reported as disarmed.
func PanelStateFromCode(code string) PanelState {
	switch code {
	case "1":
		return PanelState{ArmedAway: true}
	case "2":
		return PanelState{ArmedHome: true}
	default:
		return PanelState{}
	}
}

func (s PanelState) Mode() Mode {
	switch {
	case s.ArmedAway:
		return ModeArmedAway
	case s.ArmedHome:
		return ModeArmedHome
	default:
		return ModeDisarmed
	}
}

func (s PanelState) String() string {
	return s.Mode().String()
}

// Device is a sensor as listed by deviceListGet.
type Device struct {
	Area        int
	Zone        int
	Name        string
	ContactOpen bool
}

// Key identifies a device within the installation. Names are not
// guaranteed to be unique, area and zone are.
type Key struct {
	Area int
	Zone int
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.Area, k.Zone)
}

func (d Device) Key() Key {
	return Key{Area: d.Area, Zone: d.Zone}
}

// Token is a single use credential required by panelCondPost.
type Token string

type deviceList struct {
	Rows *[]deviceRow `json:"senrows"`
}

type deviceRow struct {
	Area     flexInt `json:"area"`
	Zone     flexInt `json:"zone"`
	Name     string  `json:"name"`
	StatusEx flexInt `json:"status_ex"`
}

func (r deviceRow) device() Device {
	return Device{
		Area:        int(r.Area),
		Zone:        int(r.Zone),
		Name:        strings.TrimSpace(r.Name),
		ContactOpen: r.StatusEx != 0,
	}
}

// flexInt accepts both 1 and "1", the firmware is not consistent about it.
type flexInt int

func (i *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", string(b), err)
	}
	*i = flexInt(n)
	return nil
}

type panelCond struct {
	Forms *struct {
		Cond *struct {
			Mode *string `json:"mode"`
		} `json:"pcondform1"`
	} `json:"forms"`
}

type tokenResponse struct {
	Message *string `json:"message"`
}

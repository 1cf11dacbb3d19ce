package lupusec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const fragmentSize = 32

// Sanitize turns the deviceListGet payload into something encoding/json
// accepts. The firmware mixes raw control characters into the document and
// escapes some characters JSON does not know how to unescape.
//
// Sanitize is idempotent.
func Sanitize(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		// 0x00-0x19, raw newlines and tabs included.
		if c < 0x1a {
			continue
		}
		out = append(out, c)
	}
	out = normalizeEscapes(out)

	// leading and trailing garbage around the document.
	start := bytes.IndexByte(out, '{')
	end := bytes.LastIndexByte(out, '}')
	if start >= 0 && end > start {
		out = out[start : end+1]
	}
	return out
}

// normalizeEscapes keeps \n, \", \r, \t, \b and \f (and every other pair)
// as is, and collapses \' and \& into the bare character, which is their
// only valid JSON form.
func normalizeEscapes(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != '\\' || i+1 == len(b) {
			out = append(out, c)
			continue
		}
		next := b[i+1]
		switch next {
		case '\'', '&':
			out = append(out, next)
		default:
			out = append(out, c, next)
		}
		i++
	}
	return out
}

func parseDevices(body []byte) ([]Device, error) {
	const op = "deviceListGet"
	clean := Sanitize(body)

	var list deviceList
	if err := json.Unmarshal(clean, &list); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &ProtocolError{
				Op:       op,
				Fragment: fragment(clean, int(syntaxErr.Offset)),
				Err:      err,
			}
		}
		return nil, protocolError(op, clean, err)
	}
	if list.Rows == nil {
		return nil, protocolError(op, clean, fmt.Errorf("missing senrows"))
	}

	devices := make([]Device, 0, len(*list.Rows))
	for _, row := range *list.Rows {
		devices = append(devices, row.device())
	}
	return devices, nil
}

func parsePanelState(body []byte) (PanelState, error) {
	const op = "panelCondGet"
	var cond panelCond
	if err := json.Unmarshal(body, &cond); err != nil {
		return PanelState{}, protocolError(op, body, err)
	}
	if cond.Forms == nil || cond.Forms.Cond == nil || cond.Forms.Cond.Mode == nil {
		return PanelState{}, protocolError(op, body, fmt.Errorf("missing forms.pcondform1.mode"))
	}

	code := *cond.Forms.Cond.Mode
	state := PanelStateFromCode(code)
	if state.Mode() == ModeDisarmed && code != "0" {
		log.Warn("unknown mode code, assuming disarmed", "code", code)
	}
	return state, nil
}

func parseToken(body []byte) (Token, error) {
	const op = "tokenGet"
	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", protocolError(op, body, err)
	}
	if resp.Message == nil || *resp.Message == "" {
		return "", protocolError(op, body, fmt.Errorf("missing message"))
	}
	return Token(*resp.Message), nil
}

func fragment(b []byte, offset int) string {
	start := max(offset-fragmentSize, 0)
	end := min(offset+fragmentSize, len(b))
	if start >= end {
		return ""
	}
	return string(b[start:end])
}

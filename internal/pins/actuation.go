package pins

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/muurk/relay-server/internal/httpd"
	"github.com/muurk/relay-server/internal/logging"
)

// Route paths of the actuation API.
const (
	PinsPath = "/api/pins"
	PWMsPath = "/api/pwms"
)

// ErrPayload is returned for a request body that is not a JSON object of
// the expected shape.
var ErrPayload = errors.New("invalid payload")

var payloadJSON = jsoniter.Config{
	EscapeHTML:             true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Routes returns the actuation routes bound to reg.
func Routes(reg *Registry) []httpd.Route {
	return []httpd.Route{
		{Method: httpd.MethodPost, Path: PinsPath, Handler: PinsHandler(reg)},
		{Method: httpd.MethodPost, Path: PWMsPath, Handler: PWMsHandler(reg)},
	}
}

// PinsHandler sets digital outputs from a {"<pin>": <truthy>} body. The
// whole body is validated before any line is touched.
func PinsHandler(reg *Registry) httpd.HandlerFunc {
	return func(_ httpd.Header, body []byte) int {
		levels, err := DecodeLevels(body)
		if err != nil {
			logging.Warn("Rejected pins payload", zap.Error(err))
			return 400
		}
		for _, id := range sortedKeys(levels) {
			if _, err := reg.CheckOutput(id); err != nil {
				logging.Warn("Rejected pins payload", zap.Error(err))
				return 400
			}
		}

		for _, id := range sortedKeys(levels) {
			out, err := reg.Output(id)
			if err == nil {
				err = out.Set(levels[id])
			}
			if err != nil {
				logging.Error("Failed to set output", zap.String("pin", id), zap.Error(err))
				return 500
			}
		}
		return 200
	}
}

// PWMsHandler sets PWM duties from a {"<pin>": <integer>} body.
func PWMsHandler(reg *Registry) httpd.HandlerFunc {
	return func(_ httpd.Header, body []byte) int {
		duties, err := DecodeDuties(body)
		if err != nil {
			logging.Warn("Rejected pwms payload", zap.Error(err))
			return 400
		}
		for _, id := range sortedKeys(duties) {
			if _, err := reg.CheckPWM(id); err != nil {
				logging.Warn("Rejected pwms payload", zap.Error(err))
				return 400
			}
		}

		for _, id := range sortedKeys(duties) {
			p, err := reg.PWM(id)
			if err == nil {
				err = p.SetDuty(duties[id])
			}
			if err != nil {
				logging.Error("Failed to set duty", zap.String("pin", id), zap.Error(err))
				return 500
			}
		}
		return 200
	}
}

// DecodeLevels parses a pins body into target levels.
func DecodeLevels(body []byte) (map[string]bool, error) {
	props, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	levels := make(map[string]bool, len(props))
	for id, v := range props {
		levels[id] = truthy(v)
	}
	return levels, nil
}

// DecodeDuties parses a pwms body into duties in 0..MaxDuty.
func DecodeDuties(body []byte) (map[string]int, error) {
	props, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	duties := make(map[string]int, len(props))
	for id, v := range props {
		duty, err := integer(v)
		if err != nil {
			return nil, fmt.Errorf("%w: duty for %q %v", ErrPayload, id, err)
		}
		if duty < 0 || duty > MaxDuty {
			return nil, fmt.Errorf("%w: duty for %q out of range 0..%d", ErrPayload, id, MaxDuty)
		}
		duties[id] = duty
	}
	return duties, nil
}

func decodeObject(body []byte) (map[string]any, error) {
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrPayload)
	}
	var props map[string]any
	if err := payloadJSON.Unmarshal(body, &props); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	if props == nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrPayload)
	}
	return props, nil
}

func integer(v any) (int, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := strconv.Atoi(t.String())
		if err != nil {
			return 0, errors.New("is not an integer")
		}
		return n, nil
	case float64:
		if t != math.Trunc(t) || math.Abs(t) > math.MaxInt32 {
			return 0, errors.New("is not an integer")
		}
		return int(t), nil
	default:
		return 0, errors.New("is not a number")
	}
}

// truthy follows the usual dynamic-language rules: false, zero, empty
// strings and containers, and null are low; everything else is high.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

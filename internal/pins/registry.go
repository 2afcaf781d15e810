package pins

import (
	"errors"
	"fmt"
	"sync"

	"github.com/muurk/relay-server/internal/logging"
	"go.uber.org/zap"
)

// ErrUnknownPin is returned for a pin id outside the configured allowed set.
var ErrUnknownPin = errors.New("unknown pin")

// Options configures a Registry.
type Options struct {
	// InitialHigh is the level a digital line is driven to when opened.
	InitialHigh bool

	// Outputs and PWMs, when non-nil, are the only ids that may be used.
	// Their handles are opened eagerly by NewRegistry.
	Outputs []string
	PWMs    []string
}

// Registry owns every initialized line handle. A handle is opened on
// first use (or at startup for an allowed set) and is never reopened:
// reinitializing a line can glitch its level. Handles are keyed by the
// driver's LineID, so aliases of one line share a handle.
type Registry struct {
	driver      Driver
	initialHigh bool

	allowedOutputs map[string]bool
	allowedPWMs    map[string]bool

	mu      sync.Mutex
	outputs map[string]Output
	pwms    map[string]PWMOutput
}

// NewRegistry creates a registry over driver and opens any allowed lines.
func NewRegistry(driver Driver, opts Options) (*Registry, error) {
	r := &Registry{
		driver:         driver,
		initialHigh:    opts.InitialHigh,
		allowedOutputs: toSet(opts.Outputs),
		allowedPWMs:    toSet(opts.PWMs),
		outputs:        make(map[string]Output),
		pwms:           make(map[string]PWMOutput),
	}

	for _, id := range opts.Outputs {
		if _, err := r.Output(id); err != nil {
			return nil, err
		}
	}
	for _, id := range opts.PWMs {
		if _, err := r.PWM(id); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func toSet(ids []string) map[string]bool {
	if ids == nil {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// CheckOutput validates id as a digital output and returns the key of the
// line it drives. Errors wrap ErrUnknownPin.
func (r *Registry) CheckOutput(id string) (string, error) {
	return r.check(id, r.allowedOutputs)
}

// CheckPWM validates id as a PWM channel and returns the key of the
// channel it drives. Errors wrap ErrUnknownPin.
func (r *Registry) CheckPWM(id string) (string, error) {
	return r.check(id, r.allowedPWMs)
}

func (r *Registry) check(id string, allowed map[string]bool) (string, error) {
	if allowed != nil && !allowed[id] {
		return "", fmt.Errorf("%w: %q", ErrUnknownPin, id)
	}
	key, err := r.driver.LineID(id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnknownPin, err)
	}
	return key, nil
}

// Output returns the digital output handle for id, opening it on first use.
// Concurrent first uses open the line once and share the handle.
func (r *Registry) Output(id string) (Output, error) {
	key, err := r.CheckOutput(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if out, ok := r.outputs[key]; ok {
		return out, nil
	}
	out, err := r.driver.OpenOutput(id, r.initialHigh)
	if err != nil {
		return nil, fmt.Errorf("failed to open output %q: %w", id, err)
	}
	r.outputs[key] = out
	logging.Debug("Opened output line", zap.String("pin", id), zap.String("line", key), zap.Bool("initial_high", r.initialHigh))
	return out, nil
}

// PWM returns the PWM handle for id, opening it on first use.
func (r *Registry) PWM(id string) (PWMOutput, error) {
	key, err := r.CheckPWM(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pwms[key]; ok {
		return p, nil
	}
	p, err := r.driver.OpenPWM(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open pwm %q: %w", id, err)
	}
	r.pwms[key] = p
	logging.Debug("Opened PWM channel", zap.String("pin", id), zap.String("line", key))
	return p, nil
}

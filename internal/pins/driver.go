package pins

import (
	"fmt"
	"sync"

	"github.com/muurk/relay-server/internal/logging"
)

// MaxDuty is the largest PWM duty value, matching a 16 bit duty register.
const MaxDuty = 65535

// Output is an initialized digital output line.
type Output interface {
	Set(high bool) error
}

// PWMOutput is an initialized PWM channel.
type PWMOutput interface {
	SetDuty(duty int) error
}

// Driver initializes output lines. Opening a line configures the hardware,
// so callers must open each line once and keep the handle; Registry does
// that bookkeeping.
//
// LineID maps a pin id to the key of the line it drives. Ids that alias the
// same line must map to the same key.
type Driver interface {
	LineID(id string) (string, error)
	OpenOutput(id string, initialHigh bool) (Output, error)
	OpenPWM(id string) (PWMOutput, error)
}

// SimDriver keeps line state in memory. It backs the "sim" driver setting
// and the tests.
type SimDriver struct {
	mu     sync.Mutex
	levels map[string]bool
	duties map[string]int
	opens  map[string]int
}

// NewSimDriver returns an empty simulated board.
func NewSimDriver() *SimDriver {
	return &SimDriver{
		levels: make(map[string]bool),
		duties: make(map[string]int),
		opens:  make(map[string]int),
	}
}

// LineID implements Driver. Simulated lines are keyed by their id.
func (d *SimDriver) LineID(id string) (string, error) {
	return id, nil
}

// OpenOutput implements Driver
func (d *SimDriver) OpenOutput(id string, initialHigh bool) (Output, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens["out:"+id]++
	d.levels[id] = initialHigh
	return &simOutput{driver: d, id: id}, nil
}

// OpenPWM implements Driver
func (d *SimDriver) OpenPWM(id string) (PWMOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens["pwm:"+id]++
	d.duties[id] = 0
	return &simPWM{driver: d, id: id}, nil
}

// Level returns the level of a digital line and whether it was ever opened.
func (d *SimDriver) Level(id string) (high bool, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	high, ok = d.levels[id]
	return high, ok
}

// Duty returns the duty of a PWM channel and whether it was ever opened.
func (d *SimDriver) Duty(id string) (duty int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	duty, ok = d.duties[id]
	return duty, ok
}

// Opens returns how often a line was initialized. kind is "out" or "pwm".
func (d *SimDriver) Opens(kind, id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens[kind+":"+id]
}

type simOutput struct {
	driver *SimDriver
	id     string
}

func (o *simOutput) Set(high bool) error {
	o.driver.mu.Lock()
	o.driver.levels[o.id] = high
	o.driver.mu.Unlock()
	logging.LogPinWrite(o.id, "digital", boolToLevel(high))
	return nil
}

type simPWM struct {
	driver *SimDriver
	id     string
}

func (p *simPWM) SetDuty(duty int) error {
	if duty < 0 || duty > MaxDuty {
		return fmt.Errorf("duty %d out of range 0..%d", duty, MaxDuty)
	}
	p.driver.mu.Lock()
	p.driver.duties[p.id] = duty
	p.driver.mu.Unlock()
	logging.LogPinWrite(p.id, "pwm", duty)
	return nil
}

func boolToLevel(high bool) int {
	if high {
		return 1
	}
	return 0
}

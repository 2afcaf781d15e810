package pins

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/muurk/relay-server/internal/logging"
)

// Sysfs defaults for Linux boards.
const (
	DefaultSysfsRoot = "/sys/class"
	DefaultPWMChip   = "pwmchip0"
	DefaultPWMPeriod = 1000000 // ns, 1 kHz
)

// SysfsDriver drives lines through the Linux GPIO and PWM sysfs classes.
// Line ids are an optional letter prefix followed by the line number
// ("22", "pin22", "GPIO22"), so all three name the same line.
type SysfsDriver struct {
	Root     string // usually /sys/class
	PWMChip  string // pwm chip directory under Root/pwm
	PeriodNs int    // PWM period applied when a channel is opened
}

// NewSysfsDriver returns a driver rooted at /sys/class.
func NewSysfsDriver() *SysfsDriver {
	return &SysfsDriver{
		Root:     DefaultSysfsRoot,
		PWMChip:  DefaultPWMChip,
		PeriodNs: DefaultPWMPeriod,
	}
}

// LineNumber parses a pin id of the form [letters]digits.
func LineNumber(id string) (int, error) {
	digits := strings.TrimLeftFunc(id, unicode.IsLetter)
	if digits == "" || strings.TrimLeftFunc(digits, isASCIIDigit) != "" {
		return 0, fmt.Errorf("pin id %q: expected an optional letter prefix followed by a line number (e.g. 22, pin22, GPIO22)", id)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("pin id %q: %w", id, err)
	}
	return n, nil
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// LineID implements Driver. Every alias of a line maps to its number.
func (d *SysfsDriver) LineID(id string) (string, error) {
	n, err := LineNumber(id)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

// OpenOutput exports the GPIO if needed and sets it as an output. Writing
// "high" or "low" to direction sets the level together with the direction,
// so the line never drives the wrong level in between.
func (d *SysfsDriver) OpenOutput(id string, initialHigh bool) (Output, error) {
	n, err := LineNumber(id)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(d.Root, "gpio", "gpio"+strconv.Itoa(n))
	if err := exportIfMissing(filepath.Join(d.Root, "gpio", "export"), dir, n); err != nil {
		return nil, err
	}

	direction := "low"
	if initialHigh {
		direction = "high"
	}
	if err := writeAttr(filepath.Join(dir, "direction"), direction); err != nil {
		return nil, err
	}
	return &sysfsOutput{id: id, valuePath: filepath.Join(dir, "value")}, nil
}

// OpenPWM exports the PWM channel, applies the period and enables it with a
// zero duty cycle.
func (d *SysfsDriver) OpenPWM(id string) (PWMOutput, error) {
	n, err := LineNumber(id)
	if err != nil {
		return nil, err
	}
	chip := filepath.Join(d.Root, "pwm", d.PWMChip)
	dir := filepath.Join(chip, "pwm"+strconv.Itoa(n))
	if err := exportIfMissing(filepath.Join(chip, "export"), dir, n); err != nil {
		return nil, err
	}

	if err := writeAttr(filepath.Join(dir, "period"), strconv.Itoa(d.PeriodNs)); err != nil {
		return nil, err
	}
	if err := writeAttr(filepath.Join(dir, "duty_cycle"), "0"); err != nil {
		return nil, err
	}
	if err := writeAttr(filepath.Join(dir, "enable"), "1"); err != nil {
		return nil, err
	}
	return &sysfsPWM{id: id, dutyPath: filepath.Join(dir, "duty_cycle"), periodNs: d.PeriodNs}, nil
}

func exportIfMissing(exportPath, dir string, n int) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if err := writeAttr(exportPath, strconv.Itoa(n)); err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("line %d not available after export: %w", n, err)
	}
	return nil
}

func writeAttr(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

type sysfsOutput struct {
	id        string
	valuePath string
}

func (o *sysfsOutput) Set(high bool) error {
	level := boolToLevel(high)
	if err := writeAttr(o.valuePath, strconv.Itoa(level)); err != nil {
		return err
	}
	logging.LogPinWrite(o.id, "digital", level)
	return nil
}

type sysfsPWM struct {
	id       string
	dutyPath string
	periodNs int
}

// SetDuty scales a 0..MaxDuty duty onto the channel period.
func (p *sysfsPWM) SetDuty(duty int) error {
	if duty < 0 || duty > MaxDuty {
		return fmt.Errorf("duty %d out of range 0..%d", duty, MaxDuty)
	}
	ns := int64(duty) * int64(p.periodNs) / MaxDuty
	if err := writeAttr(p.dutyPath, strconv.FormatInt(ns, 10)); err != nil {
		return err
	}
	logging.LogPinWrite(p.id, "pwm", duty)
	return nil
}

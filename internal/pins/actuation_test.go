package pins

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/muurk/relay-server/internal/httpd"
)

func newTestRegistry(t *testing.T, opts Options) (*Registry, *SimDriver) {
	t.Helper()
	drv := NewSimDriver()
	reg, err := NewRegistry(drv, opts)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg, drv
}

func TestPinsHandlerSetsLine(t *testing.T) {
	reg, drv := newTestRegistry(t, Options{InitialHigh: false})
	h := PinsHandler(reg)

	if status := h(httpd.Header{}, []byte(`{"pin22": true}`)); status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	if high, ok := drv.Level("pin22"); !ok || !high {
		t.Errorf("pin22 level = %v (opened %v), want high", high, ok)
	}

	if status := h(httpd.Header{}, []byte(`{"pin22": false}`)); status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	if high, _ := drv.Level("pin22"); high {
		t.Error("pin22 should be low")
	}
}

func TestPinsHandlerRejectsWithoutMutation(t *testing.T) {
	tests := []struct {
		name string
		body string
		opts Options
	}{
		{"not json", `not-json`, Options{}},
		{"empty body", ``, Options{}},
		{"array", `[{"pin22": true}]`, Options{}},
		{"null", `null`, Options{}},
		{"truncated", `{"pin22": tr`, Options{}},
		{"trailing garbage", `{"pin22": true} x`, Options{}},
		{"unknown pin in allowed set", `{"pin22": true, "pin99": true}`, Options{Outputs: []string{"pin22"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, drv := newTestRegistry(t, tt.opts)
			before, _ := drv.Level("pin22")

			if status := PinsHandler(reg)(httpd.Header{}, []byte(tt.body)); status != 400 {
				t.Errorf("status = %d, want 400", status)
			}
			if after, _ := drv.Level("pin22"); after != before {
				t.Error("pin22 was mutated by a rejected request")
			}
			if _, ok := drv.Level("pin99"); ok {
				t.Error("pin99 was opened by a rejected request")
			}
		})
	}
}

func TestDecodeLevelsTruthiness(t *testing.T) {
	body := `{"a": true, "b": false, "c": 1, "d": 0, "e": 0.5, "f": "on", "g": "", "h": null, "i": [1], "j": {}}`
	levels, err := DecodeLevels([]byte(body))
	if err != nil {
		t.Fatalf("DecodeLevels() error = %v", err)
	}

	want := map[string]bool{
		"a": true, "b": false, "c": true, "d": false, "e": true,
		"f": true, "g": false, "h": false, "i": true, "j": false,
	}
	for id, w := range want {
		if levels[id] != w {
			t.Errorf("level[%s] = %v, want %v", id, levels[id], w)
		}
	}
}

func TestPWMsHandler(t *testing.T) {
	reg, drv := newTestRegistry(t, Options{})
	h := PWMsHandler(reg)

	if status := h(httpd.Header{}, []byte(`{"pin5": 32768, "pin6": 0}`)); status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	if duty, _ := drv.Duty("pin5"); duty != 32768 {
		t.Errorf("pin5 duty = %d, want 32768", duty)
	}

	for _, body := range []string{
		`{"pin5": 1.5}`,
		`{"pin5": true}`,
		`{"pin5": "100"}`,
		`{"pin5": -1}`,
		`{"pin5": 70000}`,
		`garbage`,
	} {
		if status := h(httpd.Header{}, []byte(body)); status != 400 {
			t.Errorf("body %s: status = %d, want 400", body, status)
		}
	}
	if duty, _ := drv.Duty("pin5"); duty != 32768 {
		t.Errorf("pin5 duty = %d after rejected requests, want 32768", duty)
	}
}

func TestDecodeDutiesError(t *testing.T) {
	_, err := DecodeDuties([]byte(`{"pin5": 1.5}`))
	if !errors.Is(err, ErrPayload) {
		t.Errorf("DecodeDuties() error = %v, want ErrPayload", err)
	}
}

type brokenOutput struct{}

func (brokenOutput) Set(bool) error { return errors.New("i2c expander not responding") }

type brokenDriver struct{ *SimDriver }

func (brokenDriver) OpenOutput(string, bool) (Output, error) { return brokenOutput{}, nil }

func TestPinsHandlerDriverFaultIs500(t *testing.T) {
	reg, err := NewRegistry(brokenDriver{NewSimDriver()}, Options{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if status := PinsHandler(reg)(httpd.Header{}, []byte(`{"relay1": 1}`)); status != 500 {
		t.Errorf("status = %d, want 500", status)
	}
}

func TestRoutes(t *testing.T) {
	reg, _ := newTestRegistry(t, Options{})
	routes := Routes(reg)

	if len(routes) != 2 {
		t.Fatalf("len(Routes()) = %d, want 2", len(routes))
	}
	if _, err := httpd.NewRouter(nil, routes...); err != nil {
		t.Errorf("NewRouter(Routes()) error = %v", err)
	}
}

func TestPinsHandlerAliasKeepsLine(t *testing.T) {
	root := fakeSysfs(t, []string{"22"}, nil)
	reg, err := NewRegistry(&SysfsDriver{Root: root}, Options{InitialHigh: true})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	h := PinsHandler(reg)

	if status := h(httpd.Header{}, []byte(`{"pin22": 0}`)); status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	direction := filepath.Join(root, "gpio", "gpio22", "direction")
	if err := os.WriteFile(direction, []byte("in"), 0644); err != nil {
		t.Fatal(err)
	}

	if status := h(httpd.Header{}, []byte(`{"GPIO22": 0}`)); status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	if got := readAttr(t, direction); got != "in" {
		t.Errorf("direction = %q, alias reinitialized line 22", got)
	}
	if got := readAttr(t, filepath.Join(root, "gpio", "gpio22", "value")); got != "0" {
		t.Errorf("value = %q, want 0", got)
	}
}

func TestPinsHandlerMalformedIDIs400(t *testing.T) {
	root := fakeSysfs(t, []string{"5"}, nil)
	reg, err := NewRegistry(&SysfsDriver{Root: root}, Options{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if status := PinsHandler(reg)(httpd.Header{}, []byte(`{"pin5": 1, "pin5a": 1}`)); status != 400 {
		t.Errorf("status = %d, want 400", status)
	}
	if _, err := os.Stat(filepath.Join(root, "gpio", "gpio5", "value")); !os.IsNotExist(err) {
		t.Errorf("pin5 was written before the payload was rejected (stat error = %v)", err)
	}
}

// internal/config/schema_test.go
package config

import (
	"errors"
	"testing"
)

func TestNewSettingsRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		baudRate int
		portPath string
	}{
		{name: "enabled high baud", enabled: true, baudRate: 115200, portPath: "/dev/ttyUSB0"},
		{name: "enabled low baud", enabled: true, baudRate: 9600, portPath: "/dev/ttyUSB1"},
		{name: "disabled", enabled: false, baudRate: 115200, portPath: "/dev/ttyS0"},
		{name: "disabled low baud", enabled: false, baudRate: 9600, portPath: "/dev/serial0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings, err := NewSettings(tt.enabled, tt.baudRate, tt.portPath)
			if err != nil {
				t.Fatalf("NewSettings() error = %v", err)
			}
			if settings.Enabled != tt.enabled {
				t.Errorf("Enabled = %v, want %v", settings.Enabled, tt.enabled)
			}
			if settings.BaudRate != tt.baudRate {
				t.Errorf("BaudRate = %d, want %d", settings.BaudRate, tt.baudRate)
			}
			if settings.PortPath != tt.portPath {
				t.Errorf("PortPath = %q, want %q", settings.PortPath, tt.portPath)
			}
		})
	}
}

func TestNewSettingsRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		baudRate int
		portPath string
	}{
		{name: "baud zero", baudRate: 0, portPath: "/dev/ttyUSB0"},
		{name: "baud 19200", baudRate: 19200, portPath: "/dev/ttyUSB0"},
		{name: "baud negative", baudRate: -115200, portPath: "/dev/ttyUSB0"},
		{name: "empty port", baudRate: 115200, portPath: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSettings(true, tt.baudRate, tt.portPath)
			if err == nil {
				t.Fatal("NewSettings() expected error, got nil")
			}
			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("error type = %T, want *ConfigError", err)
			}
		})
	}
}

func TestDefaultSettings(t *testing.T) {
	settings, err := DefaultSettings()
	if err != nil {
		t.Fatalf("DefaultSettings() error = %v", err)
	}

	if settings.Enabled {
		t.Error("default Enabled = true, want false")
	}
	if settings.BaudRate != 115200 {
		t.Errorf("default BaudRate = %d, want 115200", settings.BaudRate)
	}
	if settings.PortPath != "/dev/ttyUSB0" {
		t.Errorf("default PortPath = %q, want /dev/ttyUSB0", settings.PortPath)
	}
}

func TestSchemaOptionNames(t *testing.T) {
	// The three option names are an external contract
	want := map[string]bool{
		"altimeter_port_enabled":  false,
		"altimeter_port_baudrate": false,
		"altimeter_port":          false,
	}

	for _, opt := range Schema.Options {
		seen, ok := want[opt.Name]
		if !ok {
			t.Errorf("unexpected option in schema: %s", opt.Name)
			continue
		}
		if seen {
			t.Errorf("duplicate option in schema: %s", opt.Name)
		}
		want[opt.Name] = true
	}

	for name, seen := range want {
		if !seen {
			t.Errorf("option missing from schema: %s", name)
		}
	}
}

func TestSettingsMerge(t *testing.T) {
	base, err := DefaultSettings()
	if err != nil {
		t.Fatalf("DefaultSettings() error = %v", err)
	}

	tests := []struct {
		name    string
		values  map[string]interface{}
		want    Settings
		wantErr bool
	}{
		{
			name:   "enable only",
			values: map[string]interface{}{OptionPortEnabled: true},
			want:   Settings{Enabled: true, BaudRate: 115200, PortPath: "/dev/ttyUSB0"},
		},
		{
			name: "all fields",
			values: map[string]interface{}{
				OptionPortEnabled:  true,
				OptionPortBaudrate: 9600,
				OptionPort:         "/dev/ttyACM0",
			},
			want: Settings{Enabled: true, BaudRate: 9600, PortPath: "/dev/ttyACM0"},
		},
		{
			// JSON decoding delivers numbers as float64
			name:   "baud as float64",
			values: map[string]interface{}{OptionPortBaudrate: float64(9600)},
			want:   Settings{Enabled: false, BaudRate: 9600, PortPath: "/dev/ttyUSB0"},
		},
		{
			name:    "baud out of enum",
			values:  map[string]interface{}{OptionPortBaudrate: 57600},
			wantErr: true,
		},
		{
			name:    "baud fractional",
			values:  map[string]interface{}{OptionPortBaudrate: 9600.5},
			wantErr: true,
		},
		{
			name:    "baud wrong type",
			values:  map[string]interface{}{OptionPortBaudrate: "fast"},
			wantErr: true,
		},
		{
			name:    "enabled wrong type",
			values:  map[string]interface{}{OptionPortEnabled: "yes"},
			wantErr: true,
		},
		{
			name:    "empty port",
			values:  map[string]interface{}{OptionPort: ""},
			wantErr: true,
		},
		{
			name:    "unknown option",
			values:  map[string]interface{}{"altimeter_port_parity": "none"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := base.Merge(tt.values)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Merge() expected error, got nil")
				}
				var configErr *ConfigError
				if !errors.As(err, &configErr) {
					t.Fatalf("error type = %T, want *ConfigError", err)
				}
				// The receiver must be left untouched
				if base.Enabled || base.BaudRate != 115200 || base.PortPath != "/dev/ttyUSB0" {
					t.Errorf("base settings mutated after rejected merge: %+v", base)
				}
				return
			}
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Merge() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSettingsNeedsReopen(t *testing.T) {
	base := Settings{Enabled: true, BaudRate: 115200, PortPath: "/dev/ttyUSB0"}

	tests := []struct {
		name string
		next Settings
		want bool
	}{
		{name: "unchanged", next: base, want: false},
		{name: "enabled toggled", next: Settings{Enabled: false, BaudRate: 115200, PortPath: "/dev/ttyUSB0"}, want: false},
		{name: "baud changed", next: Settings{Enabled: true, BaudRate: 9600, PortPath: "/dev/ttyUSB0"}, want: true},
		{name: "port changed", next: Settings{Enabled: true, BaudRate: 115200, PortPath: "/dev/ttyUSB1"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.NeedsReopen(tt.next); got != tt.want {
				t.Errorf("NeedsReopen() = %v, want %v", got, tt.want)
			}
		})
	}
}

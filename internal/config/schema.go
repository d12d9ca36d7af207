// internal/config/schema.go
package config

import (
	"fmt"
)

// Option names exposed to supervisory tooling. These names, their types,
// defaults and the baud rate enumeration are a fixed external contract.
const (
	OptionPortEnabled  = "altimeter_port_enabled"
	OptionPortBaudrate = "altimeter_port_baudrate"
	OptionPort         = "altimeter_port"
)

// AllowedBaudRates enumerates the baud rates the altimeter accepts.
var AllowedBaudRates = []int{9600, 115200}

// ConfigError reports an option value rejected by schema validation.
// The previously applied settings remain active when it is returned.
type ConfigError struct {
	Option string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid value for option %q: %v (%s)", e.Option, e.Value, e.Reason)
}

// OptionType describes the value type of a schema option
type OptionType string

const (
	OptionTypeBool   OptionType = "bool"
	OptionTypeInt    OptionType = "int"
	OptionTypeString OptionType = "string"
)

// Option describes one runtime-tunable option
type Option struct {
	Name        string      `json:"name"`
	Type        OptionType  `json:"type"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
	Enum        []int       `json:"enum,omitempty"`
}

// OptionSchema is the set of options the service exposes for runtime tuning
type OptionSchema struct {
	Options []Option `json:"options"`
}

// Schema declares the altimeter port options. It is used for defaults and
// validation only; tooling reads it verbatim from the API.
var Schema = OptionSchema{
	Options: []Option{
		{
			Name:        OptionPortEnabled,
			Type:        OptionTypeBool,
			Default:     false,
			Description: "Enable the altimeter serial port",
		},
		{
			Name:        OptionPortBaudrate,
			Type:        OptionTypeInt,
			Default:     115200,
			Description: "Baud rate of the altimeter serial port",
			Enum:        AllowedBaudRates,
		},
		{
			Name:        OptionPort,
			Type:        OptionTypeString,
			Default:     "/dev/ttyUSB0",
			Description: "Path of the altimeter serial port",
		},
	},
}

// Settings is an immutable snapshot of the applied port options. Snapshots
// are replaced wholesale on update, never mutated in place.
type Settings struct {
	Enabled  bool   `json:"altimeter_port_enabled"`
	BaudRate int    `json:"altimeter_port_baudrate"`
	PortPath string `json:"altimeter_port"`
}

// NewSettings validates the given option values and returns a snapshot.
func NewSettings(enabled bool, baudRate int, portPath string) (Settings, error) {
	if !baudRateAllowed(baudRate) {
		return Settings{}, &ConfigError{
			Option: OptionPortBaudrate,
			Value:  baudRate,
			Reason: fmt.Sprintf("must be one of %v", AllowedBaudRates),
		}
	}
	if portPath == "" {
		return Settings{}, &ConfigError{
			Option: OptionPort,
			Value:  portPath,
			Reason: "must not be empty",
		}
	}

	return Settings{
		Enabled:  enabled,
		BaudRate: baudRate,
		PortPath: portPath,
	}, nil
}

// DefaultSettings returns the snapshot built from the schema defaults.
// A malformed schema default is a programming error and the only condition
// fatal to startup, so it is surfaced rather than papered over.
func DefaultSettings() (Settings, error) {
	var (
		enabled  bool
		baudRate int
		portPath string
	)

	for _, opt := range Schema.Options {
		switch opt.Name {
		case OptionPortEnabled:
			v, ok := opt.Default.(bool)
			if !ok {
				return Settings{}, fmt.Errorf("schema default for %s is not a bool: %v", opt.Name, opt.Default)
			}
			enabled = v
		case OptionPortBaudrate:
			v, ok := opt.Default.(int)
			if !ok {
				return Settings{}, fmt.Errorf("schema default for %s is not an int: %v", opt.Name, opt.Default)
			}
			baudRate = v
		case OptionPort:
			v, ok := opt.Default.(string)
			if !ok {
				return Settings{}, fmt.Errorf("schema default for %s is not a string: %v", opt.Name, opt.Default)
			}
			portPath = v
		default:
			return Settings{}, fmt.Errorf("unknown option in schema: %s", opt.Name)
		}
	}

	settings, err := NewSettings(enabled, baudRate, portPath)
	if err != nil {
		return Settings{}, fmt.Errorf("schema defaults are invalid: %w", err)
	}
	return settings, nil
}

// Merge applies a partial update of raw option values on top of the receiver
// and returns the resulting snapshot. Unknown option names and values of the
// wrong type are rejected with ConfigError; the receiver is left untouched.
func (s Settings) Merge(values map[string]interface{}) (Settings, error) {
	enabled := s.Enabled
	baudRate := s.BaudRate
	portPath := s.PortPath

	for name, value := range values {
		switch name {
		case OptionPortEnabled:
			v, ok := value.(bool)
			if !ok {
				return Settings{}, &ConfigError{Option: name, Value: value, Reason: "must be a bool"}
			}
			enabled = v
		case OptionPortBaudrate:
			v, ok := toInt(value)
			if !ok {
				return Settings{}, &ConfigError{Option: name, Value: value, Reason: "must be an integer"}
			}
			baudRate = v
		case OptionPort:
			v, ok := value.(string)
			if !ok {
				return Settings{}, &ConfigError{Option: name, Value: value, Reason: "must be a string"}
			}
			portPath = v
		default:
			return Settings{}, &ConfigError{Option: name, Value: value, Reason: "unknown option"}
		}
	}

	return NewSettings(enabled, baudRate, portPath)
}

// NeedsReopen reports whether moving from s to next requires the serial
// handle to be closed and reopened.
func (s Settings) NeedsReopen(next Settings) bool {
	return s.PortPath != next.PortPath || s.BaudRate != next.BaudRate
}

func baudRateAllowed(baudRate int) bool {
	for _, allowed := range AllowedBaudRates {
		if baudRate == allowed {
			return true
		}
	}
	return false
}

// toInt accepts the integer representations JSON decoding and viper produce.
func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// internal/va500/messages.go
package va500

// Message identifies a VA500 command or reply. Numeric messages are three
// ASCII digits on the wire; sampling commands are single characters.
type Message string

const (
	// Instrument settings
	MsgSoftwareVersion Message = "032"
	MsgUnitSerialNum   Message = "034"
	MsgPCBSerialNum    Message = "136"
	MsgCalibrationDate Message = "138"
	MsgTransducerFreq  Message = "839"

	// Communication settings
	MsgBaudRate        Message = "059"
	MsgSetAddress485   Message = "001"
	MsgAddress485      Message = "002"
	MsgAddressModeConf Message = "005"
	MsgAddressMode     Message = "006"

	// Sampling regime
	MsgSingleMeasure  Message = "S"
	MsgMeasure        Message = "M"
	MsgSetMeasureMode Message = "039"
	MsgOperatingMode  Message = "040"
	MsgRun            Message = "028"

	// Output format
	MsgOutputFormat    Message = "089"
	MsgSetOutputFormat Message = "082"

	// Range settings
	MsgSetRangeUnits    Message = "021"
	MsgRangeUnits       Message = "022"
	MsgSetErrorMsg      Message = "118"
	MsgErrorMsg         Message = "119"
	MsgMaxRange         Message = "823"
	MsgMinimumRange     Message = "841"
	MsgChangeSoundSpeed Message = "830"
	MsgSoundSpeed       Message = "831"
)

// Frame delimiters
const (
	commandHeader   = '#'
	dataHeader      = '$'
	fieldSeparator  = ';'
	configurePrompt = '>'
)

var messageNames = map[Message]string{
	MsgSoftwareVersion: "SW_VERSION",
	MsgUnitSerialNum:   "UNIT_SERIAL_NUM",
	MsgPCBSerialNum:    "PCB_SERIAL_NUM",
	MsgCalibrationDate: "CALIBRATION_DATE",
	MsgTransducerFreq:  "TRANSDUCER_FREQ",
	MsgBaudRate:        "BAUD_RATE",
	MsgSingleMeasure:   "SINGLE_MEASURE",
	MsgMeasure:         "MEASURE",
	MsgSetMeasureMode:  "SET_MEASURE_MODE",
	MsgOperatingMode:   "OPERATING_MODE",
	MsgRun:             "RUN",
	MsgOutputFormat:    "OUTPUT_FORMAT",
	MsgSetOutputFormat: "SET_OUTPUT_FORMAT",
	MsgSetRangeUnits:   "SET_RANGE_UNITS",
	MsgRangeUnits:      "RANGE_UNITS",
	MsgMaxRange:        "MAX_RANGE",
	MsgMinimumRange:    "MINIMUM_RANGE",
	MsgSoundSpeed:      "SOUND_SPEED",
}

// Name returns the human-readable name of a message, or "<unknown>".
func (m Message) Name() string {
	if name, ok := messageNames[m]; ok {
		return name
	}
	return "<unknown>"
}

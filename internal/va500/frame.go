// internal/va500/frame.go
package va500

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrIncompleteFrame reports a frame cut short before its terminator.
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrCorruptFrame reports a frame with an unexpected header or shape.
	ErrCorruptFrame = errors.New("corrupt frame")
)

// Command is a request to the altimeter
type Command struct {
	ID      Message
	Payload []byte
}

// Serialize renders the command in the instrument's wire format:
// '#' <id> ';' <payload> CR LF. Single-character sampling commands ('S',
// 'M') are sent bare, without framing.
func (c Command) Serialize() []byte {
	if len(c.ID) == 1 {
		return []byte(c.ID)
	}

	var buf bytes.Buffer
	buf.WriteByte(commandHeader)
	buf.WriteString(string(c.ID))
	buf.WriteByte(fieldSeparator)
	buf.Write(c.Payload)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

// Reply is one parsed response frame from the altimeter
type Reply struct {
	ID      Message
	Payload []byte
}

// ParseReply parses a '#'-headed response line (terminator already
// stripped). Data lines starting with '$' are range measurements and are
// decoded separately; they are rejected here with ErrCorruptFrame.
func ParseReply(line []byte) (*Reply, error) {
	if len(line) == 0 {
		return nil, ErrIncompleteFrame
	}
	if line[0] != commandHeader {
		return nil, fmt.Errorf("unexpected header %q: %w", line[0], ErrCorruptFrame)
	}
	if len(line) < 4 {
		return nil, ErrIncompleteFrame
	}

	id := Message(line[1:4])
	for _, c := range line[1:4] {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("non-numeric message id %q: %w", line[1:4], ErrCorruptFrame)
		}
	}

	payload := line[4:]
	if len(payload) > 0 {
		if payload[0] != fieldSeparator {
			return nil, fmt.Errorf("missing field separator: %w", ErrCorruptFrame)
		}
		payload = payload[1:]
	}

	return &Reply{ID: id, Payload: payload}, nil
}

// IsDataLine reports whether the line is a '$'-headed measurement.
func IsDataLine(line []byte) bool {
	return len(line) > 0 && line[0] == dataHeader
}

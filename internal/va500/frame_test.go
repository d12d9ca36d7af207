// internal/va500/frame_test.go
package va500

import (
	"bytes"
	"errors"
	"testing"
)

func TestCommandSerialize(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want []byte
	}{
		{
			name: "numeric command without payload",
			cmd:  Command{ID: MsgTransducerFreq},
			want: []byte("#839;\r\n"),
		},
		{
			name: "numeric command with payload",
			cmd:  Command{ID: MsgSetRangeUnits, Payload: []byte("m")},
			want: []byte("#021;m\r\n"),
		},
		{
			name: "single measure is sent bare",
			cmd:  Command{ID: MsgSingleMeasure},
			want: []byte("S"),
		},
		{
			name: "continuous measure is sent bare",
			cmd:  Command{ID: MsgMeasure},
			want: []byte("M"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.Serialize(); !bytes.Equal(got, tt.want) {
				t.Errorf("Serialize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name        string
		line        []byte
		wantID      Message
		wantPayload []byte
		wantErr     error
	}{
		{
			name:        "reply with payload",
			line:        []byte("#839;500"),
			wantID:      MsgTransducerFreq,
			wantPayload: []byte("500"),
		},
		{
			name:        "reply without payload",
			line:        []byte("#028"),
			wantID:      MsgRun,
			wantPayload: []byte(""),
		},
		{
			name:    "empty line",
			line:    []byte(""),
			wantErr: ErrIncompleteFrame,
		},
		{
			name:    "truncated frame",
			line:    []byte("#83"),
			wantErr: ErrIncompleteFrame,
		},
		{
			name:    "wrong header",
			line:    []byte("!839;500"),
			wantErr: ErrCorruptFrame,
		},
		{
			name:    "data line is not a reply",
			line:    []byte("$012.345,M"),
			wantErr: ErrCorruptFrame,
		},
		{
			name:    "non numeric id",
			line:    []byte("#8a9;500"),
			wantErr: ErrCorruptFrame,
		},
		{
			name:    "missing separator before payload",
			line:    []byte("#839500"),
			wantErr: ErrCorruptFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := ParseReply(tt.line)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseReply() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReply() error = %v", err)
			}
			if reply.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", reply.ID, tt.wantID)
			}
			if !bytes.Equal(reply.Payload, tt.wantPayload) {
				t.Errorf("Payload = %q, want %q", reply.Payload, tt.wantPayload)
			}
		})
	}
}

func TestIsDataLine(t *testing.T) {
	if !IsDataLine([]byte("$012.345,M")) {
		t.Error("IsDataLine() = false for data line")
	}
	if IsDataLine([]byte("#839;500")) {
		t.Error("IsDataLine() = true for reply line")
	}
	if IsDataLine(nil) {
		t.Error("IsDataLine() = true for empty line")
	}
}

func TestMessageName(t *testing.T) {
	if got := MsgTransducerFreq.Name(); got != "TRANSDUCER_FREQ" {
		t.Errorf("Name() = %q, want TRANSDUCER_FREQ", got)
	}
	if got := Message("999").Name(); got != "<unknown>" {
		t.Errorf("Name() = %q, want <unknown>", got)
	}
}

// internal/serial/link_test.go
package serial

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakePort scripts the byte stream a device would deliver. Each entry of
// chunks is returned by one Read call; an exhausted script reads like a
// quiet line (0, nil), the behavior of a real port read timeout.
type fakePort struct {
	mu      sync.Mutex
	chunks  [][]byte
	readErr error
	closed  bool
	closes  int
	written [][]byte
}

func (p *fakePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, fs.ErrClosed
	}
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.chunks) == 0 {
		return 0, nil
	}

	chunk := p.chunks[0]
	p.chunks = p.chunks[1:]
	n := copy(buf, chunk)
	return n, nil
}

func (p *fakePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, fs.ErrClosed
	}
	p.written = append(p.written, append([]byte(nil), data...))
	return len(data), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(d time.Duration) error { return nil }

func withFakePort(t *testing.T, port *fakePort) *Link {
	t.Helper()

	orig := openPort
	openPort = func(path string, baudRate int) (Port, error) {
		return port, nil
	}
	t.Cleanup(func() { openPort = orig })

	link, err := Open("/dev/ttyTEST0", 115200, zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return link
}

func TestLinkReadLine(t *testing.T) {
	port := &fakePort{chunks: [][]byte{
		[]byte("$012."),
		[]byte("345,M\r\n$06"),
		[]byte("7.890,M\r\n"),
	}}
	link := withFakePort(t, port)

	line, err := link.ReadLine(time.Second)
	if err != nil {
		t.Fatalf("ReadLine() error = %v", err)
	}
	if string(line) != "$012.345,M" {
		t.Errorf("line = %q, want $012.345,M", line)
	}

	// Second line was already buffered past the first terminator
	line, err = link.ReadLine(time.Second)
	if err != nil {
		t.Fatalf("ReadLine() error = %v", err)
	}
	if string(line) != "$067.890,M" {
		t.Errorf("line = %q, want $067.890,M", line)
	}
}

func TestLinkReadLineTimeout(t *testing.T) {
	port := &fakePort{chunks: [][]byte{[]byte("no terminator")}}
	link := withFakePort(t, port)

	start := time.Now()
	_, err := link.ReadLine(50 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("ReadLine() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("ReadLine() returned after %v, before the timeout", elapsed)
	}
}

func TestLinkReadLineDeviceVanished(t *testing.T) {
	port := &fakePort{readErr: fmt.Errorf("device gone: %w", fs.ErrClosed)}
	link := withFakePort(t, port)

	_, err := link.ReadLine(time.Second)
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("ReadLine() error = %v, want ErrDisconnected", err)
	}
}

func TestLinkReadAfterClose(t *testing.T) {
	port := &fakePort{}
	link := withFakePort(t, port)

	if err := link.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	_, err := link.ReadLine(time.Second)
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("ReadLine() after close error = %v, want ErrDisconnected", err)
	}
	if err := link.Write([]byte("S")); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("Write() after close error = %v, want ErrDisconnected", err)
	}
}

func TestLinkCloseIdempotent(t *testing.T) {
	port := &fakePort{}
	link := withFakePort(t, port)

	if err := link.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := link.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if port.closes != 1 {
		t.Errorf("port closed %d times, want 1", port.closes)
	}
}

func TestLinkWrite(t *testing.T) {
	port := &fakePort{}
	link := withFakePort(t, port)

	if err := link.Write([]byte("S")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(port.written) != 1 || string(port.written[0]) != "S" {
		t.Errorf("written = %q, want [S]", port.written)
	}
}

func TestOpenClassifiesErrors(t *testing.T) {
	tests := []struct {
		name    string
		openErr error
		want    error
	}{
		{name: "missing device", openErr: fs.ErrNotExist, want: ErrNotFound},
		{name: "permission", openErr: syscall.EACCES, want: ErrPermissionDenied},
		{name: "busy", openErr: syscall.EBUSY, want: ErrBusy},
		{name: "anything else", openErr: errors.New("io failure"), want: ErrDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := openPort
			openPort = func(path string, baudRate int) (Port, error) {
				return nil, tt.openErr
			}
			t.Cleanup(func() { openPort = orig })

			_, err := Open("/dev/ttyTEST0", 115200, zap.NewNop())
			if !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}
}

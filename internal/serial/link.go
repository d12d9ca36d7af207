// internal/serial/link.go
package serial

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// pollTimeout bounds a single blocking read so the deadline in ReadLine is
// honored without busy waiting.
const pollTimeout = 100 * time.Millisecond

// Port abstracts the subset of go.bug.st/serial.Port used by this package.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(d time.Duration) error
}

// openPort is swapped out by tests.
var openPort = func(path string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	return serial.Open(path, mode)
}

// ListPorts returns the serial port paths present on the host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}

// Link owns one OS-level serial device handle
type Link struct {
	path     string
	baudRate int
	logger   *zap.Logger

	mutex   sync.Mutex
	port    Port
	residue bytes.Buffer
	isOpen  bool
}

// Open opens the serial device at path with the given baud rate.
func Open(path string, baudRate int, logger *zap.Logger) (*Link, error) {
	port, err := openPort(path, baudRate)
	if err != nil {
		classified := classifyOpenError(err)
		logger.Error("Failed to open serial port",
			zap.Error(err),
			zap.String("port", path),
			zap.Int("baud_rate", baudRate),
		)
		return nil, fmt.Errorf("open %s: %w", path, classified)
	}

	logger.Info("Serial port opened",
		zap.String("port", path),
		zap.Int("baud_rate", baudRate),
	)

	return &Link{
		path:     path,
		baudRate: baudRate,
		logger:   logger,
		port:     port,
		isOpen:   true,
	}, nil
}

// ReadLine reads one LF-terminated line, blocking up to timeout. On expiry
// it fails with ErrTimeout; if the device vanishes mid-read or the link is
// closed from another goroutine it fails with ErrDisconnected.
func (l *Link) ReadLine(timeout time.Duration) ([]byte, error) {
	port, err := l.acquirePort()
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(pollTimeout); err != nil {
		return nil, fmt.Errorf("set read timeout on %s: %w", l.path, ErrDisconnected)
	}

	deadline := time.Now().Add(timeout)
	buf := make([]byte, 256)

	for {
		if line, ok := l.takeLine(); ok {
			return line, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("read %s: %w", l.path, ErrTimeout)
		}

		n, err := port.Read(buf)
		if err != nil {
			l.logger.Debug("Serial read failed", zap.String("port", l.path), zap.Error(err))
			return nil, fmt.Errorf("read %s: %w", l.path, ErrDisconnected)
		}
		if n > 0 {
			l.appendResidue(buf[:n])
		}
	}
}

// Write writes data to the serial port
func (l *Link) Write(data []byte) error {
	port, err := l.acquirePort()
	if err != nil {
		return err
	}

	n, err := port.Write(data)
	if err != nil {
		return fmt.Errorf("write %s: %w", l.path, ErrDisconnected)
	}
	if n != len(data) {
		return fmt.Errorf("write %s: wrote %d of %d bytes: %w", l.path, n, len(data), ErrDisconnected)
	}

	l.logger.Debug("Data written to serial port",
		zap.Int("bytes_written", n),
		zap.String("port", l.path),
	)
	return nil
}

// Close releases the device handle. It is idempotent and safe to call on an
// already-closed link, and it unblocks a read in flight on another
// goroutine, which then fails with ErrDisconnected.
func (l *Link) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if !l.isOpen || l.port == nil {
		return nil
	}

	port := l.port
	l.port = nil
	l.isOpen = false
	l.residue.Reset()

	if err := port.Close(); err != nil {
		l.logger.Error("Failed to close serial port", zap.String("port", l.path), zap.Error(err))
		return fmt.Errorf("close %s: %w", l.path, err)
	}

	l.logger.Info("Serial port closed", zap.String("port", l.path))
	return nil
}

// IsOpen returns whether the link currently holds a device handle
func (l *Link) IsOpen() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.isOpen
}

// Path returns the device path the link was opened with
func (l *Link) Path() string {
	return l.path
}

func (l *Link) acquirePort() (Port, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if !l.isOpen || l.port == nil {
		return nil, fmt.Errorf("%s: %w", l.path, ErrDisconnected)
	}
	return l.port, nil
}

func (l *Link) appendResidue(data []byte) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.residue.Write(data)
}

// takeLine extracts one complete line from buffered input, if present.
// The trailing LF and any CR before it are stripped.
func (l *Link) takeLine() ([]byte, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	data := l.residue.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 {
		return nil, false
	}

	line := make([]byte, idx)
	copy(line, data[:idx])
	l.residue.Next(idx + 1)

	return bytes.TrimSuffix(line, []byte{'\r'}), true
}

package vision

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const maxSidecarMessage = 16 << 20

const stderrDrainTimeout = time.Second

var errMessageTooLarge = errors.New("sidecar message exceeds size limit")

// SidecarConfig configures a SidecarDetector.
type SidecarConfig struct {
	// Command is the executable that runs the landmark model.
	Command string
	// Args are passed to Command verbatim.
	Args []string
	// Timeout bounds one request/response round trip.
	Timeout time.Duration
	Logger  *slog.Logger
}

// sidecarRequest is the frame envelope written to the model process.
type sidecarRequest struct {
	Seq    uint64 `msgpack:"seq"`
	Width  int    `msgpack:"width"`
	Height int    `msgpack:"height"`
	Image  []byte `msgpack:"image"`
}

// sidecarResponse carries landmarks normalised to [0,1] in both axes.
type sidecarResponse struct {
	Seq   uint64        `msgpack:"seq"`
	Faces []sidecarFace `msgpack:"faces"`
	Error string        `msgpack:"error"`
}

type sidecarFace struct {
	Landmarks [][2]float64 `msgpack:"landmarks"`
}

// SidecarDetector runs the face landmark model in a child process and exchanges
// length-prefixed msgpack messages over its stdin/stdout. A crashed or hung
// process is killed and respawned on the next frame.
type SidecarDetector struct {
	cfg    SidecarConfig
	logger *slog.Logger

	mu         sync.Mutex
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	stderrDone chan struct{}
	// lastExit is the state of the most recently reaped process.
	lastExit *os.ProcessState

	served   atomic.Uint64
	failures atomic.Uint64
}

// NewSidecarDetector creates a detector. The process is spawned lazily.
func NewSidecarDetector(cfg SidecarConfig) *SidecarDetector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SidecarDetector{cfg: cfg, logger: logger}
}

// Detect implements Detector.
func (d *SidecarDetector) Detect(ctx context.Context, frame Frame) []Face {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		d.failures.Add(1)
		d.logger.Debug("Landmark sidecar unavailable", "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	type result struct {
		resp sidecarResponse
		err  error
	}
	done := make(chan result, 1)
	stdin, stdout := d.stdin, d.stdout
	go func() {
		var r result
		r.err = writeMessage(stdin, sidecarRequest{
			Seq:    frame.Seq,
			Width:  frame.Width,
			Height: frame.Height,
			Image:  frame.Data,
		})
		if r.err == nil {
			r.err = readMessage(stdout, &r.resp)
		}
		done <- r
	}()

	select {
	case r := <-done:
		if r.err != nil {
			d.failures.Add(1)
			d.logger.Warn("Landmark sidecar exchange failed, restarting", "error", r.err, "seq", frame.Seq)
			d.stopLocked()
			return nil
		}
		if r.resp.Error != "" {
			d.failures.Add(1)
			d.logger.Debug("Landmark sidecar reported error", "error", r.resp.Error, "seq", frame.Seq)
			return nil
		}
		d.served.Add(1)
		return scaleFaces(r.resp.Faces, frame.Width, frame.Height)
	case <-ctx.Done():
		d.failures.Add(1)
		d.logger.Warn("Landmark sidecar timed out, restarting", "timeout", d.cfg.Timeout, "seq", frame.Seq)
		d.stopLocked()
		return nil
	}
}

// Stats returns the number of answered and failed frames.
func (d *SidecarDetector) Stats() (served, failed uint64) {
	return d.served.Load(), d.failures.Load()
}

// Close terminates the model process.
func (d *SidecarDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	return nil
}

func (d *SidecarDetector) ensureStarted() error {
	if d.cmd != nil {
		return nil
	}
	if d.cfg.Command == "" {
		return errors.New("no landmark command configured")
	}

	cmd := exec.Command(d.cfg.Command, d.cfg.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start landmark process: %w", err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.logger.Info("Landmark sidecar started", "command", d.cfg.Command, "pid", cmd.Process.Pid)

	d.stderrDone = make(chan struct{})
	go d.logStderr(stderr, d.stderrDone)
	return nil
}

func (d *SidecarDetector) logStderr(r io.Reader, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		d.logger.Debug("Landmark sidecar stderr", "line", scanner.Text())
	}
}

func (d *SidecarDetector) stopLocked() {
	if d.cmd == nil {
		return
	}
	if d.stdin != nil {
		_ = d.stdin.Close()
	}
	if err := d.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		d.logger.Debug("Failed to kill landmark sidecar", "error", err)
	}

	// Wait closes the pipes, so stderr must be drained first.
	select {
	case <-d.stderrDone:
	case <-time.After(stderrDrainTimeout):
		d.logger.Debug("Landmark sidecar stderr still open after kill")
	}
	if err := d.cmd.Wait(); err != nil {
		d.logger.Debug("Landmark sidecar exited", "pid", d.cmd.Process.Pid, "error", err)
	}
	d.lastExit = d.cmd.ProcessState

	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	d.stderrDone = nil
}

func scaleFaces(in []sidecarFace, width, height int) []Face {
	if len(in) == 0 {
		return nil
	}
	faces := make([]Face, 0, len(in))
	for _, f := range in {
		pts := make([]Point, len(f.Landmarks))
		for i, lm := range f.Landmarks {
			pts[i] = Point{X: lm[0] * float64(width), Y: lm[1] * float64(height)}
		}
		faces = append(faces, Face{Landmarks: pts})
	}
	return faces
}

// writeMessage writes a 4-byte big-endian length prefix followed by the msgpack body.
func writeMessage(w io.Writer, v any) error {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write message body: %w", err)
	}
	return nil
}

func readMessage(r io.Reader, v any) error {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return fmt.Errorf("read length prefix: %w", err)
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > maxSidecarMessage {
		return fmt.Errorf("%w: %d bytes", errMessageTooLarge, n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("read message body: %w", err)
	}
	if err := msgpack.Unmarshal(body, v); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	return nil
}

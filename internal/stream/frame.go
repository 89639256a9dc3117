package stream

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for DecodeConfig
	_ "image/png"
	"time"

	"github.com/ashureev/classpulse/internal/vision"
)

// MaxFrameBytes caps the size of one encoded frame message.
const MaxFrameBytes = 8 << 20

// ErrEmptyFrame is returned for a zero-length frame message.
var ErrEmptyFrame = errors.New("empty frame")

// DecodeFrame reads the image header of an encoded JPEG or PNG and returns a
// frame carrying the original bytes. The pixels are left to the detector.
func DecodeFrame(data []byte, seq uint64, at time.Time) (vision.Frame, error) {
	if len(data) == 0 {
		return vision.Frame{}, ErrEmptyFrame
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return vision.Frame{}, fmt.Errorf("decode frame header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return vision.Frame{}, fmt.Errorf("decode frame header: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	return vision.Frame{
		Data:      data,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Seq:       seq,
		Timestamp: at,
	}, nil
}

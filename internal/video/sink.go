package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ivlev/cinereel/internal/config"
)

var (
	// ErrOutOfOrderFrame is returned by Append when a frame index is not
	// exactly one past the previous one.
	ErrOutOfOrderFrame = errors.New("frame out of order")
	// ErrEncodingFailure covers everything the encoder or the filesystem
	// rejects. The partial output is removed when it is returned from Close.
	ErrEncodingFailure = errors.New("encoding failure")
	// ErrSinkClosed is returned by Append and Close after Close or Abort.
	ErrSinkClosed = errors.New("sink closed")
)

type OrderError struct {
	Expected int
	Got      int
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%v: expected frame %d, got %d", ErrOutOfOrderFrame, e.Expected, e.Got)
}

func (e *OrderError) Unwrap() error { return ErrOutOfOrderFrame }

// EncodingError carries the output path and, when known, the frame index
// (-1 otherwise).
type EncodingError struct {
	Path  string
	Frame int
	Err   error
}

func (e *EncodingError) Error() string {
	if e.Frame >= 0 {
		return fmt.Sprintf("%v: %s: frame %d: %v", ErrEncodingFailure, e.Path, e.Frame, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrEncodingFailure, e.Path, e.Err)
}

func (e *EncodingError) Is(target error) bool { return target == ErrEncodingFailure }

func (e *EncodingError) Unwrap() error { return e.Err }

// Frame is one output picture. The image must match the sink resolution.
type Frame struct {
	Index int
	Image *image.RGBA
}

// FrameSink consumes frames strictly in index order starting at 0.
//
// Output only appears at its final path after a successful Close; Abort or
// a failed Close remove everything written so far. Sinks are not safe for
// concurrent use.
type FrameSink interface {
	Append(f *Frame) error
	Close() error
	Abort() error
}

// SinkOptions are shared by all sinks.
type SinkOptions struct {
	Path        string
	Width       int
	Height      int
	FPS         int
	Encoder     string // ffmpeg video codec
	Quality     int    // CRF/CQ for ffmpeg
	JPEGQuality int    // mjpeg and frame-directory sinks
	Logger      *zap.Logger
}

func (o SinkOptions) validate() error {
	if o.Path == "" {
		return &EncodingError{Frame: -1, Err: errors.New("empty output path")}
	}
	if o.Width <= 0 || o.Height <= 0 || o.Width%2 != 0 || o.Height%2 != 0 {
		return &EncodingError{Path: o.Path, Frame: -1, Err: fmt.Errorf("resolution %dx%d must be positive and even", o.Width, o.Height)}
	}
	if o.FPS <= 0 {
		return &EncodingError{Path: o.Path, Frame: -1, Err: fmt.Errorf("frame rate %d must be positive", o.FPS)}
	}
	return nil
}

func (o SinkOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o SinkOptions) jpegQuality() int {
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		return 90
	}
	return o.JPEGQuality
}

// Open creates the sink for kind. SinkAuto picks by extension: .avi is
// written as MJPEG, a path without extension becomes a frame directory and
// everything else goes through ffmpeg.
func Open(ctx context.Context, kind config.SinkKind, opts SinkOptions) (FrameSink, error) {
	if kind == config.SinkAuto || kind == "" {
		kind = KindForPath(opts.Path)
	}
	switch kind {
	case config.SinkFFmpeg:
		return NewFFmpegSink(ctx, opts)
	case config.SinkMJPEG:
		return NewMJPEGSink(opts)
	case config.SinkFrames:
		return NewFrameDirSink(opts)
	default:
		return nil, fmt.Errorf("unknown sink %q", kind)
	}
}

func KindForPath(path string) config.SinkKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".avi":
		return config.SinkMJPEG
	case "":
		return config.SinkFrames
	default:
		return config.SinkFFmpeg
	}
}

// partialPath is the hidden sibling a sink writes to before the final
// rename. The extension is kept so tools that sniff it still work.
func partialPath(path string) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	return filepath.Join(dir, "."+strings.TrimSuffix(base, ext)+".partial"+ext)
}

// sequencer enforces ordering and geometry for every sink.
type sequencer struct {
	path   string
	width  int
	height int
	next   int
	closed bool
}

func (s *sequencer) admit(f *Frame) error {
	if s.closed {
		return ErrSinkClosed
	}
	if f == nil || f.Image == nil {
		return &EncodingError{Path: s.path, Frame: s.next, Err: errors.New("nil frame")}
	}
	if f.Index != s.next {
		return &OrderError{Expected: s.next, Got: f.Index}
	}
	if b := f.Image.Rect; b.Dx() != s.width || b.Dy() != s.height {
		return &EncodingError{Path: s.path, Frame: f.Index, Err: fmt.Errorf("frame is %dx%d, sink expects %dx%d", b.Dx(), b.Dy(), s.width, s.height)}
	}
	return nil
}

func (s *sequencer) advance() {
	s.next++
}

// Frames is the number of frames accepted so far.
func (s *sequencer) Frames() int {
	return s.next
}

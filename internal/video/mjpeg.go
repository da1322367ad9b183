package video

import (
	"bytes"
	"errors"
	"image/jpeg"
	"os"

	"github.com/icza/mjpeg"
	"go.uber.org/zap"
)

// MJPEGSink writes a Motion-JPEG AVI without any external tools.
type MJPEGSink struct {
	seq     sequencer
	path    string
	partial string
	quality int
	logger  *zap.Logger

	aw  mjpeg.AviWriter
	buf bytes.Buffer
}

func NewMJPEGSink(opts SinkOptions) (*MJPEGSink, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	partial := partialPath(opts.Path)
	aw, err := mjpeg.New(partial, int32(opts.Width), int32(opts.Height), int32(opts.FPS))
	if err != nil {
		return nil, &EncodingError{Path: opts.Path, Frame: -1, Err: err}
	}

	return &MJPEGSink{
		seq:     sequencer{path: opts.Path, width: opts.Width, height: opts.Height},
		path:    opts.Path,
		partial: partial,
		quality: opts.jpegQuality(),
		logger:  opts.logger(),
		aw:      aw,
	}, nil
}

func (s *MJPEGSink) Append(f *Frame) error {
	if err := s.seq.admit(f); err != nil {
		return err
	}

	s.buf.Reset()
	if err := jpeg.Encode(&s.buf, f.Image, &jpeg.Options{Quality: s.quality}); err != nil {
		return &EncodingError{Path: s.path, Frame: f.Index, Err: err}
	}
	if err := s.aw.AddFrame(s.buf.Bytes()); err != nil {
		return &EncodingError{Path: s.path, Frame: f.Index, Err: err}
	}

	s.seq.advance()
	return nil
}

func (s *MJPEGSink) Close() error {
	if s.seq.closed {
		return ErrSinkClosed
	}
	s.seq.closed = true

	err := s.aw.Close()
	if err == nil && s.seq.Frames() == 0 {
		err = errors.New("no frames written")
	}
	if err == nil {
		err = os.Rename(s.partial, s.path)
	}
	if err != nil {
		os.Remove(s.partial)
		return &EncodingError{Path: s.path, Frame: -1, Err: err}
	}

	s.logger.Debug("mjpeg sink closed", zap.String("path", s.path), zap.Int("frames", s.seq.Frames()))
	return nil
}

func (s *MJPEGSink) Abort() error {
	if s.seq.closed {
		return nil
	}
	s.seq.closed = true

	s.aw.Close()
	if err := os.Remove(s.partial); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

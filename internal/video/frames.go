package video

import (
	"bufio"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FrameNamePattern names the files of a frame directory; ffmpeg's image2
// demuxer reads it back with the same pattern.
const FrameNamePattern = "frame%06d.jpg"

// FrameDirSink writes one JPEG per frame into a directory. Frames are staged
// in a hidden sibling directory that replaces Path on Close, which requires
// Path to be absent or empty.
type FrameDirSink struct {
	seq     sequencer
	path    string
	staging string
	quality int
	logger  *zap.Logger
}

func NewFrameDirSink(opts SinkOptions) (*FrameDirSink, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if err := checkFrameDirTarget(opts.Path); err != nil {
		return nil, &EncodingError{Path: opts.Path, Frame: -1, Err: err}
	}

	staging := partialPath(opts.Path)
	if err := os.RemoveAll(staging); err != nil {
		return nil, &EncodingError{Path: opts.Path, Frame: -1, Err: err}
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, &EncodingError{Path: opts.Path, Frame: -1, Err: err}
	}

	return &FrameDirSink{
		seq:     sequencer{path: opts.Path, width: opts.Width, height: opts.Height},
		path:    opts.Path,
		staging: staging,
		quality: opts.jpegQuality(),
		logger:  opts.logger(),
	}, nil
}

// checkFrameDirTarget accepts a missing or empty directory; Close renames
// the staging directory over it.
func checkFrameDirTarget(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("target exists and is not a directory")
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("target directory is not empty (%d entries)", len(entries))
	}
	return nil
}

func (s *FrameDirSink) Append(f *Frame) error {
	if err := s.seq.admit(f); err != nil {
		return err
	}

	name := filepath.Join(s.staging, fmt.Sprintf(FrameNamePattern, f.Index+1))
	if err := writeJPEG(name, f, s.quality); err != nil {
		return &EncodingError{Path: s.path, Frame: f.Index, Err: err}
	}

	s.seq.advance()
	return nil
}

func writeJPEG(name string, f *Frame, quality int) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	defer file.Close()

	// Buffered IO helps.
	bw := bufio.NewWriterSize(file, 1<<20)
	if err := jpeg.Encode(bw, f.Image, &jpeg.Options{Quality: quality}); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return file.Close()
}

func (s *FrameDirSink) Close() error {
	if s.seq.closed {
		return ErrSinkClosed
	}
	s.seq.closed = true

	var err error
	if s.seq.Frames() == 0 {
		err = errors.New("no frames written")
	} else {
		// пустая целевая папка не мешает переименованию
		os.Remove(s.path)
		err = os.Rename(s.staging, s.path)
	}
	if err != nil {
		os.RemoveAll(s.staging)
		return &EncodingError{Path: s.path, Frame: -1, Err: err}
	}

	s.logger.Debug("frame directory written", zap.String("path", s.path), zap.Int("frames", s.seq.Frames()))
	return nil
}

func (s *FrameDirSink) Abort() error {
	if s.seq.closed {
		return nil
	}
	s.seq.closed = true
	return os.RemoveAll(s.staging)
}

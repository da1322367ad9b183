package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

// FFmpegSink streams raw RGBA frames into an ffmpeg process over stdin.
type FFmpegSink struct {
	seq     sequencer
	path    string
	partial string
	logger  *zap.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	w      *bufio.Writer
	stderr bytes.Buffer
}

func NewFFmpegSink(ctx context.Context, opts SinkOptions) (*FFmpegSink, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	s := &FFmpegSink{
		seq:     sequencer{path: opts.Path, width: opts.Width, height: opts.Height},
		path:    opts.Path,
		partial: partialPath(opts.Path),
		logger:  opts.logger(),
	}

	args := BuildFFmpegArgs(opts, s.partial)
	s.cmd = exec.CommandContext(ctx, "ffmpeg", args...)
	s.cmd.Stderr = &s.stderr

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, &EncodingError{Path: opts.Path, Frame: -1, Err: fmt.Errorf("stdin pipe: %w", err)}
	}
	if err := s.cmd.Start(); err != nil {
		return nil, &EncodingError{Path: opts.Path, Frame: -1, Err: fmt.Errorf("ffmpeg start: %w", err)}
	}
	s.stdin = stdin
	s.w = bufio.NewWriterSize(stdin, 4*opts.Width*opts.Height)

	s.logger.Debug("ffmpeg sink opened",
		zap.String("path", opts.Path),
		zap.Strings("args", args),
	)
	return s, nil
}

// BuildFFmpegArgs returns the ffmpeg arguments for encoding raw RGBA from
// stdin into out.
func BuildFFmpegArgs(opts SinkOptions, out string) []string {
	encoder := opts.Encoder
	if encoder == "" {
		encoder = "libx264"
	}

	output := ffmpeg.KwArgs{
		"c:v":     encoder,
		"pix_fmt": "yuv420p",
		"f":       containerFormat(opts.Path),
	}
	// Качество в зависимости от энкодера
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox не везде понимает -q:v, используем битрейт. 75 -> 7.5 Мбит/с
		output["b:v"] = fmt.Sprintf("%dk", opts.Quality*100)
	case "h264_nvenc":
		output["cq"] = opts.Quality
	default:
		output["crf"] = opts.Quality
		output["preset"] = "medium"
	}
	if f := output["f"]; f == "mp4" || f == "mov" {
		output["movflags"] = "+faststart"
	}

	return ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"f":         "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"framerate": opts.FPS,
	}).
		Output(out, output).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		OverWriteOutput().
		GetArgs()
}

func containerFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mov":
		return "mov"
	case ".mkv":
		return "matroska"
	case ".webm":
		return "webm"
	default:
		return "mp4"
	}
}

func (s *FFmpegSink) Append(f *Frame) error {
	if err := s.seq.admit(f); err != nil {
		return err
	}
	if err := writeRawRGBA(s.w, f.Image); err != nil {
		// stderr is only safe to read once the process has exited
		return &EncodingError{Path: s.path, Frame: f.Index, Err: err}
	}
	s.seq.advance()
	return nil
}

// writeRawRGBA writes the visible pixels row by row unless the buffer is
// already tightly packed.
func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	rowLen := img.Rect.Dx() * 4
	if img.Stride == rowLen {
		start := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y)
		_, err := w.Write(img.Pix[start : start+rowLen*img.Rect.Dy()])
		return err
	}
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		start := img.PixOffset(img.Rect.Min.X, y)
		if _, err := w.Write(img.Pix[start : start+rowLen]); err != nil {
			return err
		}
	}
	return nil
}

func (s *FFmpegSink) Close() error {
	if s.seq.closed {
		return ErrSinkClosed
	}
	s.seq.closed = true

	err := s.w.Flush()
	if cerr := s.stdin.Close(); err == nil {
		err = cerr
	}
	if werr := s.cmd.Wait(); werr != nil {
		err = werr
	}
	if err == nil && s.seq.Frames() == 0 {
		err = errors.New("no frames written")
	}
	if err != nil {
		os.Remove(s.partial)
		return &EncodingError{Path: s.path, Frame: -1, Err: s.withStderr(err)}
	}

	if err := os.Rename(s.partial, s.path); err != nil {
		os.Remove(s.partial)
		return &EncodingError{Path: s.path, Frame: -1, Err: err}
	}
	s.logger.Debug("ffmpeg sink closed", zap.String("path", s.path), zap.Int("frames", s.seq.Frames()))
	return nil
}

func (s *FFmpegSink) Abort() error {
	if s.seq.closed {
		return nil
	}
	s.seq.closed = true

	s.stdin.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()

	if err := os.Remove(s.partial); err != nil && !os.IsNotExist(err) {
		return err
	}
	s.logger.Debug("ffmpeg sink aborted", zap.String("path", s.path), zap.Int("frames", s.seq.Frames()))
	return nil
}

func (s *FFmpegSink) withStderr(err error) error {
	msg := strings.TrimSpace(s.stderr.String())
	if msg == "" {
		return err
	}
	if len(msg) > 2000 {
		msg = msg[len(msg)-2000:]
	}
	return fmt.Errorf("%w: %s", err, msg)
}

package video

import (
	"context"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/cinereel/internal/config"
)

func testFrame(index, w, h int) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(index*40 + i%7)
	}
	return &Frame{Index: index, Image: img}
}

func openFrameDir(t *testing.T) (*FrameDirSink, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "frames")
	s, err := NewFrameDirSink(SinkOptions{Path: out, Width: 16, Height: 8, FPS: 24})
	require.NoError(t, err)
	return s, out
}

func TestSinkRejectsOutOfOrderFrames(t *testing.T) {
	s, _ := openFrameDir(t)
	defer s.Abort()

	require.NoError(t, s.Append(testFrame(0, 16, 8)))

	// skip
	err := s.Append(testFrame(2, 16, 8))
	require.ErrorIs(t, err, ErrOutOfOrderFrame)
	var oe *OrderError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, 1, oe.Expected)
	assert.Equal(t, 2, oe.Got)

	// repeat
	assert.ErrorIs(t, s.Append(testFrame(0, 16, 8)), ErrOutOfOrderFrame)

	require.NoError(t, s.Append(testFrame(1, 16, 8)))
	assert.Equal(t, 2, s.seq.Frames())
}

func TestSinkRejectsWrongSize(t *testing.T) {
	s, _ := openFrameDir(t)
	defer s.Abort()

	err := s.Append(testFrame(0, 8, 8))
	require.ErrorIs(t, err, ErrEncodingFailure)
	var ee *EncodingError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 0, ee.Frame)

	assert.ErrorIs(t, s.Append(nil), ErrEncodingFailure)
}

func TestFrameDirSinkCloseAndReuse(t *testing.T) {
	s, out := openFrameDir(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(testFrame(i, 16, 8)))
	}

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "nothing is visible before Close")

	require.NoError(t, s.Close())
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "frame000001.jpg", entries[0].Name())

	assert.ErrorIs(t, s.Close(), ErrSinkClosed)
	assert.ErrorIs(t, s.Append(testFrame(3, 16, 8)), ErrSinkClosed)
	assert.NoError(t, s.Abort())

	_, err = os.Stat(partialPath(out))
	assert.True(t, os.IsNotExist(err))
}

func TestFrameDirSinkAbortLeavesNothing(t *testing.T) {
	s, out := openFrameDir(t)
	require.NoError(t, s.Append(testFrame(0, 16, 8)))
	require.NoError(t, s.Abort())

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.ErrorIs(t, s.Close(), ErrSinkClosed)
}

func TestFrameDirSinkRejectsOccupiedTarget(t *testing.T) {
	dir := t.TempDir()

	busy := filepath.Join(dir, "busy")
	require.NoError(t, os.Mkdir(busy, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(busy, "old.jpg"), []byte("x"), 0644))
	_, err := NewFrameDirSink(SinkOptions{Path: busy, Width: 16, Height: 8, FPS: 10})
	assert.ErrorIs(t, err, ErrEncodingFailure)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = NewFrameDirSink(SinkOptions{Path: file, Width: 16, Height: 8, FPS: 10})
	assert.ErrorIs(t, err, ErrEncodingFailure)

	for _, p := range []string{busy, file} {
		_, err := os.Stat(partialPath(p))
		assert.True(t, os.IsNotExist(err), "no staging directory for %s", p)
	}

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0755))
	s, err := NewFrameDirSink(SinkOptions{Path: empty, Width: 16, Height: 8, FPS: 10})
	require.NoError(t, err)
	require.NoError(t, s.Append(testFrame(0, 16, 8)))
	require.NoError(t, s.Close())
	entries, err := os.ReadDir(empty)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCloseWithoutFramesFails(t *testing.T) {
	s, out := openFrameDir(t)
	assert.ErrorIs(t, s.Close(), ErrEncodingFailure)

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestMJPEGSink(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reel.avi")
	s, err := Open(context.Background(), config.SinkAuto, SinkOptions{Path: out, Width: 32, Height: 16, FPS: 12})
	require.NoError(t, err)
	require.IsType(t, &MJPEGSink{}, s)

	for i := 0; i < 4; i++ {
		require.NoError(t, s.Append(testFrame(i, 32, 16)))
	}
	require.NoError(t, s.Close())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Greater(t, len(data), 12)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, "AVI ", string(data[8:12]))

	_, err = os.Stat(partialPath(out))
	assert.True(t, os.IsNotExist(err))
}

func TestMJPEGSinkAbort(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reel.avi")
	s, err := NewMJPEGSink(SinkOptions{Path: out, Width: 32, Height: 16, FPS: 12})
	require.NoError(t, err)
	require.NoError(t, s.Append(testFrame(0, 32, 16)))
	require.NoError(t, s.Abort())

	for _, p := range []string{out, partialPath(out)} {
		_, err = os.Stat(p)
		assert.True(t, os.IsNotExist(err), p)
	}
}

func TestSinkOptionsValidation(t *testing.T) {
	dir := t.TempDir()
	bad := []SinkOptions{
		{Path: filepath.Join(dir, "a.avi"), Width: 31, Height: 16, FPS: 24},
		{Path: filepath.Join(dir, "a.avi"), Width: 0, Height: 16, FPS: 24},
		{Path: filepath.Join(dir, "a.avi"), Width: 32, Height: 16, FPS: 0},
		{Path: "", Width: 32, Height: 16, FPS: 24},
	}
	for _, opts := range bad {
		_, err := Open(context.Background(), config.SinkMJPEG, opts)
		assert.ErrorIs(t, err, ErrEncodingFailure, "%+v", opts)
	}

	_, err := Open(context.Background(), "tape", SinkOptions{Path: "x"})
	assert.Error(t, err)
}

func TestKindForPath(t *testing.T) {
	assert.Equal(t, config.SinkMJPEG, KindForPath("out/reel.AVI"))
	assert.Equal(t, config.SinkFrames, KindForPath("out/frames"))
	assert.Equal(t, config.SinkFFmpeg, KindForPath("out/reel.mp4"))
}

func TestPartialPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", ".reel.partial.mp4"), partialPath(filepath.Join("out", "reel.mp4")))
	assert.Equal(t, ".frames.partial", partialPath("frames"))
}

func TestBuildFFmpegArgs(t *testing.T) {
	opts := SinkOptions{Path: "reel.mp4", Width: 1280, Height: 720, FPS: 24, Encoder: "libx264", Quality: 23}
	args := strings.Join(BuildFFmpegArgs(opts, ".reel.partial.mp4"), " ")

	for _, want := range []string{
		"-f rawvideo", "-pix_fmt rgba", "-s 1280x720", "-framerate 24", "-i pipe:",
		"-c:v libx264", "-crf 23", "-preset medium", "-pix_fmt yuv420p", "-f mp4",
		"-movflags +faststart", "-y",
	} {
		assert.Contains(t, args, want)
	}
	assert.True(t, strings.Index(args, "-i pipe:") < strings.Index(args, ".reel.partial.mp4"))

	opts.Encoder = "h264_videotoolbox"
	opts.Quality = 75
	assert.Contains(t, strings.Join(BuildFFmpegArgs(opts, "x.mp4"), " "), "-b:v 7500k")

	opts.Encoder = "h264_nvenc"
	opts.Path = "reel.mkv"
	args = strings.Join(BuildFFmpegArgs(opts, "x.mkv"), " ")
	assert.Contains(t, args, "-cq 75")
	assert.Contains(t, args, "-f matroska")
	assert.NotContains(t, args, "movflags")
}

func TestParseProbe(t *testing.T) {
	info, err := parseProbe(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720,
			 "r_frame_rate": "24/1", "nb_frames": "456", "duration": "19.000000"}
		],
		"format": {"duration": "19.02"}
	}`)
	require.NoError(t, err)
	assert.Equal(t, &ProbeInfo{Width: 1280, Height: 720, FPS: 24, Frames: 456, Duration: 19, Codec: "h264"}, info)

	_, err = parseProbe(`{"streams": []}`)
	assert.Error(t, err)
	assert.InDelta(t, 29.97, parseRate("30000/1001"), 0.01)
	assert.Equal(t, 0.0, parseRate("1/0"))
}

func TestFFmpegSink(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	out := filepath.Join(t.TempDir(), "reel.mp4")
	s, err := NewFFmpegSink(context.Background(), SinkOptions{Path: out, Width: 64, Height: 32, FPS: 24, Encoder: "libx264", Quality: 30})
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		require.NoError(t, s.Append(testFrame(i, 64, 32)))
	}
	assert.ErrorIs(t, s.Append(testFrame(20, 64, 32)), ErrOutOfOrderFrame)
	require.NoError(t, s.Close())

	info, err := Probe(out)
	require.NoError(t, err)
	assert.Equal(t, 64, info.Width)
	assert.Equal(t, 12, info.Frames)

	aborted := filepath.Join(t.TempDir(), "aborted.mp4")
	s, err = NewFFmpegSink(context.Background(), SinkOptions{Path: aborted, Width: 64, Height: 32, FPS: 24, Quality: 30})
	require.NoError(t, err)
	require.NoError(t, s.Append(testFrame(0, 64, 32)))
	require.NoError(t, s.Abort())
	entries, err := os.ReadDir(filepath.Dir(aborted))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

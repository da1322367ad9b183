package video

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeInfo is what ffprobe reports about the first video stream.
type ProbeInfo struct {
	Width    int
	Height   int
	FPS      float64
	Frames   int
	Duration float64
	Codec    string
}

type probeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
		Duration   string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe on a finished file.
func Probe(path string) (*ProbeInfo, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(data string) (*ProbeInfo, error) {
	var po probeOutput
	if err := json.Unmarshal([]byte(data), &po); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, s := range po.Streams {
		if s.CodecType != "video" {
			continue
		}
		info := &ProbeInfo{
			Width:  s.Width,
			Height: s.Height,
			FPS:    parseRate(s.RFrameRate),
			Codec:  s.CodecName,
		}
		info.Frames, _ = strconv.Atoi(s.NbFrames)
		info.Duration, _ = strconv.ParseFloat(s.Duration, 64)
		if info.Duration == 0 {
			info.Duration, _ = strconv.ParseFloat(po.Format.Duration, 64)
		}
		return info, nil
	}
	return nil, fmt.Errorf("no video stream")
}

// parseRate turns "24000/1001" or "25" into frames per second.
func parseRate(r string) float64 {
	num, den, found := strings.Cut(r, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

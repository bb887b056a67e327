package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeResult is the subset of ffprobe output the worker checks.
type ProbeResult struct {
	Duration   float64 // seconds
	Width      int
	Height     int
	VideoCodec string
	AudioCodec string
	PixFmt     string
}

// ProbeFunc returns ffprobe's JSON report (-show_format -show_streams) for path.
type ProbeFunc func(path string, timeout time.Duration) (string, error)

func ffprobeJSON(path string, timeout time.Duration) (string, error) {
	return ffmpeg.ProbeWithTimeout(path, timeout, ffmpeg.KwArgs{})
}

// Prober reads back container and stream parameters of an encoded file.
type Prober struct {
	probe   ProbeFunc
	timeout time.Duration
}

// NewProber uses ffprobe through ffmpeg-go when probe is nil.
func NewProber(probe ProbeFunc, timeout time.Duration) *Prober {
	if probe == nil {
		probe = ffprobeJSON
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Prober{probe: probe, timeout: timeout}
}

func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := p.probe(path, p.timeout)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbe(raw)
}

type probeReport struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		PixFmt    string `json:"pix_fmt"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func parseProbe(raw string) (*ProbeResult, error) {
	var report probeReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	res := &ProbeResult{}
	if report.Format.Duration != "" {
		d, err := strconv.ParseFloat(report.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse duration %q: %w", report.Format.Duration, err)
		}
		res.Duration = d
	}

	for _, s := range report.Streams {
		switch s.CodecType {
		case "video":
			if res.VideoCodec == "" {
				res.VideoCodec = s.CodecName
				res.PixFmt = s.PixFmt
				res.Width = s.Width
				res.Height = s.Height
			}
		case "audio":
			if res.AudioCodec == "" {
				res.AudioCodec = s.CodecName
			}
		}
	}

	return res, nil
}

// Check compares the probe against the encoder settings for a target
// duration and returns the first mismatch. Durations may drift by one frame.
func (r *ProbeResult) Check(target float64) error {
	switch {
	case r.VideoCodec != "h264":
		return fmt.Errorf("video codec %q, want h264", r.VideoCodec)
	case r.AudioCodec != "aac":
		return fmt.Errorf("audio codec %q, want aac", r.AudioCodec)
	case r.PixFmt != "yuv420p":
		return fmt.Errorf("pixel format %q, want yuv420p", r.PixFmt)
	case r.Width != outputWidth || r.Height != outputHeight:
		return fmt.Errorf("frame %dx%d, want %dx%d", r.Width, r.Height, outputWidth, outputHeight)
	}

	want := OutputDuration(target)
	if math.Abs(r.Duration-want) > 1.0/videoFPS+0.05 {
		return fmt.Errorf("duration %.3fs, want %.3fs", r.Duration, want)
	}
	return nil
}

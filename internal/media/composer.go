package media

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Output / encoding constants: portrait 1080x1920 at 30fps
const (
	outputWidth  = 1080
	outputHeight = 1920
	videoFPS     = 30

	// Slow push-in on the still background, capped at 1.2x
	zoomStep = 0.0015
	zoomMax  = 1.2

	// Extra tail so the last spoken words are not clipped
	tailSeconds = 0.5

	DefaultTimeout = 5 * time.Minute
)

// EncodingError reports an ffmpeg run that did not produce a video.
// Stderr is kept verbatim.
type EncodingError struct {
	JobID    string
	ExitCode int
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *EncodingError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("ffmpeg timed out (job %s): %s", e.JobID, e.Stderr)
	case e.Err != nil:
		return fmt.Sprintf("ffmpeg failed (job %s): %v: %s", e.JobID, e.Err, e.Stderr)
	default:
		return fmt.Sprintf("ffmpeg exited with code %d (job %s): %s", e.ExitCode, e.JobID, e.Stderr)
	}
}

func (e *EncodingError) Unwrap() error { return e.Err }

// CompositionJob names every file one encode reads and writes.
type CompositionJob struct {
	JobID           string
	BackgroundPath  string
	OverlayPath     string
	AudioPath       string
	DurationSeconds float64
	OutputPath      string
}

func (j CompositionJob) validate() error {
	switch {
	case j.BackgroundPath == "":
		return fmt.Errorf("background path is required")
	case j.OverlayPath == "":
		return fmt.Errorf("overlay path is required")
	case j.AudioPath == "":
		return fmt.Errorf("audio path is required")
	case j.OutputPath == "":
		return fmt.Errorf("output path is required")
	case j.DurationSeconds <= 0:
		return fmt.Errorf("duration must be positive, got %v", j.DurationSeconds)
	}
	return nil
}

// OutputDuration is the encoded length for a target duration.
func OutputDuration(target float64) float64 {
	return target + tailSeconds
}

// Composer encodes a background still, a transparent overlay and a narration
// track into one MP4.
type Composer struct {
	runner     Runner
	ffmpegPath string
	timeout    time.Duration
}

func NewComposer(runner Runner, ffmpegPath string, timeout time.Duration) *Composer {
	if runner == nil {
		runner = ExecRunner{}
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Composer{
		runner:     runner,
		ffmpegPath: ffmpegPath,
		timeout:    timeout,
	}
}

// filterGraph scales and crops the background to fill the frame, applies the
// push-in, then lays the overlay on top at the origin.
func filterGraph() string {
	return fmt.Sprintf(
		"[0:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,"+
			"zoompan=z='min(zoom+%s,%s)':d=1:s=%dx%d:fps=%d[bg];"+
			"[bg][1:v]overlay=0:0[v]",
		outputWidth, outputHeight,
		outputWidth, outputHeight,
		strconv.FormatFloat(zoomStep, 'f', -1, 64), strconv.FormatFloat(zoomMax, 'f', -1, 64),
		outputWidth, outputHeight,
		videoFPS,
	)
}

// Args builds the ffmpeg argument list for job. It has no side effects, so the
// same job always yields the same list.
func (c *Composer) Args(job CompositionJob) []string {
	return []string{
		"-y",
		"-loop", "1",
		"-i", job.BackgroundPath, // Input 0: still background
		"-i", job.OverlayPath, // Input 1: transparent text overlay
		"-i", job.AudioPath, // Input 2: narration
		"-filter_complex", filterGraph(),
		"-map", "[v]",
		"-map", "2:a",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-t", strconv.FormatFloat(OutputDuration(job.DurationSeconds), 'f', -1, 64),
		"-movflags", "+faststart",
		job.OutputPath,
	}
}

// Command returns the full invocation for job.
func (c *Composer) Command(job CompositionJob) Command {
	return Command{Name: c.ffmpegPath, Args: c.Args(job), Timeout: c.timeout}
}

// Compose runs the encoder and returns the output path. There is no retry.
func (c *Composer) Compose(ctx context.Context, job CompositionJob) (string, error) {
	if err := job.validate(); err != nil {
		return "", &EncodingError{JobID: job.JobID, ExitCode: -1, Err: err}
	}

	cmd := c.Command(job)
	logger := log.With().Str("job_id", job.JobID).Logger()
	logger.Info().Float64("duration", OutputDuration(job.DurationSeconds)).Str("output", job.OutputPath).
		Msg("[FFmpeg] Composing video")
	logger.Debug().Str("cmd", cmd.String()).Msg("[FFmpeg] Command line")

	out, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return "", &EncodingError{JobID: job.JobID, ExitCode: -1, Err: err}
	}

	if out.TimedOut {
		logger.Error().Dur("timeout", c.timeout).Msg("[FFmpeg] Encoder timed out")
		return "", &EncodingError{
			JobID:    job.JobID,
			ExitCode: out.ExitCode,
			Stderr:   string(out.Stderr),
			TimedOut: true,
			Err:      fmt.Errorf("no result after %s", c.timeout),
		}
	}

	if out.ExitCode != 0 {
		encErr := &EncodingError{JobID: job.JobID, ExitCode: out.ExitCode, Stderr: string(out.Stderr)}
		if ctx.Err() != nil {
			encErr.Err = ctx.Err()
		}
		logger.Error().Int("exit_code", out.ExitCode).Msg("[FFmpeg] Encoder failed")
		return "", encErr
	}

	info, err := os.Stat(job.OutputPath)
	if err != nil || info.Size() == 0 {
		if err == nil {
			err = fmt.Errorf("output file is empty")
		}
		return "", &EncodingError{JobID: job.JobID, Stderr: string(out.Stderr), Err: err}
	}

	logger.Info().Dur("elapsed", out.Elapsed).Int64("bytes", info.Size()).Msg("[FFmpeg] Video composed")
	return job.OutputPath, nil
}

// Package pipeline turns one job's facts, narration and background into a
// finished video file inside the job's own directory.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobarin/factshorts/internal/layout"
	"github.com/bobarin/factshorts/internal/media"
	"github.com/bobarin/factshorts/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NewJobID returns the first 8 hex characters of a random UUID.
func NewJobID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// Workspace is a job-scoped temporary directory. Close removes it and
// everything in it; callers defer Close right after creating it.
type Workspace struct {
	JobID string
	Dir   string
}

func NewWorkspace(base, jobID string) (*Workspace, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp base: %w", err)
	}
	dir, err := os.MkdirTemp(base, "job_"+jobID+"_")
	if err != nil {
		return nil, fmt.Errorf("failed to create job dir: %w", err)
	}
	return &Workspace{JobID: jobID, Dir: dir}, nil
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

func (w *Workspace) Close() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		log.Warn().Err(err).Str("job_id", w.JobID).Msg("[Pipeline] Failed to remove job dir")
		return err
	}
	return nil
}

// OverlayRenderer writes the text overlay PNG for a set of paragraphs.
type OverlayRenderer interface {
	RenderToFile(path string, paragraphs []string) ([]layout.RenderLine, error)
}

// Encoder composes the final video.
type Encoder interface {
	Compose(ctx context.Context, job media.CompositionJob) (string, error)
}

// Verifier reads back the encoded file.
type Verifier interface {
	Probe(ctx context.Context, path string) (*media.ProbeResult, error)
}

// Input is everything one run needs. AudioPath and BackgroundPath are
// expected inside Workspace.
type Input struct {
	Workspace       *Workspace
	Facts           models.FactSet
	AudioPath       string
	BackgroundPath  string
	DurationSeconds int
}

// Output is the result of a successful run.
type Output struct {
	VideoPath string
	FactsUsed models.FactSet
	Lines     []layout.RenderLine
}

type Pipeline struct {
	overlay  OverlayRenderer
	encoder  Encoder
	verifier Verifier // may be nil
}

func New(overlay OverlayRenderer, encoder Encoder, verifier Verifier) *Pipeline {
	return &Pipeline{overlay: overlay, encoder: encoder, verifier: verifier}
}

// Run renders the overlay (one fact per paragraph) and composes the video.
// Any failure aborts the run; there is no partial recovery.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Output, error) {
	ws := in.Workspace
	if ws == nil {
		return nil, fmt.Errorf("pipeline: workspace is required")
	}
	if len(in.Facts) == 0 {
		return nil, fmt.Errorf("job %s: no facts to render", ws.JobID)
	}

	logger := log.With().Str("job_id", ws.JobID).Logger()

	overlayPath := ws.Path("overlay.png")
	lines, err := p.overlay.RenderToFile(overlayPath, in.Facts)
	if err != nil {
		return nil, fmt.Errorf("job %s: failed to render overlay: %w", ws.JobID, err)
	}
	logger.Info().Int("facts", len(in.Facts)).Int("lines", len(lines)).Msg("[Pipeline] Overlay rendered")

	videoPath, err := p.encoder.Compose(ctx, media.CompositionJob{
		JobID:           ws.JobID,
		BackgroundPath:  in.BackgroundPath,
		OverlayPath:     overlayPath,
		AudioPath:       in.AudioPath,
		DurationSeconds: float64(in.DurationSeconds),
		OutputPath:      ws.Path("video_" + ws.JobID + ".mp4"),
	})
	if err != nil {
		return nil, fmt.Errorf("job %s: failed to compose video: %w", ws.JobID, err)
	}

	if p.verifier != nil {
		p.verify(ctx, ws.JobID, videoPath, in.DurationSeconds)
	}

	return &Output{VideoPath: videoPath, FactsUsed: in.Facts, Lines: lines}, nil
}

// verify logs the encoded stream parameters. A mismatch is reported but does
// not fail the job.
func (p *Pipeline) verify(ctx context.Context, jobID, path string, duration int) {
	logger := log.With().Str("job_id", jobID).Logger()

	res, err := p.verifier.Probe(ctx, path)
	if err != nil {
		logger.Warn().Err(err).Msg("[Pipeline] Could not probe output")
		return
	}
	if err := res.Check(float64(duration)); err != nil {
		logger.Warn().Err(err).Msg("[Pipeline] Output differs from encoder settings")
		return
	}
	logger.Debug().Float64("duration", res.Duration).Str("video", res.VideoCodec).Str("audio", res.AudioCodec).
		Msg("[Pipeline] Output verified")
}

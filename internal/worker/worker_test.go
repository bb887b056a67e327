package worker

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobarin/factshorts/internal/facts"
	"github.com/bobarin/factshorts/internal/layout"
	"github.com/bobarin/factshorts/internal/media"
	"github.com/bobarin/factshorts/internal/models"
	"github.com/bobarin/factshorts/internal/pipeline"
	"github.com/bobarin/factshorts/internal/services"
	"golang.org/x/image/font/gofont/goregular"
)

type fakeFacts struct {
	raw       string
	err       error
	languages []string
}

func (f *fakeFacts) GenerateFacts(ctx context.Context, language string) (string, error) {
	f.languages = append(f.languages, language)
	return f.raw, f.err
}

type fakeTTS struct {
	text string
	resp *services.TTSResponse
	err  error
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, language string) (*services.TTSResponse, error) {
	f.text = text
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &services.TTSResponse{AudioData: []byte("mp3"), Format: "mp3"}, nil
}

type fakeImages struct {
	err error
}

func (f *fakeImages) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png"), nil
}

type fakeEncoder struct {
	job media.CompositionJob
	err error
}

func (f *fakeEncoder) Compose(ctx context.Context, job media.CompositionJob) (string, error) {
	f.job = job
	if f.err != nil {
		return "", f.err
	}
	for _, p := range []string{job.AudioPath, job.BackgroundPath, job.OverlayPath} {
		if _, err := os.Stat(p); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(job.OutputPath, []byte("mp4"), 0644); err != nil {
		return "", err
	}
	return job.OutputPath, nil
}

type fakeStore struct {
	key         string
	path        string
	contentType string
	meta        map[string]string
	uploadErr   error
	presignErr  error
}

func (f *fakeStore) BucketName() string { return "shorts-bucket" }

func (f *fakeStore) GenerateKey(now time.Time, jobID string) string {
	return "videos/" + now.Format("20060102_150405") + "_" + jobID + ".mp4"
}

func (f *fakeStore) UploadFile(ctx context.Context, key, localPath, contentType string, metadata map[string]string) error {
	f.key, f.path, f.contentType, f.meta = key, localPath, contentType, metadata
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	return f.uploadErr
}

func (f *fakeStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://example.com/" + key + "?sig=1", nil
}

type fakeLedger struct {
	mu      sync.Mutex
	events  []string
	facts   []string
	s3Key   string
	failMsg string
}

func (f *fakeLedger) add(e string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeLedger) CreateJob(ctx context.Context, job *models.JobRecord) error {
	f.add("create:" + string(job.Status))
	return nil
}

func (f *fakeLedger) MarkRunning(ctx context.Context, id string) error {
	f.add("running")
	return nil
}

func (f *fakeLedger) MarkSucceeded(ctx context.Context, id string, facts []string, s3Key string) error {
	f.add("succeeded")
	f.facts, f.s3Key = facts, s3Key
	return nil
}

func (f *fakeLedger) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	f.add("failed")
	f.failMsg = errorMessage
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	results []*models.Result
}

func (f *fakeCache) SaveResult(ctx context.Context, res *models.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, res)
	return nil
}

type harness struct {
	facts   *fakeFacts
	tts     *fakeTTS
	images  *fakeImages
	encoder *fakeEncoder
	store   *fakeStore
	tempDir string
	gen     *Generator
}

func newHarness(t *testing.T, raw string) *harness {
	t.Helper()
	engine, err := layout.New(layout.DefaultSpec(), goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		facts:   &fakeFacts{raw: raw},
		tts:     &fakeTTS{},
		images:  &fakeImages{},
		encoder: &fakeEncoder{},
		store:   &fakeStore{},
		tempDir: t.TempDir(),
	}
	h.gen = NewGenerator(h.facts, h.tts, h.images, pipeline.New(engine, h.encoder, nil), h.store, Options{
		TempDir:      h.tempDir,
		FactAttempts: 3,
	})
	return h
}

func (h *harness) assertCleanedUp(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("job directory left behind: %v", entries)
	}
}

const sixFacts = "Fact one\nFact two\nFact three\nFact four\nFact five\nFact six"

func TestGenerateSuccess(t *testing.T) {
	h := newHarness(t, sixFacts)

	res := h.gen.Generate(context.Background(), models.GenerateRequest{})

	if !res.Success || res.StatusCode != http.StatusOK {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Duration != 30 {
		t.Errorf("expected duration 30, got %d", res.Duration)
	}
	if res.Fact != sixFacts {
		t.Errorf("unexpected fact text %q", res.Fact)
	}
	if res.S3Bucket != "shorts-bucket" || !strings.HasSuffix(res.S3Key, "_"+res.JobID+".mp4") {
		t.Errorf("unexpected location %s/%s", res.S3Bucket, res.S3Key)
	}
	if !strings.Contains(res.DownloadURL, res.S3Key) {
		t.Errorf("unexpected url %s", res.DownloadURL)
	}
	if h.store.contentType != "video/mp4" || h.store.meta["job-id"] != res.JobID || h.store.meta["generated-at"] == "" {
		t.Errorf("unexpected upload %s %v", h.store.contentType, h.store.meta)
	}
	if h.tts.text != "Fact one. Fact two. Fact three. Fact four. Fact five. Fact six" {
		t.Errorf("unexpected voice text %q", h.tts.text)
	}
	if h.facts.languages[0] != "ta" {
		t.Errorf("expected default language ta, got %s", h.facts.languages[0])
	}
	if h.encoder.job.DurationSeconds != 30 {
		t.Errorf("expected encode duration 30, got %v", h.encoder.job.DurationSeconds)
	}
	h.assertCleanedUp(t)
}

func TestGenerateRequestOverrides(t *testing.T) {
	h := newHarness(t, sixFacts)

	res := h.gen.Generate(context.Background(), models.GenerateRequest{DurationSeconds: 15, Language: "en"})

	if !res.Success || res.Duration != 15 {
		t.Fatalf("unexpected result %+v", res)
	}
	if h.facts.languages[0] != "en" || h.encoder.job.DurationSeconds != 15 {
		t.Errorf("overrides not applied: %v %v", h.facts.languages, h.encoder.job.DurationSeconds)
	}
}

func TestGenerateEmptySourceUsesFallback(t *testing.T) {
	h := newHarness(t, "")

	res := h.gen.Generate(context.Background(), models.GenerateRequest{})

	if !res.Success || res.Duration != 30 {
		t.Fatalf("expected success, got %+v", res)
	}
	if want := strings.Join(facts.Fallback[:6], "\n"); res.Fact != want {
		t.Errorf("expected first six fallback facts, got %q", res.Fact)
	}
	if len(h.facts.languages) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(h.facts.languages))
	}
}

func TestGenerateSourceErrorUsesFallback(t *testing.T) {
	h := newHarness(t, "")
	h.facts.err = errors.New("429 rate limited")

	res := h.gen.Generate(context.Background(), models.GenerateRequest{})

	if !res.Success {
		t.Fatalf("source errors must not fail the job: %+v", res)
	}
	if len(h.facts.languages) != 1 {
		t.Errorf("source error must not be retried, got %d calls", len(h.facts.languages))
	}
}

func TestGenerateEncoderFailure(t *testing.T) {
	h := newHarness(t, sixFacts)
	stderr := "[image2 @ 0x1] Could not open file : background.png\nConversion failed!"
	h.encoder.err = &media.EncodingError{JobID: "x", ExitCode: 1, Stderr: stderr}

	res := h.gen.Generate(context.Background(), models.GenerateRequest{})

	if res.Success || res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !strings.Contains(res.Error, stderr) {
		t.Errorf("error must contain stderr verbatim: %s", res.Error)
	}
	if !strings.Contains(res.Error, res.JobID) {
		t.Errorf("error must name the job: %s", res.Error)
	}
	if h.store.key != "" {
		t.Error("nothing must be uploaded after an encoder failure")
	}
	h.assertCleanedUp(t)
}

func TestGenerateStageFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		want  string
	}{
		{"tts", func(h *harness) { h.tts.err = errors.New("tts down") }, "tts down"},
		{"empty audio", func(h *harness) { h.tts.resp = &services.TTSResponse{} }, "no audio"},
		{"image", func(h *harness) { h.images.err = &services.DownloadError{URL: "u", StatusCode: 403} }, "403"},
		{"upload", func(h *harness) { h.store.uploadErr = errors.New("AccessDenied") }, "AccessDenied"},
		{"presign", func(h *harness) { h.store.presignErr = errors.New("no credentials") }, "no credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, sixFacts)
			tt.setup(h)

			res := h.gen.Generate(context.Background(), models.GenerateRequest{})

			if res.Success || res.StatusCode != http.StatusInternalServerError {
				t.Fatalf("expected failure, got %+v", res)
			}
			if !strings.Contains(res.Error, tt.want) {
				t.Errorf("error %q does not mention %q", res.Error, tt.want)
			}
			h.assertCleanedUp(t)
		})
	}
}

type panicImages struct{}

func (panicImages) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	panic("boom")
}

func TestGenerateRecoversPanic(t *testing.T) {
	h := newHarness(t, sixFacts)
	h.gen.images = panicImages{}
	cache := &fakeCache{}
	h.gen.WithCache(cache)

	res := h.gen.Generate(context.Background(), models.GenerateRequest{})

	if res.Success || !strings.Contains(res.Error, "boom") {
		t.Fatalf("expected panic failure, got %+v", res)
	}
	if len(cache.results) != 1 || cache.results[0] != res {
		t.Error("panic result must still be cached")
	}
	h.assertCleanedUp(t)
}

func TestGenerateRecordsLedgerAndCache(t *testing.T) {
	h := newHarness(t, sixFacts)
	ledger := &fakeLedger{}
	cache := &fakeCache{}
	h.gen.WithLedger(ledger).WithCache(cache)

	res := h.gen.Generate(context.Background(), models.GenerateRequest{})

	want := []string{"create:queued", "running", "succeeded"}
	if strings.Join(ledger.events, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected ledger events %v", ledger.events)
	}
	if ledger.s3Key != res.S3Key || len(ledger.facts) != 6 {
		t.Errorf("unexpected ledger success %s %v", ledger.s3Key, ledger.facts)
	}
	if len(cache.results) != 1 || cache.results[0].JobID != res.JobID {
		t.Errorf("unexpected cache %v", cache.results)
	}
}

func TestGenerateLedgerFailure(t *testing.T) {
	h := newHarness(t, sixFacts)
	ledger := &fakeLedger{}
	h.gen.WithLedger(ledger)
	h.images.err = errors.New("imagen quota")

	res := h.gen.Generate(context.Background(), models.GenerateRequest{})

	if res.Success || ledger.failMsg != res.Error {
		t.Errorf("ledger failure message %q, result %q", ledger.failMsg, res.Error)
	}
}

func TestNewJobDefaults(t *testing.T) {
	h := newHarness(t, "")

	job := h.gen.NewJob(models.GenerateRequest{})
	if len(job.ID) != 8 || job.DurationSeconds != 30 || job.Language != "ta" || job.CreatedAt.IsZero() {
		t.Errorf("unexpected job %+v", job)
	}
}

type fakeSource struct {
	mu   sync.Mutex
	jobs []*models.Job
	err  error
}

func (f *fakeSource) Dequeue(ctx context.Context, timeout time.Duration) (*models.Job, error) {
	f.mu.Lock()
	if len(f.jobs) > 0 {
		job := f.jobs[0]
		f.jobs = f.jobs[1:]
		f.mu.Unlock()
		return job, nil
	}
	err := f.err
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
	}
	return nil, err
}

func TestWorkerProcessesQueue(t *testing.T) {
	h := newHarness(t, sixFacts)
	cache := &fakeCache{}
	h.gen.WithCache(cache)

	src := &fakeSource{jobs: []*models.Job{
		{ID: "aaaa1111", DurationSeconds: 30},
		{ID: "bbbb2222", DurationSeconds: 20},
	}}
	w := New(h.gen, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, 1) }()

	deadline := time.After(10 * time.Second)
	for {
		cache.mu.Lock()
		n := len(cache.results)
		cache.mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out, %d results", n)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Start returned %v", err)
	}

	byID := map[string]*models.Result{}
	for _, r := range cache.results {
		byID[r.JobID] = r
	}
	if !byID["aaaa1111"].Success || byID["bbbb2222"].Duration != 20 {
		t.Errorf("unexpected results %+v %+v", byID["aaaa1111"], byID["bbbb2222"])
	}
}

func TestWorkerStopsOnCancel(t *testing.T) {
	h := newHarness(t, sixFacts)
	w := New(h.gen, &fakeSource{err: errors.New("redis: connection refused")})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, 2) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestWorkspaceUnderTempDir(t *testing.T) {
	h := newHarness(t, sixFacts)
	h.gen.Generate(context.Background(), models.GenerateRequest{})

	if !strings.HasPrefix(h.encoder.job.OutputPath, h.tempDir) {
		t.Errorf("output %s not under temp dir %s", h.encoder.job.OutputPath, h.tempDir)
	}
	if filepath.Base(h.encoder.job.AudioPath) != "voice.mp3" {
		t.Errorf("unexpected audio path %s", h.encoder.job.AudioPath)
	}
}

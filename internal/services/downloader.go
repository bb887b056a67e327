package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultDownloadTimeout = 30 * time.Second
	downloadUserAgent      = "Mozilla/5.0 (compatible; factshorts/1.0; +background-fetch)"
	maxDownloadBytes       = 50 << 20
)

// DownloadError reports a fetch that did not produce a body.
// StatusCode is zero for transport failures.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Downloader fetches generated assets over HTTP with a descriptive
// User-Agent and a per-request timeout.
type Downloader struct {
	client *http.Client
}

func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	return &Downloader{client: &http.Client{Timeout: timeout}}
}

// Fetch GETs url and returns the body. Non-2xx answers are errors.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DownloadError{URL: url, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	if len(data) == 0 {
		return nil, &DownloadError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("empty body")}
	}

	log.Debug().Int("bytes", len(data)).Str("content_type", resp.Header.Get("Content-Type")).
		Msg("[Download] fetched")
	return data, nil
}

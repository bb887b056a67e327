package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// ---------------------------------------------------------------------------
// Google Translate TTS
// The public translate_tts endpoint accepts at most ~200 characters per
// request, so text is split on word boundaries and the returned MP3 segments
// are concatenated (MP3 frames are self-delimiting).
// ---------------------------------------------------------------------------

const (
	translateTTSBaseURL = "https://translate.google.com"
	translateChunkRunes = 200
	translateUserAgent  = "Mozilla/5.0 (compatible; factshorts/1.0)"
)

type TranslateTTSService struct {
	baseURL string
	client  *http.Client
}

var _ TTSService = (*TranslateTTSService)(nil)

func NewTranslateTTSService() *TranslateTTSService {
	return &TranslateTTSService{
		baseURL: translateTTSBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the service at another endpoint (tests, proxies).
func (s *TranslateTTSService) WithBaseURL(url string) *TranslateTTSService {
	s.baseURL = url
	return s
}

// Synthesize fetches speech for each chunk in order and joins the audio.
func (s *TranslateTTSService) Synthesize(ctx context.Context, text, language string) (*TTSResponse, error) {
	if language == "" {
		language = "ta"
	}

	chunks := chunkText(text, translateChunkRunes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text to synthesize")
	}

	log.Info().Str("language", language).Int("chunks", len(chunks)).Int("text_len", len(text)).
		Msg("[TranslateTTS] Generating speech")

	var audio bytes.Buffer
	for i, chunk := range chunks {
		data, err := s.fetchChunk(ctx, chunk, language, i, len(chunks))
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		audio.Write(data)
	}

	durationMs := estimateAudioDuration(text, 1.0)
	log.Info().Int("bytes", audio.Len()).Int("estimated_ms", durationMs).Msg("[TranslateTTS] Speech generated")

	return &TTSResponse{
		AudioData:  audio.Bytes(),
		DurationMs: durationMs,
		Format:     "mp3",
	}, nil
}

func (s *TranslateTTSService) fetchChunk(ctx context.Context, chunk, language string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", language)
	q.Set("q", chunk)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create translate tts request: %w", err)
	}
	req.Header.Set("User-Agent", translateUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translate tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("translate tts returned status %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read translate tts audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("translate tts returned empty audio")
	}
	return data, nil
}

// chunkText packs whole words into chunks of at most max runes. A word longer
// than max is split by runes.
func chunkText(text string, max int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)

		for n > max {
			flush()
			runes := []rune(word)
			chunks = append(chunks, string(runes[:max]))
			word = string(runes[max:])
			n -= max
		}
		if n == 0 {
			continue
		}

		if curLen > 0 && curLen+1+n > max {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += n
	}
	flush()

	return chunks
}

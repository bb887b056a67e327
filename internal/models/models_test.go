package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestFactSetText(t *testing.T) {
	facts := FactSet{"Fact A short one", "Fact B short two"}

	if got := facts.OverlayText(); got != "Fact A short one\nFact B short two" {
		t.Errorf("unexpected overlay text: %q", got)
	}
	if got := facts.VoiceText(); got != "Fact A short one. Fact B short two" {
		t.Errorf("unexpected voice text: %q", got)
	}
}

func TestSuccessResultBody(t *testing.T) {
	r := SuccessResult("ab12cd34", FactSet{"இணையம் முதலில் ராணுவ பயன்பாடு"}, "bucket", "videos/x.mp4", "https://example.com/x?a=1&b=2", 30)

	if r.StatusCode != 200 {
		t.Errorf("expected status 200, got %d", r.StatusCode)
	}

	body, err := r.Body()
	if err != nil {
		t.Fatalf("Body failed: %v", err)
	}

	// Non-ASCII and & must not be escaped
	if !strings.Contains(body, "இணையம்") {
		t.Errorf("expected raw Tamil text in body, got %s", body)
	}
	if !strings.Contains(body, "a=1&b=2") {
		t.Errorf("expected unescaped URL in body, got %s", body)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if decoded["success"] != true {
		t.Errorf("expected success=true, got %v", decoded["success"])
	}
	if decoded["duration"].(float64) != 30 {
		t.Errorf("expected duration=30, got %v", decoded["duration"])
	}
	if _, ok := decoded["error"]; ok {
		t.Error("success body must not carry an error field")
	}
	if _, ok := decoded["StatusCode"]; ok {
		t.Error("status code must not be part of the body")
	}
}

func TestFailureResultBody(t *testing.T) {
	r := FailureResult("ab12cd34", errors.New("ffmpeg exited with status 1: boom"))

	if r.StatusCode != 500 {
		t.Errorf("expected status 500, got %d", r.StatusCode)
	}

	body, err := r.Body()
	if err != nil {
		t.Fatalf("Body failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if decoded["success"] != false {
		t.Errorf("expected success=false, got %v", decoded["success"])
	}
	if decoded["job_id"] != "ab12cd34" {
		t.Errorf("expected job id, got %v", decoded["job_id"])
	}
	if !strings.Contains(decoded["error"].(string), "boom") {
		t.Errorf("expected error text, got %v", decoded["error"])
	}
	if _, ok := decoded["download_url"]; ok {
		t.Error("failure body must not carry a download url")
	}
}

func TestFailureResultNilError(t *testing.T) {
	r := FailureResult("x", nil)
	if r.Error == "" {
		t.Error("expected a placeholder error message")
	}
}

func TestJobStatus(t *testing.T) {
	statuses := []JobStatus{
		JobStatusQueued,
		JobStatusRunning,
		JobStatusSucceeded,
		JobStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}

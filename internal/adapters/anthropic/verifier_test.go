package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/planmetric/planmetric/internal/core/domain"
)

func TestParseAnswer_PlainJSON(t *testing.T) {
	answer, err := parseAnswer(`{"scale_factor": 96, "rationale": "title block"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.ScaleFactor == nil || *answer.ScaleFactor != 96 {
		t.Errorf("expected factor 96, got %+v", answer.ScaleFactor)
	}
	if answer.Rationale != "title block" {
		t.Errorf("expected rationale, got %q", answer.Rationale)
	}
}

func TestParseAnswer_MarkdownFence(t *testing.T) {
	text := "Here is my analysis.\n```json\n{\"scale_factor\": 48, \"rationale\": \"1/4 inch notation\"}\n```\nDone."
	answer, err := parseAnswer(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.ScaleFactor == nil || *answer.ScaleFactor != 48 {
		t.Errorf("expected factor 48, got %+v", answer.ScaleFactor)
	}
}

func TestParseAnswer_EmbeddedInProse(t *testing.T) {
	text := `The sheet shows {"scale_factor": 100, "rationale": "metric 1:100"} as discussed.`
	answer, err := parseAnswer(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.ScaleFactor == nil || *answer.ScaleFactor != 100 {
		t.Errorf("expected factor 100, got %+v", answer.ScaleFactor)
	}
}

func TestParseAnswer_NullFactor(t *testing.T) {
	answer, err := parseAnswer(`{"scale_factor": null, "rationale": "no legible notation"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.ScaleFactor != nil {
		t.Errorf("expected nil factor, got %g", *answer.ScaleFactor)
	}
}

func TestParseAnswer_NegativeFactorDropped(t *testing.T) {
	answer, err := parseAnswer(`{"scale_factor": -5, "rationale": "nonsense"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.ScaleFactor != nil {
		t.Errorf("expected non-positive factor discarded, got %g", *answer.ScaleFactor)
	}
}

func TestParseAnswer_Garbage(t *testing.T) {
	if _, err := parseAnswer("I cannot read this drawing"); err == nil {
		t.Fatal("expected error for unparsable answer")
	}
}

func TestVerify_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}

		var req messageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || len(req.Messages[0].Content) == 0 {
			t.Fatalf("unexpected message shape: %+v", req.Messages)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": `{"scale_factor": 96, "rationale": "scale bar"}`},
			},
		})
	}))
	defer srv.Close()

	v := New(srv.URL, "test-key", "test-model", 5*time.Second)
	answer, err := v.Verify(context.Background(), []byte("png"), nil, []domain.TextBlock{{Text: "FLOOR PLAN"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.ScaleFactor == nil || *answer.ScaleFactor != 96 {
		t.Errorf("expected factor 96, got %+v", answer.ScaleFactor)
	}
}

func TestVerify_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	v := New(srv.URL, "test-key", "test-model", 5*time.Second)
	_, err := v.Verify(context.Background(), nil, nil, nil)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestVerify_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := New(srv.URL, "test-key", "test-model", 5*time.Second)
	_, err := v.Verify(context.Background(), nil, nil, nil)
	if !errors.Is(err, domain.ErrVerifierUnavailable) {
		t.Fatalf("expected ErrVerifierUnavailable, got %v", err)
	}
}

package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/planmetric/planmetric/internal/core/domain"
)

const (
	apiVersion  = "2023-06-01"
	maxTokens   = 1024
	maxTextSent = 4000 // page text is truncated before prompting
)

// Verifier implements ports.Verifier against an Anthropic-style messages
// API: the page image and text excerpts are sent to a vision-language
// model which answers with a JSON scale verdict.
type Verifier struct {
	baseURL string
	apiKey  string
	model   string
	httpc   *http.Client
}

// New creates a verifier client.
func New(baseURL, apiKey, model string, timeout time.Duration) *Verifier {
	return &Verifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const systemPrompt = `You are an expert at reading architectural drawings. ` +
	`Determine the drawing scale of the sheet you are shown. ` +
	`Answer with a JSON object: {"scale_factor": <real-world inches per drawing inch, or null if undeterminable>, "rationale": "<one sentence>"}. ` +
	`For example 1/8" = 1'-0" is scale_factor 96 and 1:50 is scale_factor 50.`

// Verify asks the model for a scale verdict. Rate-limit responses map to
// domain.ErrRateLimited so callers can retry with backoff.
func (v *Verifier) Verify(ctx context.Context, image []byte, detected *domain.ScaleCandidate, textBlocks []domain.TextBlock) (domain.VerifierAnswer, error) {
	req := messageRequest{
		Model:     v.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []message{{
			Role:    "user",
			Content: buildContent(image, detected, textBlocks),
		}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.VerifierAnswer{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return domain.VerifierAnswer{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", v.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := v.httpc.Do(httpReq)
	if err != nil {
		return domain.VerifierAnswer{}, fmt.Errorf("%w: %v", domain.ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.VerifierAnswer{}, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.VerifierAnswer{}, domain.ErrRateLimited
	case resp.StatusCode >= 500:
		return domain.VerifierAnswer{}, fmt.Errorf("%w: HTTP %d", domain.ErrVerifierUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return domain.VerifierAnswer{}, fmt.Errorf("verifier HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var mr messageResponse
	if err := json.Unmarshal(respBody, &mr); err != nil {
		return domain.VerifierAnswer{}, fmt.Errorf("decode response: %w", err)
	}
	if mr.Error != nil {
		return domain.VerifierAnswer{}, fmt.Errorf("verifier API error %s: %s", mr.Error.Type, mr.Error.Message)
	}

	for _, block := range mr.Content {
		if block.Type == "text" {
			return parseAnswer(block.Text)
		}
	}
	return domain.VerifierAnswer{}, fmt.Errorf("verifier returned no text content")
}

func buildContent(image []byte, detected *domain.ScaleCandidate, textBlocks []domain.TextBlock) []contentBlock {
	var blocks []contentBlock
	if len(image) > 0 {
		blocks = append(blocks, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: "image/png",
				Data:      base64.StdEncoding.EncodeToString(image),
			},
		})
	}

	var sb strings.Builder
	sb.WriteString("Determine this sheet's drawing scale.\n")
	if detected != nil {
		fmt.Fprintf(&sb, "A low-confidence text parse suggested %q (factor %.4g). Confirm or correct it.\n",
			detected.RawNotation, detected.ScaleFactor)
	}
	if len(textBlocks) > 0 {
		sb.WriteString("Text extracted from the sheet:\n")
		total := 0
		for _, tb := range textBlocks {
			if total+len(tb.Text) > maxTextSent {
				break
			}
			sb.WriteString(tb.Text)
			sb.WriteByte('\n')
			total += len(tb.Text) + 1
		}
	}
	blocks = append(blocks, contentBlock{Type: "text", Text: sb.String()})
	return blocks
}

var jsonFenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseAnswer extracts the JSON verdict from model output, which may be
// wrapped in a markdown code fence or surrounded by prose.
func parseAnswer(text string) (domain.VerifierAnswer, error) {
	payload := text
	if m := jsonFenceRE.FindStringSubmatch(text); m != nil {
		payload = m[1]
	} else if start := strings.IndexByte(text, '{'); start >= 0 {
		if end := strings.LastIndexByte(text, '}'); end > start {
			payload = text[start : end+1]
		}
	}

	var answer domain.VerifierAnswer
	if err := json.Unmarshal([]byte(payload), &answer); err != nil {
		return domain.VerifierAnswer{}, fmt.Errorf("unparsable verifier answer %q: %w", truncate(text, 200), err)
	}
	if answer.ScaleFactor != nil && *answer.ScaleFactor <= 0 {
		answer.ScaleFactor = nil
	}
	return answer, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

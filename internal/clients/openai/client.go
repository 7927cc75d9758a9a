package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	domerr "github.com/rizzlab/rizzlab-backend/internal/pkg/errors"
	"github.com/rizzlab/rizzlab-backend/internal/retry"
	"github.com/rizzlab/rizzlab-backend/internal/safety"
)

// Client is the single OpenAI-style HTTP surface the core consumes: safety
// classification, structured-output evaluation, persona text, voice and image
// synthesis all ride the same transport and retry behavior.
type Client interface {
	ModerateContent(ctx context.Context, message string) (*safety.ModerationResult, error)
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error)
	GenerateText(ctx context.Context, system, user string) (string, error)
	SynthesizeVoice(ctx context.Context, text, voice string) ([]byte, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// ContentFilteredError marks an image request the provider refused on safety
// grounds. The reward orchestrator treats it specially (conservative-prompt
// retry, cursed-persona cleanup), so it must stay distinguishable from plain
// permanent failures.
type ContentFilteredError struct {
	Detail string
}

func (e *ContentFilteredError) Error() string {
	return fmt.Sprintf("image content filtered: %s", e.Detail)
}

func IsContentFiltered(err error) bool {
	var cf *ContentFilteredError
	return errors.As(err, &cf)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	ttsModel   string
	ttsVoice   string
	imageModel string
	httpClient *http.Client

	maxAttempts int
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	ttsModel := os.Getenv("OPENAI_TTS_MODEL")
	if ttsModel == "" {
		ttsModel = "tts-1"
	}
	ttsVoice := os.Getenv("OPENAI_TTS_VOICE")
	if ttsVoice == "" {
		ttsVoice = "nova"
	}
	imageModel := os.Getenv("OPENAI_IMAGE_MODEL")
	if imageModel == "" {
		imageModel = "dall-e-3"
	}

	timeoutSec := 120
	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxAttempts := 3
	if v := os.Getenv("OPENAI_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 1 {
			maxAttempts = parsed
		}
	}

	return &client{
		log:         log.With("service", "OpenAIClient"),
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		ttsModel:    ttsModel,
		ttsVoice:    ttsVoice,
		imageModel:  imageModel,
		httpClient:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxAttempts: maxAttempts,
	}, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if IsContentFiltered(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var hErr *httpError
	if errors.As(err, &hErr) {
		return isRetryableHTTP(hErr.StatusCode)
	}
	return false
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// do wraps doOnce with the shared retry utility and translates the final
// failure into the transient/permanent taxonomy.
func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	var raw []byte
	err := retry.Do(ctx, c.log, retry.Exponential(c.maxAttempts, time.Second, 10*time.Second), isRetryableErr,
		func(ctx context.Context, attempt int) error {
			var callErr error
			raw, callErr = c.doOnce(ctx, method, path, body)
			return callErr
		})
	if err != nil {
		return classify(err)
	}
	if out == nil {
		return nil
	}
	if uErr := json.Unmarshal(raw, out); uErr != nil {
		return domerr.Permanent(fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw)))
	}
	return nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if IsContentFiltered(err) {
		return err
	}
	if isRetryableErr(err) {
		return domerr.Transient(err)
	}
	return domerr.Permanent(err)
}

// ---- Moderation ----

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
}

func (c *client) ModerateContent(ctx context.Context, message string) (*safety.ModerationResult, error) {
	var resp moderationResponse
	if err := c.do(ctx, "POST", "/v1/moderations", moderationRequest{Input: message}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return &safety.ModerationResult{}, nil
	}
	r := resp.Results[0]
	out := &safety.ModerationResult{Flagged: r.Flagged}
	for cat, hit := range r.Categories {
		if hit {
			out.Categories = append(out.Categories, cat)
		}
	}
	return out, nil
}

// ---- Structured outputs ----

type responsesRequest struct {
	Model string `json:"model"`
	Input []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"input"`
	Text struct {
		Format map[string]any `json:"format"`
	} `json:"text"`
	Temperature float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func (c *client) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	if schemaName == "" {
		return nil, domerr.Permanent(errors.New("schemaName required"))
	}
	if schema == nil {
		return nil, domerr.Permanent(errors.New("schema required"))
	}

	req := responsesRequest{
		Model: c.model,
		Input: []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
	}
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
		return nil, err
	}
	if resp.Refusal != "" {
		return nil, domerr.Permanent(fmt.Errorf("model refused: %s", resp.Refusal))
	}

	jsonText := collectOutputText(resp)
	if jsonText == "" {
		return nil, domerr.Permanent(errors.New("no output_text found in response"))
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(jsonText), &obj); err != nil {
		return nil, domerr.Permanent(fmt.Errorf("failed to parse model JSON: %w; text=%s", err, jsonText))
	}
	return obj, nil
}

func (c *client) GenerateText(ctx context.Context, system, user string) (string, error) {
	req := responsesRequest{
		Model: c.model,
		Input: []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.9,
	}
	req.Text.Format = map[string]any{"type": "text"}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
		return "", err
	}
	if resp.Refusal != "" {
		return "", domerr.Permanent(fmt.Errorf("model refused: %s", resp.Refusal))
	}
	text := collectOutputText(resp)
	if text == "" {
		return "", domerr.Permanent(errors.New("no output_text found in response"))
	}
	return text, nil
}

func collectOutputText(resp responsesResponse) string {
	var sb strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					sb.WriteString(c.Text)
				}
			}
		}
	}
	return sb.String()
}

// ---- Voice ----

type speechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

func (c *client) SynthesizeVoice(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(voice) == "" {
		voice = c.ttsVoice
	}
	req := speechRequest{Model: c.ttsModel, Voice: voice, Input: text}

	// audio/speech returns raw bytes, not JSON.
	var raw []byte
	err := retry.Do(ctx, c.log, retry.Exponential(c.maxAttempts, time.Second, 10*time.Second), isRetryableErr,
		func(ctx context.Context, attempt int) error {
			var callErr error
			raw, callErr = c.doOnce(ctx, "POST", "/v1/audio/speech", req)
			return callErr
		})
	if err != nil {
		return nil, classify(err)
	}
	if len(raw) == 0 {
		return nil, domerr.Permanent(errors.New("empty audio payload"))
	}
	return raw, nil
}

// ---- Images ----

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func (c *client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	req := imageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              1,
		Size:           "1024x1024",
		ResponseFormat: "b64_json",
	}

	var resp imageResponse
	if err := c.do(ctx, "POST", "/v1/images/generations", req, &resp); err != nil {
		if filtered := asContentFiltered(err); filtered != nil {
			return nil, filtered
		}
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, domerr.Permanent(errors.New("empty image payload"))
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, domerr.Permanent(fmt.Errorf("decode image b64: %w", err))
	}
	return raw, nil
}

// asContentFiltered recognizes the provider's safety rejection inside a 400
// body and promotes it to the typed error the orchestrator branches on.
func asContentFiltered(err error) *ContentFilteredError {
	var hErr *httpError
	if !errors.As(err, &hErr) {
		return nil
	}
	if hErr.StatusCode != 400 {
		return nil
	}
	body := strings.ToLower(hErr.Body)
	if strings.Contains(body, "content_policy_violation") || strings.Contains(body, "safety system") {
		return &ContentFilteredError{Detail: hErr.Body}
	}
	return nil
}

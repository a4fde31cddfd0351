package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// HTTPTranscriber calls a whisper-style transcription service over HTTP
// multipart/form-data. The service receives the raw audio bytes and
// returns JSON with the recognized text.
//
// API endpoint: POST {apiURL}/api/v1/transcribe
type HTTPTranscriber struct {
	apiURL     string
	model      string
	httpClient *http.Client
}

// NewHTTPTranscriber creates a client for the given base URL. The HTTP
// client timeout is generous; per-chunk deadlines come from the caller's
// context.
func NewHTTPTranscriber(apiURL, model string) *HTTPTranscriber {
	if model == "" {
		model = "ggml-base"
	}
	return &HTTPTranscriber{
		apiURL: apiURL,
		model:  model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// Transcribe sends the audio bytes as a multipart request and parses the
// JSON response. All failures are returned as typed *Error values so the
// coordinator can classify them.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte, opts *Options) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", "chunk.wav")
	if err != nil {
		return "", NewError(BAD_RESPONSE, "failed to create form file", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", NewError(BAD_RESPONSE, "failed to write audio data", err)
	}

	model := t.model
	if opts != nil && opts.Model != "" {
		model = opts.Model
	}
	if err := writer.WriteField("model", model); err != nil {
		return "", NewError(BAD_RESPONSE, "failed to write model field", err)
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", NewError(BAD_RESPONSE, "failed to write response_format field", err)
	}
	if opts != nil && opts.Language != "" {
		if err := writer.WriteField("language", opts.Language); err != nil {
			return "", NewError(BAD_RESPONSE, "failed to write language field", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", NewError(BAD_RESPONSE, "failed to close multipart writer", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/transcribe", t.apiURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", NewError(SERVICE_UNAVAILABLE, "failed to create HTTP request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", NewError(TIMEOUT, "transcription request timed out", err)
		}
		return "", NewError(SERVICE_UNAVAILABLE, "transcription request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", NewError(HTTP_ERROR,
			fmt.Sprintf("transcription API returned status %d: %s", resp.StatusCode, string(bodyBytes)), nil)
	}

	var result struct {
		Text     string  `json:"text"`
		Language string  `json:"language"`
		Duration float64 `json:"duration"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", NewError(BAD_RESPONSE, "failed to parse transcription response", err)
	}

	return result.Text, nil
}

// HealthCheck probes the service models endpoint.
func (t *HTTPTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.apiURL+"/api/v1/models", nil)
	if err != nil {
		return false, err
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// Name identifies this implementation.
func (t *HTTPTranscriber) Name() string {
	return "http-whisper"
}

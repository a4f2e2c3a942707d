package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yagizdas/voiceflare/internal/config"
	"github.com/yagizdas/voiceflare/internal/metrics"
)

// maxRetryBackoff caps the per-request retry backoff
const maxRetryBackoff = 30 * time.Second

// Client sends WAV clips to a speech-to-text HTTP endpoint. Requests are
// rate limited with a semaphore and retried with exponential backoff.
type Client struct {
	endpoint   string
	apiKey     string
	language   string
	model      string
	maxRetries int
	httpClient *http.Client
	semaphore  chan struct{}
	metrics    *metrics.Metrics
	logger     *slog.Logger

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalRetries    uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// response is the endpoint's JSON reply
type response struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	TotalRetries    uint64        `json:"total_retries"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// NewClient creates a speech-to-text client from the STT config section
func NewClient(cfg config.STTConfig, m *metrics.Metrics, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	httpClient := &http.Client{
		Timeout: cfg.GetTimeoutDuration(),
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, maxConcurrent),
		metrics:    m,
		logger:     logger.With(slog.String("component", "stt")),
	}, nil
}

// Transcribe sends a WAV-encoded clip and returns the transcribed text
func (c *Client) Transcribe(ctx context.Context, wavData []byte, clipID string) (string, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	startTime := time.Now()
	c.incrementTotalRequests()
	c.metrics.RecordTranscriptionRequest()

	requestID := uuid.New().String()
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.incrementTotalRetries()
			c.metrics.RecordTranscriptionRetry()

			backoff := time.Duration(1<<(attempt-1)) * time.Second
			if backoff > maxRetryBackoff {
				backoff = maxRetryBackoff
			}

			c.logger.Debug("retrying transcription",
				slog.String("clip_id", clipID),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff))

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.doRequest(ctx, wavData, clipID, requestID)
		if err == nil {
			elapsed := time.Since(startTime)
			c.incrementSuccessRequests()
			c.updateAvgResponseTime(elapsed)
			c.metrics.RecordTranscriptionSuccess(elapsed.Seconds())
			return text, nil
		}

		lastErr = err

		if !isRetryableError(err) {
			break
		}
	}

	c.incrementFailedRequests()
	c.metrics.RecordTranscriptionFailure(time.Since(startTime).Seconds())
	return "", fmt.Errorf("transcription failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// doRequest performs a single HTTP request to the transcription endpoint
func (c *Client) doRequest(ctx context.Context, wavData []byte, clipID, requestID string) (string, error) {
	body, contentType, err := c.createMultipartRequest(wavData, clipID, requestID)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	return parsed.Text, nil
}

// createMultipartRequest builds the multipart/form-data body
func (c *Client) createMultipartRequest(wavData []byte, clipID, requestID string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", clipID+".wav")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"clip_id":         clipID,
		"request_id":      requestID,
		"response_format": "json",
	}
	if c.language != "" {
		fields["language"] = c.language
	}
	if c.model != "" {
		fields["model"] = c.model
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// isRetryableError reports whether a failed request is worth retrying.
// Server errors, rate limiting, and network failures are; client errors
// like a 400 are not.
func isRetryableError(err error) bool {
	if err == context.DeadlineExceeded {
		return true
	}

	errStr := err.Error()

	if strings.Contains(errStr, "HTTP error 5") {
		return true
	}
	if strings.Contains(errStr, "HTTP error 429") {
		return true
	}
	if strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "refused") {
		return true
	}

	return false
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) incrementTotalRetries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		TotalRetries:    c.totalRetries,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}

package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// ErrMemoryService is returned when the memory server answers with a
// non-success status.
var ErrMemoryService = errors.New("memory service error")

// HTTPService talks to a memory server over HTTP. The server exposes
// POST /memories/search for retrieval and POST /memories for storage.
type HTTPService struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPService creates a Service backed by the memory server at baseURL.
func NewHTTPService(baseURL string, logger *slog.Logger) *HTTPService {
	return &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultRequestTimeout},
		logger:  logger.With("module", "memory"),
	}
}

type searchRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

type searchResponse struct {
	Memories []string `json:"memories"`
}

type storeRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// Search returns every stored memory matching the query, one per line.
func (s *HTTPService) Search(ctx context.Context, sessionID, query string) (string, error) {
	var parsed searchResponse

	err := s.post(ctx, "/memories/search", searchRequest{SessionID: sessionID, Query: query}, &parsed)
	if err != nil {
		return "", err
	}

	s.logger.DebugContext(ctx, "Memory search completed", "hits", len(parsed.Memories))

	return strings.Join(parsed.Memories, "\n"), nil
}

// Store saves text on the memory server.
func (s *HTTPService) Store(ctx context.Context, sessionID, text string) error {
	return s.post(ctx, "/memories", storeRequest{SessionID: sessionID, Text: text}, nil)
}

func (s *HTTPService) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode memory request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create memory request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("memory request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read memory response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("memory service returned status %d: %w", resp.StatusCode, ErrMemoryService)
	}

	if out == nil {
		return nil
	}

	err = json.Unmarshal(raw, out)
	if err != nil {
		return fmt.Errorf("failed to decode memory response: %w", err)
	}

	return nil
}

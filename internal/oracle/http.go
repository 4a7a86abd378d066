package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultGenerateURL is the local Ollama completion endpoint.
const DefaultGenerateURL = "http://127.0.0.1:11434/api/generate"

// HTTP calls an Ollama-compatible /api/generate endpoint and hands back the
// decoded response document untouched.
type HTTP struct {
	URL    string
	Model  string
	Client *http.Client
	Log    *zap.Logger
}

// NewHTTP builds a client. A zero timeout leaves calls unbounded.
func NewHTTP(url, model string, timeout time.Duration, log *zap.Logger) *HTTP {
	if strings.TrimSpace(url) == "" {
		url = DefaultGenerateURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTP{
		URL:    normalizeGenerateURL(url),
		Model:  model,
		Client: &http.Client{Timeout: timeout},
		Log:    log,
	}
}

// normalizeGenerateURL accepts a bare base URL such as http://host:11434.
func normalizeGenerateURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(base, "/api/generate") {
		return base
	}
	return base + "/api/generate"
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options"`
}

// Complete posts prompt and returns the JSON body. Transport and status
// failures come back as {"error": "..."} so callers can embed the result
// in their own responses.
func (h *HTTP) Complete(ctx context.Context, prompt string) map[string]interface{} {
	body, err := json.Marshal(generateRequest{
		Model:   h.Model,
		Prompt:  prompt,
		Options: map[string]interface{}{},
	})
	if err != nil {
		return errorDoc(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return errorDoc(err)
	}
	req.Header.Set("Content-Type", "application/json")

	h.Log.Debug("🌐 [ORACLE] POST", zap.String("url", h.URL), zap.String("model", h.Model))
	resp, err := h.Client.Do(req)
	if err != nil {
		h.Log.Warn("⚠️ [ORACLE] HTTP call failed", zap.Error(err))
		return errorDoc(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("ollama returned status %d", resp.StatusCode)
		h.Log.Warn("⚠️ [ORACLE] HTTP call rejected", zap.Error(err))
		return errorDoc(err)
	}

	var doc map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return errorDoc(fmt.Errorf("failed to decode ollama response: %w", err))
	}
	return doc
}

func errorDoc(err error) map[string]interface{} {
	return map[string]interface{}{"error": err.Error()}
}

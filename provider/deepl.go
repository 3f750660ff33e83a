package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ZaguanLabs/shoptl"
)

// DeepL API endpoints. Free-plan keys end in ":fx".
const (
	DeepLFreeURL = "https://api-free.deepl.com"
	DeepLProURL  = "https://api.deepl.com"
)

// DeepLProvider implements Provider using the DeepL REST API.
type DeepLProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// DeepLConfig holds configuration for the DeepL provider.
type DeepLConfig struct {
	APIKey     string        // DeepL authentication key
	BaseURL    string        // Custom base URL (default: chosen from the key type)
	Timeout    time.Duration // Per-request timeout (default: 60s)
	HTTPClient *http.Client  // Custom client (optional, overrides Timeout)
}

// NewDeepLProvider creates a new DeepL provider.
func NewDeepLProvider(cfg DeepLConfig) *DeepLProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DeepLProURL
		if strings.HasSuffix(cfg.APIKey, ":fx") {
			baseURL = DeepLFreeURL
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &DeepLProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type deeplRequest struct {
	Text        []string `json:"text"`
	TargetLang  string   `json:"target_lang"`
	SourceLang  string   `json:"source_lang,omitempty"`
	TagHandling string   `json:"tag_handling,omitempty"`
	IgnoreTags  []string `json:"ignore_tags,omitempty"`
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate translates one text with DeepL.
func (p *DeepLProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if req.Text == "" {
		return "", nil
	}

	payload := deeplRequest{
		Text:        []string{req.Text},
		TargetLang:  strings.ToUpper(req.TargetLang),
		TagHandling: req.TagHandling,
		IgnoreTags:  req.IgnoreTags,
	}
	if req.SourceLang != "" {
		// DeepL accepts only the base language as source.
		payload.SourceLang = strings.ToUpper(shoptl.BaseLanguage(req.SourceLang))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &shoptl.ProviderError{Message: "encoding request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/translate", bytes.NewReader(body))
	if err != nil {
		return "", &shoptl.ProviderError{Message: "building request", Cause: err}
	}
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", shoptl.UserAgent())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &shoptl.ProviderError{
			Message:   "DeepL API call failed",
			Cause:     err,
			// Client timeouts also match context.DeadlineExceeded; only the caller's context ends retries.
			Retryable: ctx.Err() == nil,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var result deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &shoptl.ProviderError{
			Message: "invalid response format from DeepL",
			Cause:   err,
		}
	}

	if len(result.Translations) != 1 {
		return "", &shoptl.CountMismatchError{Expected: 1, Got: len(result.Translations)}
	}

	return result.Translations[0].Text, nil
}

// statusError converts a non-200 DeepL response into a ProviderError.
func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := strings.TrimSpace(string(data))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		message = body.Message
	}

	var hint string
	switch resp.StatusCode {
	case http.StatusForbidden:
		hint = "authorization failed"
	case 456:
		hint = "quota exceeded"
	case http.StatusTooManyRequests:
		hint = "rate limited"
	default:
		hint = http.StatusText(resp.StatusCode)
	}

	limited := resp.StatusCode == http.StatusTooManyRequests
	return &shoptl.ProviderError{
		Message:     fmt.Sprintf("DeepL returned %d (%s): %s", resp.StatusCode, hint, message),
		Retryable:   limited || resp.StatusCode >= 500,
		RateLimited: limited,
		RetryAfter:  retryAfter(resp.Header.Get("Retry-After")),
	}
}

// retryAfter parses a Retry-After header given in seconds. Dates are ignored.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Verify DeepLProvider implements Provider
var _ Provider = (*DeepLProvider)(nil)

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ZaguanLabs/shoptl"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using OpenAI's API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // OpenAI API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Translate translates one HTML fragment using OpenAI.
func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if req.Text == "" {
		return "", nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: p.buildUserMessage(req)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", classifyError(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", &shoptl.ProviderError{
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	translated, err := p.parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}

	return preserveWhitespace(req.Text, translated), nil
}

func (p *OpenAIProvider) buildSystemPrompt(req TranslateRequest) string {
	sourceName := "the source language (detect it)"
	if req.SourceLang != "" {
		sourceName = shoptl.GetLanguageName(req.SourceLang)
	}
	targetName := shoptl.GetLanguageName(req.TargetLang)

	prompt := fmt.Sprintf(`# Role
You are an expert e-commerce translator. You translate product descriptions from %s to %s with the fluency of a native copywriter.

# Task
Translate the provided product text into idiomatic %s.

# Style Guide
- **Natural Flow**: Avoid literal translations. Rephrase sentences to sound natural to a native shopper.
- **Product Names**: Keep brand and model names unchanged.
- **Units and Numbers**: Keep numbers, sizes and units as they are.
- **Formatting**: Preserve meaningful whitespace and the position of line breaks.`, sourceName, targetName, targetName)

	if req.TagHandling == "html" {
		prompt += "\n- **HTML Safety**: The text is an HTML fragment. Keep every tag and attribute exactly as written; translate only text content. Do NOT translate URLs."
	}

	if len(req.IgnoreTags) > 0 {
		tags := make([]string, len(req.IgnoreTags))
		for i, tag := range req.IgnoreTags {
			tags[i] = "<" + tag + ">"
		}
		prompt += fmt.Sprintf("\n- **Protected Elements**: Copy every %s element and its content byte-for-byte. Never translate, move, merge or drop them.", strings.Join(tags, ", "))
	}

	prompt += `

# Format
Return a valid JSON object with a single key "translation" containing the translated text.
Example: { "translation": "translated text" }
- Do NOT wrap in Markdown code blocks.`

	return prompt
}

// buildUserMessage wraps the text in a JSON object, leaving markup unescaped.
func (p *OpenAIProvider) buildUserMessage(req TranslateRequest) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(map[string]string{"text": req.Text})
	return strings.TrimSuffix(buf.String(), "\n")
}

func (p *OpenAIProvider) parseResponse(content string) (string, error) {
	var objResult map[string]interface{}
	if err := json.Unmarshal([]byte(content), &objResult); err == nil {
		if translation, ok := objResult["translation"].(string); ok {
			return translation, nil
		}

		// Fallback: first string value
		for _, v := range objResult {
			if s, ok := v.(string); ok {
				return s, nil
			}
		}
	}

	return "", &shoptl.ProviderError{
		Message:   "invalid response format from OpenAI",
		Retryable: false,
	}
}

// preserveWhitespace preserves the original leading/trailing whitespace.
func preserveWhitespace(original, translated string) string {
	translated = strings.TrimSpace(translated)

	leadingLen := len(original) - len(strings.TrimLeft(original, " \t\n\r"))
	leading := original[:leadingLen]

	trailingLen := len(original) - len(strings.TrimRight(original, " \t\n\r"))
	trailing := ""
	if trailingLen > 0 && trailingLen < len(original) {
		trailing = original[len(original)-trailingLen:]
	}

	return leading + translated + trailing
}

// classifyError converts a client error into a ProviderError, using the HTTP
// status when the client reports one.
func classifyError(ctx context.Context, err error) *shoptl.ProviderError {
	pe := &shoptl.ProviderError{Message: "OpenAI API call failed", Cause: err}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case ctx.Err() != nil:
		// The caller gave up; client timeouts fall through to the default case.
	case status == http.StatusTooManyRequests:
		pe.Retryable = true
		pe.RateLimited = true
	case status >= 500:
		pe.Retryable = true
	case status != 0:
	default:
		// No status: network failure or an unrecognized error.
		pe.Retryable = isRetryableMessage(err.Error())
	}
	return pe
}

func isRetryableMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, pattern := range []string{"rate limit", "timeout", "connection refused", "connection reset", "temporary", "eof", "deadline exceeded"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)

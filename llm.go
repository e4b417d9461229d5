package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// CompletionProvider is the pluggable language-model backend. The
// pipeline never branches on the concrete implementation; the choice is
// made once at construction from config.
type CompletionProvider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultGatewayModel = "gpt-4o-mini"

// NewCompletionProvider selects the backend from config. Returns nil
// when no provider is configured; the verification gate then falls back
// to flagged estimation from theme scores.
func NewCompletionProvider(cfg Config) CompletionProvider {
	switch cfg.LLMProvider {
	case "anthropic":
		model := cfg.LLMModel
		if model == "" {
			model = defaultAnthropicModel
		}
		return &anthropicProvider{apiKey: cfg.AnthropicAPIKey, model: model}
	case "gateway":
		model := cfg.LLMModel
		if model == "" {
			model = defaultGatewayModel
		}
		return &gatewayProvider{apiKey: cfg.GatewayAPIKey, baseURL: cfg.GatewayBaseURL, model: model}
	}
	return nil
}

// --- Anthropic ---

type anthropicProvider struct {
	apiKey string
	model  string
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	client := anthropic.NewClient(option.WithAPIKey(p.apiKey))

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", &ExternalProviderError{Provider: "anthropic", Err: err}
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d",
				len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", &ExternalProviderError{Provider: "anthropic", Err: fmt.Errorf("no text content in response")}
}

// --- OpenAI-compatible gateway (watsonx/groq style) ---

type gatewayProvider struct {
	apiKey  string
	baseURL string
	model   string
}

func (p *gatewayProvider) Name() string { return "gateway" }

type gatewayRequest struct {
	Model    string           `json:"model"`
	Messages []gatewayMessage `json:"messages"`
}

type gatewayMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type gatewayResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *gatewayProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := gatewayRequest{
		Model: p.model,
		Messages: []gatewayMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ExternalProviderError{Provider: "gateway", Err: fmt.Errorf("marshaling request: %w", err)}
	}

	endpoint := strings.TrimSuffix(p.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &ExternalProviderError{Provider: "gateway", Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		log.Printf("llm gateway error: %v", err)
		return "", &ExternalProviderError{Provider: "gateway", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ExternalProviderError{Provider: "gateway", Err: fmt.Errorf("reading response: %w", err)}
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &ExternalProviderError{Provider: "gateway", Err: fmt.Errorf("parsing response: %w", err)}
	}
	if parsed.Error != nil {
		log.Printf("llm gateway api error: %s", parsed.Error.Message)
		return "", &ExternalProviderError{Provider: "gateway", Err: fmt.Errorf("API error: %s", parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return "", &ExternalProviderError{Provider: "gateway", Err: fmt.Errorf("no choices in response")}
	}

	log.Printf("llm gateway response size=%d", len(parsed.Choices[0].Message.Content))
	return parsed.Choices[0].Message.Content, nil
}

// --- Verification gate ---

const verifySystemPrompt = `You verify whether a company shows genuine financial distress or failure.
Judge only from the evidence provided. Do not speculate beyond it.

Respond with JSON only (no markdown):
{"distressed": true, "confidence": 0.85, "reason": "one short sentence"}`

const maxVerifySnippets = 12
const maxVerifySnippetChars = 400

// VerifyDistress runs the LLM verification gate over curated evidence.
// Returns an ExternalProviderError when the backend fails; callers fall
// back to EstimateVerification.
func VerifyDistress(ctx context.Context, provider CompletionProvider, ticker string, snippets []EvidenceSnippet) (VerificationResult, error) {
	if provider == nil {
		return VerificationResult{}, &ExternalProviderError{
			Provider: "completion",
			Err:      fmt.Errorf("no completion provider configured"),
		}
	}

	var lines strings.Builder
	count := 0
	for _, s := range snippets {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if len(text) > maxVerifySnippetChars {
			text = text[:maxVerifySnippetChars] + "..."
		}
		lines.WriteString(fmt.Sprintf("- [%s] %s\n", s.Source, text))
		count++
		if count >= maxVerifySnippets {
			break
		}
	}
	if count == 0 {
		lines.WriteString("none\n")
	}

	userPrompt := fmt.Sprintf("Company: %s\n\nEvidence:\n%s\nIs this company genuinely financially distressed or failed?", ticker, lines.String())

	log.Printf("llm verify provider=%s ticker=%s snippets=%d", provider.Name(), ticker, count)
	responseText, err := provider.Complete(ctx, verifySystemPrompt, userPrompt)
	if err != nil {
		return VerificationResult{}, err
	}
	return parseVerifyResponse(responseText)
}

func parseVerifyResponse(responseText string) (VerificationResult, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var parsed struct {
		Distressed bool    `json:"distressed"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		return VerificationResult{}, &ExternalProviderError{
			Provider: "completion",
			Err:      fmt.Errorf("parsing verify response: %w (response: %s)", err, responseText),
		}
	}
	return VerificationResult{
		Distressed: parsed.Distressed,
		Confidence: clamp01(parsed.Confidence),
		Reason:     strings.TrimSpace(parsed.Reason),
	}, nil
}

// EstimateVerification derives a flagged verification result from theme
// scores when no completion backend is available. Transparent
// estimation: Estimated is always true here.
func EstimateVerification(lx *Lexicon, scores []ThemeScore) VerificationResult {
	intensity := DistressIntensity(lx, scores)
	result := VerificationResult{
		Distressed: intensity >= 3.0,
		Confidence: clamp01(0.25 + intensity/20),
		Estimated:  true,
	}
	if result.Distressed {
		result.Reason = fmt.Sprintf("Estimated from qualitative distress intensity %.1f/10.", intensity)
	} else {
		result.Reason = "Estimated: no strong qualitative distress language detected."
	}
	return result
}

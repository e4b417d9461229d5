package main

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubCompletion struct {
	response string
	err      error
	prompts  []string
}

func (s *stubCompletion) Name() string { return "stub" }

func (s *stubCompletion) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.prompts = append(s.prompts, userPrompt)
	return s.response, s.err
}

func TestParseVerifyResponse(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"bare json", `{"distressed": true, "confidence": 0.85, "reason": "going concern doubt"}`},
		{"fenced json", "```json\n{\"distressed\": true, \"confidence\": 0.85, \"reason\": \"going concern doubt\"}\n```"},
		{"bare fence", "```\n{\"distressed\": true, \"confidence\": 0.85, \"reason\": \"going concern doubt\"}\n```"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseVerifyResponse(tc.response)
			if err != nil {
				t.Fatalf("parseVerifyResponse: %v", err)
			}
			if !got.Distressed || got.Confidence != 0.85 || got.Reason != "going concern doubt" {
				t.Fatalf("parsed = %+v", got)
			}
			if got.Estimated {
				t.Fatal("LLM-verified result must not be flagged estimated")
			}
		})
	}
}

func TestParseVerifyResponseClampsConfidence(t *testing.T) {
	got, err := parseVerifyResponse(`{"distressed": false, "confidence": 1.7, "reason": "x"}`)
	if err != nil {
		t.Fatalf("parseVerifyResponse: %v", err)
	}
	if got.Confidence != 1 {
		t.Fatalf("confidence = %v, want clamped to 1", got.Confidence)
	}
}

func TestParseVerifyResponseGarbage(t *testing.T) {
	var provErr *ExternalProviderError
	if _, err := parseVerifyResponse("the company seems fine to me"); !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want ExternalProviderError", err)
	}
}

func TestVerifyDistressNoProvider(t *testing.T) {
	var provErr *ExternalProviderError
	if _, err := VerifyDistress(context.Background(), nil, "ACME", nil); !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want ExternalProviderError", err)
	}
}

func TestVerifyDistressPromptIncludesEvidence(t *testing.T) {
	stub := &stubCompletion{response: `{"distressed": true, "confidence": 0.9, "reason": "insolvency filing"}`}
	snippets := []EvidenceSnippet{
		{Text: "Company filed for chapter 11 protection.", Source: "news:a"},
		{Text: "", Source: "news:empty"},
	}

	got, err := VerifyDistress(context.Background(), stub, "ACME", snippets)
	if err != nil {
		t.Fatalf("VerifyDistress: %v", err)
	}
	if !got.Distressed {
		t.Fatalf("result = %+v", got)
	}
	if len(stub.prompts) != 1 {
		t.Fatalf("provider called %d times, want 1", len(stub.prompts))
	}
	prompt := stub.prompts[0]
	if !strings.Contains(prompt, "ACME") || !strings.Contains(prompt, "chapter 11") {
		t.Fatalf("prompt missing ticker or evidence:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[news:a]") {
		t.Fatalf("prompt missing source attribution:\n%s", prompt)
	}
}

func TestVerifyDistressTruncatesLongSnippets(t *testing.T) {
	stub := &stubCompletion{response: `{"distressed": false, "confidence": 0.5, "reason": "x"}`}
	long := strings.Repeat("liquidity pressure ", 100)

	if _, err := VerifyDistress(context.Background(), stub, "ACME", []EvidenceSnippet{{Text: long, Source: "s"}}); err != nil {
		t.Fatalf("VerifyDistress: %v", err)
	}
	if !strings.Contains(stub.prompts[0], "...") {
		t.Fatal("long snippet not truncated in prompt")
	}
}

func TestEstimateVerification(t *testing.T) {
	lx := testLexicon(t)

	quiet := EstimateVerification(lx, NewScorer(lx, 0).Score(nil))
	if quiet.Distressed {
		t.Fatalf("zero severity estimated distressed: %+v", quiet)
	}
	if !quiet.Estimated {
		t.Fatal("estimate must be flagged Estimated")
	}

	loud := make([]ThemeScore, 0, len(lx.ThemeOrder()))
	for _, theme := range lx.ThemeOrder() {
		loud = append(loud, ThemeScore{Theme: theme, Severity: 0.9})
	}
	hot := EstimateVerification(lx, loud)
	if !hot.Distressed {
		t.Fatalf("high severity not estimated distressed: %+v", hot)
	}
	if hot.Confidence <= quiet.Confidence {
		t.Fatalf("confidence should rise with intensity: %v vs %v", hot.Confidence, quiet.Confidence)
	}
}

func TestNewCompletionProviderSelection(t *testing.T) {
	if p := NewCompletionProvider(Config{}); p != nil {
		t.Fatalf("no provider configured, got %T", p)
	}
	if p := NewCompletionProvider(Config{LLMProvider: "anthropic", AnthropicAPIKey: "k"}); p == nil || p.Name() != "anthropic" {
		t.Fatalf("anthropic provider not constructed: %v", p)
	}
	if p := NewCompletionProvider(Config{LLMProvider: "gateway", GatewayBaseURL: "http://localhost:9"}); p == nil || p.Name() != "gateway" {
		t.Fatalf("gateway provider not constructed: %v", p)
	}
}

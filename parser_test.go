package main

import (
	"errors"
	"testing"
	"time"
)

func testLexicon(t *testing.T) *Lexicon {
	t.Helper()
	lx, err := DefaultLexicon()
	if err != nil {
		t.Fatalf("DefaultLexicon: %v", err)
	}
	return lx
}

func snippet(text string) EvidenceSnippet {
	return EvidenceSnippet{Text: text, Source: "test", Timestamp: time.Now()}
}

func hitsForTheme(hits []ThemeHit, theme string) []ThemeHit {
	var out []ThemeHit
	for _, h := range hits {
		if h.Theme == theme {
			out = append(out, h)
		}
	}
	return out
}

func TestParsePositiveHit(t *testing.T) {
	p := NewParser(testLexicon(t), 0, 0)
	hits, err := p.Parse([]EvidenceSnippet{snippet("The company faces a liquidity crisis.")})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	liq := hitsForTheme(hits, "liquidity_concerns")
	if len(liq) == 0 {
		t.Fatal("expected liquidity_concerns hits")
	}
	for _, h := range liq {
		if h.Negated {
			t.Fatalf("hit %q unexpectedly negated", h.Phrase)
		}
		if h.Polarity != 1 {
			t.Fatalf("hit %q polarity = %v, want 1", h.Phrase, h.Polarity)
		}
		if h.Dampening != 1 {
			t.Fatalf("hit %q dampening = %v, want 1", h.Phrase, h.Dampening)
		}
		if h.SignedWeight() <= 0 {
			t.Fatalf("hit %q signed weight = %v, want > 0", h.Phrase, h.SignedWeight())
		}
	}
}

func TestParseNegatedHit(t *testing.T) {
	p := NewParser(testLexicon(t), 0, 0)
	hits, err := p.Parse([]EvidenceSnippet{snippet("The company did not face a liquidity crisis.")})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	liq := hitsForTheme(hits, "liquidity_concerns")
	if len(liq) == 0 {
		t.Fatal("expected liquidity_concerns hits")
	}
	for _, h := range liq {
		if !h.Negated {
			t.Fatalf("hit %q should be negated", h.Phrase)
		}
		if h.SignedWeight() >= 0 {
			t.Fatalf("negated hit %q signed weight = %v, want < 0", h.Phrase, h.SignedWeight())
		}
	}
}

func TestParseHedgeDampening(t *testing.T) {
	p := NewParser(testLexicon(t), 0, 0)
	hits, err := p.Parse([]EvidenceSnippet{snippet("The company may face a liquidity crisis.")})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	liq := hitsForTheme(hits, "liquidity_concerns")
	if len(liq) == 0 {
		t.Fatal("expected liquidity_concerns hits")
	}
	for _, h := range liq {
		if h.Negated {
			t.Fatalf("hedged hit %q should not be negated", h.Phrase)
		}
		if h.Dampening != defaultHedgeDampening {
			t.Fatalf("hit %q dampening = %v, want %v", h.Phrase, h.Dampening, defaultHedgeDampening)
		}
		if h.SignedWeight() >= h.BaseWeight*h.SeverityMult {
			t.Fatalf("hedged weight should be smaller than undampened weight")
		}
	}
}

func TestParseNearestCueWins(t *testing.T) {
	// "not" is further from the match than "may": the hedge wins.
	p := NewParser(testLexicon(t), 0, 0)
	hits, err := p.Parse([]EvidenceSnippet{snippet("The company will not collapse and may face a liquidity crisis.")})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	liq := hitsForTheme(hits, "liquidity_concerns")
	if len(liq) == 0 {
		t.Fatal("expected liquidity_concerns hits")
	}
	for _, h := range liq {
		if h.Negated {
			t.Fatalf("hit %q negated, want hedge to win over distant negation", h.Phrase)
		}
		if h.Dampening != defaultHedgeDampening {
			t.Fatalf("hit %q dampening = %v, want %v", h.Phrase, h.Dampening, defaultHedgeDampening)
		}
	}
}

func TestParseNegationOutsideWindow(t *testing.T) {
	p := NewParser(testLexicon(t), 0, 0)
	// "did not" sits more than six tokens before the phrase.
	text := "Management did not expect that the newly announced strategic partnership would resolve the liquidity crisis."
	hits, err := p.Parse([]EvidenceSnippet{snippet(text)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	liq := hitsForTheme(hits, "liquidity_concerns")
	if len(liq) == 0 {
		t.Fatal("expected liquidity_concerns hits")
	}
	for _, h := range liq {
		if h.Negated {
			t.Fatalf("hit %q negated by a cue outside the token window", h.Phrase)
		}
	}
}

func TestParseSeverityMultiplier(t *testing.T) {
	p := NewParser(testLexicon(t), 0, 0)

	plain, err := p.Parse([]EvidenceSnippet{snippet("The company reported a cash shortfall.")})
	if err != nil {
		t.Fatalf("Parse plain: %v", err)
	}
	severe, err := p.Parse([]EvidenceSnippet{snippet("The company reported a severe and material cash shortfall.")})
	if err != nil {
		t.Fatalf("Parse severe: %v", err)
	}

	if len(plain) == 0 || len(severe) == 0 {
		t.Fatal("expected hits in both sentences")
	}
	if severe[0].SeverityMult <= plain[0].SeverityMult {
		t.Fatalf("severity multiplier %v should exceed plain %v", severe[0].SeverityMult, plain[0].SeverityMult)
	}
}

func TestParseEmptySnippets(t *testing.T) {
	p := NewParser(testLexicon(t), 0, 0)
	hits, err := p.Parse([]EvidenceSnippet{snippet(""), snippet("   ")})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("empty snippets produced %d hits", len(hits))
	}
}

func TestParseUnanalyzableInput(t *testing.T) {
	p := NewParser(testLexicon(t), 0, 0)
	_, err := p.Parse([]EvidenceSnippet{snippet("12345 6789 !!!")})
	var unsupported *UnsupportedInputError
	if !errors.As(err, &unsupported) {
		t.Fatalf("err = %v, want UnsupportedInputError", err)
	}
}

func TestParseMixedAnalyzable(t *testing.T) {
	// One good snippet among garbage: no error, hits from the good one.
	p := NewParser(testLexicon(t), 0, 0)
	hits, err := p.Parse([]EvidenceSnippet{
		snippet("#### 1234"),
		snippet("Substantial doubt about the company's ability to continue."),
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(hitsForTheme(hits, "bankruptcy_language")) == 0 {
		t.Fatal("expected bankruptcy_language hit from the analyzable snippet")
	}
}

func TestLastWordIndexBoundaries(t *testing.T) {
	if idx := lastWordIndex("cannot pay", "not"); idx != -1 {
		t.Fatalf("lastWordIndex matched inside a word at %d", idx)
	}
	if idx := lastWordIndex("did not pay", "not"); idx != 4 {
		t.Fatalf("lastWordIndex = %d, want 4", idx)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Revenue fell 3.5 percent. Liquidity is tight!\nNew line here")
	want := []string{"Revenue fell 3.5 percent.", "Liquidity is tight!", "New line here"}
	if len(got) != len(want) {
		t.Fatalf("splitSentences = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

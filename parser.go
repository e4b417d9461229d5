package main

import (
	"strings"
	"unicode"
)

// Negation scope and hedge dampening are deliberate configuration
// constants, not tuned magic numbers. The window is counted in tokens
// preceding the matched phrase.
const (
	defaultNegationWindowTokens = 6
	defaultHedgeDampening       = 0.4
)

// Parser scans evidence snippets against the theme lexicon and emits
// signed, negation-aware theme hits. Pure: safe for concurrent use.
type Parser struct {
	lexicon        *Lexicon
	windowTokens   int
	hedgeDampening float64
}

func NewParser(lx *Lexicon, windowTokens int, hedgeDampening float64) *Parser {
	if windowTokens <= 0 {
		windowTokens = defaultNegationWindowTokens
	}
	if hedgeDampening <= 0 || hedgeDampening >= 1 {
		hedgeDampening = defaultHedgeDampening
	}
	return &Parser{lexicon: lx, windowTokens: windowTokens, hedgeDampening: hedgeDampening}
}

// Parse emits one ThemeHit per matched span. Empty snippets produce no
// hits. When every non-empty snippet is non-analyzable, the hit list is
// empty and an UnsupportedInputError is returned; callers treat it as a
// degraded-confidence signal, not a failure.
func (p *Parser) Parse(snippets []EvidenceSnippet) ([]ThemeHit, error) {
	var hits []ThemeHit
	nonEmpty := 0
	analyzable := 0
	badSource := ""

	for _, snip := range snippets {
		text := strings.TrimSpace(snip.Text)
		if text == "" {
			continue
		}
		nonEmpty++
		if !hasLetter(text) {
			if badSource == "" {
				badSource = snip.Source
			}
			continue
		}
		analyzable++
		for _, sentence := range splitSentences(text) {
			hits = append(hits, p.parseSentence(sentence, snip.Source)...)
		}
	}

	if nonEmpty > 0 && analyzable == 0 {
		return nil, &UnsupportedInputError{Source: badSource, Reason: "no analyzable text in evidence"}
	}
	return hits, nil
}

func (p *Parser) parseSentence(sentence, source string) []ThemeHit {
	low := strings.ToLower(sentence)
	sev := p.severityMultiplier(low)

	var out []ThemeHit
	for _, theme := range p.lexicon.ThemeOrder() {
		seen := make(map[string]bool)
		for _, pat := range p.lexicon.Themes[theme] {
			// At most two spans per pattern per sentence.
			locs := pat.re.FindAllStringIndex(low, 2)
			for _, loc := range locs {
				phrase := low[loc[0]:loc[1]]
				if seen[phrase] {
					continue
				}
				seen[phrase] = true

				hit := ThemeHit{
					Theme:        theme,
					Phrase:       phrase,
					Sentence:     sentence,
					Source:       source,
					BaseWeight:   pat.Weight,
					Polarity:     1,
					Dampening:    1,
					SeverityMult: sev,
				}
				switch p.nearestCue(low, loc[0]) {
				case cueStrong:
					hit.Polarity = -1
					hit.Negated = true
				case cueHedge:
					hit.Dampening = p.hedgeDampening
				}
				out = append(out, hit)
			}
		}
	}
	return out
}

type cueKind int

const (
	cueNone cueKind = iota
	cueStrong
	cueHedge
)

// nearestCue scans the token window preceding the match. When several
// cues fall in the window, the one ending closest to the match wins;
// on a tie the longer cue wins (so "did not" beats its inner "not").
func (p *Parser) nearestCue(low string, matchStart int) cueKind {
	window := lastTokens(low[:matchStart], p.windowTokens)
	if window == "" {
		return cueNone
	}

	best := cueNone
	bestEnd, bestLen := -1, -1
	consider := func(cue string, kind cueKind) {
		idx := lastWordIndex(window, cue)
		if idx < 0 {
			return
		}
		end := idx + len(cue)
		if end > bestEnd || (end == bestEnd && len(cue) > bestLen) {
			best, bestEnd, bestLen = kind, end, len(cue)
		}
	}
	for _, cue := range p.lexicon.StrongCues {
		consider(strings.ToLower(cue), cueStrong)
	}
	for _, cue := range p.lexicon.HedgeCues {
		consider(strings.ToLower(cue), cueHedge)
	}
	return best
}

func (p *Parser) severityMultiplier(low string) float64 {
	severe := 0
	for _, t := range p.lexicon.SeverityTerms {
		if strings.Contains(low, t) {
			severe++
		}
	}
	uncertain := 0
	for _, t := range p.lexicon.UncertaintyTerms {
		if strings.Contains(low, t) {
			uncertain++
		}
	}
	m := 1.0 + 0.18*float64(severe) - 0.10*float64(uncertain)
	if m < 0.65 {
		m = 0.65
	}
	if m > 1.8 {
		m = 1.8
	}
	return m
}

// lastTokens returns the final n whitespace-separated tokens of s.
func lastTokens(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[len(fields)-n:]
	}
	return strings.Join(fields, " ")
}

// lastWordIndex is strings.LastIndex restricted to word-boundary matches.
func lastWordIndex(s, sub string) int {
	if sub == "" {
		return -1
	}
	from := len(s)
	for from >= 0 {
		idx := strings.LastIndex(s[:from], sub)
		if idx < 0 {
			return -1
		}
		beforeOK := idx == 0 || !isWordByte(s[idx-1])
		afterPos := idx + len(sub)
		afterOK := afterPos >= len(s) || !isWordByte(s[afterPos])
		if beforeOK && afterOK {
			return idx
		}
		from = idx
	}
	return -1
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// splitSentences breaks text on sentence-final punctuation and newlines,
// collapsing runs of whitespace.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			out = append(out, s)
		}
		b.Reset()
	}

	runes := []rune(strings.TrimSpace(text))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return out
}

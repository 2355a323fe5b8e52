package redactor

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
)

type compiledPattern struct {
	re          *regexp.Regexp
	replacement string
	label       string
}

// format patterns, ordered. Earlier patterns win on overlaps so the
// personnummer pattern must come before the postal code one
var formatPatterns = []struct {
	pattern     string
	replacement string
	label       string
}{
	{`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`, "[EPOST]", "email"},
	{`\bhttps?://\S+|\bwww\.\S+`, "[WEBBADRESS]", "url"},
	{`\b(19|20)?\d{6}[-+]\d{4}\b`, "[PERSONNUMMER]", "personnummer"},
	{`(?:\+46|\b0)[\s\-]?\d{1,3}[\s\-]?\d{2,3}[\s\-]?\d{2}[\s\-]?\d{2}\b`, "[TELEFON]", "phone"},
	{`\b[A-Z]{3} ?\d{2}[A-Z0-9]\b`, "[REGNR]", "regplate"},
	{`\b\d{3} ?\d{2}\b`, "[POSTNUMMER]", "postal"},
}

var defaultInstitutionSuffixes = []string{
	"skolan", "gymnasiet", "universitetet", "högskolan", "sjukhuset",
	"kliniken", "vårdcentralen", "kommunen", "myndigheten", "förvaltningen",
}

// PatternDetector finds formatted identifiers and institution names
type PatternDetector struct {
	m        sync.RWMutex
	patterns []compiledPattern
}

// NewPatternDetector creates PatternDetector with built in patterns and
// optional custom rules
func NewPatternDetector(rules *Rules) *PatternDetector {
	d := &PatternDetector{}
	d.SetRules(rules)
	return d
}

// SetRules rebuilds the pattern list. Bad custom regexes are logged and skipped
func (d *PatternDetector) SetRules(rules *Rules) {
	patterns := make([]compiledPattern, 0)
	if rules != nil {
		for _, w := range rules.Words {
			if strings.TrimSpace(w.Text) == "" {
				continue
			}
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(w.Text) + `\b`)
			if err != nil {
				cmdapp.Log.Warnf("Skipping bad word rule '%s': %v", w.Text, err)
				continue
			}
			patterns = append(patterns, compiledPattern{re: re,
				replacement: orDefault(w.Replacement, "[MASKERAT]"), label: "word"})
		}
		for _, r := range rules.Patterns {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				cmdapp.Log.Warnf("Skipping bad pattern rule '%s': %v", r.Pattern, err)
				continue
			}
			patterns = append(patterns, compiledPattern{re: re,
				replacement: orDefault(r.Replacement, "[MASKERAT]"), label: "custom"})
		}
	}
	patterns = append(patterns, compiledPattern{re: institutionRegexp(rules),
		replacement: "[ORGANISATION]", label: "institution"})
	for _, fp := range formatPatterns {
		patterns = append(patterns, compiledPattern{re: regexp.MustCompile(fp.pattern),
			replacement: fp.replacement, label: fp.label})
	}

	d.m.Lock()
	defer d.m.Unlock()
	d.patterns = patterns
}

func institutionRegexp(rules *Rules) *regexp.Regexp {
	suffixes := defaultInstitutionSuffixes
	if rules != nil && len(rules.InstitutionSuffixes) > 0 {
		suffixes = rules.InstitutionSuffixes
	}
	return regexp.MustCompile(`\b\p{Lu}[\p{L}\-]*(` + strings.Join(suffixes, "|") + `)\b`)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Name returns detector name
func (d *PatternDetector) Name() string {
	return "pattern"
}

// Detect returns spans for pattern matches. Within the detector an
// earlier pattern wins overlapping later matches
func (d *PatternDetector) Detect(ctx context.Context, text string) ([]Span, error) {
	d.m.RLock()
	patterns := d.patterns
	d.m.RUnlock()

	toRune := byteToRuneIndex(text)
	res := make([]Span, 0)
	for _, p := range patterns {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			s := Span{Start: toRune[loc[0]], End: toRune[loc[1]],
				Replacement: p.replacement, Label: p.label, Score: 1}
			if overlaps(res, s) {
				continue
			}
			res = append(res, s)
		}
	}
	return res, nil
}

// byteToRuneIndex maps every byte offset of the text to its rune offset
func byteToRuneIndex(text string) []int {
	res := make([]int, len(text)+1)
	n := 0
	for i := range text {
		res[i] = n
		n++
	}
	res[len(text)] = n
	return res
}

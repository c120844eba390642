package usecases

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/planmetric/planmetric/internal/core/domain"
)

// TextScaleParser extracts scale notations from raw page text.
//
// Parsing is a two-step approach: first canonicalize the many Unicode
// quote/prime variants found in real PDFs, then apply tolerant patterns
// to the normalized text. Parsing never fails; unparseable text simply
// yields no candidates.
type TextScaleParser struct{}

// NewTextScaleParser creates a TextScaleParser.
func NewTextScaleParser() *TextScaleParser {
	return &TextScaleParser{}
}

// Architectural fractional scale: 1/8"=1'-0", 1 1/2" = 1'-0"
var archScaleRE = regexp.MustCompile(
	`(\d+(?: \d+)?/\d+)\s*["]?\s*=\s*(\d+)\s*[']\s*-?\s*(\d+)?\s*["]?`,
)

// Whole-inch scale: 1"=10'-0". The inch mark is required to disambiguate
// from bare ratios.
var wholeInchScaleRE = regexp.MustCompile(
	`(\d+)\s*["]\s*=\s*(\d+)\s*[']\s*-?\s*(\d+)?\s*["]?`,
)

// Ratio scale: 1:100 or 1/100. Slash ratios are validated against trailing
// context after matching because RE2 has no lookahead.
var ratioScaleRE = regexp.MustCompile(`1\s*[:/]\s*(\d+)`)

// Labeled form: SCALE: or SCALE =, case-insensitive.
var scaleLabelRE = regexp.MustCompile(`(?i)scale\s*[:=]`)

var quoteNormalizer = strings.NewReplacer(
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"″", `"`, // double prime
	"„", `"`, // double low-9 quote
	"«", `"`, // left guillemet
	"»", `"`, // right guillemet
	"''", `"`,
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"′", "'", // prime
)

var spaceCollapseRE = regexp.MustCompile(`[ \t]+`)

func normalizeScaleText(text string) string {
	return spaceCollapseRE.ReplaceAllString(quoteNormalizer.Replace(text), " ")
}

// Parse extracts all scale candidates from the page's text blocks, in
// reading order. Candidates whose source block sits in the bottom-right
// quadrant are marked as title-block matches with high confidence.
func (p *TextScaleParser) Parse(page *domain.Page) []domain.ScaleCandidate {
	var out []domain.ScaleCandidate
	for _, tb := range page.TextBlocks {
		cands := p.ParseText(tb.Text)
		if len(cands) == 0 {
			continue
		}
		if inTitleBlockQuadrant(tb.BBox, page.WidthPts, page.HeightPts) {
			for i := range cands {
				cands[i].Source = domain.ScaleSourceTitleBlock
				cands[i].Confidence = domain.ConfidenceHigh
			}
		}
		out = append(out, cands...)
	}
	return out
}

// ParseText extracts scale candidates from a flat string. All candidates
// carry Source text; quadrant promotion happens in Parse.
func (p *TextScaleParser) ParseText(text string) []domain.ScaleCandidate {
	normalized := normalizeScaleText(text)

	var out []domain.ScaleCandidate
	claimed := make([]bool, len(normalized))

	claim := func(lo, hi int) {
		for i := lo; i < hi && i < len(claimed); i++ {
			claimed[i] = true
		}
	}
	overlaps := func(lo, hi int) bool {
		for i := lo; i < hi && i < len(claimed); i++ {
			if claimed[i] {
				return true
			}
		}
		return false
	}

	// Fractional notations first: their "1/8" prefix would otherwise be
	// swallowed by the ratio pattern.
	for _, m := range archScaleRE.FindAllStringSubmatchIndex(normalized, -1) {
		cand, ok := parseFractionalMatch(normalized, m)
		if !ok {
			continue
		}
		claim(m[0], m[1])
		out = append(out, withLabelConfidence(normalized, m[0], cand))
	}

	for _, m := range wholeInchScaleRE.FindAllStringSubmatchIndex(normalized, -1) {
		if overlaps(m[0], m[1]) {
			continue
		}
		cand, ok := parseWholeInchMatch(normalized, m)
		if !ok {
			continue
		}
		claim(m[0], m[1])
		out = append(out, withLabelConfidence(normalized, m[0], cand))
	}

	for _, m := range ratioScaleRE.FindAllStringSubmatchIndex(normalized, -1) {
		if overlaps(m[0], m[1]) {
			continue
		}
		cand, ok := parseRatioMatch(normalized, m)
		if !ok {
			continue
		}
		claim(m[0], m[1])
		out = append(out, withLabelConfidence(normalized, m[0], cand))
	}

	return out
}

func parseFractionalMatch(text string, m []int) (domain.ScaleCandidate, bool) {
	frac := parseFraction(text[m[2]:m[3]])
	if frac <= 0 {
		return domain.ScaleCandidate{}, false
	}
	feet, _ := strconv.Atoi(text[m[4]:m[5]])
	inches := 0
	if m[6] >= 0 {
		inches, _ = strconv.Atoi(text[m[6]:m[7]])
	}
	realInches := float64(feet)*12 + float64(inches)
	if realInches <= 0 {
		return domain.ScaleCandidate{}, false
	}
	return domain.ScaleCandidate{
		ScaleFactor: realInches / frac,
		Source:      domain.ScaleSourceText,
		RawNotation: strings.TrimSpace(text[m[0]:m[1]]),
		Confidence:  domain.ConfidenceMedium,
	}, true
}

func parseWholeInchMatch(text string, m []int) (domain.ScaleCandidate, bool) {
	drawingInches, _ := strconv.ParseFloat(text[m[2]:m[3]], 64)
	if drawingInches <= 0 {
		return domain.ScaleCandidate{}, false
	}
	feet, _ := strconv.Atoi(text[m[4]:m[5]])
	inches := 0
	if m[6] >= 0 {
		inches, _ = strconv.Atoi(text[m[6]:m[7]])
	}
	realInches := float64(feet)*12 + float64(inches)
	if realInches <= 0 {
		return domain.ScaleCandidate{}, false
	}
	return domain.ScaleCandidate{
		ScaleFactor: realInches / drawingInches,
		Source:      domain.ScaleSourceText,
		RawNotation: strings.TrimSpace(text[m[0]:m[1]]),
		Confidence:  domain.ConfidenceMedium,
	}, true
}

func parseRatioMatch(text string, m []int) (domain.ScaleCandidate, bool) {
	// A slash ratio followed by an inch/foot mark or equals sign is really
	// an architectural fraction that failed the fractional grammar.
	if m[1] < len(text) {
		switch text[m[1]] {
		case '"', '\'', '=':
			return domain.ScaleCandidate{}, false
		}
	}
	r, _ := strconv.Atoi(text[m[2]:m[3]])
	if r <= 1 {
		return domain.ScaleCandidate{}, false
	}
	return domain.ScaleCandidate{
		ScaleFactor: float64(r),
		Source:      domain.ScaleSourceText,
		RawNotation: strings.TrimSpace(text[m[0]:m[1]]),
		Confidence:  domain.ConfidenceMedium,
	}, true
}

// withLabelConfidence promotes a candidate to high confidence when the
// notation directly follows a SCALE: / SCALE = label.
func withLabelConfidence(text string, start int, cand domain.ScaleCandidate) domain.ScaleCandidate {
	windowStart := start - 12
	if windowStart < 0 {
		windowStart = 0
	}
	if loc := scaleLabelRE.FindStringIndex(text[windowStart:start]); loc != nil {
		rest := strings.TrimSpace(text[windowStart+loc[1] : start])
		rest = strings.Trim(rest, `"' `)
		if rest == "" {
			cand.Confidence = domain.ConfidenceHigh
		}
	}
	return cand
}

// parseFraction parses "1/8", "3/16", or mixed numbers like "1 1/2" into
// a float, returning 0 on malformed input.
func parseFraction(s string) float64 {
	s = strings.TrimSpace(s)
	whole := 0.0
	if i := strings.IndexByte(s, ' '); i >= 0 {
		w, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return 0
		}
		whole = w
		s = s[i+1:]
	}
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return whole + v
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return whole + n/d
}

// inTitleBlockQuadrant reports whether a block's center lies in the
// bottom-right quadrant, where drawing sheets conventionally carry the
// title block.
func inTitleBlockQuadrant(bbox domain.Rect, pageW, pageH float64) bool {
	if pageW <= 0 || pageH <= 0 {
		return false
	}
	c := bbox.Center()
	return c.X >= pageW/2 && c.Y >= pageH/2
}

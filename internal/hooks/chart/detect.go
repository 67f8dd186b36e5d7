package chart

import (
	"regexp"
	"strconv"
	"strings"
)

// Series is the numeric data extracted from response text.
type Series struct {
	Labels []string
	Values []float64
}

// minPoints is the smallest series worth charting. A single number in prose
// is almost never tabular data.
const minPoints = 2

var (
	// "Q1: 64", "Revenue = 1,204.5", "- March: $12" style labelled values
	labelledPair = regexp.MustCompile(`(?m)^[\s*\-•]*([A-Za-z][A-Za-z0-9 ._/%()&-]{0,31}?)\s*[:=]\s*\$?(-?\d{1,3}(?:,\d{3})*(?:\.\d+)?|-?\d+(?:\.\d+)?)\s*%?\s*$`)

	// bare numeric tokens, used only as a fallback
	bareNumber = regexp.MustCompile(`-?\d{1,3}(?:,\d{3})*(?:\.\d+)?|-?\d+(?:\.\d+)?`)
)

// Detect extracts a numeric series from response text. Labelled pairs on
// their own lines are preferred; when none are present, three or more bare
// numbers are treated as an unlabelled series. Returns nil when the text
// does not warrant a chart.
func Detect(text string) *Series {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if s := detectLabelled(text); s != nil {
		return s
	}
	return detectBare(text)
}

func detectLabelled(text string) *Series {
	matches := labelledPair.FindAllStringSubmatch(text, -1)
	if len(matches) < minPoints {
		return nil
	}
	s := &Series{}
	for _, m := range matches {
		v, err := parseNumber(m[2])
		if err != nil {
			continue
		}
		s.Labels = append(s.Labels, strings.TrimSpace(m[1]))
		s.Values = append(s.Values, v)
	}
	if len(s.Values) < minPoints {
		return nil
	}
	return s
}

// detectBare requires a denser signal than labelled pairs: prose routinely
// mentions one or two numbers without describing a data set.
func detectBare(text string) *Series {
	tokens := bareNumber.FindAllString(text, -1)
	if len(tokens) < 3 {
		return nil
	}
	s := &Series{}
	for i, tok := range tokens {
		v, err := parseNumber(tok)
		if err != nil {
			continue
		}
		s.Labels = append(s.Labels, "#"+strconv.Itoa(i+1))
		s.Values = append(s.Values, v)
	}
	if len(s.Values) < 3 {
		return nil
	}
	return s
}

func parseNumber(tok string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(tok, ",", ""), 64)
}

package ocr

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b|\b20\d{2}-\d{2}-\d{2}\b`)
	reCurr   = regexp.MustCompile(`\b(usd|eur|gbp|cad|aud|inr|jpy)\b|[$£€]`)
	reAmount = regexp.MustCompile(`\b\d{1,3}(,\d{3})*(\.\d{2})\b|\b\d+\.\d{2}\b`)
)

// meanTSVConfidence parses tesseract TSV output and returns the mean word
// confidence scaled to 0..1. Returns 0 when no confident words are present.
func meanTSVConfidence(tsv string) float32 {
	lines := strings.Split(tsv, "\n")
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue // skip header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue // short row
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / n // 0..100
	return float32(mean / 100.0)
}

// heuristicConfidence scores recovered text by how receipt-like it looks.
// Each common receipt artifact (date-ish, currency-ish, amount-ish) adds a
// little on top of a low base.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reCurr.MatchString(txtL) {
		score += 0.15
	}
	if reAmount.MatchString(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1 // enough content
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

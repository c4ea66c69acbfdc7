package parsers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/wayfarer-planner/server/internal/agent/model"
	errx "github.com/wayfarer-planner/server/internal/core/error"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

// basic safety limits to avoid pathological model output
const (
	maxContentLen  = 16 * 1024
	maxCountryLen  = 80
	maxErrSnippet  = 200
	llmServiceName = "chat model"
)

var (
	iataExact  = regexp.MustCompile(`^[A-Z]{3}$`)
	iataToken  = regexp.MustCompile(`\b[A-Z]{3}\b`)
	labelRe    = regexp.MustCompile(`(?i)^(country|destination|answer|recommendation)\s*:\s*`)
	edgePunct  = "\"'`*_.,;:!()[] \t"
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// Clean normalises free-text model output: valid UTF-8, bounded length,
// no reasoning block, trimmed.
func Clean(content string) string {
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "")
	}
	content = thinkBlock.ReplaceAllString(content, "")
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "answer_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
		content = strings.ToValidUTF8(content, "")
	}
	return strings.TrimSpace(content)
}

// ParseCountry extracts a single country name from a recommendation.
func ParseCountry(content string) (string, error) {
	line := firstLine(Clean(content))
	line = labelRe.ReplaceAllString(line, "")
	line = strings.Trim(line, edgePunct)
	if line == "" {
		return "", errx.Malformed(llmServiceName, fmt.Errorf("empty country recommendation"))
	}
	if utf8.RuneCountInString(line) > maxCountryLen {
		return "", errx.Malformed(llmServiceName, fmt.Errorf("country recommendation too long: %s", safeSnippet(line)))
	}
	return line, nil
}

// ParseAirportCode returns a three-letter IATA code, or model.NotFoundCode
// when the answer does not contain exactly one recognisable code.
func ParseAirportCode(content string) string {
	text := Clean(content)
	if strings.Contains(strings.ToUpper(text), model.NotFoundCode) {
		return model.NotFoundCode
	}

	candidate := strings.ToUpper(strings.Trim(firstLine(text), edgePunct))
	if iataExact.MatchString(candidate) {
		return candidate
	}

	tokens := iataToken.FindAllString(text, -1)
	if len(tokens) == 1 {
		return tokens[0]
	}
	logx.Debug().Str("component", "answer_parser").Str("answer", safeSnippet(text)).Msg("no airport code in answer")
	return model.NotFoundCode
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func safeSnippet(s string) string {
	if len(s) <= maxErrSnippet {
		return s
	}
	return strings.ToValidUTF8(s[:maxErrSnippet], "") + "..."
}

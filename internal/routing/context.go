package routing

import (
	"regexp"
	"strings"

	"github.com/rohankatakam/bugrouter/internal/models"
)

var (
	// filePattern matches file paths carrying a known source extension.
	// Longer extensions come first so leftmost-first alternation picks
	// "cpp" over "c".
	filePattern = regexp.MustCompile(`(?i)[\w/\-.]+\.(?:java|cpp|py|js|ts|go|rs|c|h)`)

	// functionPattern matches declaration-like and call-like tokens
	// across common language styles.
	functionPattern = regexp.MustCompile(`def\s+(\w+)|function\s+(\w+)|(\w+)\s*\(`)

	// errorPattern matches conventional error/exception type names.
	errorPattern = regexp.MustCompile(`\w*Error|\w*Exception`)
)

// areaKeywords is the fixed controlled vocabulary mapping technical
// area tags to the keywords that imply them.
var areaKeywords = map[string][]string{
	"authentication": {"auth", "login", "token", "jwt", "oauth"},
	"database":       {"sql", "query", "database", "db", "migration"},
	"api":            {"api", "endpoint", "rest", "graphql", "request"},
	"frontend":       {"ui", "component", "render", "dom", "css"},
	"backend":        {"server", "service", "worker", "job", "queue"},
	"security":       {"security", "vulnerability", "xss", "csrf", "injection"},
	"performance":    {"slow", "performance", "memory", "cpu", "optimization"},
}

// areaOrder fixes iteration order over areaKeywords so extracted area
// lists are reproducible.
var areaOrder = []string{
	"authentication", "database", "api", "frontend",
	"backend", "security", "performance",
}

// ExtractContext pulls technical signals out of a bug report's free
// text: mentioned files, function-like tokens, error types, and matched
// technical-area tags.
func ExtractContext(report models.BugReport) *models.BugContext {
	text := report.Title + " " + report.Description

	context := &models.BugContext{
		MentionedFiles:     []string{},
		MentionedFunctions: []string{},
		ErrorTypes:         []string{},
		AffectedAreas:      []string{},
	}

	files := filePattern.FindAllString(text, -1)
	if report.StackTrace != "" {
		files = append(files, filePattern.FindAllString(report.StackTrace, -1)...)
	}
	context.MentionedFiles = dedupe(files)

	for _, groups := range functionPattern.FindAllStringSubmatch(text, -1) {
		for _, name := range groups[1:] {
			if name != "" {
				context.MentionedFunctions = append(context.MentionedFunctions, name)
			}
		}
	}

	context.ErrorTypes = errorPattern.FindAllString(text, -1)
	if context.ErrorTypes == nil {
		context.ErrorTypes = []string{}
	}

	textLower := strings.ToLower(text)
	for _, area := range areaOrder {
		for _, keyword := range areaKeywords[area] {
			if strings.Contains(textLower, keyword) {
				context.AffectedAreas = append(context.AffectedAreas, area)
				break
			}
		}
	}

	return context
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Package usage implements UsagePatterns and FactExtractor (SPEC_FULL.md
// §4.9): tool-invocation aggregation and provenance-tagged fact extraction
// from agent observation traces, both feeding MemoryGovernance.
package usage

import "regexp"

var (
	fileRegex       = regexp.MustCompile(`\b[\w\-]+\.(go|js|ts|tsx|jsx|py|java|cpp|h|hpp|c|rs|rb|php|cs|kt|swift|md|json|yaml|yml|sql|sh)\b`)
	functionRegex   = regexp.MustCompile(`\b([a-zA-Z_][a-zA-Z0-9_]*)\s*\(`)
	importRegex     = regexp.MustCompile(`(?m)^\s*(?:import|require)\s+[\("]?([\w./\-]+)`)
	pascalCaseRegex = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]*[a-z][a-zA-Z0-9]*\b`)
)

// Entities is the result of extracting structured mentions out of free
// text — the initialContext extraction of spec.md §4.6 step 4. Grounded on
// the teacher's internal/intelligence/extractors.go (BasicEntityExtractor's
// file/function regexes, BasicConceptExtractor's PascalCase detector),
// narrowed to the four categories spec.md names: filenames, function/class
// identifiers, imports, and PascalCase concepts.
type Entities struct {
	Files     []string
	Functions []string
	Imports   []string
	Concepts  []string
}

// ExtractEntities regex-scans text for the four entity categories. An
// AST-based extractor would catch more identifiers precisely, but spec.md
// §4.6 step 4 allows regex-only extraction as an acceptable equivalent.
func ExtractEntities(text string) Entities {
	return Entities{
		Files:     uniqueMatches(fileRegex.FindAllString(text, -1)),
		Functions: uniqueGroupMatches(functionRegex.FindAllStringSubmatch(text, -1), 1),
		Imports:   uniqueGroupMatches(importRegex.FindAllStringSubmatch(text, -1), 1),
		Concepts:  uniqueMatches(pascalCaseRegex.FindAllString(text, -1)),
	}
}

func uniqueMatches(matches []string) []string {
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func uniqueGroupMatches(matches [][]string, group int) []string {
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) <= group {
			continue
		}
		v := m[group]
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

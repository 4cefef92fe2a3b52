package indexer

import (
	"path/filepath"
	"strings"
)

// packContent splits content into chunks by line, greedily packing lines up
// to maxChars per chunk while never splitting a line, then drops any chunk
// with fewer than minNonWhitespace non-whitespace characters (spec.md §4.4
// step 5). Grounded on the teacher's conversation-splitting accumulate-
// until-threshold idiom (formerly internal/chunking's splitConversation),
// generalized from conversational boundary patterns to plain line packing.
func packContent(content string, maxChars, minNonWhitespace int) []string {
	lines := strings.Split(content, "\n")
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		text := current.String()
		if countNonWhitespace(text) >= minNonWhitespace {
			chunks = append(chunks, text)
		}
		current.Reset()
	}

	for _, line := range lines {
		if current.Len() > 0 && current.Len()+len(line)+1 > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	flush()

	return chunks
}

func countNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !strings.ContainsRune(" \t\n\r", r) {
			n++
		}
	}
	return n
}

// languageForPath derives a language tag from a file extension, best-effort.
func languageForPath(path string) string {
	switch filepath.Ext(path) {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".rb":
		return "ruby"
	case ".c", ".h":
		return "c"
	case ".cpp", ".hpp", ".cc":
		return "cpp"
	case ".md":
		return "markdown"
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".sh":
		return "shell"
	default:
		return ""
	}
}

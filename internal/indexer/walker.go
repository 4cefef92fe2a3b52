package indexer

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// defaultIncludeExtensions covers common source/doc extensions (spec.md §4.4
// step 2's "defaults cover common code extensions").
var defaultIncludeExtensions = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".rs": true, ".java": true, ".rb": true, ".c": true,
	".h": true, ".cpp": true, ".hpp": true, ".cc": true, ".md": true,
	".yaml": true, ".yml": true, ".json": true, ".sh": true, ".sql": true,
}

// defaultExcludeDirs excludes VCS directories and common build artifacts.
var defaultExcludeDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "dist": true,
	"build": true, "target": true, ".next": true, ".venv": true,
	"__pycache__": true, ".idea": true, ".vscode": true,
}

var defaultExcludeFiles = map[string]bool{
	"package-lock.json": true, "yarn.lock": true, "pnpm-lock.yaml": true,
	"go.sum": true, "Cargo.lock": true,
}

// walkProject returns every indexable file's path relative to root.
func walkProject(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && defaultExcludeDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if defaultExcludeFiles[d.Name()] {
			return nil
		}
		if !defaultIncludeExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

package utils

import (
	"path/filepath"
	"strings"
)

// SourceInfo resolves relPath and returns its absolute form and the file
// name without its extension, e.g. "src/fact.c" -> (".../src/fact.c", "fact").
func SourceInfo(relPath string) (fullPath string, stem string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}
	base := filepath.Base(fullPath)
	stem = strings.TrimSuffix(base, filepath.Ext(base))
	return fullPath, stem, nil
}

package parse

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePath checks that inputPath stays within allowedBaseDir.
// Uses filepath.Abs and filepath.EvalSymlinks so a symlinked upload cannot
// escape the base directory.
func ValidatePath(inputPath, allowedBaseDir string) (string, error) {
	absInput, err := filepath.Abs(inputPath)
	if err != nil {
		return "", fmt.Errorf("invalid input path: %w", err)
	}

	absBase, err := filepath.Abs(allowedBaseDir)
	if err != nil {
		return "", fmt.Errorf("invalid base directory: %w", err)
	}

	resolvedInput, err := filepath.EvalSymlinks(absInput)
	if err != nil {
		return "", fmt.Errorf("cannot resolve input path: %w", err)
	}

	resolvedBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return "", fmt.Errorf("cannot resolve base directory: %w", err)
	}

	rel, err := filepath.Rel(resolvedBase, resolvedInput)
	if err != nil {
		return "", fmt.Errorf("cannot compute relative path: %w", err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s", rel)
	}

	return resolvedInput, nil
}

// ReadFile reads an input file from within allowedBaseDir and labels the
// resulting Input with the file's base name
func ReadFile(inputPath, allowedBaseDir string) (Input, error) {
	resolved, err := ValidatePath(inputPath, allowedBaseDir)
	if err != nil {
		return Input{}, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return Input{}, fmt.Errorf("file does not exist: %w", err)
	}
	if info.IsDir() {
		return Input{}, fmt.Errorf("path is a directory, not a file: %s", resolved)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return Input{}, fmt.Errorf("failed to read file: %w", err)
	}

	return Input{Source: filepath.Base(resolved), Text: string(data)}, nil
}

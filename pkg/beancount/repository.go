package beancount

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shunichi-ikebuchi/ledger-options/pkg/pathutil"
)

// Repository defines the interface for Beancount file operations.
type Repository interface {
	// Load reads a ledger file and every file it includes
	Load(path string) (*Ledger, error)

	// InsertText inserts text before the 0-based line lineIndex of a file
	InsertText(path string, lineIndex int, text string) (int, error)

	// AppendText appends text to the end of a file
	AppendText(path, text string) error
}

// FileSystemRepository is a file system implementation of Repository.
type FileSystemRepository struct {
	pathResolver *pathutil.PathResolver
}

// NewFileSystemRepository creates a new FileSystemRepository.
func NewFileSystemRepository(pathResolver *pathutil.PathResolver) *FileSystemRepository {
	return &FileSystemRepository{
		pathResolver: pathResolver,
	}
}

// Load reads the ledger at path. Includes are followed depth first, relative
// to the including file, with glob patterns expanded; each file is read once.
// Failing to read the main file is an error. Unreadable includes and malformed
// directive lines are collected in Ledger.Errors.
func (r *FileSystemRepository) Load(path string) (*Ledger, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ledger path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	ledger := &Ledger{}
	seen := map[string]bool{absPath: true}
	r.readFile(ledger, absPath, data, seen)

	return ledger, nil
}

func (r *FileSystemRepository) readFile(ledger *Ledger, path string, data []byte, seen map[string]bool) {
	ledger.Files = append(ledger.Files, path)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		pos := Position{Filename: path, Line: lineno}

		if target, ok, err := parseIncludeLine(line); ok {
			if err != nil {
				ledger.Errors = append(ledger.Errors, ParseError{Pos: pos, Message: err.Error()})
				continue
			}
			r.include(ledger, pos, target, seen)
			continue
		}

		custom, ok, err := parseCustomLine(line)
		if !ok {
			continue
		}
		if err != nil {
			ledger.Errors = append(ledger.Errors, ParseError{Pos: pos, Message: err.Error()})
			continue
		}
		custom.Pos = pos
		ledger.Customs = append(ledger.Customs, custom)
	}

	if err := scanner.Err(); err != nil {
		ledger.Errors = append(ledger.Errors, ParseError{
			Pos:     Position{Filename: path, Line: lineno},
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}
}

func (r *FileSystemRepository) include(ledger *Ledger, pos Position, target string, seen map[string]bool) {
	pattern := r.pathResolver.ResolveFrom(pos.Filename, target)

	matches, err := filepath.Glob(pattern)
	if err != nil {
		ledger.Errors = append(ledger.Errors, ParseError{Pos: pos, Message: fmt.Sprintf("invalid include pattern %q: %v", target, err)})
		return
	}
	if len(matches) == 0 {
		ledger.Errors = append(ledger.Errors, ParseError{Pos: pos, Message: fmt.Sprintf("file %q does not exist", pattern)})
		return
	}

	for _, match := range matches {
		if seen[match] {
			continue
		}
		seen[match] = true

		data, err := os.ReadFile(match)
		if err != nil {
			ledger.Errors = append(ledger.Errors, ParseError{Pos: pos, Message: fmt.Sprintf("failed to read included file: %v", err)})
			continue
		}
		r.readFile(ledger, match, data, seen)
	}
}

// InsertText inserts text before the 0-based line lineIndex, followed by a
// blank line. An index past the end appends. It returns the number of lines
// added to the file.
func (r *FileSystemRepository) InsertText(path string, lineIndex int, text string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	lines := strings.SplitAfter(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if lineIndex < 0 || lineIndex > len(lines) {
		lineIndex = len(lines)
	}

	block := strings.TrimRight(text, "\n") + "\n\n"
	if lineIndex == len(lines) && lineIndex > 0 && !strings.HasSuffix(lines[lineIndex-1], "\n") {
		block = "\n" + block
	}

	var content strings.Builder
	for _, line := range lines[:lineIndex] {
		content.WriteString(line)
	}
	content.WriteString(block)
	for _, line := range lines[lineIndex:] {
		content.WriteString(line)
	}

	if err := os.WriteFile(path, []byte(content.String()), 0644); err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	return strings.Count(block, "\n"), nil
}

// AppendText appends text to the end of a file, separated by a blank line.
// It creates the file (and its directory) if it doesn't exist.
func (r *FileSystemRepository) AppendText(path, text string) error {
	if err := r.pathResolver.EnsureParentDir(path); err != nil {
		return fmt.Errorf("failed to ensure parent directory: %w", err)
	}

	// Prepare content to append
	content := "\n" + text
	if len(text) > 0 && text[len(text)-1] != '\n' {
		content += "\n"
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file for appending: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	return nil
}

package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrFileNotFound is returned when a validated path does not exist
	ErrFileNotFound = errors.New("file does not exist")
	// ErrNotWorkbook is returned for paths that are not .xlsx workbooks
	ErrNotWorkbook = errors.New("not an Excel workbook")
)

// FileValidator checks the pipeline's input and output paths before they are used
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks if a specific file exists and is readable.
// A missing file yields an error wrapping ErrFileNotFound.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("%s: %w", path, ErrFileNotFound)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateExcelFile checks that path is an existing, non-temporary .xlsx workbook
func (v *FileValidator) ValidateExcelFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		v.logger.Error("File is not an Excel workbook",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("%s (extension %q): %w", path, ext, ErrNotWorkbook)
	}

	// Lock files left behind by Excel
	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Refusing temporary Excel file",
			slog.String("file", path))
		return fmt.Errorf("%s is a temporary Excel file: %w", path, ErrNotWorkbook)
	}

	return nil
}

// ValidateOutputFile ensures the parent directory of an output file exists
// and that the path itself is not a directory.
func (v *FileValidator) ValidateOutputFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		v.logger.Error("Output path is a directory",
			slog.String("path", path))
		return fmt.Errorf("output path %s is a directory", path)
	}

	return nil
}

// IsNotFound reports whether err stems from a missing file
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFileNotFound)
}

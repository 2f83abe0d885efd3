package common

import (
	"fmt"
	"os"
	"path/filepath"

	"atsforge/internal/errors"
	"atsforge/internal/utils"
)

// FileProcessor handles file operations with proper error handling
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile reads a file with proper error handling and logging
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	if fp.logger != nil {
		fp.logger.Debug("Reading file", "filename", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}

	if fp.logger != nil {
		fp.logger.Debug("File read successfully",
			"filename", filename,
			"size", utils.FormatFileSize(int64(len(data))))
	}

	return data, nil
}

// WriteFile writes data to a file, creating parent directories as needed
func (fp *FileProcessor) WriteFile(filename string, data []byte) error {
	if fp.logger != nil {
		fp.logger.Debug("Writing file", "filename", filename, "size", len(data))
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError(errors.ErrCodeFileNotReadable,
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	if fp.logger != nil {
		fp.logger.Info("File written successfully", "filename", filename)
	}

	return nil
}

// ValidateAndReadFiles validates and reads multiple input files
func (fp *FileProcessor) ValidateAndReadFiles(filenames ...string) ([]string, error) {
	contents := make([]string, 0, len(filenames))

	for _, filename := range filenames {
		if err := utils.ValidateInputFile(filename); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("Input file validation failed: %s", filename), err)
		}

		if !utils.IsTextFile(filename) && fp.logger != nil {
			fp.logger.Warn("File may not be a text file", "filename", filename)
		}

		data, err := fp.ReadFile(filename)
		if err != nil {
			return nil, err
		}

		contents = append(contents, string(data))
	}

	return contents, nil
}

// ValidateOutputFile validates the output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Output file validation failed: %s", filename), err)
	}
	return nil
}

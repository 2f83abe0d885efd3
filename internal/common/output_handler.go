package common

import (
	"fmt"

	"atsforge/internal/errors"
	"atsforge/internal/formatters"
)

// CommandConfig holds common command configuration
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler handles formatting and writing command output
type OutputHandler struct {
	logger        *errors.Logger
	fileProcessor *FileProcessor
}

// NewOutputHandler creates a new output handler
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		logger:        logger,
		fileProcessor: NewFileProcessor(logger),
	}
}

// HandleOutput formats the data and writes it to the configured destination
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	output, err := formatters.GlobalRegistry.Format(data, config.OutputFormat)
	if err != nil {
		return err
	}

	if config.OutputFile != "" {
		if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
			return err
		}
		return oh.fileProcessor.WriteFile(config.OutputFile, []byte(output))
	}

	fmt.Print(output)
	return nil
}

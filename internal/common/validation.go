package common

import (
	"fmt"
	"slices"
)

// ValidateOutputFormat checks that the requested format is in the supported
// list. An empty list allows any format.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil
	}
	if slices.Contains(supportedFormats, format) {
		return nil
	}
	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats)
}

// GetSupportedFormats returns the supported output formats
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}

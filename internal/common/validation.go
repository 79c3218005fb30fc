package common

import (
	"fmt"
	"slices"
)

// tailoredOnlyFormats only make sense for commands that produce a tailored résumé
var tailoredOnlyFormats = []string{"resume"}

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ValidateCommandFormat is ValidateOutputFormat plus a check that the format
// fits the command. Only tailoring commands may emit the bare résumé.
func ValidateCommandFormat(format string, supportedFormats []string, tailoring bool) error {
	if err := ValidateOutputFormat(format, supportedFormats); err != nil {
		return err
	}
	if !tailoring && slices.Contains(tailoredOnlyFormats, format) {
		return fmt.Errorf("output format '%s' is only available when tailoring", format)
	}
	return nil
}

// GetSupportedFormats returns the formats a command accepts
func GetSupportedFormats(supportedFormats []string, tailoring bool) []string {
	if tailoring {
		return supportedFormats
	}
	formats := make([]string, 0, len(supportedFormats))
	for _, f := range supportedFormats {
		if !slices.Contains(tailoredOnlyFormats, f) {
			formats = append(formats, f)
		}
	}
	return formats
}

package common

import (
	"context"
	"fmt"
	"io"
	"os"

	"atstailor/internal/errors"
	"atstailor/internal/formatters"
	"atstailor/internal/storage"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	store    *storage.Store
	registry *formatters.FormatterRegistry
	out      io.Writer
	logger   *errors.Logger
}

// NewOutputHandler creates a new output handler writing to stdout or the store
func NewOutputHandler(store *storage.Store, logger *errors.Logger) *OutputHandler {
	if logger == nil {
		logger = errors.Discard()
	}
	return &OutputHandler{
		store:    store,
		registry: formatters.GlobalRegistry,
		out:      os.Stdout,
		logger:   logger,
	}
}

// WithWriter replaces stdout
func (oh *OutputHandler) WithWriter(w io.Writer) *OutputHandler {
	oh.out = w
	return oh
}

// HandleOutput formats data and writes it to the specified output
func (oh *OutputHandler) HandleOutput(ctx context.Context, data any, config CommandConfig) error {
	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	if config.OutputFile == "" {
		_, err := io.WriteString(oh.out, output)
		return err
	}

	if err := oh.store.Put(ctx, config.OutputFile, []byte(output), ContentType(config.OutputFormat)); err != nil {
		return err
	}
	oh.logger.Info("Output written successfully",
		"file", config.OutputFile, "format", config.OutputFormat)
	return nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}

// ContentType maps an output format to the MIME type used for uploads
func ContentType(format string) string {
	switch format {
	case "json":
		return "application/json"
	case "markdown":
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

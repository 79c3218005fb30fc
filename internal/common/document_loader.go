package common

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"atstailor/internal/documents"
	"atstailor/internal/errors"
	"atstailor/internal/storage"
)

// StdinArg reads a document from standard input
const StdinArg = "-"

// Document is an input whose text has been extracted
type Document struct {
	Source string
	Kind   documents.Kind
	Text   string
}

// DocumentLoader reads local files, s3 objects and stdin and extracts their text
type DocumentLoader struct {
	store   *storage.Store
	stdin   io.Reader
	maxSize int64
	logger  *errors.Logger
}

// NewDocumentLoader creates a new document loader instance
func NewDocumentLoader(store *storage.Store, maxSize int64, logger *errors.Logger) *DocumentLoader {
	if logger == nil {
		logger = errors.Discard()
	}
	return &DocumentLoader{store: store, stdin: os.Stdin, maxSize: maxSize, logger: logger}
}

// WithStdin replaces the reader used for the "-" argument
func (dl *DocumentLoader) WithStdin(r io.Reader) *DocumentLoader {
	dl.stdin = r
	return dl
}

// Load reads one document and extracts its text
func (dl *DocumentLoader) Load(ctx context.Context, uri string) (Document, error) {
	if uri == StdinArg {
		return dl.loadStdin()
	}

	obj, err := dl.store.Open(ctx, uri)
	if err != nil {
		return Document{}, err
	}

	kind, err := documents.Detect(obj.Location.Name(), obj.ContentType)
	if err != nil {
		return Document{}, err
	}
	text, err := documents.ExtractAs(obj.Location.Name(), obj.ContentType, obj.Data)
	if err != nil {
		return Document{}, err
	}

	dl.logger.Debug("Loaded document",
		"source", obj.Location.String(), "kind", kind, "size", FormatFileSize(int64(len(obj.Data))))
	return Document{Source: obj.Location.String(), Kind: kind, Text: text}, nil
}

func (dl *DocumentLoader) loadStdin() (Document, error) {
	reader := dl.stdin
	if dl.maxSize > 0 {
		reader = io.LimitReader(reader, dl.maxSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return Document{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read standard input", err)
	}
	if dl.maxSize > 0 && int64(len(data)) > dl.maxSize {
		return Document{}, errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("Standard input exceeds %s", FormatFileSize(dl.maxSize)), nil)
	}
	// stdin is plain text unless it looks like a PDF
	name := "stdin.txt"
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		name = "stdin.pdf"
	}
	text, err := documents.Extract(name, data)
	if err != nil {
		return Document{}, err
	}
	kind, _ := documents.Detect(name, "")
	return Document{Source: "stdin", Kind: kind, Text: text}, nil
}

// LoadAll reads every argument in order. Standard input may be used once.
func (dl *DocumentLoader) LoadAll(ctx context.Context, uris ...string) ([]Document, error) {
	stdinUsed := false
	docs := make([]Document, len(uris))
	for i, uri := range uris {
		if strings.TrimSpace(uri) == "" {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidInput, "Input path cannot be empty", nil)
		}
		if uri == StdinArg {
			if stdinUsed {
				return nil, errors.NewValidationError(errors.ErrCodeInvalidInput,
					"Standard input can only be used for one document", nil)
			}
			stdinUsed = true
		}
		doc, err := dl.Load(ctx, uri)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}
	return docs, nil
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// Package documents turns uploaded résumé and job files into plain text.
package documents

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"atstailor/internal/errors"
)

// Kind is a supported document format.
type Kind string

const (
	KindText Kind = "text"
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindHTML Kind = "html"
)

const (
	mimeText = "text/plain"
	mimeMD   = "text/markdown"
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeHTML = "text/html"
)

var extensions = map[string]Kind{
	".txt":      KindText,
	".text":     KindText,
	".md":       KindText,
	".markdown": KindText,
	".pdf":      KindPDF,
	".docx":     KindDOCX,
	".html":     KindHTML,
	".htm":      KindHTML,
}

var mimeTypes = map[string]Kind{
	mimeText: KindText,
	mimeMD:   KindText,
	mimePDF:  KindPDF,
	mimeDOCX: KindDOCX,
	mimeHTML: KindHTML,
}

// Detect picks a kind from the file extension, falling back to the MIME type.
// A name without an extension and no MIME type is treated as plain text.
func Detect(name, mime string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if kind, ok := extensions[ext]; ok {
		return kind, nil
	}
	if mime != "" {
		base := strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
		if kind, ok := mimeTypes[base]; ok {
			return kind, nil
		}
		return "", unsupported(name, mime)
	}
	if ext == "" {
		return KindText, nil
	}
	return "", unsupported(name, mime)
}

func unsupported(name, mime string) error {
	return errors.NewValidationError(errors.ErrCodeUnsupportedDocument, "unsupported document type", nil).
		WithContext("name", name).
		WithContext("mime", mime)
}

// Extract returns the plain text of a document named name.
func Extract(name string, data []byte) (string, error) {
	return ExtractAs(name, "", data)
}

// ExtractAs is Extract with an optional MIME type hint.
func ExtractAs(name, mime string, data []byte) (string, error) {
	kind, err := Detect(name, mime)
	if err != nil {
		return "", err
	}
	text, err := extractKind(kind, data)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeExtractionFailed, fmt.Sprintf("failed to extract %s text", kind), err).
			WithContext("name", name)
	}
	return text, nil
}

func extractKind(kind Kind, data []byte) (string, error) {
	switch kind {
	case KindPDF:
		return extractPDFText(bytes.NewReader(data))
	case KindDOCX:
		return extractDocxText(data)
	case KindHTML:
		return extractHTMLText(bytes.NewReader(data))
	default:
		return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
	}
}

func extractPDFText(reader *bytes.Reader) (string, error) {
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	var pages []string
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimRight(text, "\n"))
	}
	return strings.Join(pages, "\n"), nil
}

var (
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br\s*/>|<w:cr\s*/>`)
	tabTag       = regexp.MustCompile(`<w:tab\s*/>`)
	anyTag       = regexp.MustCompile(`<[^>]+>`)
)

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return docxXMLToText(doc.Editable().GetContent()), nil
}

// docxXMLToText flattens WordprocessingML to text, one paragraph per line.
func docxXMLToText(content string) string {
	content = paragraphEnd.ReplaceAllString(content, "\n")
	content = tabTag.ReplaceAllString(content, "\t")
	content = anyTag.ReplaceAllString(content, "")
	return tidyLines(html.UnescapeString(content))
}

const blockSelectors = "p, div, section, article, h1, h2, h3, h4, h5, h6, li, tr, br, ul, ol"

func extractHTMLText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, script, style, noscript, template").Remove()

	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
	})
	doc.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	return tidyLines(body.Text()), nil
}

// tidyLines trims each line, collapses runs of blank lines and inner spaces.
func tidyLines(text string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

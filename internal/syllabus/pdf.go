package syllabus

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNoPages is returned for a PDF without readable pages.
	ErrNoPages = errors.New("PDF has no readable pages")
	// ErrEmptyText is returned when extraction yields only whitespace.
	ErrEmptyText = errors.New("PDF text extraction produced empty content")
)

// ExtractPDF reads every page of a PDF and returns the cleaned text. Pages
// that fail to extract are skipped.
func ExtractPDF(r io.ReaderAt, size int64) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("could not read PDF: %v", p)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("could not read PDF: %w", err)
	}
	n := reader.NumPage()
	if n == 0 {
		return "", ErrNoPages
	}

	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		body, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, body)
	}

	cleaned := Clean(strings.Join(pages, "\n"))
	if cleaned == "" {
		return "", ErrEmptyText
	}
	return cleaned, nil
}

// ExtractPDFBytes is ExtractPDF over an in-memory document.
func ExtractPDFBytes(data []byte) (string, error) {
	return ExtractPDF(bytes.NewReader(data), int64(len(data)))
}

// ExtractPDFFile opens path and extracts its text.
func ExtractPDFFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	return ExtractPDF(f, info.Size())
}

// Clean trims every line and drops blank ones.
func Clean(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, ln := range lines {
		if ln = strings.TrimSpace(ln); ln != "" {
			kept = append(kept, ln)
		}
	}
	return strings.Join(kept, "\n")
}

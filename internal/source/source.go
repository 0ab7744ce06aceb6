package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/ledongthuc/pdf"

	"github.com/ryosukesatoh/book-newsletter/internal/logging"
)

var (
	// ErrNotFound is returned when the document path does not exist.
	ErrNotFound = errors.New("source: document not found")
	// ErrInvalidEncoding is returned when the document is not valid UTF-8.
	ErrInvalidEncoding = errors.New("source: document is not valid UTF-8")
	// ErrEmptyDocument is returned when the document holds only whitespace.
	ErrEmptyDocument = errors.New("source: document is empty")
)

// Document is the raw text of one book transcript.
type Document struct {
	Path  string
	Text  string
	Chars int
}

// Loader reads a document from storage.
type Loader interface {
	Load(ctx context.Context, path string) (*Document, error)
}

// ExtractFunc turns a file on disk into raw bytes of text.
type ExtractFunc func(path string) ([]byte, error)

// FileLoader reads plain text files from the local filesystem. PDF files
// are run through a text extractor first.
type FileLoader struct {
	logger     *log.Logger
	extractors map[string]ExtractFunc
}

func NewFileLoader(logger *log.Logger) *FileLoader {
	return &FileLoader{
		logger: logging.OrDiscard(logger),
		extractors: map[string]ExtractFunc{
			".pdf": extractPDF,
		},
	}
}

// WithExtractor registers an extractor for a file extension (".pdf").
func (l *FileLoader) WithExtractor(ext string, fn ExtractFunc) *FileLoader {
	l.extractors[strings.ToLower(ext)] = fn
	return l
}

func (l *FileLoader) Load(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := l.read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Error("Book file not found", "path", path)
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		l.logger.Error("Failed to read book", "path", path, "err", err)
		return nil, fmt.Errorf("source: failed to read %s: %w", path, err)
	}

	if !utf8.Valid(data) {
		l.logger.Error("Book is not valid UTF-8", "path", path)
		return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, path)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		l.logger.Error("Book is empty", "path", path)
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, path)
	}

	doc := &Document{
		Path:  path,
		Text:  text,
		Chars: utf8.RuneCountInString(text),
	}
	l.logger.Info("Read book", "path", path, "chars", doc.Chars)
	return doc, nil
}

func (l *FileLoader) read(path string) ([]byte, error) {
	if fn, ok := l.extractors[strings.ToLower(filepath.Ext(path))]; ok {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		return fn(path)
	}
	return os.ReadFile(path)
}

func extractPDF(path string) ([]byte, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: failed to open: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("pdf: failed to extract text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil, fmt.Errorf("pdf: failed to read text: %w", err)
	}
	return buf.Bytes(), nil
}

// Package extract pulls plain text out of uploaded study documents.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
)

// DefaultMaxFileSize is the upload limit used when none is configured.
const DefaultMaxFileSize int64 = 50 << 20

var (
	ErrUnsupportedType = errors.New("unsupported file type, supported: .pdf, .docx, .txt")
	ErrFileTooLarge    = errors.New("file too large")
	ErrEmptyFile       = errors.New("file is empty")
	ErrNoText          = errors.New("no text could be extracted")
)

var supported = map[string]bool{".pdf": true, ".docx": true, ".txt": true}

// Supported reports whether filename has an extension the extractor handles.
func Supported(filename string) bool {
	return supported[strings.ToLower(filepath.Ext(filename))]
}

// Extractor reads text from .txt, .pdf and .docx files.
type Extractor struct {
	MaxFileSize int64
}

// New returns an Extractor with the given size limit in bytes.
// A non-positive limit means DefaultMaxFileSize.
func New(maxFileSize int64) *Extractor {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Extractor{MaxFileSize: maxFileSize}
}

// Extract validates the file at path and returns its text.
func (e *Extractor) Extract(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	limit := e.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	if info.Size() > limit {
		return "", fmt.Errorf("%w (max %dMB)", ErrFileTooLarge, limit>>20)
	}
	if info.Size() == 0 {
		return "", ErrEmptyFile
	}

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		text, err = extractTXT(path)
	case ".pdf":
		text, err = extractPDF(path)
	case ".docx":
		text, err = extractDOCX(path)
	default:
		return "", ErrUnsupportedType
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// extractTXT reads UTF-8 text, falling back to Windows-1252 for legacy files.
func extractTXT(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode text file: %w", err)
	}
	return string(decoded), nil
}

func extractPDF(path string) (text string, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to extract PDF text: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		if strings.TrimSpace(content) != "" {
			pages = append(pages, content)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// extractDOCX returns the document's paragraphs followed by its table rows,
// cells joined with " | ".
func extractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("open docx: word/document.xml not found")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open docx body: %w", err)
	}
	defer rc.Close()

	paras, rows, err := walkDocument(rc)
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}
	return strings.Join(append(paras, rows...), "\n\n"), nil
}

func walkDocument(r io.Reader) (paras, rows []string, err error) {
	dec := xml.NewDecoder(r)
	var (
		para, cell strings.Builder
		cells      []string
		tblDepth   int
		inText     bool
	)

	write := func(s string) {
		if tblDepth > 0 {
			cell.WriteString(s)
		} else {
			para.WriteString(s)
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return paras, rows, nil
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
			case "tr":
				cells = cells[:0]
			case "tc":
				cell.Reset()
			case "p":
				if tblDepth == 0 {
					para.Reset()
				}
			case "t":
				inText = true
			case "tab":
				write("\t")
			case "br":
				write("\n")
			}
		case xml.CharData:
			if inText {
				write(string(t))
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if tblDepth == 0 {
					if s := para.String(); strings.TrimSpace(s) != "" {
						paras = append(paras, s)
					}
				} else {
					cell.WriteString("\n")
				}
			case "tc":
				if s := strings.TrimSpace(cell.String()); s != "" {
					cells = append(cells, s)
				}
			case "tr":
				if len(cells) > 0 {
					rows = append(rows, strings.Join(cells, " | "))
				}
			case "tbl":
				tblDepth--
			}
		}
	}
}

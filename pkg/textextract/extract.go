package textextract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is one page of extracted text. Page numbers are 1-based and feed
// citation rendering downstream, so extraction keeps them separate
// instead of concatenating the whole document.
type Page struct {
	Number  int
	Content string
}

type Extracted struct {
	Pages []Page
}

// Text joins all pages, mostly for debugging and for formats that have
// no page structure.
func (e *Extracted) Text() string {
	var sb strings.Builder
	for _, p := range e.Pages {
		sb.WriteString(p.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func Extract(data io.ReaderAt, size int64, fileType string) (*Extracted, error) {
	switch strings.ToLower(fileType) {
	case ".pdf", "pdf", "application/pdf":
		return extractPDF(data, size)
	case ".docx", "docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return extractDOCX(data, size)
	case ".txt", "txt", "text/plain":
		return extractTXT(data, size)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}
}

func extractPDF(data io.ReaderAt, size int64) (*Extracted, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var pages []Page
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Content: text})
	}

	return &Extracted{Pages: pages}, nil
}

// extractDOCX pulls text out of word/document.xml. DOCX has no fixed
// pagination, so everything lands on page 1.
func extractDOCX(data io.ReaderAt, size int64) (*Extracted, error) {
	reader, err := zip.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}

	for _, f := range reader.File {
		if filepath.Base(f.Name) != "document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read document.xml: %w", err)
		}
		return &Extracted{Pages: []Page{{Number: 1, Content: stripXMLTags(string(content))}}}, nil
	}

	return &Extracted{}, nil
}

func extractTXT(data io.ReaderAt, size int64) (*Extracted, error) {
	buf := make([]byte, size)
	_, err := data.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read TXT: %w", err)
	}

	return &Extracted{Pages: []Page{{Number: 1, Content: string(bytes.TrimSpace(buf))}}}, nil
}

func stripXMLTags(s string) string {
	var result strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag:
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}

package office

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/toricodesthings/document-relay-service/internal/extract"
)

// DOCXExtractor pulls raw text out of a .docx container. Legacy binary
// .doc files are not handled here; they fall through to the plain-text
// path.
type DOCXExtractor struct {
	maxBytes int64
}

func NewDOCX(maxBytes int64) *DOCXExtractor {
	return &DOCXExtractor{maxBytes: maxBytes}
}

func (e *DOCXExtractor) Name() string       { return "document/docx" }
func (e *DOCXExtractor) MaxFileSize() int64 { return e.maxBytes }

func (e *DOCXExtractor) Matches(f extract.Format, fileName string) bool {
	if f.Kind == extract.KindWord {
		return true
	}
	return f.Kind == extract.KindUnknown && strings.HasSuffix(strings.ToLower(fileName), ".docx")
}

func (e *DOCXExtractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{Kind: extract.KindWord, Text: ""}, ctx.Err()
	default:
	}

	zr, err := zip.OpenReader(job.LocalPath)
	if err != nil {
		return extract.Result{Kind: extract.KindWord, Text: ""}, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	body, err := readZipFile(&zr.Reader, "word/document.xml")
	if err != nil {
		return extract.Result{Kind: extract.KindWord, Text: ""}, fmt.Errorf("read docx body: %w", err)
	}

	text := strings.TrimSpace(documentText(body))
	return extract.Result{Kind: extract.KindWord, Text: text}, nil
}

// documentText walks word/document.xml collecting run text. Paragraphs
// become lines, tabs and explicit breaks are preserved.
func documentText(b []byte) string {
	dec := xml.NewDecoder(strings.NewReader(string(b)))

	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return collapseBlankLines(sb.String())
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	empty := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			empty++
			if empty <= 1 {
				out = append(out, "")
			}
			continue
		}
		empty = 0
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Join(out, "\n")
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		// Uncompressed body cap, same spirit as the download ceiling.
		return io.ReadAll(io.LimitReader(rc, 64<<20))
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

package plaintext

import (
	"context"
	"os"
	"strings"

	"github.com/toricodesthings/document-relay-service/internal/extract"
	"golang.org/x/net/html"
)

// HTMLExtractor strips markup and returns visible text.
type HTMLExtractor struct {
	maxBytes int64
}

func NewHTML(maxBytes int64) *HTMLExtractor { return &HTMLExtractor{maxBytes: maxBytes} }

func (e *HTMLExtractor) Name() string       { return "document/html" }
func (e *HTMLExtractor) MaxFileSize() int64 { return e.maxBytes }

func (e *HTMLExtractor) Matches(f extract.Format, fileName string) bool {
	return f.Kind == extract.KindHTML
}

func (e *HTMLExtractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	buf, err := os.ReadFile(job.LocalPath)
	if err != nil {
		return extract.Result{Kind: extract.KindHTML, Text: ""}, nil
	}
	return extract.Result{Kind: extract.KindHTML, Text: stripHTML(buf)}, nil
}

func stripHTML(buf []byte) string {
	node, err := html.Parse(strings.NewReader(string(buf)))
	if err != nil {
		return strings.TrimSpace(string(buf))
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				lines = append(lines, strings.Join(strings.Fields(t), " "))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

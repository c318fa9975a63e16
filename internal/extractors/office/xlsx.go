package office

import (
	"context"
	"fmt"
	"strings"

	"github.com/toricodesthings/document-relay-service/internal/extract"
	"github.com/xuri/excelize/v2"
)

type XLSXExtractor struct {
	maxBytes int64
}

func NewXLSX(maxBytes int64) *XLSXExtractor {
	return &XLSXExtractor{maxBytes: maxBytes}
}

func (e *XLSXExtractor) Name() string       { return "document/xlsx" }
func (e *XLSXExtractor) MaxFileSize() int64 { return e.maxBytes }

func (e *XLSXExtractor) Matches(f extract.Format, fileName string) bool {
	if f.Kind == extract.KindSpreadsheet {
		return true
	}
	return f.Kind == extract.KindUnknown && strings.HasSuffix(strings.ToLower(fileName), ".xlsx")
}

func (e *XLSXExtractor) Extract(ctx context.Context, job extract.Job) (extract.Result, error) {
	select {
	case <-ctx.Done():
		return extract.Result{Kind: extract.KindSpreadsheet, Text: ""}, ctx.Err()
	default:
	}

	f, err := excelize.OpenFile(job.LocalPath)
	if err != nil {
		return extract.Result{Kind: extract.KindSpreadsheet, Text: ""}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var sheets []string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}
		sheets = append(sheets, name+"\n"+strings.Join(lines, "\n"))
	}

	text := strings.TrimSpace(strings.Join(sheets, "\n\n"))
	return extract.Result{Kind: extract.KindSpreadsheet, Text: text}, nil
}

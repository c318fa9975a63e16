package extract

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLimit is how many leading bytes classification looks at. Matches
// the mimetype library's own detection window.
const sniffLimit = 3072

var pdfSignature = []byte("%PDF")

// Sniff classifies a byte buffer by content alone. It never fails:
// malformed or truncated input comes back as KindUnknown rather than an
// error. File names and declared content types play no part here.
func Sniff(buf []byte) Format {
	if len(buf) == 0 {
		return Format{Kind: KindUnknown}
	}

	// The PDF signature is checked directly so that even a truncated
	// header the library refuses to classify still routes as PDF.
	if bytes.HasPrefix(buf, pdfSignature) {
		return Format{Kind: KindPDF, MIME: "application/pdf"}
	}

	mt := mimetype.Detect(buf)
	return formatForMIME(mt)
}

// SniffFile classifies the file at path by its leading bytes.
func SniffFile(path string) Format {
	f, err := os.Open(path)
	if err != nil {
		return Format{Kind: KindUnknown}
	}
	defer f.Close()

	buf := make([]byte, sniffLimit)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Format{Kind: KindUnknown}
	}
	return Sniff(buf[:n])
}

func formatForMIME(mt *mimetype.MIME) Format {
	if mt == nil {
		return Format{Kind: KindUnknown}
	}
	mime := strings.ToLower(mt.String())
	if i := strings.Index(mime, ";"); i > 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	switch {
	case mime == "application/pdf":
		return Format{Kind: KindPDF, MIME: mime}
	case strings.HasPrefix(mime, "image/"):
		return Format{Kind: KindImage, Subtype: strings.TrimPrefix(mime, "image/"), MIME: mime}
	case mime == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return Format{Kind: KindWord, MIME: mime}
	case mime == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return Format{Kind: KindSpreadsheet, MIME: mime}
	case mime == "text/html":
		return Format{Kind: KindHTML, MIME: mime}
	default:
		return Format{Kind: KindUnknown, MIME: mime}
	}
}

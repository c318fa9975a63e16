package extract

// Kind is the detected document family an attachment was classified into.
type Kind string

const (
	KindImage       Kind = "image"
	KindPDF         Kind = "pdf"
	KindWord        Kind = "word"
	KindSpreadsheet Kind = "spreadsheet"
	KindHTML        Kind = "html"
	KindUnknown     Kind = "unknown"
)

// Format is a content-derived classification. Subtype is only set for
// images (e.g. "png", "jpeg"); MIME carries the sniffed media type.
type Format struct {
	Kind    Kind
	Subtype string
	MIME    string
}

// Job is a staged attachment handed to an extractor. FileName and
// MIMEHint come from the chat transport and are advisory only.
type Job struct {
	LocalPath string
	FileName  string
	MIMEHint  string
	FileSize  int64
	Format    Format
}

// Result is the normalized outcome of one extraction. Text is always a
// defined string; empty means the extraction succeeded structurally but
// yielded no recognizable text. PageCount is set for multi-page sources.
type Result struct {
	Kind      Kind
	Text      string
	PageCount int
}

// CountChars returns the rune length of text, which is the unit every
// threshold and truncation limit in this service is expressed in.
func CountChars(text string) int {
	return len([]rune(text))
}

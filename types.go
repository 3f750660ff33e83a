package shoptl

// Column names of a Shopify translation export.
const (
	ColumnID         = "Identification"
	ColumnField      = "Field"
	ColumnLocale     = "Locale"
	ColumnDefault    = "Default content"
	ColumnTranslated = "Translated content"
)

// FieldHandle is the Field value of the row carrying a product's handle.
const FieldHandle = "handle"

// FieldKind classifies a translatable field.
type FieldKind string

const (
	// KindBody is product description HTML. Its links are localized after translation.
	KindBody FieldKind = "body"
	// KindMeta is SEO meta text.
	KindMeta FieldKind = "meta"
	// KindOther is any other field registered as translatable.
	KindOther FieldKind = "other"
)

// DefaultFields maps the fields translated by default to their kind.
var DefaultFields = map[string]FieldKind{
	"body_html":        KindBody,
	"meta_description": KindMeta,
}

// KindForField returns the kind of a field name. Unknown fields are KindOther.
func KindForField(field string) FieldKind {
	if kind, ok := DefaultFields[field]; ok {
		return kind
	}
	return KindOther
}

// Row is one record of the export: one field of one product in one locale.
type Row struct {
	ID             string   // Identification, always kept as text
	Field          string   // Semantic role, e.g. "handle", "body_html"
	Locale         string   // Locale of the translated counterpart
	Default        string   // Source-language content, possibly empty
	Translated     string   // Target-language content
	HasTranslation bool     // Whether Translated was produced by this run
	Cells          []string // Full original record, in header order
}

// LocaleTarget holds the two roles a locale code plays.
type LocaleTarget struct {
	Lang       string `mapstructure:"lang"` // Code sent to the translation service
	URLSegment string `mapstructure:"url"`  // Path segment used when localizing links
}

// Outcome is the result of processing the row at the same index.
type Outcome struct {
	Text    string // Final translated text
	Done    bool   // Text is valid
	Cached  bool   // Served from cache
	Skipped bool   // Row was not eligible for translation
	Err     error  // Per-row failure, if any
}

// RunResult is the result of a translation run.
type RunResult struct {
	Rows       []Row       // Input rows with translations merged in, original order
	Translated int         // Rows translated by the provider
	Cached     int         // Rows served from cache
	Skipped    int         // Rows not eligible for translation
	Warnings   []*RowError // One entry per failed row, in row order
}

// Failed returns the number of rows whose translation failed.
func (r *RunResult) Failed() int {
	return len(r.Warnings)
}

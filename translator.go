package shoptl

import (
	"context"
	"strings"
	"sync"
)

// Translator runs export rows through the protection pipeline and a translation provider.
type Translator struct {
	provider    Provider
	cache       TranslationCache
	processor   ContentProcessor
	sourceLang  string
	locales     map[string]LocaleTarget
	fields      map[string]FieldKind
	links       *LinkLocalizer
	linkDomain  string
	concurrency int
	verifyMasks bool
	reporter    Reporter

	cacheNamespace string

	mu sync.Mutex // serializes reporter calls
}

// Provider is the interface for machine-translation backends.
type Provider interface {
	Translate(ctx context.Context, req TranslateRequest) (string, error)
}

// TranslateRequest contains the parameters for a single translation call.
type TranslateRequest struct {
	Text        string
	TargetLang  string   // Service language code
	SourceLang  string   // Empty lets the service detect it
	TagHandling string   // "html" for markup-aware translation
	IgnoreTags  []string // Tags whose content must be left verbatim
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// ContentProcessor protects field content before translation and restores it afterwards.
type ContentProcessor interface {
	// Protect replaces layout tokens with sentinels and masks them.
	Protect(text string) (string, error)
	// Restore strips masks, restores layout tokens and decodes entities.
	Restore(text string) string
	// TagHandling is the markup mode to request from the service.
	TagHandling() string
	// IgnoreTags lists the tag names the service must leave untouched.
	IgnoreTags() []string
}

// MaskVerifier is implemented by processors that can check masked spans survived translation.
type MaskVerifier interface {
	VerifyMasks(masked, translated string) error
}

// Reporter receives progress and per-row warnings during Process.
type Reporter interface {
	RowStarted(done, total int, row Row, target LocaleTarget)
	RowFailed(err *RowError)
}

// TranslatorOption is a functional option for configuring the Translator.
type TranslatorOption func(*Translator)

// WithSourceLang sets the source language. Empty means auto-detect.
func WithSourceLang(lang string) TranslatorOption {
	return func(t *Translator) {
		t.sourceLang = lang
	}
}

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) TranslatorOption {
	return func(t *Translator) {
		t.cache = cache
	}
}

// WithProcessor sets the content processor.
func WithProcessor(processor ContentProcessor) TranslatorOption {
	return func(t *Translator) {
		t.processor = processor
	}
}

// WithLocales replaces the locale map. Keys are matched case-insensitively.
func WithLocales(locales map[string]LocaleTarget) TranslatorOption {
	return func(t *Translator) {
		normalized := make(map[string]LocaleTarget, len(locales))
		for k, v := range locales {
			normalized[strings.ToLower(NormalizeLocale(k))] = v
		}
		t.locales = normalized
	}
}

// WithFields replaces the set of translatable fields.
func WithFields(fields map[string]FieldKind) TranslatorOption {
	return func(t *Translator) {
		t.fields = fields
	}
}

// WithLinkDomain sets the storefront domain whose links are localized in body fields.
func WithLinkDomain(domain string) TranslatorOption {
	return func(t *Translator) {
		t.linkDomain = domain
	}
}

// WithConcurrency sets how many rows are translated at once (default 1).
func WithConcurrency(n int) TranslatorOption {
	return func(t *Translator) {
		t.concurrency = n
	}
}

// WithMaskVerification enables checking that masked spans survive translation.
func WithMaskVerification(enabled bool) TranslatorOption {
	return func(t *Translator) {
		t.verifyMasks = enabled
	}
}

// WithCacheNamespace separates cache entries by translator, e.g. "deepl" or
// "openai/gpt-4o-mini". Runs sharing a cache only reuse each other's
// entries when namespace and source language match.
func WithCacheNamespace(ns string) TranslatorOption {
	return func(t *Translator) {
		t.cacheNamespace = ns
	}
}

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) TranslatorOption {
	return func(t *Translator) {
		t.reporter = r
	}
}

// NewTranslator creates a new Translator with the given provider.
func NewTranslator(provider Provider, opts ...TranslatorOption) *Translator {
	t := &Translator{
		provider:    provider,
		locales:     DefaultLocales,
		fields:      DefaultFields,
		linkDomain:  DefaultLinkDomain,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.links = NewLinkLocalizer(t.linkDomain, t.locales)
	return t
}

// Process translates every eligible row and returns all rows with the
// translations merged in. A row is eligible when its field is translatable,
// its locale is mapped and its default content is non-empty. Per-row failures
// are collected as warnings. If ctx is cancelled, the rows finished so far are
// returned together with the context error.
func (t *Translator) Process(ctx context.Context, rows []Row) (*RunResult, error) {
	outcomes := make([]Outcome, len(rows))

	var eligible []int
	for i, row := range rows {
		if _, ok := t.eligible(row); ok {
			eligible = append(eligible, i)
		} else {
			outcomes[i].Skipped = true
		}
	}

	done := 0
	err := forEachRow(ctx, len(eligible), t.concurrency, func(ctx context.Context, n int) {
		i := eligible[n]
		row := rows[i]
		target, _ := ResolveLocale(t.locales, row.Locale)

		t.mu.Lock()
		done++
		if t.reporter != nil {
			t.reporter.RowStarted(done, len(eligible), row, target)
		}
		t.mu.Unlock()

		text, cached, err := t.translateField(ctx, row.Default, row.Locale, t.fields[row.Field])
		if err != nil {
			rowErr := &RowError{Index: i, ID: row.ID, Locale: row.Locale, Cause: err}
			outcomes[i] = Outcome{Err: rowErr}
			t.mu.Lock()
			if t.reporter != nil {
				t.reporter.RowFailed(rowErr)
			}
			t.mu.Unlock()
			return
		}
		outcomes[i] = Outcome{Text: text, Done: true, Cached: cached}
	})

	result := &RunResult{Rows: Assemble(rows, outcomes)}
	for _, o := range outcomes {
		switch {
		case o.Skipped:
			result.Skipped++
		case o.Err != nil:
			result.Warnings = append(result.Warnings, o.Err.(*RowError))
		case o.Done && o.Cached:
			result.Cached++
		case o.Done:
			result.Translated++
		}
	}

	return result, err
}

// TranslateField runs one field value through the full pipeline:
// protect, mask, translate, unmask, restore, decode and, for body fields,
// link localization.
func (t *Translator) TranslateField(ctx context.Context, text, locale string, kind FieldKind) (string, error) {
	result, _, err := t.translateField(ctx, text, locale, kind)
	return result, err
}

func (t *Translator) translateField(ctx context.Context, text, locale string, kind FieldKind) (string, bool, error) {
	if text == "" {
		return text, false, nil
	}

	target, ok := ResolveLocale(t.locales, locale)
	if !ok || target.Lang == "" {
		return "", false, &TranslationError{Message: "no target language for locale " + locale}
	}

	if t.processor == nil {
		return "", false, &ProcessorError{
			Message: "no processor registered",
			Field:   string(kind),
		}
	}

	if t.isSourceLang(target.Lang) {
		return t.finish(text, locale, kind), false, nil
	}

	masked, err := t.processor.Protect(text)
	if err != nil {
		return "", false, &ProcessorError{
			Message: "failed to protect content",
			Cause:   err,
			Field:   string(kind),
		}
	}

	cacheKey := t.cacheKey(masked, target.Lang)
	if t.cache != nil {
		if raw, ok := t.cache.Get(cacheKey); ok {
			return t.finish(t.processor.Restore(raw), locale, kind), true, nil
		}
	}

	if t.provider == nil {
		return "", false, &TranslationError{Message: "no provider configured"}
	}

	raw, err := t.provider.Translate(ctx, TranslateRequest{
		Text:        masked,
		TargetLang:  target.Lang,
		SourceLang:  t.sourceLang,
		TagHandling: t.processor.TagHandling(),
		IgnoreTags:  t.processor.IgnoreTags(),
	})
	if err != nil {
		return "", false, err
	}

	if t.verifyMasks {
		if v, ok := t.processor.(MaskVerifier); ok {
			if err := v.VerifyMasks(masked, raw); err != nil {
				return "", false, err
			}
		}
	}

	if t.cache != nil {
		_ = t.cache.Set(cacheKey, raw) // Ignore cache set errors
	}

	return t.finish(t.processor.Restore(raw), locale, kind), false, nil
}

func (t *Translator) cacheKey(masked, targetLang string) string {
	hash := HashText(masked)
	if t.sourceLang == "" && t.cacheNamespace == "" {
		return CacheKey(hash, targetLang)
	}
	return CacheKeyExtended(hash, t.sourceLang, targetLang, t.cacheNamespace)
}

// finish applies field-specific post-processing.
func (t *Translator) finish(text, locale string, kind FieldKind) string {
	if kind == KindBody {
		return t.links.Localize(text, locale)
	}
	return text
}

// eligible reports the kind of a row when it should be translated.
func (t *Translator) eligible(row Row) (FieldKind, bool) {
	kind, ok := t.fields[row.Field]
	if !ok || row.Default == "" {
		return "", false
	}
	if target, ok := ResolveLocale(t.locales, row.Locale); !ok || target.Lang == "" {
		return "", false
	}
	return kind, true
}

// isSourceLang checks if target matches the configured source (no translation needed).
func (t *Translator) isSourceLang(target string) bool {
	if t.sourceLang == "" {
		return false
	}
	return BaseLanguage(target) == BaseLanguage(t.sourceLang)
}

// SourceLang returns the source language.
func (t *Translator) SourceLang() string {
	return t.sourceLang
}

// Locales returns the locale map in use.
func (t *Translator) Locales() map[string]LocaleTarget {
	return t.locales
}

// Links returns the link localizer used for body fields.
func (t *Translator) Links() *LinkLocalizer {
	return t.links
}

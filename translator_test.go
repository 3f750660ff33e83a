package shoptl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// mockProvider is a simple mock for testing
type mockProvider struct {
	translations map[string]string
	errors       map[string]error
	onCall       func(n int)

	mu        sync.Mutex
	callCount int
	lastReq   TranslateRequest
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		translations: map[string]string{
			"Hello":       "Ciao",
			"World":       "Mondo",
			"Hello World": "Ciao Mondo",
		},
		errors: map[string]error{},
	}
}

func (m *mockProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.lastReq = req
	m.mu.Unlock()

	if m.onCall != nil {
		m.onCall(n)
	}
	if err, ok := m.errors[req.Text]; ok {
		return "", err
	}
	if translation, ok := m.translations[req.Text]; ok {
		return translation, nil
	}
	return "[" + req.Text + "]", nil
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// mockCache is a simple mock cache for testing
type mockCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]string)}
}

func (c *mockCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.data[key]
	return val, ok
}

func (c *mockCache) Set(key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

// braceProcessor wraps text in braces on Protect and strips them on Restore,
// so tests can see which side of the pipeline a value came from.
type braceProcessor struct {
	verifyErr error
}

func (p *braceProcessor) Protect(text string) (string, error) {
	if strings.Contains(text, "{") {
		return "", &TokenCollisionError{Token: "{"}
	}
	return "{" + text + "}", nil
}

func (p *braceProcessor) Restore(text string) string {
	return strings.NewReplacer("{", "", "}", "").Replace(text)
}

func (p *braceProcessor) TagHandling() string  { return "html" }
func (p *braceProcessor) IgnoreTags() []string { return []string{"span"} }

func (p *braceProcessor) VerifyMasks(masked, translated string) error {
	return p.verifyErr
}

// recordingReporter records reporter calls.
type recordingReporter struct {
	started []string
	failed  []*RowError
}

func (r *recordingReporter) RowStarted(done, total int, row Row, target LocaleTarget) {
	r.started = append(r.started, fmt.Sprintf("%d/%d %s %s", done, total, row.ID, target.Lang))
}

func (r *recordingReporter) RowFailed(err *RowError) {
	r.failed = append(r.failed, err)
}

func newTestTranslator(p Provider, opts ...TranslatorOption) *Translator {
	return NewTranslator(p, append([]TranslatorOption{WithProcessor(&braceProcessor{})}, opts...)...)
}

func TestNewTranslator_Defaults(t *testing.T) {
	tr := NewTranslator(newMockProvider())

	if tr.concurrency != 1 {
		t.Errorf("default concurrency should be 1, got %d", tr.concurrency)
	}
	if len(tr.Locales()) != len(DefaultLocales) {
		t.Errorf("expected default locales, got %v", tr.Locales())
	}
	if tr.Links().Domain() != DefaultLinkDomain {
		t.Errorf("expected default link domain, got %s", tr.Links().Domain())
	}
	if tr.SourceLang() != "" {
		t.Errorf("source language should default to auto-detect, got %q", tr.SourceLang())
	}
}

func TestWithLocales_NormalizesKeys(t *testing.T) {
	tr := NewTranslator(newMockProvider(), WithLocales(map[string]LocaleTarget{
		"PT_BR": {Lang: "pt-BR", URLSegment: "br"},
	}))

	if _, ok := tr.Locales()["pt-br"]; !ok {
		t.Errorf("locale keys should be normalized, got %v", tr.Locales())
	}
}

func TestTranslateField(t *testing.T) {
	p := newMockProvider()
	tr := newTestTranslator(p)

	got, err := tr.TranslateField(context.Background(), "Hello", "it", KindMeta)
	if err != nil {
		t.Fatalf("TranslateField failed: %v", err)
	}
	if got != "[Hello]" {
		t.Errorf("expected protected text to be translated and restored, got %q", got)
	}

	if p.lastReq.Text != "{Hello}" {
		t.Errorf("provider should receive protected text, got %q", p.lastReq.Text)
	}
	if p.lastReq.TargetLang != "it" || p.lastReq.TagHandling != "html" {
		t.Errorf("unexpected request %+v", p.lastReq)
	}
	if len(p.lastReq.IgnoreTags) != 1 || p.lastReq.IgnoreTags[0] != "span" {
		t.Errorf("ignore tags should come from the processor, got %v", p.lastReq.IgnoreTags)
	}
}

func TestTranslateField_Empty(t *testing.T) {
	p := newMockProvider()
	tr := newTestTranslator(p)

	got, err := tr.TranslateField(context.Background(), "", "it", KindBody)
	if err != nil || got != "" {
		t.Errorf("expected empty result, got %q, %v", got, err)
	}
	if p.calls() != 0 {
		t.Error("empty text should not reach the provider")
	}
}

func TestTranslateField_UnmappedLocale(t *testing.T) {
	tr := newTestTranslator(newMockProvider())

	_, err := tr.TranslateField(context.Background(), "Hello", "sv", KindBody)

	var transErr *TranslationError
	if !errors.As(err, &transErr) {
		t.Fatalf("expected TranslationError, got %v", err)
	}
}

func TestTranslateField_NoProcessor(t *testing.T) {
	tr := NewTranslator(newMockProvider())

	_, err := tr.TranslateField(context.Background(), "Hello", "it", KindBody)

	var procErr *ProcessorError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ProcessorError, got %v", err)
	}
}

func TestTranslateField_NoProvider(t *testing.T) {
	tr := newTestTranslator(nil)

	_, err := tr.TranslateField(context.Background(), "Hello", "it", KindMeta)

	var transErr *TranslationError
	if !errors.As(err, &transErr) {
		t.Fatalf("expected TranslationError, got %v", err)
	}
}

func TestTranslateField_ProtectError(t *testing.T) {
	p := newMockProvider()
	tr := newTestTranslator(p)

	_, err := tr.TranslateField(context.Background(), "a {b}", "it", KindBody)

	var collision *TokenCollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected TokenCollisionError, got %v", err)
	}
	var procErr *ProcessorError
	if !errors.As(err, &procErr) || procErr.Field != string(KindBody) {
		t.Errorf("collision should be wrapped in a ProcessorError, got %v", err)
	}
	if p.calls() != 0 {
		t.Error("rejected text should not reach the provider")
	}
}

func TestTranslateField_BodyLinks(t *testing.T) {
	tr := newTestTranslator(newMockProvider())
	text := "see karhu.com/products/ikoni"

	body, err := tr.TranslateField(context.Background(), text, "fr", KindBody)
	if err != nil {
		t.Fatal(err)
	}
	if body != "[see karhu.com/fr/products/ikoni]" {
		t.Errorf("body links should be localized, got %q", body)
	}

	meta, err := tr.TranslateField(context.Background(), text, "fr", KindMeta)
	if err != nil {
		t.Fatal(err)
	}
	if meta != "[see karhu.com/products/ikoni]" {
		t.Errorf("meta links should be left alone, got %q", meta)
	}
}

func TestTranslateField_SourceLang(t *testing.T) {
	p := newMockProvider()
	tr := newTestTranslator(p, WithSourceLang("it_IT"))

	got, err := tr.TranslateField(context.Background(), "see karhu.com/products/x", "it", KindBody)
	if err != nil {
		t.Fatal(err)
	}
	if p.calls() != 0 {
		t.Error("target equal to source should not call the provider")
	}
	if got != "see karhu.com/it/products/x" {
		t.Errorf("unexpected result %q", got)
	}

	if p.lastReq.SourceLang != "" {
		t.Error("no request should have been made")
	}
	tr.TranslateField(context.Background(), "Hello", "de", KindMeta)
	if p.lastReq.SourceLang != "it_IT" {
		t.Errorf("source language should be sent, got %q", p.lastReq.SourceLang)
	}
}

func TestTranslateField_CacheSeparatesTranslators(t *testing.T) {
	c := newMockCache()

	deepl := newMockProvider()
	first := newTestTranslator(deepl, WithCache(c), WithCacheNamespace("deepl"))
	if _, err := first.TranslateField(context.Background(), "Hello", "it", KindMeta); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		opts   []TranslatorOption
		reused bool
	}{
		{"same translator", []TranslatorOption{WithCacheNamespace("deepl")}, true},
		{"other provider", []TranslatorOption{WithCacheNamespace("openai/gpt-4o-mini")}, false},
		{"other source language", []TranslatorOption{WithCacheNamespace("deepl"), WithSourceLang("fr")}, false},
		{"no namespace", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newMockProvider()
			tr := newTestTranslator(p, append([]TranslatorOption{WithCache(c)}, tt.opts...)...)

			if _, err := tr.TranslateField(context.Background(), "Hello", "it", KindMeta); err != nil {
				t.Fatal(err)
			}
			if reused := p.calls() == 0; reused != tt.reused {
				t.Errorf("cache reused = %v, want %v", reused, tt.reused)
			}
		})
	}
}

func TestTranslateField_Cache(t *testing.T) {
	p := newMockProvider()
	c := newMockCache()
	tr := newTestTranslator(p, WithCache(c))

	for i := 0; i < 3; i++ {
		got, err := tr.TranslateField(context.Background(), "Hello", "it", KindMeta)
		if err != nil {
			t.Fatal(err)
		}
		if got != "[Hello]" {
			t.Errorf("run %d: unexpected result %q", i, got)
		}
	}

	if p.calls() != 1 {
		t.Errorf("expected 1 provider call, got %d", p.calls())
	}

	// The raw provider output is cached under the protected text.
	raw, ok := c.Get(CacheKey(HashText("{Hello}"), "it"))
	if !ok || raw != "[{Hello}]" {
		t.Errorf("unexpected cache entry %q (ok=%v)", raw, ok)
	}

	// A different target language is a different entry.
	tr.TranslateField(context.Background(), "Hello", "fi", KindMeta)
	if p.calls() != 2 {
		t.Errorf("expected a second provider call for another language, got %d", p.calls())
	}
}

func TestTranslateField_ProviderErrorNotCached(t *testing.T) {
	p := newMockProvider()
	p.errors["{Hello}"] = &ProviderError{Message: "quota exceeded"}
	c := newMockCache()
	tr := newTestTranslator(p, WithCache(c))

	if _, err := tr.TranslateField(context.Background(), "Hello", "it", KindMeta); err == nil {
		t.Fatal("expected provider error")
	}
	if len(c.data) != 0 {
		t.Error("failed translations should not be cached")
	}
}

func TestTranslateField_MaskVerification(t *testing.T) {
	proc := &braceProcessor{verifyErr: &MaskMismatchError{Expected: 2, Got: 1}}

	off := NewTranslator(newMockProvider(), WithProcessor(proc))
	if _, err := off.TranslateField(context.Background(), "Hello", "it", KindBody); err != nil {
		t.Errorf("verification is off by default, got %v", err)
	}

	c := newMockCache()
	on := NewTranslator(newMockProvider(), WithProcessor(proc), WithMaskVerification(true), WithCache(c))
	_, err := on.TranslateField(context.Background(), "Hello", "it", KindBody)

	var mismatch *MaskMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MaskMismatchError, got %v", err)
	}
	if len(c.data) != 0 {
		t.Error("rejected translations should not be cached")
	}
}

func testRows() []Row {
	return []Row{
		{ID: "1", Field: "handle", Locale: "it", Default: "karhu-ikoni"},
		{ID: "1", Field: "body_html", Locale: "it", Default: "Hello"},
		{ID: "1", Field: "meta_description", Locale: "fr", Default: "World"},
		{ID: "1", Field: "body_html", Locale: "sv", Default: "Hello"},
		{ID: "1", Field: "meta_description", Locale: "it", Default: ""},
		{ID: "2", Field: "body_html", Locale: "de", Default: "boom"},
		{ID: "2", Field: "body_html", Locale: "fi", Default: "Hello World"},
	}
}

func TestProcess(t *testing.T) {
	p := newMockProvider()
	p.errors["{boom}"] = &ProviderError{Message: "quota exceeded"}
	rep := &recordingReporter{}
	tr := newTestTranslator(p, WithReporter(rep))

	rows := testRows()
	result, err := tr.Process(context.Background(), rows)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(result.Rows) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(result.Rows))
	}

	want := []struct {
		translated string
		has        bool
	}{
		{"", false},             // handle is not translatable
		{"[Hello]", true},       // body_html it
		{"[World]", true},       // meta_description fr
		{"", false},             // unmapped locale
		{"", false},             // empty content
		{"", false},             // provider failure
		{"[Hello World]", true}, // body_html fi
	}
	for i, w := range want {
		got := result.Rows[i]
		if got.Translated != w.translated || got.HasTranslation != w.has {
			t.Errorf("row %d: got (%q, %v), want (%q, %v)", i, got.Translated, got.HasTranslation, w.translated, w.has)
		}
		if got.ID != rows[i].ID || got.Field != rows[i].Field || got.Locale != rows[i].Locale {
			t.Errorf("row %d: order or identity changed", i)
		}
	}

	if result.Translated != 3 || result.Skipped != 3 || result.Failed() != 1 {
		t.Errorf("unexpected counts: translated=%d skipped=%d failed=%d", result.Translated, result.Skipped, result.Failed())
	}

	w := result.Warnings[0]
	if w.Index != 5 || w.ID != "2" || w.Locale != "de" {
		t.Errorf("unexpected warning %v", w)
	}
	var providerErr *ProviderError
	if !errors.As(w, &providerErr) {
		t.Errorf("warning should wrap the provider error, got %v", w)
	}

	if len(rep.started) != 4 || rep.started[0] != "1/4 1 it" || rep.started[3] != "4/4 2 fi" {
		t.Errorf("unexpected progress %v", rep.started)
	}
	if len(rep.failed) != 1 || rep.failed[0] != w {
		t.Errorf("reporter should receive the warning, got %v", rep.failed)
	}
}

func TestProcess_CachedCount(t *testing.T) {
	p := newMockProvider()
	tr := newTestTranslator(p, WithCache(newMockCache()))

	rows := []Row{
		{ID: "1", Field: "body_html", Locale: "it", Default: "Hello"},
		{ID: "2", Field: "body_html", Locale: "it", Default: "Hello"},
	}
	result, err := tr.Process(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}

	if result.Translated != 1 || result.Cached != 1 {
		t.Errorf("expected 1 translated and 1 cached, got %d and %d", result.Translated, result.Cached)
	}
	if result.Rows[1].Translated != "[Hello]" {
		t.Errorf("cached row should carry the translation, got %q", result.Rows[1].Translated)
	}
}

func TestProcess_CustomFields(t *testing.T) {
	tr := newTestTranslator(newMockProvider(), WithFields(map[string]FieldKind{"title": KindOther}))

	rows := []Row{
		{ID: "1", Field: "title", Locale: "it", Default: "Hello"},
		{ID: "1", Field: "body_html", Locale: "it", Default: "Hello"},
	}
	result, err := tr.Process(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}

	if !result.Rows[0].HasTranslation || result.Rows[1].HasTranslation {
		t.Errorf("only registered fields should be translated: %+v", result.Rows)
	}
}

func TestProcess_Concurrent(t *testing.T) {
	p := newMockProvider()
	tr := newTestTranslator(p, WithConcurrency(4))

	var rows []Row
	for i := 0; i < 40; i++ {
		rows = append(rows, Row{
			ID:      fmt.Sprint(i),
			Field:   "meta_description",
			Locale:  "nl",
			Default: fmt.Sprintf("text %d", i),
		})
	}

	result, err := tr.Process(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}

	for i, row := range result.Rows {
		if want := fmt.Sprintf("[text %d]", i); row.Translated != want {
			t.Errorf("row %d: got %q, want %q", i, row.Translated, want)
		}
	}
	if p.calls() != 40 {
		t.Errorf("expected 40 calls, got %d", p.calls())
	}
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newMockProvider()
	p.onCall = func(n int) {
		if n == 2 {
			cancel()
		}
	}
	tr := newTestTranslator(p)

	rows := []Row{
		{ID: "1", Field: "body_html", Locale: "it", Default: "Hello"},
		{ID: "2", Field: "body_html", Locale: "it", Default: "World"},
		{ID: "3", Field: "body_html", Locale: "it", Default: "Hello World"},
	}
	result, err := tr.Process(ctx, rows)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil {
		t.Fatal("a cancelled run should return the rows finished so far")
	}
	if !result.Rows[0].HasTranslation || !result.Rows[1].HasTranslation {
		t.Error("rows finished before cancellation should keep their translation")
	}
	if result.Rows[2].HasTranslation {
		t.Error("rows after cancellation should not be translated")
	}
	if p.calls() != 2 {
		t.Errorf("expected 2 calls, got %d", p.calls())
	}
}

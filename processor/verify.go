package processor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/shoptl"
)

// VerifyMasks checks that every do-not-translate span in masked came back
// unchanged and in order in translated.
func (p *LayoutProcessor) VerifyMasks(masked, translated string) error {
	want, err := p.maskedSpans(masked)
	if err != nil {
		return err
	}
	got, err := p.maskedSpans(translated)
	if err != nil {
		return err
	}

	if len(want) != len(got) {
		return &shoptl.MaskMismatchError{Expected: len(want), Got: len(got)}
	}

	intact := 0
	for i := range want {
		if want[i] == got[i] {
			intact++
		}
	}
	if intact != len(want) {
		return &shoptl.MaskMismatchError{Expected: len(want), Got: intact}
	}
	return nil
}

// maskedSpans returns the text of each do-not-translate span in document order.
func (p *LayoutProcessor) maskedSpans(content string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, &shoptl.ProcessorError{
			Message: "failed to parse HTML",
			Cause:   err,
			Field:   "html",
		}
	}

	var spans []string
	doc.Find(p.maskTag + `[translate="no"]`).Each(func(_ int, s *goquery.Selection) {
		spans = append(spans, s.Text())
	})
	return spans, nil
}

// Verify LayoutProcessor implements MaskVerifier
var _ shoptl.MaskVerifier = (*LayoutProcessor)(nil)

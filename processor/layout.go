package processor

import (
	"regexp"
	"strings"

	"github.com/ZaguanLabs/shoptl"
	"golang.org/x/net/html"
)

// DefaultMaskTag is the inline tag wrapped around tokens the translator must skip.
const DefaultMaskTag = "span"

var (
	decimalPattern   = regexp.MustCompile(`(\d)\.(\d)`)
	lineBreakPattern = regexp.MustCompile(`(?i)<\s*br\s*/?\s*>`)
)

// LayoutProcessor protects line breaks, bullet markers and decimal numbers
// across a translation round trip.
//
// The stages run in a fixed order: ProtectLayout, MaskTags, translation,
// UnmaskTags, RestoreLayout, DecodeEntities.
type LayoutProcessor struct {
	tokens     Tokens
	maskTag    string
	bulletJoin string

	maskOpen      string
	breakDash     *regexp.Regexp
	mask          *regexp.Regexp
	unmask        *regexp.Regexp
	restoreBullet *regexp.Regexp
}

// LayoutOption configures the layout processor.
type LayoutOption func(*LayoutProcessor)

// WithTokens sets the placeholder tokens. Invalid token sets are ignored.
func WithTokens(tokens Tokens) LayoutOption {
	return func(p *LayoutProcessor) {
		if tokens.Validate() == nil {
			p.tokens = tokens
		}
	}
}

// WithMaskTag sets the tag used to mark do-not-translate spans.
func WithMaskTag(tag string) LayoutOption {
	return func(p *LayoutProcessor) {
		if tag != "" {
			p.maskTag = strings.ToLower(tag)
		}
	}
}

// WithBulletJoin sets what goes between a restored <br> and its bullet hyphen.
// The default is the empty string, giving "<br>-".
func WithBulletJoin(join string) LayoutOption {
	return func(p *LayoutProcessor) {
		p.bulletJoin = join
	}
}

// NewLayoutProcessor creates a new layout processor.
func NewLayoutProcessor(opts ...LayoutOption) *LayoutProcessor {
	p := &LayoutProcessor{
		tokens:  DefaultTokens(),
		maskTag: DefaultMaskTag,
	}

	for _, opt := range opts {
		opt(p)
	}

	t := p.tokens
	p.maskOpen = "<" + p.maskTag + ` translate="no">`
	p.breakDash = regexp.MustCompile(regexp.QuoteMeta(t.Break) + `( ?)-`)
	// The combined break+dash token comes first so a bullet stays one unit.
	p.mask = regexp.MustCompile(strings.Join([]string{
		regexp.QuoteMeta(t.Break + t.Dash),
		regexp.QuoteMeta(t.Break),
		regexp.QuoteMeta(t.Dot),
		regexp.QuoteMeta(t.Dash),
	}, "|"))
	tag := regexp.QuoteMeta(p.maskTag)
	p.unmask = regexp.MustCompile(`(?is)<` + tag + `\s+translate\s*=\s*"no"\s*>(.*?)</` + tag + `\s*>`)
	p.restoreBullet = regexp.MustCompile(`<br> ?` + regexp.QuoteMeta(t.Dash))

	return p
}

// Protect checks text for reserved tokens, then applies ProtectLayout and MaskTags.
func (p *LayoutProcessor) Protect(text string) (string, error) {
	if text == "" {
		return text, nil
	}
	for _, tok := range append(p.tokens.list(), p.maskOpen) {
		if strings.Contains(text, tok) {
			return "", &shoptl.TokenCollisionError{Token: tok}
		}
	}
	return p.MaskTags(p.ProtectLayout(text)), nil
}

// Restore applies UnmaskTags, RestoreLayout and DecodeEntities.
func (p *LayoutProcessor) Restore(text string) string {
	return DecodeEntities(p.RestoreLayout(p.UnmaskTags(text)))
}

// TagHandling returns "html".
func (p *LayoutProcessor) TagHandling() string {
	return "html"
}

// IgnoreTags returns the mask tag.
func (p *LayoutProcessor) IgnoreTags() []string {
	return []string{p.maskTag}
}

// ProtectLayout replaces decimal points between digits, <br> tags and
// bullet hyphens after a break with tokens.
func (p *LayoutProcessor) ProtectLayout(text string) string {
	if text == "" {
		return text
	}

	// Matches consume the right-hand digit, so "1.2.3" needs a second pass.
	dot := "${1}" + strings.ReplaceAll(p.tokens.Dot, "$", "$$") + "${2}"
	for {
		next := decimalPattern.ReplaceAllString(text, dot)
		if next == text {
			break
		}
		text = next
	}

	text = lineBreakPattern.ReplaceAllLiteralString(text, p.tokens.Break)
	// A space between break and hyphen moves after the bullet: "<br> -x" reads as "<br>- x".
	bullet := strings.ReplaceAll(p.tokens.Break+p.tokens.Dash, "$", "$$") + "${1}"
	return p.breakDash.ReplaceAllString(text, bullet)
}

// MaskTags wraps every token in a do-not-translate span.
func (p *LayoutProcessor) MaskTags(text string) string {
	if text == "" {
		return text
	}
	return p.mask.ReplaceAllStringFunc(text, func(tok string) string {
		return p.maskOpen + tok + "</" + p.maskTag + ">"
	})
}

// UnmaskTags strips do-not-translate spans, keeping their content.
func (p *LayoutProcessor) UnmaskTags(text string) string {
	if text == "" {
		return text
	}
	return p.unmask.ReplaceAllString(text, "${1}")
}

// RestoreLayout reverses ProtectLayout. A break followed by an optional
// space and a bullet token is normalized to "<br>" + bullet join + "-".
func (p *LayoutProcessor) RestoreLayout(text string) string {
	if text == "" {
		return text
	}
	text = strings.ReplaceAll(text, p.tokens.Break, "<br>")
	text = p.restoreBullet.ReplaceAllLiteralString(text, "<br>"+p.bulletJoin+"-")
	text = strings.ReplaceAll(text, p.tokens.Dash, "-")
	return strings.ReplaceAll(text, p.tokens.Dot, ".")
}

// DecodeEntities decodes HTML character entities such as &amp;.
func DecodeEntities(text string) string {
	if text == "" {
		return text
	}
	return html.UnescapeString(text)
}

// Tokens returns the token set in use.
func (p *LayoutProcessor) Tokens() Tokens {
	return p.tokens
}

// Verify LayoutProcessor implements ContentProcessor
var _ ContentProcessor = (*LayoutProcessor)(nil)

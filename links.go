package shoptl

import (
	"regexp"
	"strings"
)

// DefaultLinkDomain is the storefront domain whose links are localized.
const DefaultLinkDomain = "karhu.com"

// LinkLocalizer rewrites storefront links to their locale-prefixed form.
type LinkLocalizer struct {
	domain  string
	locales map[string]LocaleTarget
	pattern *regexp.Regexp
}

// NewLinkLocalizer creates a localizer for domain using locales for URL segments.
func NewLinkLocalizer(domain string, locales map[string]LocaleTarget) *LinkLocalizer {
	if domain == "" {
		domain = DefaultLinkDomain
	}
	return &LinkLocalizer{
		domain:  domain,
		locales: locales,
		pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(domain) + `/(collections|products)`),
	}
}

// Domain returns the storefront domain.
func (l *LinkLocalizer) Domain() string {
	return l.domain
}

// Localize inserts the locale's URL segment after the domain in every
// <domain>/collections and <domain>/products link. Unmapped locales pass through.
func (l *LinkLocalizer) Localize(text, locale string) string {
	if text == "" {
		return text
	}
	target, ok := ResolveLocale(l.locales, locale)
	if !ok || target.URLSegment == "" {
		return text
	}

	segment := strings.ToLower(target.URLSegment)
	return l.pattern.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.ToLower(l.pattern.FindStringSubmatch(match)[1])
		return l.domain + "/" + segment + "/" + path
	})
}

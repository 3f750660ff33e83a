package processor

import (
	"fmt"
	"strings"
)

// Tokens are the placeholders substituted for layout markup before translation.
//
// Source text must never contain a token verbatim; LayoutProcessor.Protect
// rejects such input with a *shoptl.TokenCollisionError instead of silently
// rewriting it on restore.
type Tokens struct {
	Break string // Replaces <br>
	Dot   string // Replaces the decimal point between two digits
	Dash  string // Bullet hyphen following a line break
}

// DefaultTokens returns the ASCII token set.
func DefaultTokens() Tokens {
	return Tokens{
		Break: "####BR####",
		Dot:   "_DOT_",
		Dash:  "_DASH_",
	}
}

// PrivateUseTokens returns tokens built from Unicode private-use code points.
// Unicode assigns no meaning to U+E000..U+F8FF, and storefront HTML has no
// reason to carry them.
func PrivateUseTokens() Tokens {
	return Tokens{
		Break: "\uE000",
		Dot:   "\uE001",
		Dash:  "\uE002",
	}
}

// Validate checks the tokens are non-empty, distinct and do not contain each other.
func (t Tokens) Validate() error {
	all := map[string]string{"break": t.Break, "dot": t.Dot, "dash": t.Dash}
	for name, tok := range all {
		if tok == "" {
			return fmt.Errorf("%s token is empty", name)
		}
		if strings.ContainsAny(tok, "<>&-.") {
			return fmt.Errorf("%s token %q contains markup or layout characters", name, tok)
		}
		for other, o := range all {
			if other != name && strings.Contains(tok, o) {
				return fmt.Errorf("%s token %q contains %s token %q", name, tok, other, o)
			}
		}
	}
	return nil
}

// list returns the tokens in collision-check order.
func (t Tokens) list() []string {
	return []string{t.Break, t.Dot, t.Dash}
}

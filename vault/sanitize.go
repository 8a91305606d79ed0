package vault

import (
	"regexp"
	"strings"

	"github.com/jmcleod/securevault/internal/util"
)

var (
	scriptTagRE  = regexp.MustCompile(`(?i)<(\s*/?\s*script)`)
	jsSchemeRE   = regexp.MustCompile(`(?i)javascript\s*:`)
	outputEscape = strings.NewReplacer("<", "&lt;", ">", "&gt;")
	htmlEscape   = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
		"/", "&#x2F;",
	)
	unsafePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<\s*script`),
		regexp.MustCompile(`(?i)javascript\s*:`),
		regexp.MustCompile(`(?i)vbscript\s*:`),
		regexp.MustCompile(`(?i)data\s*:\s*text/html`),
		regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
		regexp.MustCompile(`(?i)<\s*(iframe|object|embed)\b`),
		regexp.MustCompile(`(?i)expression\s*\(`),
	}
)

// neutralize defuses script tags and javascript: URIs before plaintext is
// sealed. It is a second line of defense, not output encoding.
func neutralize(s string) string {
	s = scriptTagRE.ReplaceAllString(s, "&lt;$1")
	return jsSchemeRE.ReplaceAllString(s, "blocked:")
}

// Sanitize HTML-escapes s for safe inclusion in markup.
func Sanitize(s string) string {
	return htmlEscape.Replace(s)
}

// IsSafe reports whether s is free of common script and URI injection
// shapes. Fullwidth and other compatibility spellings are folded before
// matching. It is a heuristic and not exhaustive.
func IsSafe(s string) bool {
	folded := util.FoldCompatibility(s)
	for _, re := range unsafePatterns {
		if re.MatchString(s) || re.MatchString(folded) {
			return false
		}
	}
	return true
}

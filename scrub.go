package pulseagent

import (
	"regexp"
	"unicode"

	"github.com/cockroachdb/errors"
)

const (
	// DefaultScrubPattern matches configuration keys that end in _password,
	// _key or _token. It is always part of the active pattern.
	DefaultScrubPattern = `.*_(password|key|token)`

	// RedactedValue replaces the value of every scrubbed entry.
	RedactedValue = "*****"
)

// AppConfigEntry is a single application configuration item.
type AppConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ScrubAppConfigs redacts, in place, every entry whose key fully matches the
// default pattern or extraPattern. Matching is case-insensitive and looks at
// the key only. An empty extraPattern is ignored.
//
// Keys are tried as given and with camel-case word boundaries turned into
// underscores, so MyPassword and apiToken are treated like my_password and
// api_token.
//
// Returns an error marked [ErrInvalidScrubPattern] if extraPattern does not
// compile; entries are left untouched in that case.
func ScrubAppConfigs(entries []AppConfigEntry, extraPattern string) error {
	re, err := compileScrubPattern(extraPattern)
	if err != nil {
		return err
	}
	scrubWith(re, entries)
	return nil
}

func scrubWith(re *regexp.Regexp, entries []AppConfigEntry) {
	for i := range entries {
		key := entries[i].Key
		if re.MatchString(key) || re.MatchString(splitCamel(key)) {
			entries[i].Value = RedactedValue
		}
	}
}

// splitCamel inserts an underscore at every camel-case word boundary:
// "MyPassword" -> "My_Password", "APIKey" -> "API_Key".
func splitCamel(s string) string {
	rs := []rune(s)
	out := make([]rune, 0, len(rs)+4)
	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				out = append(out, '_')
			}
		}
		out = append(out, r)
	}
	return string(out)
}

// compileScrubPattern builds the anchored, case-insensitive union of the
// default pattern and any non-empty extra patterns.
func compileScrubPattern(extra ...string) (*regexp.Regexp, error) {
	expr := DefaultScrubPattern
	for _, p := range extra {
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "scrub pattern %q", p), ErrInvalidScrubPattern)
		}
		expr += "|" + p
	}

	// anchor the whole alternation so every branch must match the full key
	return regexp.Compile(`(?i)^(?:` + expr + `)$`)
}

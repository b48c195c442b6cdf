package doclink

import (
	"net/url"
	"regexp"
	"strings"
)

// lookupIDPattern matches a TSRC- or CMS- prefixed identifier ending in
// exactly six digits. The trailing group is the right-side guard: a seventh
// digit disqualifies the match.
var lookupIDPattern = regexp.MustCompile(`(?i)((?:TSRC|CMS)-[^-]+-[0-9]{6})([^0-9]|$)`)

// ExtractLookupID derives the canonical lookup identifier from a hyperlink's
// address and sub-address (fragment). It returns "" when the hyperlink is
// not a lookup candidate.
//
// Rules, in order:
//  1. A case-insensitive TSRC-xxx-NNNNNN or CMS-xxx-NNNNNN token (exactly
//     six trailing digits) anywhere in the combined URL wins; the match is
//     returned uppercased.
//  2. Otherwise a docid= query value wins: the substring after the first
//     docid= up to the next &, trimmed and percent-decoded exactly once.
//  3. Otherwise "".
func ExtractLookupID(address, subAddress string) string {
	full := address
	if subAddress != "" {
		full += "#" + subAddress
	}
	if full == "" {
		return ""
	}

	if m := lookupIDPattern.FindStringSubmatch(full); m != nil {
		return strings.ToUpper(m[1])
	}

	lower := strings.ToLower(full)
	if idx := strings.Index(lower, "docid="); idx >= 0 {
		value := full[idx+len("docid="):]
		if amp := strings.Index(value, "&"); amp >= 0 {
			value = value[:amp]
		}
		value = strings.TrimSpace(value)
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		return value
	}

	return ""
}

// SplitHyperlinkTarget separates a relationship target URI into address and
// sub-address (fragment) parts. The fragment separator itself is not part
// of either half.
func SplitHyperlinkTarget(target string) (address, subAddress string) {
	if idx := strings.Index(target, "#"); idx >= 0 {
		return target[:idx], target[idx+1:]
	}
	return target, ""
}

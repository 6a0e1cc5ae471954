package rules

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "of": true, "to": true,
	"for": true, "in": true, "on": true, "with": true, "by": true, "or": true,
	"is": true, "are": true, "be": true, "from": true, "into": true, "its": true,
}

// verbSynonyms maps leading verbs onto a canonical form.
var verbSynonyms = map[string]string{
	"check":     "validate",
	"verify":    "validate",
	"ensure":    "validate",
	"assert":    "validate",
	"validate":  "validate",
	"fetch":     "get",
	"retrieve":  "get",
	"load":      "get",
	"read":      "get",
	"get":       "get",
	"lookup":    "get",
	"query":     "get",
	"save":      "store",
	"persist":   "store",
	"write":     "store",
	"store":     "store",
	"put":       "store",
	"create":    "create",
	"add":       "create",
	"insert":    "create",
	"make":      "create",
	"build":     "create",
	"generate":  "create",
	"delete":    "remove",
	"remove":    "remove",
	"drop":      "remove",
	"purge":     "remove",
	"update":    "update",
	"modify":    "update",
	"change":    "update",
	"edit":      "update",
	"send":      "send",
	"publish":   "send",
	"emit":      "send",
	"dispatch":  "send",
	"notify":    "send",
	"compute":   "calculate",
	"calculate": "calculate",
	"calc":      "calculate",
	"derive":    "calculate",
	"parse":     "parse",
	"decode":    "parse",
	"extract":   "parse",
	"convert":   "transform",
	"transform": "transform",
	"map":       "transform",
	"translate": "transform",
	"handle":    "process",
	"process":   "process",
	"execute":   "process",
	"run":       "process",
}

// Tokens splits text into lowercase word tokens, breaking on non-alphanumeric
// runes and camelCase boundaries. Stopwords are dropped and the result is
// deduplicated and sorted.
func Tokens(text string) []string {
	set := make(map[string]bool)
	for _, w := range splitWords(text) {
		w = strings.ToLower(w)
		if w == "" || stopwords[w] {
			continue
		}
		set[w] = true
	}
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// TokenJaccard is the Jaccard index of the token sets of a and b.
func TokenJaccard(a, b string) float64 {
	return Jaccard(Tokens(a), Tokens(b))
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets score 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]int, len(a)+len(b))
	for _, x := range a {
		set[x] |= 1
	}
	for _, x := range b {
		set[x] |= 2
	}
	inter := 0
	for _, m := range set {
		if m == 3 {
			inter++
		}
	}
	return float64(inter) / float64(len(set))
}

// CanonicalVerb returns the canonical form of the leading capitalized word
// of a label, or "" when the label does not start with one.
func CanonicalVerb(label string) string {
	words := splitWords(label)
	if len(words) == 0 {
		return ""
	}
	if r, _ := utf8.DecodeRuneInString(words[0]); !unicode.IsUpper(r) {
		return ""
	}
	w := strings.ToLower(words[0])
	if c, ok := verbSynonyms[w]; ok {
		return c
	}
	return w
}

// splitWords breaks text on non-alphanumeric runes and lower→upper camelCase
// transitions. "validateOrder ID" yields [validate Order ID].
func splitWords(text string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	var prev rune
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
				flush()
			}
			cur = append(cur, r)
		default:
			flush()
		}
		prev = r
	}
	flush()
	return words
}

var fieldPattern = regexp.MustCompile(`(?m)([A-Za-z_][A-Za-z0-9_]*)\s*:\s*\S`)

// StructFields extracts the field names of a SCHEMA struct definition. A
// definition may be a map, JSON object text, or "name: type" lines. The
// boolean is false when nothing parseable was found.
func StructFields(def any) ([]string, bool) {
	set := make(map[string]bool)
	switch v := def.(type) {
	case nil:
		return nil, false
	case map[string]any:
		for k := range v {
			set[strings.ToLower(k)] = true
		}
	case map[string]string:
		for k := range v {
			set[strings.ToLower(k)] = true
		}
	case string:
		text := strings.TrimSpace(v)
		if strings.HasPrefix(text, "{") {
			var obj map[string]any
			if err := json.Unmarshal([]byte(text), &obj); err == nil {
				for k := range obj {
					set[strings.ToLower(k)] = true
				}
				break
			}
		}
		for _, m := range fieldPattern.FindAllStringSubmatch(text, -1) {
			set[strings.ToLower(m[1])] = true
		}
	default:
		return nil, false
	}
	if len(set) == 0 {
		return nil, false
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, true
}

func structText(def any) string {
	if def == nil {
		return ""
	}
	if s, ok := def.(string); ok {
		return s
	}
	return fmt.Sprint(def)
}

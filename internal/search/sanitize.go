// Package search implements the hybrid BM25 + vector search layer: query
// sanitization, per-kind FTS5 indexes, vector kNN over the SQL-resident ANN
// table, reciprocal-rank fusion, and index status/rebuild.
package search

import (
	"log/slog"
	"strings"
)

// ftsMetacharacters are the FTS5 special characters the sanitizer strips
// from every token before handing the query to the FTS5 query parser.
const ftsMetacharacters = `'"()*:^~+{}[]\;@<>#!$%&|,./` + "`" + `?`

var operatorSet = map[string]bool{"AND": true, "OR": true, "NOT": true}

// Sanitize is the single authoritative transformation applied to every raw
// query string before it reaches FTS5. It preserves AND/OR/NOT (case-folded
// to upper), splits all other tokens on hyphens, strips FTS5
// metacharacters, drops empty tokens, collapses leading/trailing/consecutive
// operators, drops a single leading NOT, and inserts an implicit AND
// between consecutive non-operator tokens.
func Sanitize(raw string) string {
	return sanitize(raw, false)
}

// SanitizeDefensive re-applies Sanitize and logs a warning if pre is not
// already idempotent under it (i.e. a caller-supplied "pre-sanitized" query
// still contained metacharacters or malformed operator sequences).
func SanitizeDefensive(pre string) string {
	return sanitize(pre, true)
}

func sanitize(raw string, warnIfChanged bool) string {
	fields := strings.Fields(raw)
	var tokens []string

	for _, f := range fields {
		upper := strings.ToUpper(f)
		if operatorSet[upper] {
			tokens = append(tokens, upper)
			continue
		}
		for _, part := range strings.Split(f, "-") {
			cleaned := stripMetacharacters(part)
			if cleaned == "" {
				continue
			}
			tokens = append(tokens, cleaned)
		}
	}

	tokens = collapseOperators(tokens)
	tokens = dropLeadingNot(tokens)
	tokens = insertImplicitAnd(tokens)

	result := strings.Join(tokens, " ")
	if warnIfChanged && result != raw {
		slog.Warn("query required defensive re-sanitization", "original", raw, "sanitized", result)
	}
	return result
}

func stripMetacharacters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(ftsMetacharacters, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// collapseOperators drops leading/trailing operators and collapses runs of
// consecutive operators down to the last one in the run. A NOT that follows
// another operator (e.g. "AND NOT") is an exclusion clause this engine
// doesn't support positively, so the NOT and its negated term are both
// dropped, leaving the preceding operator to bridge straight to whatever
// follows.
func collapseOperators(tokens []string) []string {
	var out []string
	skipNext := false
	for _, t := range tokens {
		if skipNext {
			skipNext = false
			continue
		}
		if operatorSet[t] {
			if len(out) == 0 {
				continue // leading operator
			}
			if t == "NOT" && operatorSet[out[len(out)-1]] {
				skipNext = true // drop NOT and its negated term
				continue
			}
			if operatorSet[out[len(out)-1]] {
				out[len(out)-1] = t // consecutive operators collapse to the last
				continue
			}
		}
		out = append(out, t)
	}
	for len(out) > 0 && operatorSet[out[len(out)-1]] {
		out = out[:len(out)-1] // trailing operator
	}
	return out
}

func dropLeadingNot(tokens []string) []string {
	if len(tokens) > 0 && tokens[0] == "NOT" {
		return tokens[1:]
	}
	return tokens
}

// insertImplicitAnd inserts AND between two consecutive non-operator
// tokens, since FTS5's default (implicit-AND-free) grammar requires an
// explicit operator between terms.
func insertImplicitAnd(tokens []string) []string {
	var out []string
	for i, t := range tokens {
		if i > 0 && !operatorSet[t] && !operatorSet[tokens[i-1]] {
			out = append(out, "AND")
		}
		out = append(out, t)
	}
	return out
}

// Phrase wraps raw in double quotes for a phrase-search query, doubling any
// embedded quote characters per FTS5's escaping rule.
func Phrase(raw string) string {
	escaped := strings.ReplaceAll(raw, `"`, `""`)
	return `"` + escaped + `"`
}

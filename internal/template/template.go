// Package template compiles flat placeholder templates such as
// "https://api.example.com/users/{userId}" into markup sequences.
//
// A placeholder is a name matching [a-zA-Z0-9_]+ wrapped in one or more brace
// pairs, so {name} and {{name}} are the same placeholder. Only as many braces
// as pair up on both sides belong to it: in `{"a": {x}}` the last brace is
// text.
package template

import (
	"regexp"
	"strings"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
)

var (
	placeholderRe = regexp.MustCompile(`(\{+)([a-zA-Z0-9_]+)(\}+)`)
	braceRunRe    = regexp.MustCompile(`(\{\{+)([^{}]*)(\}\}+)`)
	nameRe        = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	invalidNameRe = regexp.MustCompile(`[^a-zA-Z0-9_]+`)
)

// span is one balanced brace group inside a string. Braces of the runs
// around it that have no partner are not part of the span.
type span struct {
	start, end int
	inner      string
}

// balanced pairs the opening and closing brace runs of each match of re,
// so "{x}}" yields a span over "{x}" and leaves the last brace as text.
func balanced(re *regexp.Regexp, s string) []span {
	var spans []span
	for _, loc := range re.FindAllStringSubmatchIndex(s, -1) {
		open := loc[3] - loc[2]
		closing := loc[7] - loc[6]
		depth := open
		if closing < depth {
			depth = closing
		}
		spans = append(spans, span{
			start: loc[3] - depth,
			end:   loc[6] + depth,
			inner: s[loc[4]:loc[5]],
		})
	}
	return spans
}

// Tokenize converts tpl into a markup sequence, resolving each placeholder
// through ids (name -> variable id). A name missing from ids fails with
// domain.ErrUnknownVariable.
func Tokenize(tpl string, ids map[string]string) (domain.Markup, error) {
	return tokenize(tpl, ids, true)
}

// TokenizeLenient is Tokenize for untrusted input: a placeholder whose name
// is missing from ids stays in the output as literal text.
func TokenizeLenient(tpl string, ids map[string]string) domain.Markup {
	m, _ := tokenize(tpl, ids, false)
	return m
}

func tokenize(tpl string, ids map[string]string, strict bool) (domain.Markup, error) {
	out := domain.Markup{}
	var pending strings.Builder
	flush := func() {
		if pending.Len() > 0 {
			out = append(out, domain.Text(pending.String()))
			pending.Reset()
		}
	}

	pos := 0
	for _, sp := range balanced(placeholderRe, tpl) {
		pending.WriteString(tpl[pos:sp.start])
		pos = sp.end

		id, ok := ids[sp.inner]
		if !ok {
			if strict {
				return nil, &domain.UnknownVariableError{Name: sp.inner}
			}
			pending.WriteString(tpl[sp.start:sp.end])
			continue
		}
		flush()
		out = append(out, domain.Ref(id))
	}
	pending.WriteString(tpl[pos:])
	flush()
	return out, nil
}

// replaceSpans rewrites every balanced group of re in s with repl(span).
func replaceSpans(re *regexp.Regexp, s string, repl func(span) string) string {
	var sb strings.Builder
	pos := 0
	for _, sp := range balanced(re, s) {
		sb.WriteString(s[pos:sp.start])
		sb.WriteString(repl(sp))
		pos = sp.end
	}
	sb.WriteString(s[pos:])
	return sb.String()
}

// Literal wraps s as a single literal markup, or an empty markup for "".
func Literal(s string) domain.Markup {
	if s == "" {
		return domain.Markup{}
	}
	return domain.Markup{domain.Text(s)}
}

// Names returns the distinct placeholder names in tpl in first-occurrence order.
func Names(tpl string) []string {
	return NamesIn(tpl)
}

// NamesIn returns the distinct placeholder names across tpls, in order.
func NamesIn(tpls ...string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, tpl := range tpls {
		for _, sp := range balanced(placeholderRe, tpl) {
			if !seen[sp.inner] {
				seen[sp.inner] = true
				names = append(names, sp.inner)
			}
		}
	}
	return names
}

// SingleName reports whether s consists of exactly one placeholder and
// returns its name.
func SingleName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	spans := balanced(placeholderRe, s)
	if len(spans) != 1 || spans[0].start != 0 || spans[0].end != len(s) {
		return "", false
	}
	return spans[0].inner, true
}

// Placeholder renders name in canonical single-brace form.
func Placeholder(name string) string {
	return "{" + name + "}"
}

// ValidName reports whether name can appear inside a placeholder.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// SanitizeName turns name into a valid placeholder name by replacing each
// run of other characters with "_".
func SanitizeName(name string) string {
	return invalidNameRe.ReplaceAllString(strings.TrimSpace(name), "_")
}

// CollapseBraces rewrites leftover balanced {{...}} groups to single braces.
// Unpaired braces around a group are kept.
func CollapseBraces(s string) string {
	return replaceSpans(braceRunRe, s, func(sp span) string {
		return "{" + sp.inner + "}"
	})
}

// Wildcard replaces every placeholder in s with "*". Unpaired braces next to
// a placeholder are kept, so "{a}}" becomes "*}".
func Wildcard(s string) string {
	return replaceSpans(placeholderRe, s, func(span) string {
		return "*"
	})
}

package template

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
)

func TestTokenize(t *testing.T) {
	ids := map[string]string{"userId": "v1", "q": "v2", "page_2": "v3"}

	tests := []struct {
		name string
		tpl  string
		want domain.Markup
	}{
		{"empty", "", domain.Markup{}},
		{"plain text", "https://api.example.com", domain.Markup{domain.Text("https://api.example.com")}},
		{"single brace", "/users/{userId}", domain.Markup{domain.Text("/users/"), domain.Ref("v1")}},
		{"double brace", "/users/{{userId}}", domain.Markup{domain.Text("/users/"), domain.Ref("v1")}},
		{"only placeholder", "{q}", domain.Markup{domain.Ref("v2")}},
		{"adjacent placeholders", "{q}{userId}", domain.Markup{domain.Ref("v2"), domain.Ref("v1")}},
		{
			"interleaved",
			"a{q}b{{page_2}}c",
			domain.Markup{domain.Text("a"), domain.Ref("v2"), domain.Text("b"), domain.Ref("v3"), domain.Text("c")},
		},
		{"triple brace", "{{{q}}}", domain.Markup{domain.Ref("v2")}},
		{"spaces are not names", "{ q }", domain.Markup{domain.Text("{ q }")}},
		{"json body", `{"id": "{userId}"}`, domain.Markup{domain.Text(`{"id": "`), domain.Ref("v1"), domain.Text(`"}`)}},
		{
			"unquoted json value",
			`{"user": {userId}}`,
			domain.Markup{domain.Text(`{"user": `), domain.Ref("v1"), domain.Text("}")},
		},
		{
			"nested json object",
			`{"a":{"b":{q}}}`,
			domain.Markup{domain.Text(`{"a":{"b":`), domain.Ref("v2"), domain.Text("}}")},
		},
		{"extra closing brace", "{q}}", domain.Markup{domain.Ref("v2"), domain.Text("}")}},
		{"extra opening brace", "{{q}", domain.Markup{domain.Text("{"), domain.Ref("v2")}},
		{"double with extra closing", "{{q}}}", domain.Markup{domain.Ref("v2"), domain.Text("}")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.tpl, ids)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenizeUnknownVariable(t *testing.T) {
	_, err := Tokenize("/users/{missing}", map[string]string{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownVariable)

	var uv *domain.UnknownVariableError
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, "missing", uv.Name)
}

func TestTokenizeLenient(t *testing.T) {
	got := TokenizeLenient("/a/{known}/b/{{missing}}/c", map[string]string{"known": "v1"})
	assert.Equal(t, domain.Markup{
		domain.Text("/a/"),
		domain.Ref("v1"),
		domain.Text("/b/{{missing}}/c"),
	}, got)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Names("{a}/{{b}}/{a}"))
	assert.Empty(t, Names("no placeholders"))
	assert.Equal(t, []string{"url", "q", "body"}, NamesIn("{url}", "{q}{url}", `{"x":"{{body}}"}`))
}

func TestSingleName(t *testing.T) {
	tests := []struct {
		in   string
		name string
		ok   bool
	}{
		{"{userId}", "userId", true},
		{"{{userId}}", "userId", true},
		{" {userId} ", "userId", true},
		{"active", "", false},
		{"x{userId}", "", false},
		{"{a}{b}", "", false},
		{"", "", false},
		{"{userId}}", "", false},
		{"{{userId}", "", false},
	}
	for _, tt := range tests {
		name, ok := SingleName(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.name, name, tt.in)
	}
}

func TestCollapseBraces(t *testing.T) {
	assert.Equal(t, "/users/{id}", CollapseBraces("/users/{{id}}"))
	assert.Equal(t, "/users/{ id }", CollapseBraces("/users/{{ id }}"))
	assert.Equal(t, "/users/{id}", CollapseBraces("/users/{id}"))
	assert.Equal(t, "/users/{id}}", CollapseBraces("/users/{{id}}}"))
	assert.Equal(t, `{"a": {x}}`, CollapseBraces(`{"a": {{x}}}`))
}

func TestWildcard(t *testing.T) {
	assert.Equal(t, "https://x/users/*/posts/*", Wildcard("https://x/users/{id}/posts/{{post}}"))
	assert.Equal(t, "https://x/*}", Wildcard("https://x/{a}}"))
	assert.Equal(t, "https://x/{*", Wildcard("https://x/{{a}"))
	assert.NotEqual(t, Wildcard("https://x/{a}"), Wildcard("https://x/{a}}"))
}

func TestNamesWithUnpairedBraces(t *testing.T) {
	assert.Equal(t, []string{"userId"}, Names(`{"user": {userId}}`))
	assert.Equal(t, []string{"x"}, Names("{{x}"))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "user_id", SanitizeName("user-id"))
	assert.Equal(t, "first_name", SanitizeName(" first name "))
	assert.Equal(t, "a_b", SanitizeName("a.-b"))
	assert.Equal(t, "_", SanitizeName("@@"))
	assert.Equal(t, "", SanitizeName("  "))
	assert.True(t, ValidName(SanitizeName("x.y z")))
}

func TestLiteralAndValidName(t *testing.T) {
	assert.Equal(t, domain.Markup{}, Literal(""))
	assert.Equal(t, domain.Markup{domain.Text("x")}, Literal("x"))
	assert.True(t, ValidName("user_id2"))
	assert.False(t, ValidName("user-id"))
	assert.Equal(t, "{x}", Placeholder("x"))
}

// buildTemplate interleaves literals and placeholder names and returns the
// template together with the string expected after substitution.
func buildTemplate(lits, names []string, open, close string) (string, string, map[string]string) {
	var tpl, want strings.Builder
	values := make(map[string]string)
	for i := 0; i < len(lits) || i < len(names); i++ {
		if i < len(lits) {
			tpl.WriteString(lits[i])
			want.WriteString(lits[i])
		}
		if i < len(names) {
			tpl.WriteString(open + names[i] + close)
			values[names[i]] = "<" + strings.ToUpper(names[i]) + ">"
			want.WriteString(values[names[i]])
		}
	}
	return tpl.String(), want.String(), values
}

// jsonLiteral generates literal text made of JSON-like fragments. Every "{"
// in a fragment is followed by a quote, so literals never form a placeholder
// themselves, but their braces do sit right next to generated placeholders.
func jsonLiteral() gopter.Gen {
	fragments := []string{`{"a": `, `{"b":`, "}", "}}", "x", "/", `"`, ": "}
	fragment := gen.IntRange(0, len(fragments)-1).Map(func(i int) string {
		return fragments[i]
	})
	return gen.SliceOf(fragment).Map(func(parts []string) string {
		return strings.Join(parts, "")
	})
}

func TestTokenizeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("round trip reproduces substituted template", prop.ForAll(
		func(lits []string, names []string) bool {
			tpl, want, values := buildTemplate(lits, names, "{", "}")
			ids := make(map[string]string)
			byID := make(map[string]string)
			for _, n := range NamesIn(tpl) {
				ids[n] = "id_" + n
				byID["id_"+n] = values[n]
			}
			m, err := Tokenize(tpl, ids)
			if err != nil {
				return false
			}
			return m.Render(byID) == want
		},
		gen.SliceOf(jsonLiteral()),
		gen.SliceOf(gen.Identifier()),
	))

	properties.Property("single and double braces tokenize identically", prop.ForAll(
		func(lits []string, names []string) bool {
			single, _, _ := buildTemplate(lits, names, "{", "}")
			double, _, _ := buildTemplate(lits, names, "{{", "}}")
			ids := make(map[string]string)
			for _, n := range names {
				ids[n] = "id_" + n
			}
			a, errA := Tokenize(single, ids)
			b, errB := Tokenize(double, ids)
			if errA != nil || errB != nil {
				return false
			}
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(jsonLiteral()),
		gen.SliceOf(gen.Identifier()),
	))

	properties.Property("no empty literal segments", prop.ForAll(
		func(lits []string, names []string) bool {
			tpl, _, _ := buildTemplate(lits, names, "{", "}")
			ids := make(map[string]string)
			for _, n := range names {
				ids[n] = "id_" + n
			}
			m, err := Tokenize(tpl, ids)
			if err != nil {
				return false
			}
			for _, s := range m {
				if !s.IsVariable() && s.Text == "" {
					return false
				}
			}
			return true
		},
		gen.SliceOf(jsonLiteral()),
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}

package compiler

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/ident"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newCompiler() *Compiler {
	ids := ident.NewSeeded(7)
	return New(ids, NewAssembler(ids, WithClock(func() time.Time { return fixedNow }), WithCreator(42)))
}

func varByName(vars []domain.Variable, name string) *domain.Variable {
	for i := range vars {
		if vars[i].Name == name {
			return &vars[i]
		}
	}
	return nil
}

func TestCompileOperatorTool(t *testing.T) {
	c := newCompiler()
	build, err := c.Compile(OperatorInput{
		Name:        "Get Weather",
		Description: "Fetch the forecast",
		URL:         "https://api.weather.com/v1/{city}/forecast",
		Method:      "GET",
		Query:       "units=metric, key={{apiKey}}",
		Headers:     "Accept: application/json,X-Trace:on",
		VariableDescriptions: map[string]string{
			"city":   "City name",
			"unused": "never referenced",
		},
	})
	require.NoError(t, err)

	tool := build.Tool
	assert.True(t, ident.Valid(tool.ID))
	assert.Equal(t, "Get Weather", tool.Name)
	assert.Equal(t, domain.MethodGet, tool.HTTPMethod)
	assert.Nil(t, tool.Body)
	assert.Nil(t, tool.FolderID)
	assert.Nil(t, tool.Image)
	assert.Equal(t, 42, tool.CreatedByID)
	assert.Equal(t, "2024-05-01T12:00:00.000Z", tool.CreatedAt)

	require.Len(t, build.Variables, 2)
	city := varByName(build.Variables, "city")
	apiKey := varByName(build.Variables, "apiKey")
	require.NotNil(t, city)
	require.NotNil(t, apiKey)
	assert.Equal(t, "City name", city.Description)
	assert.Equal(t, "", apiKey.Description)
	assert.Equal(t, tool.ID, city.APIToolID)
	assert.Equal(t, domain.DatatypeText, city.Datatype)

	assert.Equal(t, domain.Markup{
		domain.Text("https://api.weather.com/v1/"),
		domain.Ref(city.ID),
		domain.Text("/forecast"),
	}, tool.URL)

	require.Len(t, tool.QueryParameters, 2)
	assert.Equal(t, "units", tool.QueryParameters[0].Key)
	assert.Equal(t, domain.Markup{domain.Text("metric")}, tool.QueryParameters[0].Value)
	assert.Equal(t, "key", tool.QueryParameters[1].Key)
	assert.Equal(t, domain.Markup{domain.Ref(apiKey.ID)}, tool.QueryParameters[1].Value)

	require.Len(t, tool.Headers, 2)
	assert.Equal(t, "Accept", tool.Headers[0].Key)
	assert.Equal(t, domain.Markup{domain.Text("application/json")}, tool.Headers[0].Value)
	assert.NotEqual(t, tool.Headers[0].ID, tool.Headers[1].ID)
}

func TestCompileNameUniquenessAcrossSites(t *testing.T) {
	c := newCompiler()
	build, err := c.Compile(OperatorInput{
		Name:   "Update user",
		URL:    "https://x/users/{userId}",
		Method: "post",
		Query:  "id={userId},other={{userId}}",
		Body:   `{"user": "{userId}", "note": "{note}"}`,
	})
	require.NoError(t, err)

	require.Len(t, build.Variables, 2)
	userID := varByName(build.Variables, "userId").ID

	refs := 0
	for _, id := range append(append(
		build.Tool.URL.VariableIDs(),
		append(build.Tool.QueryParameters[0].Value.VariableIDs(), build.Tool.QueryParameters[1].Value.VariableIDs()...)...),
		build.Tool.Body.Content.VariableIDs()...) {
		if id == userID {
			refs++
		}
	}
	assert.Equal(t, 4, refs)
	assert.Equal(t, []string{"userId", "note"}, []string{build.Variables[0].Name, build.Variables[1].Name})
}

func TestCompileBodyGating(t *testing.T) {
	body := `{"q": "{query}"}`

	get, err := newCompiler().Compile(OperatorInput{Name: "Search", URL: "https://x/search", Method: "get", Body: body})
	require.NoError(t, err)
	assert.Nil(t, get.Tool.Body)
	assert.Empty(t, get.Variables, "body variables of a GET must not be declared")

	post, err := newCompiler().Compile(OperatorInput{Name: "Search", URL: "https://x/search", Method: "post", Body: body})
	require.NoError(t, err)
	require.NotNil(t, post.Tool.Body)
	assert.Equal(t, domain.BodyTypeRawInput, post.Tool.Body.Type)
	assert.Equal(t, domain.ContentTypeJSON, post.Tool.Body.ContentType)
	require.Len(t, post.Variables, 1)
	assert.Equal(t, domain.Markup{
		domain.Text(`{"q": "`), domain.Ref(post.Variables[0].ID), domain.Text(`"}`),
	}, post.Tool.Body.Content)

	empty, err := newCompiler().Compile(OperatorInput{Name: "Ping", URL: "https://x/ping", Method: "put", Body: "  "})
	require.NoError(t, err)
	assert.Nil(t, empty.Tool.Body)
}

func TestCompileInvalidMethod(t *testing.T) {
	_, err := newCompiler().Compile(OperatorInput{Name: "x", URL: "https://x", Method: "head"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)
}

func TestCompileDefaultsMethodToGet(t *testing.T) {
	build, err := newCompiler().Compile(OperatorInput{Name: "x", URL: "https://x"})
	require.NoError(t, err)
	assert.Equal(t, domain.MethodGet, build.Tool.HTTPMethod)
}

func TestCompileRequiresNameAndURL(t *testing.T) {
	_, err := newCompiler().Compile(OperatorInput{URL: "https://x"})
	assert.Error(t, err)
	_, err = newCompiler().Compile(OperatorInput{Name: "x"})
	assert.Error(t, err)
}

func TestParsePairs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		sep   string
		want  []Pair
	}{
		{"empty", "", "=", nil},
		{"single", "a=1", "=", []Pair{{"a", "1"}}},
		{"spaces and blanks", " a = 1 , , b=2 ", "=", []Pair{{"a", "1"}, {"b", "2"}}},
		{"value keeps later separators", "token=a=b", "=", []Pair{{"token", "a=b"}}},
		{"missing value", "flag", "=", []Pair{{"flag", ""}}},
		{"missing key", "=x", "=", nil},
		{"headers", "Authorization: Bearer {t},Accept:*/*", ":", []Pair{{"Authorization", "Bearer {t}"}, {"Accept", "*/*"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePairs(tt.input, tt.sep))
		})
	}
}

func TestDiscoverVariables(t *testing.T) {
	in := OperatorInput{
		URL:    "https://x/{a}",
		Query:  "q={b}",
		Body:   "{c}",
		Method: "post",
	}
	assert.Equal(t, []string{"a", "b", "c"}, DiscoverVariables(in))

	in.Method = "get"
	assert.Equal(t, []string{"a", "b"}, DiscoverVariables(in))
}

func TestNameUniquenessProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("K references of one name share one variable", prop.ForAll(
		func(name string, k int) bool {
			url := "https://x"
			for i := 0; i < k; i++ {
				url += "/{" + name + "}"
			}
			build, err := newCompiler().Compile(OperatorInput{
				Name:   "t",
				URL:    url,
				Method: "post",
				Query:  "q={{" + name + "}}",
				Body:   "{" + name + "}",
			})
			if err != nil || len(build.Variables) != 1 {
				return false
			}
			id := build.Variables[0].ID
			for _, ref := range build.Tool.URL.VariableIDs() {
				if ref != id {
					return false
				}
			}
			return build.Tool.QueryParameters[0].Value[0].VariableID == id &&
				build.Tool.Body.Content[0].VariableID == id
		},
		gen.Identifier(),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}

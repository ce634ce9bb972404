package nest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/nest"
)

func validated(t *testing.T, s *nest.Schema, raw map[string]any) nest.Params {
	t.Helper()
	p, err := nest.Validate(s, raw)
	require.NoError(t, err)
	return p
}

func TestParams_accessors(t *testing.T) {
	t.Parallel()

	s := nest.NewSchema().
		Req("name", nest.String()).
		Req("age", nest.Integer()).
		Req("admin", nest.Boolean()).
		Req("tags", nest.Array(nest.String())).
		Req("meta", nest.Object(nest.NewSchema().Req("team", nest.String())))

	p := validated(t, s, map[string]any{
		"name":  "ada",
		"age":   "36",
		"admin": "1",
		"tags":  []string{"a", "b"},
		"meta":  map[string]any{"team": "core"},
	})

	assert.Equal(t, "ada", p.String("name"))
	assert.Equal(t, int64(36), p.Int("age"))
	assert.True(t, p.Bool("admin"))
	assert.Equal(t, []any{"a", "b"}, p.Slice("tags"))
	assert.Equal(t, "core", p.Object("meta").String("team"))
	assert.Equal(t, []string{"admin", "age", "meta", "name", "tags"}, p.Keys())
	assert.Equal(t, 5, p.Len())
	assert.True(t, p.Has("age"))

	assert.Empty(t, p.String("missing"))
	assert.Zero(t, p.Int("name"))
	assert.False(t, p.Bool("name"))
	assert.Nil(t, p.Slice("name"))
	assert.Zero(t, p.Object("name").Len())

	v, ok := p.Get("age")
	require.True(t, ok)
	assert.Equal(t, int64(36), v)
}

func TestParams_sliceIsACopy(t *testing.T) {
	t.Parallel()

	p := validated(t, nest.NewSchema().Req("tags", nest.Array(nest.String())), map[string]any{"tags": []any{"a"}})

	s := p.Slice("tags")
	s[0] = "changed"

	assert.Equal(t, []any{"a"}, p.Slice("tags"))
}

func TestParams_MarshalJSON(t *testing.T) {
	t.Parallel()

	s := nest.NewSchema().
		Req("id", nest.Integer()).
		Opt("meta", nest.Object(nest.NewSchema().Opt("k", nest.String())))

	p := validated(t, s, map[string]any{"id": "7", "meta": map[string]any{"k": "v"}})

	b, err := p.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"meta":{"k":"v"}}`, string(b))
}

func TestBind(t *testing.T) {
	t.Parallel()

	type query struct {
		Name  string   `json:"name"`
		Limit int      `json:"limit"`
		Tags  []string `json:"tags"`
	}

	s := nest.NewSchema().
		Req("name", nest.String()).
		Opt("limit", nest.Integer(), nest.Default(20)).
		Opt("tags", nest.Array(nest.String()))

	p := validated(t, s, map[string]any{"name": "ada", "tags": "x"})

	q, err := nest.Bind[query](p)
	require.NoError(t, err)
	assert.Equal(t, &query{Name: "ada", Limit: 20, Tags: []string{"x"}}, q)
}

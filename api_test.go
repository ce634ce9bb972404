package nest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/nest"
)

func ok(*nest.Context) (any, error) { return "ok", nil }

func TestBuild_errors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		build   func() *nest.API
		wantErr error
		want    string
	}{
		"sibling prefix collision": {
			build: func() *nest.API {
				api := nest.New()
				api.Namespace("users").Get("a", ok)
				api.Namespace("/users/").Get("b", ok)
				return api
			},
			wantErr: nest.ErrPrefixCollision,
		},
		"capture prefixes collide regardless of name": {
			build: func() *nest.API {
				api := nest.New()
				api.Namespace(":id").Get("a", ok)
				api.Namespace(":name").Get("b", ok)
				return api
			},
			wantErr: nest.ErrPrefixCollision,
		},
		"duplicate route across namespaces": {
			build: func() *nest.API {
				api := nest.New()
				api.Get("users/list", ok)
				api.Namespace("users").Get("list", ok)
				return api
			},
			wantErr: nest.ErrRouteCollision,
		},
		"duplicate route with different capture names": {
			build: func() *nest.API {
				return nest.New().Get("users/:id", ok).Get("users/:uid", ok)
			},
			wantErr: nest.ErrRouteCollision,
		},
		"nil handler": {
			build: func() *nest.API {
				return nest.New().Get("x", nil)
			},
			wantErr: nest.ErrInvalidEndpoint,
			want:    "has no handler",
		},
		"empty capture name": {
			build: func() *nest.API {
				return nest.New().Get("users/:", ok)
			},
			wantErr: nest.ErrInvalidEndpoint,
		},
		"capture used twice": {
			build: func() *nest.API {
				api := nest.New()
				api.Namespace("users/:id").Get("posts/:id", ok)
				return api
			},
			wantErr: nest.ErrInvalidEndpoint,
			want:    `captures "id" twice`,
		},
		"namespace mounted twice": {
			build: func() *nest.API {
				api := nest.New()
				ns := nest.NewNamespace("shared").Get("x", ok)
				api.Mount(ns)
				api.Namespace("other").Mount(ns)
				return api
			},
			wantErr: nest.ErrInvalidNamespace,
		},
		"nil namespace": {
			build: func() *nest.API {
				api := nest.New()
				api.Mount(nil)
				return api
			},
			wantErr: nest.ErrInvalidNamespace,
		},
		"versions without strategy": {
			build: func() *nest.API {
				return nest.New(nest.WithVersions(nest.VersionNone, "v1")).Get("x", ok)
			},
			wantErr: nest.ErrInvalidVersioning,
		},
		"strategy without versions": {
			build: func() *nest.API {
				return nest.New(nest.WithVersions(nest.VersionPath)).Get("x", ok)
			},
			wantErr: nest.ErrInvalidVersioning,
		},
		"two strategies": {
			build: func() *nest.API {
				return nest.New(
					nest.WithVersions(nest.VersionPath, "v1"),
					nest.WithVersions(nest.VersionHeader, "v1"),
				).Get("x", ok)
			},
			wantErr: nest.ErrInvalidVersioning,
		},
		"unknown strategy": {
			build: func() *nest.API {
				return nest.New(nest.WithVersions(nest.VersionStrategy(9), "v1")).Get("x", ok)
			},
			wantErr: nest.ErrInvalidVersioning,
		},
		"duplicate version": {
			build: func() *nest.API {
				return nest.New(nest.WithVersions(nest.VersionPath, "v1", "v1")).Get("x", ok)
			},
			wantErr: nest.ErrInvalidVersioning,
		},
		"namespace with undeclared version": {
			build: func() *nest.API {
				api := nest.New(nest.WithVersions(nest.VersionPath, "v1"))
				api.Namespace("x").Versions("v2").Get("y", ok)
				return api
			},
			wantErr: nest.ErrInvalidVersioning,
		},
		"strict schema missing capture": {
			build: func() *nest.API {
				api := nest.New()
				api.Namespace("users/:id").
					Params(nest.NewSchema().Opt("q", nest.String()).Strict()).
					Get("", ok)
				return api
			},
			wantErr: nest.ErrInvalidSchema,
			want:    `capture "id"`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			app, err := tt.build().Build()
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, app)
			if tt.want != "" {
				assert.ErrorContains(t, err, tt.want)
			}
		})
	}
}

func TestBuild_joinsAllErrors(t *testing.T) {
	t.Parallel()

	api := nest.New(nest.WithVersions(nest.VersionPath))
	api.Get("x", nil)
	api.Namespace("a").Get("y", ok)
	api.Namespace("a").Get("z", ok)

	_, err := api.Build()

	require.ErrorIs(t, err, nest.ErrInvalidVersioning)
	require.ErrorIs(t, err, nest.ErrInvalidEndpoint)
	require.ErrorIs(t, err, nest.ErrPrefixCollision)
}

func TestBuild_versionedSiblingsMayShareAPrefix(t *testing.T) {
	t.Parallel()

	api := nest.New(nest.WithVersions(nest.VersionPath, "v1", "v2"))
	api.Namespace("users").Versions("v1").Get("", ok)
	api.Namespace("users").Versions("v2").Get("", ok)

	_, err := api.Build()
	require.NoError(t, err)
}

func TestApp_Routes(t *testing.T) {
	t.Parallel()

	api := nest.New(
		nest.WithPrefix("api"),
		nest.WithVersions(nest.VersionPath, "v1", "v2"),
	)
	api.Params(nest.NewSchema().Opt("trace", nest.Boolean()))
	api.Namespace("users").
		Versions("v2").
		Params(nest.NewSchema().Req("token", nest.String())).
		Post(":id/posts", ok,
			nest.WithParams(nest.NewSchema().Req("title", nest.String())),
			nest.WithSummary("Create a post"),
			nest.WithTags("posts"),
			nest.WithStatus(http.StatusCreated),
		)

	app, err := api.Build()
	require.NoError(t, err)

	routes := app.Routes()
	require.Len(t, routes, 1)
	r := routes[0]

	assert.Equal(t, http.MethodPost, r.Method)
	assert.Equal(t, "/api/users/:id/posts", r.Path)
	assert.Equal(t, "/api", r.Prefix)
	assert.Equal(t, "/users/:id/posts", r.Pattern)
	assert.Equal(t, "/api/v2/users/:id/posts", r.PathFor("v2"))
	assert.Equal(t, []string{"v2"}, r.Versions)
	assert.Equal(t, []string{"id"}, r.Captures)
	assert.Equal(t, []string{"users"}, r.Namespaces)
	assert.Equal(t, "Create a post", r.Summary)
	assert.Equal(t, []string{"posts"}, r.Tags)
	assert.Equal(t, http.StatusCreated, r.Status)

	names := make([]string, len(r.Params))
	for i, p := range r.Params {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"trace", "token", "title"}, names)

	routes[0].Tags[0] = "changed"
	assert.Equal(t, []string{"posts"}, app.Routes()[0].Tags, "Routes returns copies")

	strategy, versions := app.Versioning()
	assert.Equal(t, nest.VersionPath, strategy)
	assert.Equal(t, []string{"v1", "v2"}, versions)
	assert.Equal(t, "/api", app.Prefix())
}

func TestSplitPath(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		want []string
	}{
		"root":     {in: "/", want: nil},
		"empty":    {in: "", want: nil},
		"simple":   {in: "/a/b", want: []string{"a", "b"}},
		"slashes":  {in: "//a///b/", want: []string{"a", "b"}},
		"relative": {in: "a/:id", want: []string{"a", ":id"}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, nest.SplitPath(tt.in))
		})
	}
}

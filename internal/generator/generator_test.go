package generator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/yourorg/restdoc/internal/classify"
	"github.com/yourorg/restdoc/internal/config"
	"github.com/yourorg/restdoc/internal/filter"
	"github.com/yourorg/restdoc/internal/manifest"
	"github.com/yourorg/restdoc/internal/registry"
	"github.com/yourorg/restdoc/pkg/types"
)

func ordersSource(t *testing.T) Source {
	t.Helper()
	m, err := manifest.Load(filepath.Join("..", "..", "testdata", "orders.yaml"))
	require.NoError(t, err)
	src, err := ManifestSource("orders.yaml", m)
	require.NoError(t, err)
	return src
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Output.Dir = t.TempDir()
	cfg.Store.Path = filepath.Join(t.TempDir(), "restdoc.db")
	return cfg
}

func assemble(t *testing.T, src Source) *types.Documentation {
	t.Helper()
	a, err := NewAssemblerFromConfig(testConfig(t), BuildOptions{Provider: src.Provider})
	require.NoError(t, err)
	doc, err := a.Assemble(context.Background(), src.Title, src.Version, src.Controllers)
	require.NoError(t, err)
	return doc
}

func fieldNames(nodes []*types.ParameterNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func TestAssembleGroupsMethodsByURI(t *testing.T) {
	doc := assemble(t, ordersSource(t))
	assert.Equal(t, "Orders API", doc.Title)
	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Controllers, 1)

	c := doc.Controllers[0]
	assert.Equal(t, "OrderController", c.Name)
	assert.Equal(t, "Manage orders.", c.Description)
	require.Len(t, c.Methods, 2)
	assert.Equal(t, "/orders", c.Methods[0].URI)
	assert.Equal(t, "/orders/{id}", c.Methods[1].URI)

	require.Len(t, c.Methods[0].HTTPMethods, 2)
	assert.Equal(t, "listOrders", c.Methods[0].HTTPMethods[0].Name)
	assert.Equal(t, "GET", c.Methods[0].HTTPMethods[0].Method)
	assert.Equal(t, "createOrder", c.Methods[0].HTTPMethods[1].Name)
	assert.Equal(t, "POST", c.Methods[0].HTTPMethods[1].Method)
	require.Len(t, c.Methods[1].HTTPMethods, 1)
	assert.Equal(t, "getOrder", c.Methods[1].HTTPMethods[0].Name)
}

func TestAssembleBindsControllerGenerics(t *testing.T) {
	doc := assemble(t, ordersSource(t))
	methods := doc.Controllers[0].Methods

	create := methods[0].HTTPMethods[1]
	require.NotNil(t, create.RequestBody)
	assert.Equal(t, "com.acme.model.Order", create.RequestBody.Type.String())
	assert.Equal(t, LocationBody, create.RequestBody.Location)
	assert.True(t, create.RequestBody.Required)
	assert.Empty(t, create.Params)
	assert.Equal(t, []string{
		"", "id", "tags", "owner", "owner.account", "owner.password",
		"status", "lines", "lines.sku", "lines.quantity",
	}, fieldNames(create.RequestBody.Fields))
	for _, f := range create.RequestBody.Fields {
		assert.Empty(t, f.Children)
	}

	list := methods[0].HTTPMethods[0]
	require.NotNil(t, list.Return)
	assert.Equal(t, "com.acme.model.Page<com.acme.model.Order>", list.Return.Type.String())
	assert.Equal(t, "One page of orders.", list.Return.Description)
	assert.Contains(t, fieldNames(list.Return.Fields), "content.owner.account")
	assert.Contains(t, fieldNames(list.Return.Fields), "total")

	get := methods[1].HTTPMethods[0]
	require.Len(t, get.Params, 2)
	assert.Equal(t, "java.lang.Long", get.Params[0].Type.String())
}

func TestAssembleParameterLocations(t *testing.T) {
	doc := assemble(t, ordersSource(t))
	methods := doc.Controllers[0].Methods

	page := methods[0].HTTPMethods[0].Params[0]
	assert.Equal(t, "page", page.Name)
	assert.Equal(t, LocationQuery, page.Location)
	assert.False(t, page.Required)
	assert.Equal(t, "0", page.Default)

	get := methods[1].HTTPMethods[0]
	assert.Equal(t, LocationPath, get.Params[0].Location)
	assert.True(t, get.Params[0].Required)
	assert.Equal(t, LocationHeader, get.Params[1].Location)
	assert.True(t, get.Params[1].Required)
	assert.Nil(t, get.RequestBody)
}

func TestAssembleExamples(t *testing.T) {
	doc := assemble(t, ordersSource(t))
	methods := doc.Controllers[0].Methods

	create := methods[0].HTTPMethods[1]
	assert.Equal(t, "json", create.Example.Format)
	req := create.Example.Request
	require.True(t, gjson.Valid(req), req)
	assert.Equal(t, "int", gjson.Get(req, "id").String())
	assert.Equal(t, "String", gjson.Get(req, "tags.0").String())
	assert.Equal(t, "Order", gjson.Get(req, "owner.account").String())
	assert.Equal(t, "OrderStatus", gjson.Get(req, "status").String())
	assert.Equal(t, "String", gjson.Get(req, "lines.String.sku").String())
	assert.False(t, gjson.Get(req, "MAX_LINES").Exists())
	assert.Equal(t, req, create.Example.Response)
	assert.False(t, create.Degraded)

	list := methods[0].HTTPMethods[0]
	assert.Empty(t, list.Example.Request)
	assert.Equal(t, "int", gjson.Get(list.Example.Response, "content.0.id").String())
	assert.Equal(t, "long", gjson.Get(list.Example.Response, "total").String())

	get := methods[1].HTTPMethods[0]
	assert.Equal(t, int64(42), gjson.Get(get.Example.Response, "id").Int())
	assert.Equal(t, "rush", gjson.Get(get.Example.Response, "tags.0").String())
	assert.False(t, gjson.Get(get.Example.Response, "owner").Exists())
}

func TestAssembleEnumerations(t *testing.T) {
	doc := assemble(t, ordersSource(t))
	require.Len(t, doc.Enums, 1)
	assert.Equal(t, "com.acme.model.OrderStatus", doc.Enums[0].Name)
	assert.Equal(t, "Lifecycle state of an order.", doc.Enums[0].Doc)
	assert.Equal(t, []string{"NEW", "PAID", "SHIPPED"}, doc.Enums[0].Values)

	for _, m := range doc.Controllers[0].Methods {
		for _, hm := range m.HTTPMethods {
			assert.Equal(t, []string{"com.acme.model.OrderStatus"}, hm.Enums, hm.Name)
		}
	}
}

func TestOperationBindingsOverrideClassBindings(t *testing.T) {
	src := ordersSource(t)
	op := src.Controllers[0].Operations[1]
	op.Name = "createUser"
	op.URI = "/orders/users"
	op.Bindings = map[string]types.TypeRef{"E": types.Ref("com.acme.model.User")}
	src.Controllers[0].Operations = []manifest.Operation{op}

	doc := assemble(t, src)
	hm := doc.Controllers[0].Methods[0].HTTPMethods[0]
	assert.Equal(t, "com.acme.model.User", hm.RequestBody.Type.String())
	assert.Equal(t, []string{"", "account", "account.id", "account.tags", "account.owner", "account.status", "account.lines", "account.lines.sku", "account.lines.quantity", "password"},
		fieldNames(hm.RequestBody.Fields))
}

func parseSource(t *testing.T, text string) Source {
	t.Helper()
	m, err := manifest.Parse([]byte(text))
	require.NoError(t, err)
	src, err := ManifestSource("inline", m)
	require.NoError(t, err)
	return src
}

func TestAssembleProviderFailureDegradesOperations(t *testing.T) {
	src := ordersSource(t)
	inner := src.Provider
	src.Provider = registry.ProviderFunc(func(name string) (*types.ClassMetadata, error) {
		if name == "com.acme.model.OrderLine" {
			return nil, errors.New("metadata backend unavailable")
		}
		return inner.Lookup(name)
	})
	doc := assemble(t, src)

	methods := doc.Controllers[0].Methods
	require.Len(t, methods, 2)
	list, create := methods[0].HTTPMethods[0], methods[0].HTTPMethods[1]
	get := methods[1].HTTPMethods[0]
	for _, m := range []types.HTTPMethod{list, create, get} {
		assert.True(t, m.Degraded, m.Name)
		require.NotEmpty(t, m.Problems, m.Name)
		assert.Contains(t, m.Problems[0], "com.acme.model.OrderLine", m.Name)
		assert.Contains(t, m.Problems[0], "metadata backend unavailable", m.Name)
	}
	assert.Len(t, create.Problems, 1)

	require.NotNil(t, create.RequestBody)
	names := fieldNames(create.RequestBody.Fields)
	assert.Contains(t, names, "lines")
	assert.Contains(t, names, "status")
	assert.NotContains(t, names, "lines.sku")

	line := gjson.Get(create.Example.Request, "lines.String").String()
	assert.Contains(t, line, "<unavailable: com.acme.model.OrderLine")
	assert.Equal(t, "int", gjson.Get(create.Example.Request, "id").String())
}

func TestAssembleEmptyRequestBody(t *testing.T) {
	src := parseSource(t, `
classes:
  - name: com.acme.Empty
controllers:
  - name: EmptyController
    uri: /empty
    operations:
      - name: post
        uri: /empty
        method: POST
        params:
          - name: body
            type: com.acme.Empty
            annotations: [RequestBody]
`)
	a, err := NewAssemblerFromConfig(testConfig(t), BuildOptions{Provider: src.Provider})
	require.NoError(t, err)
	_, err = a.Assemble(context.Background(), "t", "1", src.Controllers)
	require.ErrorIs(t, err, ErrEmptyRequestBody)
}

func TestAssembleRejectsMalformedControllers(t *testing.T) {
	src := ordersSource(t)
	a, err := NewAssemblerFromConfig(testConfig(t), BuildOptions{Provider: src.Provider})
	require.NoError(t, err)

	cases := map[string]func(c *manifest.Controller){
		"controller uri": func(c *manifest.Controller) { c.URI = "" },
		"no operations":  func(c *manifest.Controller) { c.Operations = nil },
		"operation uri":  func(c *manifest.Controller) { c.Operations[0].URI = " " },
		"http method":    func(c *manifest.Controller) { c.Operations[0].Method = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := ordersSource(t).Controllers[0]
			mutate(&c)
			_, err := a.Assemble(context.Background(), "t", "1", []manifest.Controller{c})
			require.ErrorIs(t, err, ErrInvalidManifest)
		})
	}
}

func TestManifestSourceWrapsInvalidManifest(t *testing.T) {
	m := &manifest.Manifest{Classes: []manifest.ClassSpec{{Name: "A"}, {Name: "A"}}}
	_, err := ManifestSource("dup", m)
	require.ErrorIs(t, err, ErrInvalidManifest)
	require.ErrorIs(t, err, manifest.ErrInvalid)
}

func TestAssembleInvalidUserExampleIsDegraded(t *testing.T) {
	src := ordersSource(t)
	src.Controllers[0].Operations[1].Examples.Request = "{not json"

	doc := assemble(t, src)
	create := doc.Controllers[0].Methods[0].HTTPMethods[1]
	assert.True(t, create.Degraded)
	assert.Equal(t, "{not json", create.Example.Request)
	require.Len(t, create.Problems, 1)
	assert.Contains(t, create.Problems[0], "request example")
}

func TestNonPrimitiveBodyFilter(t *testing.T) {
	src := parseSource(t, `
classes:
  - name: com.acme.User
    fields:
      - name: name
        type: java.lang.String
controllers:
  - name: UserController
    uri: /users
    operations:
      - name: update
        uri: /{id}
        method: PUT
        params:
          - name: id
            type: long
            annotations: [PathVariable]
          - name: verbose
            type: boolean
          - name: user
            type: com.acme.User
`)
	oracle := classify.New(registry.New(src.Provider))
	body, err := filter.NewRequestBodyFilter(filter.BodyFilterNonPrimitive, oracle)
	require.NoError(t, err)
	a, err := NewAssembler(Options{Oracle: oracle, BodyFilter: body})
	require.NoError(t, err)

	doc, err := a.Assemble(context.Background(), "Users", "1", src.Controllers)
	require.NoError(t, err)
	m := doc.Controllers[0].Methods[0]
	assert.Equal(t, "/users/{id}", m.URI)
	hm := m.HTTPMethods[0]
	require.NotNil(t, hm.RequestBody)
	assert.Equal(t, "user", hm.RequestBody.Name)
	require.Len(t, hm.Params, 2)
	assert.Equal(t, LocationQuery, hm.Params[1].Location)
	assert.False(t, hm.Params[1].Required)
	assert.Equal(t, "String", gjson.Get(hm.Example.Request, "name").String())
}

func TestJoinURI(t *testing.T) {
	assert.Equal(t, "/orders", JoinURI("/orders", "/orders"))
	assert.Equal(t, "/orders/{id}", JoinURI("/orders/", "/orders/{id}"))
	assert.Equal(t, "/orders/{id}", JoinURI("/orders", "{id}"))
	assert.Equal(t, "/ordersx", JoinURI("", "/ordersx"))
	assert.Equal(t, "/orders/ordersx", JoinURI("/orders", "/ordersx"))
}

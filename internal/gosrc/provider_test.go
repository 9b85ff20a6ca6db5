package gosrc

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/yourorg/restdoc/internal/classify"
	"github.com/yourorg/restdoc/internal/example"
	"github.com/yourorg/restdoc/internal/registry"
	"github.com/yourorg/restdoc/internal/walker"
	"github.com/yourorg/restdoc/pkg/types"
)

const pkgPath = "example.com/shop"

var loadShop = sync.OnceValues(func() (*Provider, error) {
	return Load(context.Background(), Options{Dir: filepath.Join("testdata", "shop")})
})

func shop(t *testing.T) *Provider {
	t.Helper()
	p, err := loadShop()
	require.NoError(t, err)
	return p
}

func fieldByName(t *testing.T, cm *types.ClassMetadata, name string) types.FieldMetadata {
	t.Helper()
	for _, f := range cm.Fields {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("field %s not found in %s", name, cm.Name)
	return types.FieldMetadata{}
}

func TestLookupStruct(t *testing.T) {
	order, err := shop(t).Lookup(pkgPath + ".Order")
	require.NoError(t, err)

	assert.Equal(t, "Order is a customer order.", order.Doc)
	names := make([]string, 0, len(order.Fields))
	for _, f := range order.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"tags", "owner", "status", "priority", "lines", "total", "created_at", "payload", "meta"}, names)

	require.NotNil(t, order.Super)
	assert.Equal(t, pkgPath+".Entity", order.Super.Name)
	require.Len(t, order.Super.Args, 1)
	assert.Equal(t, types.TypeRef{Name: "int64", Primitive: true}, order.Super.Args[0])

	tags := fieldByName(t, order, "tags")
	assert.Equal(t, "string", tags.Type.Name)
	assert.Equal(t, 1, tags.Type.Dims)
	assert.Equal(t, "Tags are free-form labels.", tags.Doc)

	owner := fieldByName(t, order, "owner")
	assert.Equal(t, pkgPath+".User", owner.Type.Name)
	assert.True(t, owner.Required)

	lines := fieldByName(t, order, "lines")
	assert.Equal(t, "map", lines.Type.Name)
	require.Len(t, lines.Type.Args, 2)
	assert.Equal(t, pkgPath+".OrderLine", lines.Type.Args[1].Name)

	total := fieldByName(t, order, "total")
	assert.Equal(t, types.TypeRef{Name: "int64", Primitive: true}, total.Type)
	assert.Equal(t, "in cents", total.Doc)

	assert.Equal(t, pkgPath+".Status", fieldByName(t, order, "status").Type.Name)
	assert.Equal(t, "time.Time", fieldByName(t, order, "created_at").Type.Name)
	assert.Equal(t, types.TypeRef{Name: "string", Primitive: true}, fieldByName(t, order, "payload").Type)
	assert.Equal(t, "any", fieldByName(t, order, "meta").Type.Name)
}

func TestLookupGenericStruct(t *testing.T) {
	p := shop(t)
	entity, err := p.Lookup(pkgPath + ".Entity")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID"}, entity.TypeParams)
	require.Len(t, entity.Fields, 1)
	assert.Equal(t, "ID", entity.Fields[0].Type.Name)
	assert.True(t, entity.Fields[0].Required)

	page, err := p.Lookup(pkgPath + ".Page")
	require.NoError(t, err)
	assert.Equal(t, []string{"T"}, page.TypeParams)
	assert.Equal(t, types.TypeRef{Name: "T", Dims: 1}, page.Fields[0].Type)
}

func TestLookupEnumerations(t *testing.T) {
	p := shop(t)
	status, err := p.Lookup(pkgPath + ".Status")
	require.NoError(t, err)
	assert.True(t, status.Enum)
	assert.Equal(t, []string{"new", "paid", "shipped"}, status.EnumValues)
	assert.Equal(t, "Status is the lifecycle state of an order.", status.Doc)

	prio, err := p.Lookup(pkgPath + ".Priority")
	require.NoError(t, err)
	assert.Equal(t, []string{"Low", "High"}, prio.EnumValues)
}

func TestLookupFieldNamesAndTags(t *testing.T) {
	p := shop(t)
	line, err := p.Lookup(pkgPath + ".OrderLine")
	require.NoError(t, err)
	require.Len(t, line.Fields, 2)
	assert.Equal(t, "Qty", line.Fields[1].Name)

	user, err := p.Lookup(pkgPath + ".User")
	require.NoError(t, err)
	assert.True(t, fieldByName(t, user, "name").Required)
	assert.False(t, fieldByName(t, user, "password").Required)
}

func TestLookupNotFound(t *testing.T) {
	p := shop(t)
	for _, name := range []string{pkgPath + ".Handler", pkgPath + ".Cents", "time.Time", "com.acme.Order"} {
		_, err := p.Lookup(name)
		assert.ErrorIs(t, err, registry.ErrNotFound, name)
	}
}

func TestLookupIsMemoized(t *testing.T) {
	p := shop(t)
	first, err := p.Lookup(pkgPath + ".OrderLine")
	require.NoError(t, err)
	second, err := p.Lookup(pkgPath + ".OrderLine")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		pkgPath + ".Entity",
		pkgPath + ".Order",
		pkgPath + ".OrderLine",
		pkgPath + ".Page",
		pkgPath + ".Priority",
		pkgPath + ".Status",
		pkgPath + ".User",
	}, shop(t).Names())
}

func TestLoadReportsErrors(t *testing.T) {
	_, err := Load(context.Background(), Options{Dir: filepath.Join("testdata", "shop"), Patterns: []string{"./missing"}})
	assert.ErrorIs(t, err, ErrLoad)
}

func TestWalkAndSynthesizeGoTypes(t *testing.T) {
	oracle := classify.New(registry.New(shop(t)))
	ref := types.TypeRef{Name: pkgPath + ".Order"}

	res := walker.New(oracle).Walk(ref, nil)
	var paths []string
	for _, n := range res.Nodes() {
		paths = append(paths, n.Name)
	}
	assert.Contains(t, paths, "id")
	assert.Contains(t, paths, "owner.account")
	assert.Contains(t, paths, "lines.sku")
	assert.NotContains(t, paths, "owner.account.id")
	enums := append([]string(nil), res.Enums...)
	sort.Strings(enums)
	assert.Equal(t, []string{pkgPath + ".Priority", pkgPath + ".Status"}, enums)

	out := example.NewSynthesizer(oracle).Synthesize(ref, nil)
	require.False(t, out.Degraded, out.Problems)
	text, err := example.Marshal(out.Value, example.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "int64", gjson.Get(text, "id").String())
	assert.Equal(t, "Order", gjson.Get(text, "owner.account").String())
	assert.True(t, gjson.Get(text, "lines.string").IsObject())
	assert.Equal(t, "string", gjson.Get(text, "lines.string.sku").String())
	assert.Equal(t, "Time", gjson.Get(text, "created_at").String())
}

func TestLookupRecursiveNamedContainers(t *testing.T) {
	p, err := Load(context.Background(), Options{Dir: filepath.Join("testdata", "tree")})
	require.NoError(t, err)

	doc, err := p.Lookup("example.com/tree.Doc")
	require.NoError(t, err)
	str := types.TypeRef{Name: "string", Primitive: true}
	assert.Equal(t, types.Ref("map", str, types.TypeRef{Name: "example.com/tree.Attrs"}), fieldByName(t, doc, "attrs").Type)
	assert.Equal(t, types.TypeRef{Name: "example.com/tree.Tree", Dims: 1}, fieldByName(t, doc, "children").Type)
	assert.Equal(t, types.TypeRef{Name: "example.com/tree.Link"}, fieldByName(t, doc, "next").Type)

	_, err = p.Lookup("example.com/tree.Attrs")
	assert.ErrorIs(t, err, registry.ErrNotFound)

	oracle := classify.New(registry.New(p))
	ref := types.TypeRef{Name: "example.com/tree.Doc"}
	res := walker.New(oracle).Walk(ref, nil)
	assert.False(t, res.Degraded())
	out := example.NewSynthesizer(oracle).Synthesize(ref, nil)
	require.False(t, out.Degraded, out.Problems)
	text, err := example.Marshal(out.Value, example.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "Attrs", gjson.Get(text, "attrs.string").String())
	assert.Equal(t, "Tree", gjson.Get(text, "children.0").String())
	assert.Equal(t, "Link", gjson.Get(text, "next").String())
}

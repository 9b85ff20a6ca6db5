package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeRefHelpers(t *testing.T) {
	page := Ref("com.acme.Page", Ref("com.acme.User"))
	assert.Equal(t, "com.acme.Page<com.acme.User>", page.String())
	assert.Equal(t, "Page", page.SimpleName())
	assert.False(t, page.IsArray())

	arr := page.WithDims(2)
	assert.True(t, arr.IsArray())
	assert.Equal(t, 1, arr.Component().Dims)
	assert.Equal(t, 2, arr.Dims)
	assert.True(t, arr.Component().Component().Equal(page))
	assert.False(t, arr.Equal(page))

	assert.Equal(t, "Entry", SimpleName("java.util.Map$Entry"))
	assert.Equal(t, "User", SimpleName("example.com/shop.User"))
}

func tree() *ParameterNode {
	return &ParameterNode{Kind: KindObject, Children: []*ParameterNode{
		{Name: "id", Kind: KindPrimitive},
		{Name: "owner", Kind: KindObject, Children: []*ParameterNode{
			{Name: "owner.account", Kind: KindObject},
		}},
		{Name: "tags", Kind: KindCollection},
	}}
}

func names(nodes []*ParameterNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func TestFlattenIsPreOrder(t *testing.T) {
	flat := tree().Flatten()
	assert.Equal(t, []string{"", "id", "owner", "owner.account", "tags"}, names(flat))
	assert.Equal(t, "account", flat[3].LeafName())
}

func TestDetachedAndBuildTree(t *testing.T) {
	detached := tree().Detached()
	for _, n := range detached {
		assert.Empty(t, n.Children)
	}
	rebuilt := BuildTree(detached)
	require.NotNil(t, rebuilt)
	assert.Equal(t, names(tree().Flatten()), names(rebuilt.Flatten()))
	require.Len(t, rebuilt.Children, 3)
	assert.Equal(t, "owner.account", rebuilt.Children[1].Children[0].Name)

	assert.Nil(t, BuildTree(nil))
}

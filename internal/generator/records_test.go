package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/restdoc/pkg/types"
)

func TestRecordsRoundTrip(t *testing.T) {
	doc := assemble(t, ordersSource(t))
	records := Records(doc)
	require.Len(t, records, 3)

	for i, r := range records {
		assert.Equal(t, i+1, r.Seq)
		assert.Equal(t, "OrderController", r.Controller)
		assert.Equal(t, "/orders", r.BaseURI)
		assert.Equal(t, "Manage orders.", r.CtrlDoc)
	}
	assert.Equal(t, "GET", records[0].Method)
	assert.Equal(t, "POST", records[1].Method)
	assert.Equal(t, "/orders/{id}", records[2].URI)
	assert.Equal(t, "getOrder", records[2].Name)

	run := &types.Run{Title: doc.Title, Version: doc.Version, Enums: doc.Enums}
	assert.Equal(t, doc, Rebuild(run, records))
}

func TestRebuildSplitsControllers(t *testing.T) {
	ops := []types.OperationRecord{
		{Controller: "A", BaseURI: "/a", URI: "/a", Doc: types.HTTPMethod{Name: "one", Method: "GET"}},
		{Controller: "A", BaseURI: "/a", URI: "/a", Doc: types.HTTPMethod{Name: "two", Method: "POST"}},
		{Controller: "B", BaseURI: "/b", URI: "/b/x", Doc: types.HTTPMethod{Name: "three", Method: "GET"}},
	}
	doc := Rebuild(nil, ops)
	require.Len(t, doc.Controllers, 2)
	require.Len(t, doc.Controllers[0].Methods, 1)
	assert.Len(t, doc.Controllers[0].Methods[0].HTTPMethods, 2)
	assert.Equal(t, "/b/x", doc.Controllers[1].Methods[0].URI)

	assert.Nil(t, Records(nil))
}

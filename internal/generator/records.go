package generator

import (
	"github.com/yourorg/restdoc/pkg/types"
)

// Records flattens doc into one persisted record per HTTP method, numbered
// in document order.
func Records(doc *types.Documentation) []types.OperationRecord {
	if doc == nil {
		return nil
	}
	var out []types.OperationRecord
	seq := 0
	for _, c := range doc.Controllers {
		for _, m := range c.Methods {
			for _, hm := range m.HTTPMethods {
				seq++
				out = append(out, types.OperationRecord{
					Seq:        seq,
					Controller: c.Name,
					BaseURI:    c.URI,
					CtrlDoc:    c.Description,
					URI:        m.URI,
					Method:     hm.Method,
					Name:       hm.Name,
					Doc:        hm,
					Degraded:   hm.Degraded,
				})
			}
		}
	}
	return out
}

// Rebuild reassembles the documentation of a stored run. Records must be in
// sequence order.
func Rebuild(run *types.Run, ops []types.OperationRecord) *types.Documentation {
	doc := &types.Documentation{}
	if run != nil {
		doc.Title = run.Title
		doc.Version = run.Version
		doc.Enums = run.Enums
	}
	for _, op := range ops {
		n := len(doc.Controllers)
		if n == 0 || doc.Controllers[n-1].Name != op.Controller {
			doc.Controllers = append(doc.Controllers, types.Controller{Name: op.Controller, URI: op.BaseURI, Description: op.CtrlDoc})
			n++
		}
		ctrl := &doc.Controllers[n-1]
		k := len(ctrl.Methods)
		if k == 0 || ctrl.Methods[k-1].URI != op.URI {
			ctrl.Methods = append(ctrl.Methods, types.Method{URI: op.URI})
			k++
		}
		ctrl.Methods[k-1].HTTPMethods = append(ctrl.Methods[k-1].HTTPMethods, op.Doc)
	}
	return doc
}

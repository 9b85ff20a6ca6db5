package types

// Documentation is the assembled output of one generation run.
type Documentation struct {
	Title       string       `json:"title"`
	Version     string       `json:"version"`
	Controllers []Controller `json:"controllers"`
	Enums       []EnumDoc    `json:"enums,omitempty"`
}

// Controller groups the documented methods of one controller class.
type Controller struct {
	Name        string   `json:"name"`
	URI         string   `json:"uri"`
	Description string   `json:"description,omitempty"`
	Methods     []Method `json:"methods"`
}

// Method is one URI; several HTTP methods may share it.
type Method struct {
	URI         string       `json:"uri"`
	HTTPMethods []HTTPMethod `json:"http_methods"`
}

// HTTPMethod documents one operation.
type HTTPMethod struct {
	Name             string           `json:"name"`
	Method           string           `json:"method"`
	Description      string           `json:"description,omitempty"`
	Params           []Parameter      `json:"params,omitempty"`
	RequestBody      *Parameter       `json:"request_body,omitempty"`
	Return           *ReturnDetails   `json:"return,omitempty"`
	ResponseStatuses []ResponseStatus `json:"response_statuses,omitempty"`
	Example          Example          `json:"example"`
	Enums            []string         `json:"enums,omitempty"`
	Degraded         bool             `json:"degraded,omitempty"`
	Problems         []string         `json:"problems,omitempty"`
}

// Parameter is a documented method parameter with its flattened field tree.
type Parameter struct {
	Name        string           `json:"name"`
	Type        TypeRef          `json:"type"`
	Location    string           `json:"location"`
	Required    bool             `json:"required"`
	Default     string           `json:"default,omitempty"`
	Description string           `json:"description,omitempty"`
	Fields      []*ParameterNode `json:"fields"`
}

// ReturnDetails documents the response shape.
type ReturnDetails struct {
	Type        TypeRef          `json:"type"`
	Description string           `json:"description,omitempty"`
	Fields      []*ParameterNode `json:"fields,omitempty"`
}

// ResponseStatus is one documented possible response status.
type ResponseStatus struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

// Example holds serialized request/response payloads.
type Example struct {
	Format   string `json:"format"`
	Request  string `json:"request,omitempty"`
	Response string `json:"response,omitempty"`
}

// EnumDoc lists the constants of a referenced enumeration.
type EnumDoc struct {
	Name   string   `json:"name"`
	Doc    string   `json:"doc,omitempty"`
	Values []string `json:"values,omitempty"`
}

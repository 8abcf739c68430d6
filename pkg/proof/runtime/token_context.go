package runtime

// TokenContext is the layered lookup scope {{token}} paths resolve against.
// One context is constructed per request; Lookups is populated lazily as
// declared lookups complete and Data once the primary dataset is fetched.
type TokenContext struct {
	Criteria  map[string]any
	Messages  map[string]string
	Constants map[string]any
	Lookups   map[string]any
	// DataSource carries continuation context returned by the data source.
	DataSource map[string]any
	// Data holds the primary dataset rows for templates referencing raw data.
	Data any
}

// NewTokenContext creates a context over the given criteria values with empty
// lazily-populated scopes.
func NewTokenContext(criteria map[string]any, messages map[string]string, constants map[string]any) *TokenContext {
	return &TokenContext{
		Criteria:  criteria,
		Messages:  messages,
		Constants: constants,
		Lookups:   make(map[string]any),
	}
}

// CriteriaOnly creates a context exposing nothing but the criteria values.
// Dataset parameters of option fetches are resolved against such a context.
func CriteriaOnly(criteria map[string]any) *TokenContext {
	return &TokenContext{
		Criteria: criteria,
		Lookups:  make(map[string]any),
	}
}

// Scope returns the named top-level scope of the context. The second return
// reports whether the scope name is known at all.
func (tc *TokenContext) Scope(name string) (any, bool) {
	switch name {
	case "criteria":
		return tc.Criteria, tc.Criteria != nil
	case "messages":
		return tc.Messages, tc.Messages != nil
	case "constants":
		return tc.Constants, tc.Constants != nil
	case "lookups":
		return tc.Lookups, tc.Lookups != nil
	case "dataSource":
		return tc.DataSource, tc.DataSource != nil
	case "data":
		return tc.Data, tc.Data != nil
	}
	return nil, false
}

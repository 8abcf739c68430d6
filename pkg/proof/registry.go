package proof

import (
	"context"
	"sort"

	"github.com/prooflab/zenproof/pkg/datasource"
	"github.com/prooflab/zenproof/pkg/proof/model"
	"github.com/prooflab/zenproof/pkg/proof/runtime"
)

// Provider serves one proof type for one request: the wizard UI model while
// criteria are being collected, and the proof documents once they are.
type Provider interface {
	GenerateCriteriaPages(ctx context.Context, criteria map[string]any, user runtime.UserContext) ([]runtime.CriteriaPage, error)
	GenerateProof(ctx context.Context, req runtime.ProofRequest) (*runtime.BuildResult, error)
}

// HandlerRegistration registers a code-provided proof type with the engine.
type HandlerRegistration struct {
	ProofType string
	Label     string
	Category  string
	// Matches filters the proof type in or out when listing available proof
	// types for a criteria set. nil matches everything.
	Matches func(criteria map[string]any, category string) bool
	// New creates the provider instance serving one request.
	New func(engine *Engine, source datasource.DataSource) Provider
}

// registryEntry is a closed sum: either a code-provided handler or a
// declarative definition, never both.
type registryEntry struct {
	label      string
	category   string
	criteria   map[string]string
	handler    *HandlerRegistration
	definition *model.Definition
}

// RegisterHandler merges a code-provided handler into the registry. A proof
// type present both in code and in the declarative configuration is a fatal
// duplicate registration, detected here before any request is served.
func (engine *Engine) RegisterHandler(handler HandlerRegistration) error {
	if _, ok := engine.registry[handler.ProofType]; ok {
		return &DuplicateProofTypeError{ProofType: handler.ProofType}
	}
	engine.registry[handler.ProofType] = registryEntry{
		label:    handler.Label,
		category: handler.Category,
		handler:  &handler,
	}
	engine.log.Debug("registered proof type handler", "proofType", handler.ProofType)
	return nil
}

// ProofTypeOptions lists the proof types applicable to the given criteria,
// projected to value/label pairs and sorted by locale-aware label comparison.
func (engine *Engine) ProofTypeOptions(criteria map[string]any, user runtime.UserContext) []runtime.FieldOption {
	options := make([]runtime.FieldOption, 0, len(engine.registry))
	for proofType, entry := range engine.registry {
		if !entry.matches(criteria) {
			continue
		}
		options = append(options, runtime.FieldOption{Value: proofType, Label: entry.label})
	}
	col := engine.collator(user)
	sort.SliceStable(options, func(i, j int) bool {
		return col.CompareString(options[i].Label, options[j].Label) < 0
	})
	return options
}

// matches applies the entry's type-specific predicate: code handlers expose a
// matcher over criteria and category, declarative entries match by flat key
// equality against their declared criteria map.
func (entry *registryEntry) matches(criteria map[string]any) bool {
	if entry.handler != nil {
		if entry.handler.Matches == nil {
			return true
		}
		return entry.handler.Matches(criteria, entry.category)
	}
	for key, want := range entry.criteria {
		got, ok := criteria[key]
		if !ok || formatScalar(got) != want {
			return false
		}
	}
	return true
}

// CreateProvider resolves a proof type to its provider: the registered code
// handler, or the generic declarative provider wrapping the configured
// definition. An unknown proof type is a client-facing bad-request error.
func (engine *Engine) CreateProvider(proofType string, source datasource.DataSource) (Provider, error) {
	entry, ok := engine.registry[proofType]
	if !ok {
		return nil, &UnknownProofTypeError{ProofType: proofType}
	}
	if entry.handler != nil {
		return entry.handler.New(engine, source), nil
	}
	if entry.definition == nil {
		return nil, newEngineErrorf("proof type %s has neither a handler nor a definition", proofType)
	}
	return newDeclarativeProvider(engine, proofType, entry.definition, source)
}

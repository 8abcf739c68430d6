package proof

import (
	"context"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/prooflab/zenproof/pkg/datasource"
	"github.com/prooflab/zenproof/pkg/proof/model"
	"github.com/prooflab/zenproof/pkg/proof/runtime"
)

// optionCacheSize bounds the per-provider memo of option fetches. The page
// assembler and the proof-criteria generator hit the same datasets within one
// request; the cache keeps that to a single fetch per dataset/params pair.
const optionCacheSize = 32

// declarativeProvider is the generic engine serving declaratively configured
// proof types. One instance lives for one request.
type declarativeProvider struct {
	engine      *Engine
	proofType   string
	definition  *model.Definition
	source      datasource.DataSource
	resolver    *TokenResolver
	log         hclog.Logger
	optionCache *lru.Cache[string, []runtime.FieldOption]
}

var _ Provider = &declarativeProvider{}

func newDeclarativeProvider(engine *Engine, proofType string, definition *model.Definition, source datasource.DataSource) (*declarativeProvider, error) {
	cache, err := lru.New[string, []runtime.FieldOption](optionCacheSize)
	if err != nil {
		return nil, err
	}
	return &declarativeProvider{
		engine:      engine,
		proofType:   proofType,
		definition:  definition,
		source:      source,
		resolver:    engine.resolver,
		log:         engine.log.With("proofType", proofType, "session", uuid.NewString()),
		optionCache: cache,
	}, nil
}

// GenerateCriteriaPages produces the wizard UI model for the criteria
// collected so far.
func (p *declarativeProvider) GenerateCriteriaPages(ctx context.Context, criteria map[string]any, user runtime.UserContext) ([]runtime.CriteriaPage, error) {
	tc := p.engine.newTokenContext(criteria)
	pages := []runtime.CriteriaPage{}
	if err := p.assembleCriteriaPages(ctx, p.definition.Criteria, criteria, tc, &pages, user); err != nil {
		return nil, err
	}
	return pages, nil
}

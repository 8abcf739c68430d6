package proof

import (
	"context"

	"github.com/prooflab/zenproof/pkg/proof/model"
	"github.com/prooflab/zenproof/pkg/proof/runtime"
)

// assembleCriteriaPages walks the ordered criterion references of a
// definition and grows pages into the wizard UI model.
//
// Fields MUST be processed in ascending declaration order: a field is
// disabled when the preceding field's criteria value is unset, and once a
// field is disabled every later field in the pass stays disabled too. A
// disabled field's criteria value is stale, an answer left over from an
// earlier pass, and is cleared so validity and provenance agree.
func (p *declarativeProvider) assembleCriteriaPages(ctx context.Context, refs []model.CriterionRef, criteria map[string]any, tc *runtime.TokenContext, pages *[]runtime.CriteriaPage, user runtime.UserContext) error {
	if len(*pages) == 0 {
		*pages = append(*pages, runtime.CriteriaPage{Fields: []runtime.CriteriaField{}})
	}
	if len(refs) == 0 {
		// a proof type needing no further input is immediately ready
		(*pages)[len(*pages)-1].IsValid = true
		return nil
	}

	isDisabled := false
	var lastConfig *model.FieldConfig
	for _, ref := range refs {
		cfg, ok := p.engine.fieldConfigs[ref.Name]
		if !ok {
			return newEngineErrorf("unknown criterion %s", ref.Name)
		}
		if cfg.Type != model.FieldTypeSelect && cfg.Type != model.FieldTypeText {
			return newEngineErrorf("criterion %s has unsupported field type %q", ref.Name, cfg.Type)
		}

		if lastConfig != nil && !hasCriteriaValue(criteria, lastConfig.Property) {
			isDisabled = true
		}
		if isDisabled {
			delete(criteria, cfg.Property)
		}

		for len(*pages) <= ref.Page {
			*pages = append(*pages, runtime.CriteriaPage{Fields: []runtime.CriteriaField{}})
		}

		field, err := p.buildCriteriaField(ctx, cfg, criteria, tc, isDisabled, user)
		if err != nil {
			return err
		}
		page := &(*pages)[ref.Page]
		page.Fields = append(page.Fields, field)
		page.IsValid = !isDisabled && (!cfg.IsRequired || hasCriteriaValue(criteria, cfg.Property))

		lastConfig = &cfg
	}
	return nil
}

// hasCriteriaValue reports whether the user has answered a criterion at all.
// Presence of the key counts, whatever the value.
func hasCriteriaValue(criteria map[string]any, property string) bool {
	_, ok := criteria[property]
	return ok
}

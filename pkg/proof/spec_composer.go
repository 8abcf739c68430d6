package proof

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prooflab/zenproof/pkg/datasource"
	"github.com/prooflab/zenproof/pkg/proof/model"
	"github.com/prooflab/zenproof/pkg/proof/runtime"
)

// composeProofSpec builds the specification for one request: the definition's
// base spec with every matching override shallow-merged on top, in declared
// order. Later overrides win per key; top-level keys replace wholesale,
// array-valued keys included.
func (p *declarativeProvider) composeProofSpec(tc *runtime.TokenContext) (model.ProofSpec, error) {
	base, err := json.Marshal(p.definition.ProofSpec)
	if err != nil {
		return model.ProofSpec{}, fmt.Errorf("failed to encode base proof spec: %w", err)
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return model.ProofSpec{}, fmt.Errorf("failed to decode base proof spec: %w", err)
	}

	for _, override := range p.definition.Overrides {
		matches, err := p.overrideMatches(override.Condition, tc)
		if err != nil {
			return model.ProofSpec{}, err
		}
		if !matches {
			continue
		}
		for key, raw := range override.ProofSpec {
			merged[key] = raw
		}
	}

	buf, err := json.Marshal(merged)
	if err != nil {
		return model.ProofSpec{}, fmt.Errorf("failed to encode composed proof spec: %w", err)
	}
	var spec model.ProofSpec
	if err := json.Unmarshal(buf, &spec); err != nil {
		return model.ProofSpec{}, fmt.Errorf("composed proof spec is malformed: %w", err)
	}
	return spec, nil
}

// overrideMatches resolves both sides of an override condition under the
// request context and compares the results. A side that still carries an
// unresolved placeholder after suppressed resolution never matches, so two
// identically failing templates do not accidentally equal each other.
func (p *declarativeProvider) overrideMatches(cond model.Condition, tc *runtime.TokenContext) (bool, error) {
	value, err := p.resolver.Resolve(cond.Value, tc, ResolveOptions{SuppressErrors: true})
	if err != nil {
		return false, err
	}
	criteria, err := p.resolver.Resolve(cond.Criteria, tc, ResolveOptions{SuppressErrors: true})
	if err != nil {
		return false, err
	}
	if tokenPattern.MatchString(value) || tokenPattern.MatchString(criteria) {
		return false, nil
	}
	return value == criteria, nil
}

// runLookups fetches every declared lookup and stores its rows at
// tc.Lookups[name] for later token resolution. Lookups have no continuation
// mechanism: a non-Complete status is fatal for the request.
func (p *declarativeProvider) runLookups(ctx context.Context, spec model.ProofSpec, tc *runtime.TokenContext) error {
	for _, lookup := range spec.Lookups {
		params, err := p.resolveParams(lookup.DataSetParams, tc)
		if err != nil {
			return err
		}
		res, err := p.source.GetData(ctx, lookup.DataSet, params, "", nil)
		if err != nil {
			return fmt.Errorf("failed to run lookup %s: %w", lookup.Name, err)
		}
		if res.Status != datasource.StatusComplete {
			return &LookupPendingError{Lookup: lookup.Name, DataSet: lookup.DataSet}
		}
		// a single-object result stays an object so templates can walk into
		// it; token paths cannot descend through arrays
		if row, ok := res.Data.(map[string]any); ok {
			tc.Lookups[lookup.Name] = row
			p.log.Debug("lookup resolved", "lookup", lookup.Name, "rows", 1)
			continue
		}
		rows, err := normalizeRows(res.Data)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", lookup.Name, err)
		}
		tc.Lookups[lookup.Name] = rows
		p.log.Debug("lookup resolved", "lookup", lookup.Name, "rows", len(rows))
	}
	return nil
}

// generateProofCriteria renders the provenance list of the user's choices for
// the final document: each criterion's display label and display value.
func (p *declarativeProvider) generateProofCriteria(ctx context.Context, refs []model.CriterionRef, criteria map[string]any, tc *runtime.TokenContext, user runtime.UserContext) ([]runtime.ProofCriterion, error) {
	result := make([]runtime.ProofCriterion, 0, len(refs))
	for _, ref := range refs {
		cfg, ok := p.engine.fieldConfigs[ref.Name]
		if !ok {
			return nil, newEngineErrorf("unknown criterion %s", ref.Name)
		}
		label, err := p.resolver.Resolve(cfg.Label, tc, ResolveOptions{SuppressErrors: true})
		if err != nil {
			return nil, err
		}

		var value string
		switch {
		case !cfg.IsRequired && !hasCriteriaValue(criteria, cfg.Property):
			value, err = p.resolver.Resolve(cfg.DefaultDisplayValue, tc, ResolveOptions{SuppressErrors: true})
			if err != nil {
				return nil, err
			}
		case cfg.Type == model.FieldTypeSelect:
			value, err = p.selectedOptionLabel(ctx, cfg, criteria, tc, user)
			if err != nil {
				return nil, err
			}
		case cfg.Type == model.FieldTypeText:
			value = formatScalar(criteria[cfg.Property])
		default:
			return nil, newEngineErrorf("criterion %s has unsupported field type %q", ref.Name, cfg.Type)
		}

		result = append(result, runtime.ProofCriterion{
			Name:  cfg.Property,
			Label: label,
			Value: value,
		})
	}
	return result, nil
}

// selectedOptionLabel resolves a select criterion's raw value to the label of
// the matching option. A value no option matches passes through as-is.
func (p *declarativeProvider) selectedOptionLabel(ctx context.Context, cfg model.FieldConfig, criteria map[string]any, tc *runtime.TokenContext, user runtime.UserContext) (string, error) {
	options, err := p.fetchFieldOptions(ctx, cfg, criteria, tc, user)
	if err != nil {
		return "", err
	}
	raw := formatScalar(criteria[cfg.Property])
	for _, option := range options {
		if formatScalar(option.Value) == raw {
			return option.Label, nil
		}
	}
	return raw, nil
}

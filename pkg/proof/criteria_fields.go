package proof

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/prooflab/zenproof/pkg/datasource"
	"github.com/prooflab/zenproof/pkg/proof/model"
	"github.com/prooflab/zenproof/pkg/proof/runtime"
)

// buildCriteriaField renders one input of the criteria wizard. Disabled and
// text fields carry no options; select fields get theirs from fixed values
// and the configured dataset.
func (p *declarativeProvider) buildCriteriaField(ctx context.Context, cfg model.FieldConfig, criteria map[string]any, tc *runtime.TokenContext, isDisabled bool, user runtime.UserContext) (runtime.CriteriaField, error) {
	label, err := p.resolver.Resolve(cfg.Label, tc, ResolveOptions{SuppressErrors: true})
	if err != nil {
		return runtime.CriteriaField{}, err
	}
	placeholder, err := p.resolver.Resolve(cfg.Placeholder, tc, ResolveOptions{SuppressErrors: true})
	if err != nil {
		return runtime.CriteriaField{}, err
	}

	options := []runtime.FieldOption{}
	if !isDisabled && cfg.Type == model.FieldTypeSelect {
		options, err = p.fetchFieldOptions(ctx, cfg, criteria, tc, user)
		if err != nil {
			return runtime.CriteriaField{}, err
		}
	}

	return runtime.CriteriaField{
		Name:        cfg.Property,
		Type:        cfg.Type,
		Label:       label,
		Options:     options,
		Value:       criteria[cfg.Property],
		Placeholder: placeholder,
		IsRequired:  cfg.IsRequired,
		IsDisabled:  isDisabled,
	}, nil
}

// fetchFieldOptions collects the selectable options of one field: any
// statically declared fixed values first, then the dataset pages concatenated
// and sorted ascending by label with a locale-aware, case-insensitive
// comparator. Fixed values stay at the front, unsorted. Results are memoized
// per dataset/params pair for the lifetime of the provider.
func (p *declarativeProvider) fetchFieldOptions(ctx context.Context, cfg model.FieldConfig, criteria map[string]any, tc *runtime.TokenContext, user runtime.UserContext) ([]runtime.FieldOption, error) {
	fixed := make([]runtime.FieldOption, 0, len(cfg.FixedValues))
	for _, fv := range cfg.FixedValues {
		value, err := p.resolver.Resolve(fv.Value, tc, ResolveOptions{SuppressErrors: true})
		if err != nil {
			return nil, err
		}
		label, err := p.resolver.Resolve(fv.Label, tc, ResolveOptions{SuppressErrors: true})
		if err != nil {
			return nil, err
		}
		fixed = append(fixed, runtime.FieldOption{Value: value, Label: label})
	}

	if !cfg.HasDataSet() {
		return fixed, nil
	}

	// dataset params resolve against the criteria values only
	params, err := p.resolveParams(cfg.DataSetParams, runtime.CriteriaOnly(criteria))
	if err != nil {
		return nil, err
	}

	fetched, err := p.fetchOptionPages(ctx, cfg, params, user)
	if err != nil {
		return nil, err
	}
	return append(fixed, fetched...), nil
}

func (p *declarativeProvider) fetchOptionPages(ctx context.Context, cfg model.FieldConfig, params map[string]any, user runtime.UserContext) ([]runtime.FieldOption, error) {
	key := optionCacheKey(cfg.DataSet, params)
	if cached, ok := p.optionCache.Get(key); ok {
		return cached, nil
	}

	var options []runtime.FieldOption
	page := ""
	for fetched := 0; ; fetched++ {
		if fetched >= p.engine.settings.MaxFetchPages {
			return nil, newEngineErrorf("dataset %s exceeded %d option pages", cfg.DataSet, p.engine.settings.MaxFetchPages)
		}
		res, err := p.source.GetData(ctx, cfg.DataSet, params, page, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch options from dataset %s: %w", cfg.DataSet, err)
		}
		if res.Status != datasource.StatusComplete {
			return nil, newEngineErrorf("dataset %s returned an incomplete page while fetching options", cfg.DataSet)
		}
		rows, ok := sequenceRows(res.Data)
		if !ok {
			return nil, newEngineErrorf("dataset %s did not return a sequence of options", cfg.DataSet)
		}
		for _, row := range rows {
			options = append(options, runtime.FieldOption{
				Value: row[cfg.ValueProperty],
				Label: formatScalar(row[cfg.LabelProperty]),
			})
		}
		if res.NextPage == "" {
			break
		}
		page = res.NextPage
	}

	col := p.engine.collator(user)
	sort.SliceStable(options, func(i, j int) bool {
		return col.CompareString(options[i].Label, options[j].Label) < 0
	})

	p.optionCache.Add(key, options)
	p.log.Debug("fetched field options", "dataSet", cfg.DataSet, "count", len(options))
	return options, nil
}

// resolveParams token-resolves the string values of a dataset params map.
func (p *declarativeProvider) resolveParams(params map[string]any, tc *runtime.TokenContext) (map[string]any, error) {
	if params == nil {
		return nil, nil
	}
	resolved, err := p.resolver.ResolveValue(params, tc, ResolveOptions{})
	if err != nil {
		return nil, err
	}
	return resolved.(map[string]any), nil
}

// optionCacheKey canonicalizes a dataset fetch for memoization.
func optionCacheKey(dataSet string, params map[string]any) string {
	buf, err := json.Marshal(params)
	if err != nil {
		return dataSet
	}
	return dataSet + "|" + string(buf)
}

// sequenceRows interprets a data source payload as a sequence of objects.
func sequenceRows(data any) ([]map[string]any, bool) {
	switch d := data.(type) {
	case []map[string]any:
		return d, true
	case []any:
		rows := make([]map[string]any, 0, len(d))
		for _, e := range d {
			row, ok := e.(map[string]any)
			if !ok {
				return nil, false
			}
			rows = append(rows, row)
		}
		return rows, true
	}
	return nil, false
}

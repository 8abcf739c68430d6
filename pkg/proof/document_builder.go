package proof

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/prooflab/zenproof/pkg/datasource"
	"github.com/prooflab/zenproof/pkg/proof/model"
	"github.com/prooflab/zenproof/pkg/proof/runtime"
)

// GenerateProof composes the specification, runs its lookups, fetches the
// primary dataset and assembles the final document payload.
//
// A non-Complete primary fetch is a continuation, not a failure: the result
// carries no files but preserves the pending status, cursor and metadata so
// the caller can re-invoke with them.
func (p *declarativeProvider) GenerateProof(ctx context.Context, req runtime.ProofRequest) (*runtime.BuildResult, error) {
	tc := p.engine.newTokenContext(req.Criteria)

	spec, err := p.composeProofSpec(tc)
	if err != nil {
		return nil, err
	}
	if err := p.runLookups(ctx, spec, tc); err != nil {
		return nil, err
	}

	params, err := p.resolveParams(spec.DataSetParams, tc)
	if err != nil {
		return nil, err
	}
	res, err := p.source.GetData(ctx, spec.DataSet, params, req.Page, req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset %s: %w", spec.DataSet, err)
	}
	if res.Status != datasource.StatusComplete {
		p.log.Debug("primary fetch pending", "dataSet", spec.DataSet, "nextPage", res.NextPage)
		return &runtime.BuildResult{
			Files:    []runtime.ProofFile{},
			Status:   res.Status,
			NextPage: res.NextPage,
			Metadata: continuationMetadata(res, req),
		}, nil
	}

	rows, err := normalizeRows(res.Data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", spec.DataSet, err)
	}
	tc.Data = rows
	tc.DataSource = res.Context

	formatted := p.formatRows(rows, spec.Fields, req.User)

	criteria, err := p.generateProofCriteria(ctx, p.definition.Criteria, req.Criteria, tc, req.User)
	if err != nil {
		return nil, err
	}

	// presentation templates resolve leniently so an optional token missing
	// from the context renders literally instead of failing the build
	lenient := ResolveOptions{SuppressErrors: true}
	title, err := p.resolver.Resolve(spec.Title, tc, lenient)
	if err != nil {
		return nil, err
	}
	subtitle, err := p.resolver.Resolve(spec.Subtitle, tc, lenient)
	if err != nil {
		return nil, err
	}
	webPageURL, err := p.resolver.Resolve(spec.WebPageURL, tc, lenient)
	if err != nil {
		return nil, err
	}
	suggestedName, err := p.resolver.Resolve(spec.SuggestedName, tc, lenient)
	if err != nil {
		return nil, err
	}
	noResults := ""
	if len(formatted) == 0 {
		noResults, err = p.resolver.Resolve(spec.NoResultsMessage, tc, lenient)
		if err != nil {
			return nil, err
		}
	}

	file := runtime.ProofFile{
		Key:           p.engine.generateKey(),
		SuggestedName: suggestedName,
		UseVersioning: spec.UseVersioning,
		Contents: runtime.ProofDocument{
			Title:      title,
			Subtitle:   subtitle,
			WebPageURL: webPageURL,
			Layout: runtime.Layout{
				Format:           spec.Format,
				Fields:           spec.Fields,
				NoResultsMessage: noResults,
			},
			Criteria:      criteria,
			Rows:          formatted,
			Period:        spec.Period,
			Timezone:      p.engine.timezone(req.User),
			SyncStartDate: req.SyncStartDate,
		},
	}

	return &runtime.BuildResult{
		Files:    []runtime.ProofFile{file},
		Status:   datasource.StatusComplete,
		NextPage: res.NextPage,
		Metadata: res.Context,
		Combine:  res.NextPage != "" || req.Page != "",
	}, nil
}

// continuationMetadata preserves source continuation context across a pending
// fetch, falling back to whatever the caller already carried.
func continuationMetadata(res datasource.Result, req runtime.ProofRequest) map[string]any {
	if res.Context != nil {
		return res.Context
	}
	return req.Metadata
}

// normalizeRows turns a primary dataset payload into a row slice, wrapping a
// single object as a one-element sequence.
func normalizeRows(data any) ([]map[string]any, error) {
	if data == nil {
		return []map[string]any{}, nil
	}
	if row, ok := data.(map[string]any); ok {
		return []map[string]any{row}, nil
	}
	if rows, ok := sequenceRows(data); ok {
		return rows, nil
	}
	return nil, newEngineErrorf("data is neither an object nor a sequence of objects")
}

// formatRows derives per-row formatted companions for declared date and
// number fields, stored as <property>Formatted. The original values are never
// mutated or removed; rows are copied before companions are added.
func (p *declarativeProvider) formatRows(rows []map[string]any, fields []model.FieldSpec, user runtime.UserContext) []map[string]any {
	loc := p.location(user)
	printer := p.printer(user)

	formatted := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out := make(map[string]any, len(row)+2)
		for k, v := range row {
			out[k] = v
		}
		for _, field := range fields {
			value, ok := row[field.Property]
			if !ok || value == nil {
				continue
			}
			switch field.Type {
			case model.FieldValueTypeDate:
				if t, ok := asTime(value); ok {
					out[field.Property+"Formatted"] = t.In(loc).Format("Jan 2, 2006, 3:04:05 PM")
				}
			case model.FieldValueTypeNumber:
				out[field.Property+"Formatted"] = formatNumber(value, field.Format, printer)
			}
		}
		formatted = append(formatted, out)
	}
	return formatted
}

func (p *declarativeProvider) location(user runtime.UserContext) *time.Location {
	loc, err := time.LoadLocation(p.engine.timezone(user))
	if err != nil {
		return time.UTC
	}
	return loc
}

func (p *declarativeProvider) printer(user runtime.UserContext) *message.Printer {
	lang := user.Language
	if lang == "" {
		lang = user.Locale
	}
	if lang == "" {
		lang = p.engine.settings.Language
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag)
}

// formatNumber renders percent-formatted values as "<2-decimal>%" with zero
// as "0%"; any other number format stringifies the value unchanged.
func formatNumber(value any, format string, printer *message.Printer) string {
	if format != model.FormatPercent {
		return formatScalar(value)
	}
	f, ok := asFloat(value)
	if !ok {
		return formatScalar(value)
	}
	if f == 0 {
		return "0%"
	}
	return printer.Sprintf("%v%%", number.Decimal(f,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}

func asFloat(value any) (float64, bool) {
	switch t := value.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

// asTime interprets a dataset value as a point in time. Sources return either
// time.Time or RFC 3339 / date-only strings.
func asTime(value any) (time.Time, bool) {
	switch t := value.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Package inmemory provides a scripted DataSource used by tests and the
// configuration linter. Pages are registered up front per dataset and served
// back in order through cursors.
package inmemory

import (
	"context"
	"fmt"

	"github.com/prooflab/zenproof/pkg/datasource"
)

// Call records one GetData invocation for test assertions.
type Call struct {
	DataSet  string
	Params   map[string]any
	Page     string
	Metadata map[string]any
}

// Source keeps scripted dataset pages in memory,
// please use NewSource to create a new object of this type.
type Source struct {
	pages map[string]map[string]datasource.Result
	Calls []Call
}

func NewSource() *Source {
	return &Source{
		pages: make(map[string]map[string]datasource.Result),
	}
}

var _ datasource.DataSource = &Source{}

// Script registers the pages served for dataSet, in order. When a page has no
// NextPage cursor and it is not the last one, a cursor is assigned so the
// pages chain up naturally.
func (mem *Source) Script(dataSet string, results ...datasource.Result) {
	byCursor := make(map[string]datasource.Result, len(results))
	cursor := ""
	for i, res := range results {
		if res.NextPage == "" && i < len(results)-1 {
			res.NextPage = fmt.Sprintf("page-%d", i+2)
		}
		byCursor[cursor] = res
		cursor = res.NextPage
	}
	mem.pages[dataSet] = byCursor
}

func (mem *Source) GetData(ctx context.Context, dataSet string, params map[string]any, page string, metadata map[string]any) (datasource.Result, error) {
	if err := ctx.Err(); err != nil {
		return datasource.Result{}, err
	}
	mem.Calls = append(mem.Calls, Call{DataSet: dataSet, Params: params, Page: page, Metadata: metadata})
	byCursor, ok := mem.pages[dataSet]
	if !ok {
		return datasource.Result{}, fmt.Errorf("no scripted data for dataset %s", dataSet)
	}
	res, ok := byCursor[page]
	if !ok {
		return datasource.Result{}, fmt.Errorf("no scripted page %q for dataset %s", page, dataSet)
	}
	return res, nil
}

// CallsFor returns the recorded calls made against one dataset.
func (mem *Source) CallsFor(dataSet string) []Call {
	var calls []Call
	for _, c := range mem.Calls {
		if c.DataSet == dataSet {
			calls = append(calls, c)
		}
	}
	return calls
}

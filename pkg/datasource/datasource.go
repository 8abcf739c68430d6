// Package datasource defines the external collaborator the proof engine uses
// to fetch named, paginated datasets. The engine never performs network calls,
// authentication or retries itself; it receives an already-authorized
// DataSource and drives it through this interface.
package datasource

import "context"

// Status reports whether a dataset fetch returned everything it could.
type Status string

const (
	// StatusComplete means the returned page carries usable data. More pages
	// may still follow when NextPage is set.
	StatusComplete Status = "complete"
	// StatusPending means the source could not produce data yet and the call
	// should be repeated later with the returned cursor.
	StatusPending Status = "pending"
)

// Result is one page of a dataset fetch.
type Result struct {
	Status Status
	// Data is either a single object (map[string]any) or a sequence of
	// objects. Callers normalize single objects into one-element slices.
	Data any
	// NextPage is the cursor for the following page, empty when this is the
	// last one.
	NextPage string
	// Context carries source-defined continuation metadata that must be passed
	// back on the next call for the same dataset.
	Context map[string]any
	// APIURL optionally reports the upstream endpoint the data came from.
	APIURL string
}

// DataSource fetches named datasets on behalf of the engine.
//
// GetData MUST be safely callable multiple times with different cursors for
// the same dataset/params pair. Honoring ctx cancellation is the
// implementation's responsibility.
type DataSource interface {
	GetData(ctx context.Context, dataSet string, params map[string]any, page string, metadata map[string]any) (Result, error)
}

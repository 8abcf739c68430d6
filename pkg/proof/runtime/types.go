// Package runtime holds the per-request types the proof engine produces:
// rendered criteria fields and pages, proof documents and build results. A new
// set is created for every request and discarded after the response.
package runtime

import (
	"time"

	"github.com/prooflab/zenproof/pkg/datasource"
	"github.com/prooflab/zenproof/pkg/proof/model"
)

// FieldOption is one selectable option of a select field, also used as the
// projection when listing available proof types.
type FieldOption struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// CriteriaField is one render-ready input of the criteria wizard.
type CriteriaField struct {
	Name        string          `json:"name"`
	Type        model.FieldType `json:"type"`
	Label       string          `json:"label"`
	Options     []FieldOption   `json:"options"`
	Value       any             `json:"value,omitempty"`
	Placeholder string          `json:"placeholder,omitempty"`
	IsRequired  bool            `json:"isRequired"`
	IsDisabled  bool            `json:"isDisabled"`
}

// CriteriaPage is one wizard screen. A page is valid once every required field
// on it carries a value and none of its fields is disabled.
type CriteriaPage struct {
	Fields  []CriteriaField `json:"fields"`
	IsValid bool            `json:"isValid"`
}

// ProofCriterion records the provenance of one user choice in the rendered
// document: which criterion, its display label and the chosen display value.
type ProofCriterion struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Layout describes how the proof rows are presented.
type Layout struct {
	Format string            `json:"format,omitempty"`
	Fields []model.FieldSpec `json:"fields,omitempty"`
	// NoResultsMessage is shown in place of the table when Rows is empty.
	NoResultsMessage string `json:"noResultsMessage,omitempty"`
}

// ProofDocument is the assembled, render-ready document payload.
type ProofDocument struct {
	Title      string           `json:"title,omitempty"`
	Subtitle   string           `json:"subtitle,omitempty"`
	WebPageURL string           `json:"webPageUrl,omitempty"`
	Layout     Layout           `json:"layout"`
	Criteria   []ProofCriterion `json:"criteria,omitempty"`
	Rows       []map[string]any `json:"rows"`
	Period     string           `json:"period,omitempty"`
	Timezone   string           `json:"timezone,omitempty"`
	// SyncStartDate marks the start of the sync the document was built in.
	SyncStartDate time.Time `json:"syncStartDate"`
}

// ProofFile is one generated artifact of a proof build.
type ProofFile struct {
	Key           int64         `json:"key"`
	SuggestedName string        `json:"suggestedName,omitempty"`
	UseVersioning bool          `json:"useVersioning,omitempty"`
	Contents      ProofDocument `json:"contents"`
}

// BuildResult is the outcome of one proof build call. A Pending status is a
// continuation, not a failure: Files is empty and the caller re-invokes with
// NextPage and Metadata.
type BuildResult struct {
	Files    []ProofFile       `json:"files"`
	Status   datasource.Status `json:"status"`
	NextPage string            `json:"nextPage,omitempty"`
	Metadata map[string]any    `json:"metadata,omitempty"`
	// Combine signals the caller to merge the artifacts of a multi-page sync
	// into a single one.
	Combine bool `json:"combine,omitempty"`
}

// UserContext carries the requesting user's localization settings used for
// date/number formatting and locale-aware sorting.
type UserContext struct {
	Timezone string
	Language string
	Locale   string
}

// ProofRequest is one proof build invocation.
type ProofRequest struct {
	// Criteria maps criterion properties to the values the user selected.
	Criteria map[string]any
	User     UserContext
	// SyncStartDate marks the start of the sync the build belongs to.
	SyncStartDate time.Time
	// Page and Metadata continue an earlier Pending build.
	Page     string
	Metadata map[string]any
}

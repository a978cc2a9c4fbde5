// Package model defines the permit, rule, trade and classification types
// shared across the classification core.
package model

import "time"

// ScopeSource records how a permit's scope fields were produced.
type ScopeSource string

const (
	ScopeSourceClassified   ScopeSource = "classified"   // initial load
	ScopeSourceReclassified ScopeSource = "reclassified" // batch or on-change rerun
	ScopeSourcePropagated   ScopeSource = "propagated"   // copied from a primary permit
)

// PermitKey is the composite identity of a permit revision.
type PermitKey struct {
	PermitNum   string `json:"permit_num"`
	RevisionNum string `json:"revision_num"`
}

// String renders the key as "permit_num/revision_num".
func (k PermitKey) String() string {
	return k.PermitNum + "/" + k.RevisionNum
}

// Less orders keys by permit number, then revision.
func (k PermitKey) Less(o PermitKey) bool {
	if k.PermitNum != o.PermitNum {
		return k.PermitNum < o.PermitNum
	}
	return k.RevisionNum < o.RevisionNum
}

// Permit is a building permit record. The categorical, free-text and
// numeric fields are owned by the ingestion pipeline; ProjectType,
// ScopeTags, ScopeClassifiedAt and ScopeSource are derived here.
type Permit struct {
	PermitNum     string     `json:"permit_num"`
	RevisionNum   string     `json:"revision_num"`
	PermitType    string     `json:"permit_type"`
	StructureType string     `json:"structure_type"`
	Work          string     `json:"work"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	IssuedDate    *time.Time `json:"issued_date,omitempty"`
	EstConstCost  *float64   `json:"est_const_cost,omitempty"`

	ProjectType       *string      `json:"project_type,omitempty"`
	ScopeTags         []string     `json:"scope_tags,omitempty"`
	ScopeClassifiedAt *time.Time   `json:"scope_classified_at,omitempty"`
	ScopeSource       *ScopeSource `json:"scope_source,omitempty"`
}

// Key returns the permit's composite identity.
func (p Permit) Key() PermitKey {
	return PermitKey{PermitNum: p.PermitNum, RevisionNum: p.RevisionNum}
}

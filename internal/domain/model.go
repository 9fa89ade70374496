package domain

import (
	"encoding/json"
	"math"
	"time"

	"gopkg.in/yaml.v3"
)

// Core domain models shared by the scoring engine, services and adapters.
// JSON field names are the wire names used by the HTTP API and the JSONB
// columns in Postgres; keep them stable.

type ItemType string

const (
	ItemYesNo          ItemType = "YesNo"
	ItemMultipleChoice ItemType = "MultipleChoice"
	ItemNumeric        ItemType = "Numeric"
	ItemPhoto          ItemType = "Photo"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemYesNo, ItemMultipleChoice, ItemNumeric, ItemPhoto:
		return true
	}
	return false
}

type Criticality string

const (
	CriticalityCritical Criticality = "Critical"
	CriticalityMajor    Criticality = "Major"
	CriticalityMinor    Criticality = "Minor"
)

type FlagLevel string

const (
	FlagRed    FlagLevel = "Red"
	FlagYellow FlagLevel = "Yellow"
	FlagNone   FlagLevel = "None"
)

type EvidenceKind string

const (
	EvidencePhoto    EvidenceKind = "Photo"
	EvidenceDocument EvidenceKind = "Document"
	EvidenceReading  EvidenceKind = "Reading"
)

// NumericConfig holds the acceptance band for a Numeric item. Nil pointers
// take the defaults: tolerance 0, min -Inf, max +Inf.
type NumericConfig struct {
	Target           float64  `json:"target" yaml:"target"`
	TolerancePercent *float64 `json:"tolerancePercent,omitempty" yaml:"tolerancePercent,omitempty"`
	Min              *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max              *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Unit             string   `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Bounds resolves the config with defaults applied. A nil config resolves
// to target 0 with an unbounded operating range.
func (c *NumericConfig) Bounds() (target, tolerancePercent, min, max float64) {
	min, max = math.Inf(-1), math.Inf(1)
	if c == nil {
		return 0, 0, min, max
	}
	target = c.Target
	if c.TolerancePercent != nil {
		tolerancePercent = *c.TolerancePercent
	}
	if c.Min != nil {
		min = *c.Min
	}
	if c.Max != nil {
		max = *c.Max
	}
	return target, tolerancePercent, min, max
}

// Option is one allowed answer of a MultipleChoice item. IsFailure marks the
// options that count as a compliance failure.
type Option struct {
	Label     string `json:"label" yaml:"label"`
	IsFailure bool   `json:"isFailure,omitempty" yaml:"isFailure,omitempty"`
}

// UnmarshalYAML accepts either a bare label or a mapping, so templates
// written before failure flags existed keep loading.
func (o *Option) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*o = Option{Label: value.Value}
		return nil
	}
	type plain Option
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*o = Option(p)
	return nil
}

func (o *Option) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return err
		}
		*o = Option{Label: label}
		return nil
	}
	type plain Option
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = Option(p)
	return nil
}

// ChecklistItem is immutable once its template is published.
type ChecklistItem struct {
	ID               string         `json:"id" yaml:"id"`
	Text             string         `json:"text" yaml:"text"`
	Type             ItemType       `json:"type" yaml:"type"`
	Criticality      Criticality    `json:"criticality" yaml:"criticality"`
	Weight           float64        `json:"weight" yaml:"weight"`
	Options          []Option       `json:"options,omitempty" yaml:"options,omitempty"`
	NumericConfig    *NumericConfig `json:"numericConfig,omitempty" yaml:"numericConfig,omitempty"`
	RequiredEvidence []EvidenceKind `json:"requiredEvidence,omitempty" yaml:"requiredEvidence,omitempty"`
	Hint             string         `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// MaxScore is the item weight with unusable values (negative, NaN, Inf)
// treated as 0.
func (it ChecklistItem) MaxScore() float64 {
	w := it.Weight
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}

// HasFailureOptions reports whether the template marks any option as a
// failure explicitly.
func (it ChecklistItem) HasFailureOptions() bool {
	for _, o := range it.Options {
		if o.IsFailure {
			return true
		}
	}
	return false
}

// Option looks up an option by its label.
func (it ChecklistItem) Option(label string) (Option, bool) {
	for _, o := range it.Options {
		if o.Label == label {
			return o, true
		}
	}
	return Option{}, false
}

type Section struct {
	ID    string          `json:"id" yaml:"id"`
	Title string          `json:"title" yaml:"title"`
	Items []ChecklistItem `json:"items" yaml:"items"`
}

// ChecklistTemplate is the versioned definition of an audit. Section and
// item order is display and iteration order.
type ChecklistTemplate struct {
	ID                  string    `json:"id" yaml:"id"`
	Title               string    `json:"title" yaml:"title"`
	Version             string    `json:"version" yaml:"version"`
	RegulatoryReference string    `json:"regulatoryReference,omitempty" yaml:"regulatoryReference,omitempty"`
	Sections            []Section `json:"sections" yaml:"sections"`
}

// Item finds an item by id. The first match in template order wins.
func (t ChecklistTemplate) Item(id string) (ChecklistItem, bool) {
	for _, s := range t.Sections {
		for _, it := range s.Items {
			if it.ID == id {
				return it, true
			}
		}
	}
	return ChecklistItem{}, false
}

// ItemCount is the number of items across all sections.
func (t ChecklistTemplate) ItemCount() int {
	n := 0
	for _, s := range t.Sections {
		n += len(s.Items)
	}
	return n
}

type Evidence struct {
	ID         string       `json:"id"`
	Kind       EvidenceKind `json:"kind"`
	URI        string       `json:"uri"`
	Note       string       `json:"note,omitempty"`
	CapturedAt time.Time    `json:"capturedAt"`
}

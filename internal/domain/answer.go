package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// NALiteral is the raw answer that marks an item Not Applicable.
const NALiteral = "N/A"

type AnswerKind string

const (
	AnswerNone    AnswerKind = ""
	AnswerYesNo   AnswerKind = "yesNo"
	AnswerChoice  AnswerKind = "choice"
	AnswerNumeric AnswerKind = "numeric"
	AnswerNA      AnswerKind = "na"
)

// AnswerValue is a tagged answer: YesNo, Choice, Numeric or NotApplicable.
// The zero value means "not answered yet".
//
// JSON form keeps the kind recoverable: booleans for YesNo, strings for
// Choice, numbers for Numeric, the literal "N/A" and null for unanswered.
type AnswerValue struct {
	kind   AnswerKind
	yes    bool
	choice string
	number float64
}

func YesNoAnswer(yes bool) AnswerValue { return AnswerValue{kind: AnswerYesNo, yes: yes} }

// ChoiceAnswer builds a choice answer. The label "N/A" yields NotApplicable.
func ChoiceAnswer(label string) AnswerValue {
	if label == NALiteral {
		return NotApplicable()
	}
	return AnswerValue{kind: AnswerChoice, choice: label}
}

func NumericAnswer(v float64) AnswerValue { return AnswerValue{kind: AnswerNumeric, number: v} }

func NotApplicable() AnswerValue { return AnswerValue{kind: AnswerNA} }

func (a AnswerValue) Kind() AnswerKind { return a.kind }
func (a AnswerValue) IsZero() bool     { return a.kind == AnswerNone }
func (a AnswerValue) IsNA() bool       { return a.kind == AnswerNA }

func (a AnswerValue) YesNo() (bool, bool) { return a.yes, a.kind == AnswerYesNo }

func (a AnswerValue) Choice() (string, bool) { return a.choice, a.kind == AnswerChoice }

func (a AnswerValue) Number() (float64, bool) { return a.number, a.kind == AnswerNumeric }

// Equal lets go-cmp compare answers without reaching into unexported fields.
func (a AnswerValue) Equal(b AnswerValue) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case AnswerYesNo:
		return a.yes == b.yes
	case AnswerChoice:
		return a.choice == b.choice
	case AnswerNumeric:
		return a.number == b.number || (math.IsNaN(a.number) && math.IsNaN(b.number))
	}
	return true
}

// String renders the answer the way an operator entered it.
func (a AnswerValue) String() string {
	switch a.kind {
	case AnswerYesNo:
		if a.yes {
			return "Yes"
		}
		return "No"
	case AnswerChoice:
		return a.choice
	case AnswerNumeric:
		return strconv.FormatFloat(a.number, 'g', -1, 64)
	case AnswerNA:
		return NALiteral
	}
	return ""
}

// Canonical is the kind-qualified form fed into the calculation hash.
func (a AnswerValue) Canonical() string {
	switch a.kind {
	case AnswerYesNo:
		return string(a.kind) + ":" + strconv.FormatBool(a.yes)
	case AnswerNumeric:
		return string(a.kind) + ":" + strconv.FormatFloat(a.number, 'g', -1, 64)
	}
	return string(a.kind) + ":" + a.choice
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerYesNo:
		return json.Marshal(a.yes)
	case AnswerChoice:
		return json.Marshal(a.choice)
	case AnswerNumeric:
		if math.IsNaN(a.number) || math.IsInf(a.number, 0) {
			return nil, fmt.Errorf("numeric answer %v is not representable", a.number)
		}
		return json.Marshal(a.number)
	case AnswerNA:
		return json.Marshal(NALiteral)
	}
	return []byte("null"), nil
}

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*a = AnswerValue{}
	case bool:
		*a = YesNoAnswer(v)
	case float64:
		*a = NumericAnswer(v)
	case string:
		*a = ChoiceAnswer(v)
	default:
		return fmt.Errorf("unsupported answer value %s", string(data))
	}
	return nil
}

func (a AnswerValue) MarshalYAML() (any, error) {
	switch a.kind {
	case AnswerYesNo:
		return a.yes, nil
	case AnswerChoice:
		return a.choice, nil
	case AnswerNumeric:
		return a.number, nil
	case AnswerNA:
		return NALiteral, nil
	}
	return nil, nil
}

func (a *AnswerValue) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: answer must be a scalar", value.Line)
	}
	switch value.ShortTag() {
	case "!!null":
		*a = AnswerValue{}
	case "!!bool":
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		*a = YesNoAnswer(b)
	case "!!int", "!!float":
		var f float64
		if err := value.Decode(&f); err != nil {
			return err
		}
		*a = NumericAnswer(f)
	default:
		*a = ChoiceAnswer(value.Value)
	}
	return nil
}

// ParseAnswer coerces a raw front-end value into an AnswerValue, using the
// item's declared type to pick the variant. A MultipleChoice item that lists
// options only accepts those labels (or N/A).
func ParseAnswer(item ChecklistItem, raw any) (AnswerValue, error) {
	v, err := parseRaw(item, raw)
	if err != nil {
		return AnswerValue{}, err
	}
	if item.Type != ItemMultipleChoice || len(item.Options) == 0 || v.IsNA() {
		return v, nil
	}
	label, ok := v.Choice()
	if !ok {
		return AnswerValue{}, fmt.Errorf("%w: item %s expects one of its options, got %s", ErrInvalidInput, item.ID, v)
	}
	if _, found := item.Option(label); found {
		return v, nil
	}
	if trimmed := strings.TrimSpace(label); trimmed != label {
		if _, found := item.Option(trimmed); found {
			return ChoiceAnswer(trimmed), nil
		}
	}
	return AnswerValue{}, fmt.Errorf("%w: item %s has no option %q", ErrInvalidInput, item.ID, label)
}

func parseRaw(item ChecklistItem, raw any) (AnswerValue, error) {
	switch v := raw.(type) {
	case AnswerValue:
		return v, nil
	case nil:
		return AnswerValue{}, fmt.Errorf("%w: item %s: empty answer", ErrInvalidInput, item.ID)
	case string:
		return parseString(item, v)
	case bool:
		if item.Type == ItemNumeric {
			return AnswerValue{}, fmt.Errorf("%w: item %s expects a number", ErrInvalidInput, item.ID)
		}
		return YesNoAnswer(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return AnswerValue{}, fmt.Errorf("%w: item %s: %v", ErrInvalidInput, item.ID, err)
		}
		return parseNumber(item, f)
	case float64:
		return parseNumber(item, v)
	case float32:
		return parseNumber(item, float64(v))
	case int:
		return parseNumber(item, float64(v))
	case int64:
		return parseNumber(item, float64(v))
	}
	return AnswerValue{}, fmt.Errorf("%w: item %s: unsupported answer type %T", ErrInvalidInput, item.ID, raw)
}

func parseString(item ChecklistItem, s string) (AnswerValue, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == NALiteral {
		return NotApplicable(), nil
	}
	switch item.Type {
	case ItemNumeric:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return AnswerValue{}, fmt.Errorf("%w: item %s expects a number, got %q", ErrInvalidInput, item.ID, s)
		}
		return parseNumber(item, f)
	case ItemYesNo:
		switch strings.ToLower(trimmed) {
		case "yes", "true":
			return YesNoAnswer(true), nil
		case "no", "false":
			return YesNoAnswer(false), nil
		}
	}
	return ChoiceAnswer(s), nil
}

func parseNumber(item ChecklistItem, f float64) (AnswerValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return AnswerValue{}, fmt.Errorf("%w: item %s: non-finite number", ErrInvalidInput, item.ID)
	}
	if item.Type != ItemNumeric {
		return ChoiceAnswer(strconv.FormatFloat(f, 'g', -1, 64)), nil
	}
	return NumericAnswer(f), nil
}

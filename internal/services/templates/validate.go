package templates

import (
	"fmt"
	"math"
	"strings"

	"millaudit/internal/domain"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type IssueCode string

const (
	CodeMissingID            IssueCode = "missing_id"
	CodeMissingVersion       IssueCode = "missing_version"
	CodeEmptyTemplate        IssueCode = "empty_template"
	CodeEmptySection         IssueCode = "empty_section"
	CodeDuplicateItemID      IssueCode = "duplicate_item_id"
	CodeUnknownType          IssueCode = "unknown_type"
	CodeUnknownCriticality   IssueCode = "unknown_criticality"
	CodeInvalidWeight        IssueCode = "invalid_weight"
	CodeMissingNumericConfig IssueCode = "missing_numeric_config"
	CodeZeroTarget           IssueCode = "zero_target"
	CodeInvalidRange         IssueCode = "invalid_range"
	CodeTargetOutsideRange   IssueCode = "target_outside_range"
	CodeNoOptions            IssueCode = "no_options"
	CodeDuplicateOption      IssueCode = "duplicate_option"
)

type Issue struct {
	Severity  Severity  `json:"severity"`
	Code      IssueCode `json:"code"`
	SectionID string    `json:"sectionId,omitempty"`
	ItemID    string    `json:"itemId,omitempty"`
	Message   string    `json:"message"`
}

// ValidationError carries every issue of a rejected template.
type ValidationError struct {
	TemplateID string
	Issues     []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Severity == SeverityError {
			msgs = append(msgs, is.Message)
		}
	}
	return fmt.Sprintf("template %s is invalid: %s", e.TemplateID, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidInput }

// Validate checks a template before it is published. The scoring engine
// tolerates every issue reported here; errors mark templates that would
// score in ways the author almost certainly did not intend.
func Validate(t domain.ChecklistTemplate) []Issue {
	var issues []Issue
	add := func(sev Severity, code IssueCode, sectionID, itemID, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Code: code, SectionID: sectionID, ItemID: itemID, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(t.ID) == "" {
		add(SeverityError, CodeMissingID, "", "", "template id is required")
	}
	if strings.TrimSpace(t.Version) == "" {
		add(SeverityError, CodeMissingVersion, "", "", "template version is required")
	}
	if t.ItemCount() == 0 {
		add(SeverityWarning, CodeEmptyTemplate, "", "", "template has no items; every audit will grade %q", domain.GradeNonCompliant)
	}

	seen := map[string]string{}
	for _, sec := range t.Sections {
		if len(sec.Items) == 0 {
			add(SeverityWarning, CodeEmptySection, sec.ID, "", "section %q has no items", sec.ID)
		}
		for _, it := range sec.Items {
			if strings.TrimSpace(it.ID) == "" {
				add(SeverityError, CodeMissingID, sec.ID, "", "item %q in section %q has no id", it.Text, sec.ID)
				continue
			}
			if first, dup := seen[it.ID]; dup {
				add(SeverityError, CodeDuplicateItemID, sec.ID, it.ID, "item id %q is also used in section %q", it.ID, first)
			} else {
				seen[it.ID] = sec.ID
			}
			validateItem(sec.ID, it, add)
		}
	}
	return issues
}

func validateItem(sectionID string, it domain.ChecklistItem, add func(Severity, IssueCode, string, string, string, ...any)) {
	if !it.Type.Valid() {
		add(SeverityError, CodeUnknownType, sectionID, it.ID, "item %q has unknown type %q", it.ID, it.Type)
	}
	switch it.Criticality {
	case domain.CriticalityCritical, domain.CriticalityMajor, domain.CriticalityMinor:
	default:
		add(SeverityWarning, CodeUnknownCriticality, sectionID, it.ID, "item %q has criticality %q; failures will not be flagged", it.ID, it.Criticality)
	}
	if math.IsNaN(it.Weight) || math.IsInf(it.Weight, 0) || it.Weight < 0 {
		add(SeverityError, CodeInvalidWeight, sectionID, it.ID, "item %q weight %v must be a non-negative number", it.ID, it.Weight)
	}

	switch it.Type {
	case domain.ItemNumeric:
		validateNumeric(sectionID, it, add)
	case domain.ItemMultipleChoice:
		if len(it.Options) == 0 {
			add(SeverityError, CodeNoOptions, sectionID, it.ID, "multiple choice item %q has no options", it.ID)
		}
		labels := map[string]bool{}
		for _, o := range it.Options {
			if labels[o.Label] {
				add(SeverityError, CodeDuplicateOption, sectionID, it.ID, "item %q repeats option %q", it.ID, o.Label)
			}
			labels[o.Label] = true
		}
	}
}

func validateNumeric(sectionID string, it domain.ChecklistItem, add func(Severity, IssueCode, string, string, string, ...any)) {
	if it.NumericConfig == nil {
		add(SeverityError, CodeMissingNumericConfig, sectionID, it.ID, "numeric item %q has no numericConfig; only an exact 0 would pass", it.ID)
		return
	}
	target, _, lo, hi := it.NumericConfig.Bounds()
	if target == 0 {
		add(SeverityWarning, CodeZeroTarget, sectionID, it.ID, "numeric item %q has target 0; deviation is reported as 0", it.ID)
	}
	if lo > hi {
		add(SeverityError, CodeInvalidRange, sectionID, it.ID, "numeric item %q has min %v above max %v", it.ID, lo, hi)
		return
	}
	if target < lo || target > hi {
		add(SeverityWarning, CodeTargetOutsideRange, sectionID, it.ID, "numeric item %q target %v lies outside [%v, %v]", it.ID, target, lo, hi)
	}
}

func rejectOnErrors(templateID string, issues []Issue) error {
	if !HasErrors(issues) {
		return nil
	}
	return &ValidationError{TemplateID: templateID, Issues: issues}
}

// HasErrors reports whether any issue is error-level.
func HasErrors(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

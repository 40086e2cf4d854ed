package validate

import "encoding/json"

// Severity grades an issue. Critical issues abort downstream processing,
// errors fail the message, warnings and infos are advisory.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// MarshalJSON emits the lowercase severity name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Category groups issues by the rule family that produced them.
type Category string

const (
	CategoryStructure Category = "structure"
	CategoryFormat    Category = "format"
	CategoryCode      Category = "code"
	CategoryCondition Category = "condition"
)

// Stable issue codes. The prefix encodes the rule family; codes never change
// meaning between releases.
const (
	CodeMissingRequired   = "STR001"
	CodeMaxRepetitions    = "STR002"
	CodeUnexpectedSegment = "STR003"

	CodeValueTooLong  = "FMT001"
	CodeNotNumeric    = "FMT002"
	CodeNotAlpha      = "FMT003"
	CodeBadDateFormat = "FMT004"

	CodeValueNotAllowed = "COD001"

	CodeMussViolated   = "AHB001"
	CodeSollViolated   = "AHB002"
	CodeKannViolated   = "AHB003"
	CodeOutcomeUnknown = "AHB005"
)

// Location points into the wire message. Element and component indexes are
// present only for value-level findings.
type Location struct {
	SegmentNumber  int  `json:"segment_number"`
	ElementIndex   *int `json:"element_index,omitempty"`
	ComponentIndex *int `json:"component_index,omitempty"`
}

// Issue is a single validation finding.
type Issue struct {
	Code        string   `json:"code"`
	Severity    Severity `json:"severity"`
	Location    Location `json:"location"`
	Message     string   `json:"message"`
	Category    Category `json:"category"`
	ConditionID uint32   `json:"condition_id,omitempty"`
}

func at(segmentNumber int) Location {
	return Location{SegmentNumber: segmentNumber}
}

func atComponent(segmentNumber, elem, comp int) Location {
	return Location{SegmentNumber: segmentNumber, ElementIndex: &elem, ComponentIndex: &comp}
}

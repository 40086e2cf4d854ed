package assemble

import "fmt"

// DiagnosticKind classifies a recoverable structure problem.
type DiagnosticKind int

const (
	// DiagMissingRequiredSegment: a MIG-mandatory segment is absent.
	DiagMissingRequiredSegment DiagnosticKind = iota
	// DiagMaxRepetitionsExceeded: a group opened more repetitions than allowed.
	DiagMaxRepetitionsExceeded
	// DiagUnexpectedSegment: a segment matched no expected MIG position.
	DiagUnexpectedSegment
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagMissingRequiredSegment:
		return "missing-required-segment"
	case DiagMaxRepetitionsExceeded:
		return "max-repetitions-exceeded"
	case DiagUnexpectedSegment:
		return "unexpected-segment"
	}
	return "unknown"
}

// Diagnostic is one recoverable structure finding. Assembly continues after
// recording it.
type Diagnostic struct {
	Kind          DiagnosticKind
	SegmentNumber int    // ordinal of the segment involved; 0 for absences
	Tag           string // segment tag involved
	GroupID       string // variant ID of the containing group; "" at top level
	Message       string
}

func missingRequired(tag, groupID string) Diagnostic {
	return Diagnostic{
		Kind:    DiagMissingRequiredSegment,
		Tag:     tag,
		GroupID: groupID,
		Message: fmt.Sprintf("mandatory segment %s absent in %s", tag, orTopLevel(groupID)),
	}
}

func maxRepetitions(groupID string, maxRep, segNumber int) Diagnostic {
	return Diagnostic{
		Kind:          DiagMaxRepetitionsExceeded,
		SegmentNumber: segNumber,
		GroupID:       groupID,
		Message:       fmt.Sprintf("group %s exceeds %d repetitions", groupID, maxRep),
	}
}

func unexpectedSegment(tag, groupID string, segNumber int, zone Zone) Diagnostic {
	return Diagnostic{
		Kind:          DiagUnexpectedSegment,
		SegmentNumber: segNumber,
		Tag:           tag,
		GroupID:       groupID,
		Message:       fmt.Sprintf("segment %s matches no MIG position in %s, kept as %s passthrough", tag, orTopLevel(groupID), zone),
	}
}

func orTopLevel(groupID string) string {
	if groupID == "" {
		return "message root"
	}
	return groupID
}

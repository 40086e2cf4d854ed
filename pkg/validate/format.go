package validate

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/enermsg/edikit/pkg/edifact"
	"github.com/enermsg/edikit/pkg/mig"
)

// dateFormatLengths maps EDIFACT date/time format codes (D2379) to the exact
// value length they demand.
var dateFormatLengths = map[string]int{
	"102": 8,  // CCYYMMDD
	"106": 4,  // MMDD
	"203": 12, // CCYYMMDDHHMM
	"303": 13, // CCYYMMDDHHMMZ
	"602": 4,  // CCYY
	"610": 6,  // CCYYMM
}

// checkValues walks every segment value against its MIG declaration: maximum
// length, character class, allowed codes, and DTM date format consistency.
func checkValues(body []edifact.Segment, schema *mig.Schema) []Issue {
	index := tagIndex(schema)
	var issues []Issue
	for i := range body {
		seg := &body[i]
		def, ok := index[strings.ToUpper(seg.Tag)]
		if !ok {
			continue
		}
		issues = append(issues, checkSegmentValues(seg, def)...)
	}
	return issues
}

func checkSegmentValues(seg *edifact.Segment, def *mig.SegmentDef) []Issue {
	var issues []Issue
	for e, el := range seg.Elements {
		if e >= len(def.Elements) {
			break
		}
		elDef := def.Elements[e]
		for c, value := range el {
			if value == "" || c >= len(elDef.Components) {
				continue
			}
			issues = append(issues, checkComponent(value, elDef.Components[c], seg, e, c)...)
		}
	}
	if strings.EqualFold(seg.Tag, "DTM") {
		issues = append(issues, checkDateFormat(seg)...)
	}
	return issues
}

func checkComponent(value string, def *mig.ComponentDef, seg *edifact.Segment, elem, comp int) []Issue {
	var issues []Issue
	if def.MaxLength > 0 && utf8.RuneCountInString(value) > def.MaxLength {
		issues = append(issues, Issue{
			Code:     CodeValueTooLong,
			Severity: SeverityError,
			Location: atComponent(seg.Number, elem, comp),
			Message:  fmt.Sprintf("%s %s: value exceeds %d characters", seg.Tag, def.ID, def.MaxLength),
			Category: CategoryFormat,
		})
	}
	switch def.Format {
	case "n":
		if !numeric(value) {
			issues = append(issues, Issue{
				Code:     CodeNotNumeric,
				Severity: SeverityError,
				Location: atComponent(seg.Number, elem, comp),
				Message:  fmt.Sprintf("%s %s: %q is not numeric", seg.Tag, def.ID, value),
				Category: CategoryFormat,
			})
		}
	case "a":
		if !alphabetic(value) {
			issues = append(issues, Issue{
				Code:     CodeNotAlpha,
				Severity: SeverityError,
				Location: atComponent(seg.Number, elem, comp),
				Message:  fmt.Sprintf("%s %s: %q is not alphabetic", seg.Tag, def.ID, value),
				Category: CategoryFormat,
			})
		}
	}
	if len(def.Codes) > 0 && !containsCode(def.Codes, value) {
		issues = append(issues, Issue{
			Code:     CodeValueNotAllowed,
			Severity: SeverityError,
			Location: atComponent(seg.Number, elem, comp),
			Message:  fmt.Sprintf("%s %s: code %q not in allowed set", seg.Tag, def.ID, value),
			Category: CategoryCode,
		})
	}
	return issues
}

// checkDateFormat verifies that a DTM value's length matches its declared
// format code, C507 layout: qualifier, value, format code.
func checkDateFormat(seg *edifact.Segment) []Issue {
	if len(seg.Elements) == 0 || len(seg.Elements[0]) < 3 {
		return nil
	}
	value, code := seg.Elements[0][1], seg.Elements[0][2]
	want, known := dateFormatLengths[code]
	if !known || value == "" || len(value) == want {
		return nil
	}
	return []Issue{{
		Code:     CodeBadDateFormat,
		Severity: SeverityError,
		Location: atComponent(seg.Number, 0, 1),
		Message:  fmt.Sprintf("DTM value %q does not match format code %s (want %d characters)", value, code, want),
		Category: CategoryFormat,
	}}
}

func numeric(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' {
			return false
		}
	}
	return true
}

func alphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' && r != '-' {
			return false
		}
	}
	return true
}

func containsCode(codes []string, value string) bool {
	for _, c := range codes {
		if c == value {
			return true
		}
	}
	return false
}

// tagIndex maps every tag the MIG declares, anywhere in the tree, to its first
// declaration. Good enough for value checks: element layouts for a tag repeat
// across positions.
func tagIndex(schema *mig.Schema) map[string]*mig.SegmentDef {
	index := map[string]*mig.SegmentDef{}
	var add func(segs []*mig.SegmentDef, groups []*mig.GroupDef)
	add = func(segs []*mig.SegmentDef, groups []*mig.GroupDef) {
		for _, s := range segs {
			key := strings.ToUpper(s.Tag)
			if _, exists := index[key]; !exists {
				index[key] = s
			}
		}
		for _, g := range groups {
			add(g.Segments, g.Groups)
		}
	}
	add(schema.Segments, schema.Groups)
	return index
}

func equalTags(a, b string) bool { return strings.EqualFold(a, b) }

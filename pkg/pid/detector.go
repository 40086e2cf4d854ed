package pid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/enermsg/edikit/pkg/assemble"
	"github.com/enermsg/edikit/pkg/edifact"
)

var (
	// ErrDetectionFailed indicates neither BGM nor RFF yielded a usable value.
	ErrDetectionFailed = errors.New("pruefidentifikator detection failed")
	// ErrUnknownPID indicates a detected PID with no registered rule set.
	ErrUnknownPID = errors.New("unknown pruefidentifikator")
)

// Detection is the result of reading the PID-bearing positions of a message.
type Detection struct {
	Pruefidentifikator string
	DocumentCode       string // BGM document/message code, e.g. "E03"
}

// Detect reads the BGM document-type element and the first RFF+Z13 reference
// of the assembled tree. The RFF reference carries the PID; the BGM code is
// reported alongside for rule-set sanity checks.
func Detect(tree *assemble.Tree) (Detection, error) {
	det := Detection{}
	if bgm, err := tree.FindSegment("BGM"); err == nil {
		det.DocumentCode = strings.TrimSpace(bgm.Qualifier())
	}
	if ref, ok := findZ13(tree); ok {
		det.Pruefidentifikator = ref
		return det, nil
	}
	if det.DocumentCode == "" {
		return det, fmt.Errorf("%w: no BGM document code and no RFF+Z13 reference", ErrDetectionFailed)
	}
	return det, fmt.Errorf("%w: BGM %q present but no RFF+Z13 reference", ErrDetectionFailed, det.DocumentCode)
}

// findZ13 walks the whole tree for the first RFF segment whose qualifier is
// Z13 and returns its reference value.
func findZ13(tree *assemble.Tree) (string, bool) {
	if v, ok := z13In(tree.BeforeGroups); ok {
		return v, true
	}
	if v, ok := z13InGroups(tree.Groups); ok {
		return v, true
	}
	return z13In(tree.AfterGroups)
}

func z13InGroups(groups []*assemble.Group) (string, bool) {
	for _, g := range groups {
		for _, inst := range g.Instances {
			if v, ok := z13In(inst.Segments); ok {
				return v, true
			}
			if v, ok := z13InGroups(inst.Children); ok {
				return v, true
			}
		}
	}
	return "", false
}

func z13In(segs []edifact.Segment) (string, bool) {
	for i := range segs {
		if !strings.EqualFold(segs[i].Tag, "RFF") {
			continue
		}
		if q, _ := segs[i].Component(0, 0); strings.TrimSpace(q) == "Z13" {
			if v, ok := segs[i].Component(0, 1); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
	}
	return "", false
}

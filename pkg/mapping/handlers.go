package mapping

import (
	"github.com/enermsg/edikit/pkg/assemble"
	"github.com/enermsg/edikit/pkg/edifact"
	"github.com/tidwall/gjson"
)

// InstanceView is the read-only window a forward handler gets on the group
// instance it maps.
type InstanceView struct {
	Instance *assemble.Instance
	resolver *pathResolver
}

// Value reads the component at an aliased EDIFACT path within the instance.
func (v *InstanceView) Value(path string) (string, bool) {
	return v.resolver.read(v.Instance, path)
}

// Segment returns the instance's first segment with the given tag.
func (v *InstanceView) Segment(tag string) (*edifact.Segment, bool) {
	seg, err := v.Instance.FindIn(tag)
	if err != nil {
		return nil, false
	}
	return seg, true
}

// Handler is a named pair of imperative mapping functions for work the
// declarative field layer cannot express. Forward returns extra key/value
// pairs merged into the entity object; Reverse reads the entity object and
// emits segments into the instance being synthesized.
type Handler struct {
	Forward func(view *InstanceView) (map[string]any, error)
	Reverse func(obj gjson.Result, inst *assemble.Instance) error
}

// HandlerRegistry maps handler names to implementations. Definitions naming a
// handler absent from the registry fail at engine construction.
type HandlerRegistry map[string]Handler

// TraceRecord is one step of the forward extraction trace: which mapper wrote
// which value where, reading from which segment.
type TraceRecord struct {
	Mapper     string `json:"mapper"`
	SegmentID  string `json:"segment_id"`
	TargetPath string `json:"target_path"`
	Value      string `json:"value"`
}

// Issue is a recoverable field-level mapping problem; the field is omitted and
// extraction continues.
type Issue struct {
	Entity  string `json:"entity"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

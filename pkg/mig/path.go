package mig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPath indicates an EDIFACT path that cannot be parsed or resolved.
var ErrInvalidPath = errors.New("invalid EDIFACT path")

// ErrSegmentNotFound indicates a path whose segment has no definition in scope.
var ErrSegmentNotFound = errors.New("segment not found")

// Path is a parsed EDIFACT field path of the form
// "<segment>.<element>[.<component>]", where element and component are numeric
// indices or declared IDs (case-insensitive). The component part defaults to
// the first component; the alias "qualifier" also names the first component.
type Path struct {
	Segment   string
	Element   string
	Component string
}

// ParsePath splits a dotted EDIFACT path.
func ParsePath(s string) (Path, error) {
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == "" {
			return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, s)
		}
	}
	switch len(parts) {
	case 2:
		return Path{Segment: parts[0], Element: parts[1]}, nil
	case 3:
		return Path{Segment: parts[0], Element: parts[1], Component: parts[2]}, nil
	default:
		return Path{}, fmt.Errorf("%w: %q has %d parts, want 2 or 3", ErrInvalidPath, s, len(parts))
	}
}

// FieldRef is a resolved path: a segment definition plus element and component
// indices into segments of that tag.
type FieldRef struct {
	Def       *SegmentDef
	Tag       string
	Element   int
	Component int
}

// Resolve binds a path against a segment definition scope. The scope is
// searched by tag (the path's segment part names the tag, case-insensitively).
func Resolve(p Path, scope []*SegmentDef) (FieldRef, error) {
	var def *SegmentDef
	for _, d := range scope {
		if strings.EqualFold(d.Tag, p.Segment) {
			def = d
			break
		}
	}
	if def == nil {
		return FieldRef{}, fmt.Errorf("%w: %q", ErrSegmentNotFound, p.Segment)
	}
	elem, comp, err := def.ResolveField(p.Element, p.Component)
	if err != nil {
		return FieldRef{}, err
	}
	return FieldRef{Def: def, Tag: def.Tag, Element: elem, Component: comp}, nil
}

// ResolveField maps element and component parts to indices using the declared
// element/component IDs, falling back to numeric indices.
func (s *SegmentDef) ResolveField(element, component string) (int, int, error) {
	elemIdx := -1
	for i, el := range s.Elements {
		if strings.EqualFold(el.ID, element) {
			elemIdx = i
			break
		}
	}
	if elemIdx < 0 {
		n, err := strconv.Atoi(element)
		if err != nil || n < 0 || n >= len(s.Elements) {
			return 0, 0, fmt.Errorf("%w: element %q not declared for %s", ErrInvalidPath, element, s.Tag)
		}
		elemIdx = n
	}
	el := s.Elements[elemIdx]
	if component == "" || strings.EqualFold(component, "qualifier") {
		return elemIdx, 0, nil
	}
	for i, c := range el.Components {
		if strings.EqualFold(c.ID, component) {
			return elemIdx, i, nil
		}
	}
	n, err := strconv.Atoi(component)
	if err != nil || n < 0 || n >= len(el.Components) {
		return 0, 0, fmt.Errorf("%w: component %q not declared for %s.%s", ErrInvalidPath, component, s.Tag, el.ID)
	}
	return elemIdx, n, nil
}

package mig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ErrInvalidSchema indicates a MIG document that does not follow the expected
// structure.
var ErrInvalidSchema = errors.New("invalid MIG schema document")

// LoadXML reads a MIG definition from the compact XML dialect:
//
//	<mig type="UTILMD" version="S2.1">
//	  <segment tag="BGM" min="1" max="1" number="00002">
//	    <element id="C002">
//	      <component id="D1001" maxLength="3" format="an" codes="E01 E03"/>
//	    </element>
//	  </segment>
//	  <group id="SG4" min="1" max="99999">
//	    <segment tag="IDE" min="1" max="1"/>
//	    <group id="SG5" qualifier="Z16" discriminator="0:0"/>
//	  </group>
//	</mig>
//
// Counters are assigned in document order unless an explicit counter attribute
// is present.
func LoadXML(path string) (*Schema, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("reading MIG schema: %w", err)
	}
	return parseXML(doc)
}

// ParseXML reads a MIG definition from raw XML bytes.
func ParseXML(data []byte) (*Schema, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("reading MIG schema: %w", err)
	}
	return parseXML(doc)
}

func parseXML(doc *etree.Document) (*Schema, error) {
	root := doc.Root()
	if root == nil || root.Tag != "mig" {
		return nil, fmt.Errorf("%w: missing <mig> root", ErrInvalidSchema)
	}
	schema := &Schema{
		MessageType: root.SelectAttrValue("type", ""),
		Version:     root.SelectAttrValue("version", ""),
	}
	counter := 0
	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "segment":
			def, err := parseSegment(child, &counter)
			if err != nil {
				return nil, err
			}
			schema.Segments = append(schema.Segments, def)
		case "group":
			grp, err := parseGroup(child, &counter)
			if err != nil {
				return nil, err
			}
			schema.Groups = append(schema.Groups, grp)
		default:
			return nil, fmt.Errorf("%w: unexpected element <%s>", ErrInvalidSchema, child.Tag)
		}
	}
	return schema, nil
}

func parseSegment(el *etree.Element, counter *int) (*SegmentDef, error) {
	tag := strings.ToUpper(el.SelectAttrValue("tag", ""))
	if tag == "" {
		return nil, fmt.Errorf("%w: <segment> without tag", ErrInvalidSchema)
	}
	def := &SegmentDef{
		Tag:     tag,
		MinRep:  intAttr(el, "min", 0),
		MaxRep:  intAttr(el, "max", 1),
		Counter: nextCounter(el, counter),
		Number:  el.SelectAttrValue("number", ""),
	}
	for _, elemEl := range el.SelectElements("element") {
		elemDef := &ElementDef{ID: strings.ToUpper(elemEl.SelectAttrValue("id", ""))}
		for _, compEl := range elemEl.SelectElements("component") {
			comp := &ComponentDef{
				ID:        strings.ToUpper(compEl.SelectAttrValue("id", "")),
				MaxLength: intAttr(compEl, "maxLength", 0),
				Format:    compEl.SelectAttrValue("format", "an"),
			}
			if codes := compEl.SelectAttrValue("codes", ""); codes != "" {
				comp.Codes = strings.Fields(codes)
			}
			elemDef.Components = append(elemDef.Components, comp)
		}
		// A simple element declares no components; it holds one with its own ID.
		if len(elemDef.Components) == 0 {
			elemDef.Components = []*ComponentDef{{
				ID:        elemDef.ID,
				MaxLength: intAttr(elemEl, "maxLength", 0),
				Format:    elemEl.SelectAttrValue("format", "an"),
			}}
			if codes := elemEl.SelectAttrValue("codes", ""); codes != "" {
				elemDef.Components[0].Codes = strings.Fields(codes)
			}
		}
		def.Elements = append(def.Elements, elemDef)
	}
	return def, nil
}

func parseGroup(el *etree.Element, counter *int) (*GroupDef, error) {
	id := strings.ToUpper(el.SelectAttrValue("id", ""))
	if id == "" {
		return nil, fmt.Errorf("%w: <group> without id", ErrInvalidSchema)
	}
	grp := &GroupDef{
		ID:        id,
		Qualifier: strings.TrimSpace(el.SelectAttrValue("qualifier", "")),
		MinRep:    intAttr(el, "min", 0),
		MaxRep:    intAttr(el, "max", 1),
		Counter:   nextCounter(el, counter),
	}
	if disc := el.SelectAttrValue("discriminator", ""); disc != "" {
		d, err := parseDiscriminator(disc, grp.Qualifier, el.SelectAttrValue("qualifiers", ""))
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", id, err)
		}
		grp.Discriminator = d
	}
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "segment":
			def, err := parseSegment(child, counter)
			if err != nil {
				return nil, err
			}
			grp.Segments = append(grp.Segments, def)
		case "group":
			nested, err := parseGroup(child, counter)
			if err != nil {
				return nil, err
			}
			grp.Groups = append(grp.Groups, nested)
		default:
			return nil, fmt.Errorf("%w: unexpected element <%s> in group %s", ErrInvalidSchema, child.Tag, id)
		}
	}
	if grp.EntrySegment() == nil {
		return nil, fmt.Errorf("%w: group %s has no entry segment", ErrInvalidSchema, id)
	}
	return grp, nil
}

// parseDiscriminator reads "elem:comp" positions. The qualifier set defaults to
// the group's own variant qualifier.
func parseDiscriminator(position, qualifier, qualifiers string) (*Discriminator, error) {
	parts := strings.SplitN(position, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: discriminator %q, want \"elem:comp\"", ErrInvalidSchema, position)
	}
	elem, err1 := strconv.Atoi(parts[0])
	comp, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || elem < 0 || comp < 0 {
		return nil, fmt.Errorf("%w: discriminator %q", ErrInvalidSchema, position)
	}
	d := &Discriminator{Element: elem, Component: comp}
	if qualifiers != "" {
		d.Qualifiers = strings.Fields(qualifiers)
	} else if qualifier != "" {
		d.Qualifiers = []string{qualifier}
	} else {
		return nil, fmt.Errorf("%w: discriminated group declares no qualifiers", ErrInvalidSchema)
	}
	return d, nil
}

func intAttr(el *etree.Element, name string, def int) int {
	v := el.SelectAttrValue(name, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func nextCounter(el *etree.Element, counter *int) int {
	if v := el.SelectAttrValue("counter", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*counter = n
			return n
		}
	}
	*counter += 10
	return *counter
}

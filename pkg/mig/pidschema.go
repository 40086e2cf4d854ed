package mig

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// PIDSchema is the PID-specific view of a MIG produced by the upstream schema
// generator: only the segments, group variants and fields the workflow allows.
type PIDSchema struct {
	Pruefidentifikator string
	Schema             *Schema
	// FieldIDs maps aliased EDIFACT paths to AHB field numbers.
	FieldIDs map[string]string
}

type pidSchemaJSON struct {
	Pruefidentifikator string            `json:"pruefidentifikator"`
	MessageType        string            `json:"message_type"`
	Version            string            `json:"version"`
	Segments           []segmentJSON     `json:"segments"`
	Groups             []groupJSON       `json:"groups"`
	FieldIDs           map[string]string `json:"field_ids"`
}

type segmentJSON struct {
	Tag      string        `json:"tag"`
	Min      int           `json:"min"`
	Max      int           `json:"max"`
	Counter  int           `json:"counter"`
	Number   string        `json:"number"`
	Elements []elementJSON `json:"elements"`
}

type elementJSON struct {
	ID         string          `json:"id"`
	Components []componentJSON `json:"components"`
	MaxLength  int             `json:"max_length"`
	Format     string          `json:"format"`
	Codes      []string        `json:"codes"`
}

type componentJSON struct {
	ID        string   `json:"id"`
	MaxLength int      `json:"max_length"`
	Format    string   `json:"format"`
	Codes     []string `json:"codes"`
}

type groupJSON struct {
	ID            string             `json:"id"`
	Qualifier     string             `json:"qualifier"`
	Min           int                `json:"min"`
	Max           int                `json:"max"`
	Counter       int                `json:"counter"`
	Segments      []segmentJSON      `json:"segments"`
	Groups        []groupJSON        `json:"groups"`
	Discriminator *discriminatorJSON `json:"discriminator"`
}

type discriminatorJSON struct {
	Element    int      `json:"element"`
	Component  int      `json:"component"`
	Qualifiers []string `json:"qualifiers"`
}

// LoadPIDSchema reads a PID schema JSON document from disk.
func LoadPIDSchema(path string) (*PIDSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PID schema: %w", err)
	}
	return ParsePIDSchema(data)
}

// ParsePIDSchema decodes a PID schema JSON document.
func ParsePIDSchema(data []byte) (*PIDSchema, error) {
	var raw pidSchemaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding PID schema: %w", err)
	}
	if raw.Pruefidentifikator == "" {
		return nil, fmt.Errorf("%w: missing pruefidentifikator", ErrInvalidSchema)
	}
	counter := 0
	schema := &Schema{MessageType: raw.MessageType, Version: raw.Version}
	for i := range raw.Segments {
		schema.Segments = append(schema.Segments, raw.Segments[i].toModel(&counter))
	}
	for i := range raw.Groups {
		g, err := raw.Groups[i].toModel(&counter)
		if err != nil {
			return nil, err
		}
		schema.Groups = append(schema.Groups, g)
	}
	return &PIDSchema{
		Pruefidentifikator: raw.Pruefidentifikator,
		Schema:             schema,
		FieldIDs:           raw.FieldIDs,
	}, nil
}

func (s *segmentJSON) toModel(counter *int) *SegmentDef {
	def := &SegmentDef{
		Tag:     strings.ToUpper(s.Tag),
		MinRep:  s.Min,
		MaxRep:  max(s.Max, 1),
		Counter: bump(counter, s.Counter),
		Number:  s.Number,
	}
	for _, el := range s.Elements {
		elemDef := &ElementDef{ID: strings.ToUpper(el.ID)}
		for _, c := range el.Components {
			elemDef.Components = append(elemDef.Components, &ComponentDef{
				ID:        strings.ToUpper(c.ID),
				MaxLength: c.MaxLength,
				Format:    defaultFormat(c.Format),
				Codes:     c.Codes,
			})
		}
		if len(elemDef.Components) == 0 {
			elemDef.Components = []*ComponentDef{{
				ID:        elemDef.ID,
				MaxLength: el.MaxLength,
				Format:    defaultFormat(el.Format),
				Codes:     el.Codes,
			}}
		}
		def.Elements = append(def.Elements, elemDef)
	}
	return def
}

func (g *groupJSON) toModel(counter *int) (*GroupDef, error) {
	grp := &GroupDef{
		ID:        strings.ToUpper(g.ID),
		Qualifier: strings.TrimSpace(g.Qualifier),
		MinRep:    g.Min,
		MaxRep:    max(g.Max, 1),
		Counter:   bump(counter, g.Counter),
	}
	if g.Discriminator != nil {
		grp.Discriminator = &Discriminator{
			Element:    g.Discriminator.Element,
			Component:  g.Discriminator.Component,
			Qualifiers: g.Discriminator.Qualifiers,
		}
		if len(grp.Discriminator.Qualifiers) == 0 && grp.Qualifier != "" {
			grp.Discriminator.Qualifiers = []string{grp.Qualifier}
		}
	}
	for i := range g.Segments {
		grp.Segments = append(grp.Segments, g.Segments[i].toModel(counter))
	}
	for i := range g.Groups {
		nested, err := g.Groups[i].toModel(counter)
		if err != nil {
			return nil, err
		}
		grp.Groups = append(grp.Groups, nested)
	}
	if grp.EntrySegment() == nil {
		return nil, fmt.Errorf("%w: group %s has no entry segment", ErrInvalidSchema, grp.ID)
	}
	return grp, nil
}

func defaultFormat(f string) string {
	if f == "" {
		return "an"
	}
	return f
}

func bump(counter *int, explicit int) int {
	if explicit > 0 {
		*counter = explicit
		return explicit
	}
	*counter += 10
	return *counter
}

package mig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const utilmdXML = `<mig type="UTILMD" version="S2.1">
  <segment tag="BGM" min="1" max="1" number="00002">
    <element id="C002"><component id="D1001" maxLength="3" format="an" codes="E01 E02 E03"/></element>
    <element id="C106"><component id="D1004" maxLength="35"/></element>
  </segment>
  <segment tag="DTM" min="0" max="9">
    <element id="C507">
      <component id="D2005" maxLength="3"/>
      <component id="D2380" maxLength="35"/>
      <component id="D2379" maxLength="3" codes="102 203 303"/>
    </element>
  </segment>
  <group id="SG4" min="1" max="99999">
    <segment tag="IDE" min="1" max="1" number="00010">
      <element id="D7495" maxLength="3"/>
      <element id="C206"><component id="D7402" maxLength="35"/></element>
    </segment>
    <group id="SG5" qualifier="Z16" discriminator="0:0" min="0" max="99">
      <segment tag="LOC" min="1" max="1" number="00062">
        <element id="D3227" maxLength="3"/>
        <element id="C517"><component id="D3225" maxLength="35"/></element>
      </segment>
    </group>
    <group id="SG5" qualifier="Z17" discriminator="0:0" min="0" max="99">
      <segment tag="LOC" min="1" max="1" number="00063">
        <element id="D3227" maxLength="3"/>
        <element id="C517"><component id="D3225" maxLength="35"/></element>
      </segment>
    </group>
    <group id="SG6" min="0" max="9">
      <segment tag="RFF" min="1" max="1">
        <element id="C506">
          <component id="D1153" maxLength="3"/>
          <component id="D1154" maxLength="70"/>
        </element>
      </segment>
    </group>
  </group>
</mig>`

func TestParseXML(t *testing.T) {
	schema, err := ParseXML([]byte(utilmdXML))
	require.NoError(t, err)
	assert.Equal(t, "UTILMD", schema.MessageType)
	assert.Equal(t, "S2.1", schema.Version)
	require.Len(t, schema.Segments, 2)
	require.Len(t, schema.Groups, 1)

	bgm := schema.Segments[0]
	assert.Equal(t, "BGM", bgm.Tag)
	assert.True(t, bgm.Mandatory())
	assert.Equal(t, "00002", bgm.Number)
	require.Len(t, bgm.Elements, 2)
	assert.Equal(t, []string{"E01", "E02", "E03"}, bgm.Elements[0].Components[0].Codes)

	sg4 := schema.Groups[0]
	assert.Equal(t, "SG4", sg4.ID)
	assert.Equal(t, "IDE", sg4.EntrySegment().Tag)
	require.Len(t, sg4.Groups, 3)
	assert.Equal(t, "SG5_Z16", sg4.Groups[0].VariantID())
	assert.Equal(t, "SG5_Z17", sg4.Groups[1].VariantID())
	assert.Equal(t, "SG6", sg4.Groups[2].VariantID())
}

func TestParseXML_CountersIncrease(t *testing.T) {
	schema, err := ParseXML([]byte(utilmdXML))
	require.NoError(t, err)
	last := 0
	var walk func(segs []*SegmentDef, groups []*GroupDef)
	walk = func(segs []*SegmentDef, groups []*GroupDef) {
		for _, s := range segs {
			require.Greater(t, s.Counter, last, "segment %s", s.Tag)
			last = s.Counter
		}
		for _, g := range groups {
			require.Greater(t, g.Counter, last, "group %s", g.VariantID())
			last = g.Counter
			walk(g.Segments, g.Groups)
		}
	}
	walk(schema.Segments, schema.Groups)
}

func TestGroupDef_Matches(t *testing.T) {
	schema, err := ParseXML([]byte(utilmdXML))
	require.NoError(t, err)
	z16 := schema.FindGroup("SG5_Z16")
	require.NotNil(t, z16)

	lookup := func(qualifier string) func(int, int) (string, bool) {
		return func(elem, comp int) (string, bool) {
			if elem == 0 && comp == 0 {
				return qualifier, true
			}
			return "", false
		}
	}
	assert.True(t, z16.Matches("LOC", lookup("Z16")))
	assert.True(t, z16.Matches("loc", lookup(" Z16 ")), "tag case-insensitive, qualifier trimmed")
	assert.False(t, z16.Matches("LOC", lookup("Z17")))
	assert.False(t, z16.Matches("RFF", lookup("Z16")))

	sg6 := schema.FindGroup("SG6")
	require.NotNil(t, sg6)
	assert.True(t, sg6.Matches("RFF", lookup("anything")), "undiscriminated group matches on tag alone")
}

func TestResolvePath(t *testing.T) {
	schema, err := ParseXML([]byte(utilmdXML))
	require.NoError(t, err)
	scope := schema.FindGroup("SG5_Z16").Segments

	tests := []struct {
		path     string
		elem     int
		comp     int
	}{
		{"loc.c517.d3225", 1, 0},
		{"loc.d3227", 0, 0},
		{"loc.d3227.qualifier", 0, 0},
		{"LOC.C517.D3225", 1, 0},
		{"loc.1.0", 1, 0},
	}
	for _, tt := range tests {
		p, err := ParsePath(tt.path)
		require.NoError(t, err, tt.path)
		ref, err := Resolve(p, scope)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.elem, ref.Element, tt.path)
		assert.Equal(t, tt.comp, ref.Component, tt.path)
		assert.Equal(t, "LOC", ref.Tag, tt.path)
	}
}

func TestResolvePath_Errors(t *testing.T) {
	schema, err := ParseXML([]byte(utilmdXML))
	require.NoError(t, err)
	scope := schema.FindGroup("SG5_Z16").Segments

	for _, bad := range []string{"loc", "loc..d3225", "a.b.c.d"} {
		_, err := ParsePath(bad)
		assert.ErrorIs(t, err, ErrInvalidPath, bad)
	}

	p, _ := ParsePath("nad.d3035")
	_, err = Resolve(p, scope)
	assert.ErrorIs(t, err, ErrSegmentNotFound)

	p, _ = ParsePath("loc.d9999")
	_, err = Resolve(p, scope)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestParseXML_Invalid(t *testing.T) {
	cases := map[string]string{
		"wrong root":        `<other/>`,
		"segment sans tag":  `<mig><segment/></mig>`,
		"group sans id":     `<mig><group><segment tag="A"/></group></mig>`,
		"group sans entry":  `<mig><group id="SG1"/></mig>`,
		"bad discriminator": `<mig><group id="SG1" qualifier="Z1" discriminator="x"><segment tag="A"/></group></mig>`,
	}
	for name, xml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseXML([]byte(xml))
			assert.Error(t, err)
		})
	}
}

func TestParsePIDSchema(t *testing.T) {
	data := []byte(`{
	  "pruefidentifikator": "55001",
	  "message_type": "UTILMD",
	  "version": "S2.1",
	  "segments": [
	    {"tag": "BGM", "min": 1, "max": 1, "number": "00002",
	     "elements": [{"id": "C002", "components": [{"id": "D1001", "max_length": 3, "codes": ["E03"]}]}]}
	  ],
	  "groups": [
	    {"id": "SG4", "min": 1, "max": 99999,
	     "segments": [{"tag": "IDE", "min": 1, "max": 1, "elements": [{"id": "D7495"}, {"id": "C206", "components": [{"id": "D7402"}]}]}],
	     "groups": [
	       {"id": "SG5", "qualifier": "Z16", "min": 0, "max": 99,
	        "discriminator": {"element": 0, "component": 0},
	        "segments": [{"tag": "LOC", "min": 1, "max": 1, "elements": [{"id": "D3227"}, {"id": "C517", "components": [{"id": "D3225"}]}]}]}
	     ]}
	  ],
	  "field_ids": {"loc.c517.d3225": "3039"}
	}`)
	ps, err := ParsePIDSchema(data)
	require.NoError(t, err)
	assert.Equal(t, "55001", ps.Pruefidentifikator)
	assert.Equal(t, "3039", ps.FieldIDs["loc.c517.d3225"])

	z16 := ps.Schema.FindGroup("SG5_Z16")
	require.NotNil(t, z16)
	require.NotNil(t, z16.Discriminator)
	assert.Equal(t, []string{"Z16"}, z16.Discriminator.Qualifiers, "qualifier set defaults to the variant key")

	_, err = ParsePIDSchema([]byte(`{"message_type": "UTILMD"}`))
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enermsg/edikit/pkg/edifact"
	"github.com/enermsg/edikit/pkg/mig"
)

const testMIG = `<mig type="UTILMD" version="S2.1">
  <segment tag="BGM" min="1" max="1">
    <element id="C002"><component id="D1001" maxLength="3"/></element>
    <element id="C106"><component id="D1004" maxLength="35"/></element>
  </segment>
  <segment tag="DTM" min="0" max="9">
    <element id="C507">
      <component id="D2005" maxLength="3"/>
      <component id="D2380" maxLength="35"/>
      <component id="D2379" maxLength="3"/>
    </element>
  </segment>
  <group id="SG4" min="1" max="2">
    <segment tag="IDE" min="1" max="1">
      <element id="D7495" maxLength="3"/>
      <element id="C206"><component id="D7402" maxLength="35"/></element>
    </segment>
    <segment tag="DTM" min="0" max="9">
      <element id="C507">
        <component id="D2005" maxLength="3"/>
        <component id="D2380" maxLength="35"/>
      </element>
    </segment>
    <group id="SG5" qualifier="Z16" discriminator="0:0" min="0" max="99">
      <segment tag="LOC" min="1" max="1">
        <element id="D3227" maxLength="3"/>
        <element id="C517"><component id="D3225" maxLength="35"/></element>
      </segment>
    </group>
    <group id="SG5" qualifier="Z17" discriminator="0:0" min="0" max="99">
      <segment tag="LOC" min="1" max="1">
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

func loadTestSchema(t *testing.T) *mig.Schema {
	t.Helper()
	schema, err := mig.ParseXML([]byte(testMIG))
	require.NoError(t, err)
	return schema
}

func tokenize(t *testing.T, input string) []edifact.Segment {
	t.Helper()
	segs, _, err := edifact.Tokenize([]byte(input))
	require.NoError(t, err)
	return segs
}

func TestAssemble_Basic(t *testing.T) {
	schema := loadTestSchema(t)
	body := tokenize(t, "BGM+E03+DOC'IDE+24+TX001'LOC+Z16+MALO001'")

	tree, diags, err := Assemble(body, schema)
	require.NoError(t, err)
	assert.Empty(t, diags)

	require.Len(t, tree.BeforeGroups, 1)
	assert.Equal(t, "BGM", tree.BeforeGroups[0].Tag)

	require.Len(t, tree.Groups, 1)
	sg4 := tree.Groups[0]
	assert.Equal(t, "SG4", sg4.ID())
	require.Len(t, sg4.Instances, 1)

	inst := sg4.Instances[0]
	require.Len(t, inst.Segments, 1)
	assert.Equal(t, "IDE", inst.Segments[0].Tag)

	z16 := inst.Child("SG5_Z16")
	require.NotNil(t, z16)
	require.Len(t, z16.Instances, 1)
	loc, err := z16.Instances[0].FindIn("LOC")
	require.NoError(t, err)
	assert.Equal(t, "MALO001", loc.First(1))
}

func TestAssemble_QualifierVariantsSeparate(t *testing.T) {
	schema := loadTestSchema(t)
	body := tokenize(t, "BGM+E03+DOC'IDE+24+TX001'LOC+Z16+MALO001'LOC+Z16+MALO002'LOC+Z17+MELO001'")

	tree, diags, err := Assemble(body, schema)
	require.NoError(t, err)
	assert.Empty(t, diags)

	inst := tree.Groups[0].Instances[0]
	z16 := inst.Child("SG5_Z16")
	z17 := inst.Child("SG5_Z17")
	require.NotNil(t, z16)
	require.NotNil(t, z17)
	assert.Len(t, z16.Instances, 2)
	assert.Len(t, z17.Instances, 1)
}

func TestAssemble_MissingMandatory(t *testing.T) {
	schema := loadTestSchema(t)
	// No BGM at all.
	body := tokenize(t, "IDE+24+TX001'LOC+Z16+MALO001'")

	_, diags, err := Assemble(body, schema)
	require.NoError(t, err)
	require.NotEmpty(t, diags)
	assert.Equal(t, DiagMissingRequiredSegment, diags[0].Kind)
	assert.Equal(t, "BGM", diags[0].Tag)
}

func TestAssemble_MaxRepetitionsExceeded(t *testing.T) {
	schema := loadTestSchema(t)
	// SG4 allows max 2 repetitions; open 3.
	body := tokenize(t, "BGM+E03+DOC'IDE+24+TX001'IDE+24+TX002'IDE+24+TX003'")

	tree, diags, err := Assemble(body, schema)
	require.NoError(t, err)

	var found bool
	for _, d := range diags {
		if d.Kind == DiagMaxRepetitionsExceeded && d.GroupID == "SG4" {
			found = true
		}
	}
	assert.True(t, found, "expected MaxRepetitionsExceeded diagnostic, got %v", diags)
	// The offending repetition is still consumed.
	assert.Len(t, tree.Groups[0].Instances, 3)
}

func TestAssemble_UnexpectedSegmentPassthrough(t *testing.T) {
	schema := loadTestSchema(t)
	body := tokenize(t, "BGM+E03+DOC'IDE+24+TX001'LOC+Z16+MALO001'XYZ+1'")

	tree, diags, err := Assemble(body, schema)
	require.NoError(t, err)

	require.Len(t, diags, 1)
	assert.Equal(t, DiagUnexpectedSegment, diags[0].Kind)
	assert.Equal(t, "XYZ", diags[0].Tag)

	// Attached to the innermost instance (the SG5_Z16 repetition).
	z16 := tree.Groups[0].Instances[0].Child("SG5_Z16")
	require.Len(t, z16.Instances[0].Passthrough, 1)
	pt := z16.Instances[0].Passthrough[0]
	assert.Equal(t, "XYZ", pt.Segment.Tag)
	assert.Equal(t, 1, pt.Anchor)
}

func TestDisassemble_RoundTrip(t *testing.T) {
	schema := loadTestSchema(t)
	inputs := []string{
		"BGM+E03+DOC'IDE+24+TX001'LOC+Z16+MALO001'",
		"BGM+E03+DOC'DTM+137:202512171229:203'IDE+24+TX001'DTM+92:20260101:102'LOC+Z16+MALO001'RFF+Z13:55001'",
		"BGM+E03+DOC'IDE+24+TX001'LOC+Z16+MALO001'LOC+Z17+MELO001'RFF+Z13:55001'IDE+24+TX002'LOC+Z16+MALO002'",
		// unexpected segment must be replayed where it was captured
		"BGM+E03+DOC'IDE+24+TX001'LOC+Z16+MALO001'XYZ+1'",
	}
	for _, in := range inputs {
		body := tokenize(t, in)
		tree, _, err := Assemble(body, schema)
		require.NoError(t, err, in)
		flat := Disassemble(tree, schema)
		out := edifact.Render(flat, edifact.DefaultDelimiters(), false)
		assert.Equal(t, in, string(out), "round trip mismatch")
	}
}

func TestAssemble_Conservation(t *testing.T) {
	schema := loadTestSchema(t)
	in := "BGM+E03+DOC'IDE+24+TX001'LOC+Z16+MALO001'RFF+Z13:55001'XYZ+1'IDE+24+TX002'LOC+Z17+MELO001'"
	body := tokenize(t, in)
	tree, _, err := Assemble(body, schema)
	require.NoError(t, err)
	flat := Disassemble(tree, schema)

	count := func(segs []edifact.Segment) map[string]int {
		m := map[string]int{}
		for i := range segs {
			raw := edifact.Render(segs[i:i+1], edifact.DefaultDelimiters(), false)
			m[string(raw)]++
		}
		return m
	}
	assert.Equal(t, count(body), count(flat), "multiset of segments must be conserved")
}

func TestTree_CloneIsDeep(t *testing.T) {
	schema := loadTestSchema(t)
	body := tokenize(t, "BGM+E03+DOC'IDE+24+TX001'LOC+Z16+MALO001'")
	tree, _, err := Assemble(body, schema)
	require.NoError(t, err)

	clone := tree.Clone()
	loc, err := clone.Groups[0].Instances[0].Child("SG5_Z16").Instances[0].FindIn("LOC")
	require.NoError(t, err)
	loc.Elements[1][0] = "CHANGED"

	orig, err := tree.Groups[0].Instances[0].Child("SG5_Z16").Instances[0].FindIn("LOC")
	require.NoError(t, err)
	assert.Equal(t, "MALO001", orig.First(1))
}

package pid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enermsg/edikit/pkg/assemble"
	"github.com/enermsg/edikit/pkg/edifact"
	"github.com/enermsg/edikit/pkg/mig"
)

const testMIG = `<mig type="UTILMD" version="S2.1">
  <segment tag="BGM" min="1" max="1">
    <element id="C002"><component id="D1001"/></element>
    <element id="C106"><component id="D1004"/></element>
  </segment>
  <group id="SG4" min="1" max="99999">
    <segment tag="IDE" min="1" max="1">
      <element id="D7495"/>
      <element id="C206"><component id="D7402"/></element>
    </segment>
    <group id="SG5" qualifier="Z16" discriminator="0:0" min="0" max="99">
      <segment tag="LOC" min="1" max="1">
        <element id="D3227"/>
        <element id="C517"><component id="D3225"/></element>
      </segment>
    </group>
    <group id="SG5" qualifier="Z17" discriminator="0:0" min="0" max="99">
      <segment tag="LOC" min="1" max="1">
        <element id="D3227"/>
        <element id="C517"><component id="D3225"/></element>
      </segment>
    </group>
    <group id="SG6" min="0" max="9">
      <segment tag="RFF" min="1" max="1">
        <element id="C506"><component id="D1153"/><component id="D1154"/></element>
      </segment>
    </group>
  </group>
</mig>`

const pidSchema55001 = `{
  "pruefidentifikator": "55001",
  "message_type": "UTILMD",
  "segments": [
    {"tag": "BGM", "min": 1, "max": 1,
     "elements": [{"id": "C002", "components": [{"id": "D1001"}]}, {"id": "C106", "components": [{"id": "D1004"}]}]}
  ],
  "groups": [
    {"id": "SG4", "min": 1, "max": 99999,
     "segments": [{"tag": "IDE", "min": 1, "max": 1, "elements": [{"id": "D7495"}, {"id": "C206", "components": [{"id": "D7402"}]}]}],
     "groups": [
       {"id": "SG5", "qualifier": "Z16", "min": 0, "max": 99,
        "discriminator": {"element": 0, "component": 0},
        "segments": [{"tag": "LOC", "min": 1, "max": 1, "elements": [{"id": "D3227"}, {"id": "C517", "components": [{"id": "D3225"}]}]}]},
       {"id": "SG6", "min": 0, "max": 9,
        "segments": [{"tag": "RFF", "min": 1, "max": 1, "elements": [{"id": "C506", "components": [{"id": "D1153"}, {"id": "D1154"}]}]}]}
     ]}
  ]
}`

func assembleInput(t *testing.T, input string) *assemble.Tree {
	t.Helper()
	schema, err := mig.ParseXML([]byte(testMIG))
	require.NoError(t, err)
	segs, _, err := edifact.Tokenize([]byte(input))
	require.NoError(t, err)
	tree, _, err := assemble.Assemble(segs, schema)
	require.NoError(t, err)
	return tree
}

func TestDetect_FromRFF(t *testing.T) {
	tree := assembleInput(t, "BGM+E03+DOC'IDE+24+TX001'LOC+Z16+MALO001'RFF+Z13:55001'")
	det, err := Detect(tree)
	require.NoError(t, err)
	assert.Equal(t, "55001", det.Pruefidentifikator)
	assert.Equal(t, "E03", det.DocumentCode)
}

func TestDetect_Failures(t *testing.T) {
	// BGM present but no RFF+Z13.
	tree := assembleInput(t, "BGM+E03+DOC'IDE+24+TX001'")
	_, err := Detect(tree)
	assert.ErrorIs(t, err, ErrDetectionFailed)

	// Neither BGM nor RFF.
	tree = assembleInput(t, "IDE+24+TX001'")
	_, err = Detect(tree)
	assert.ErrorIs(t, err, ErrDetectionFailed)
}

func TestRegistry_Lookup(t *testing.T) {
	ps, err := mig.ParsePIDSchema([]byte(pidSchema55001))
	require.NoError(t, err)
	reg := NewRegistry(ps)

	got, err := reg.Lookup("55001")
	require.NoError(t, err)
	assert.Equal(t, "55001", got.Pruefidentifikator)

	_, err = reg.Lookup("99999")
	assert.True(t, errors.Is(err, ErrUnknownPID))
}

func TestFilter_PrunesUndeclaredBranches(t *testing.T) {
	ps, err := mig.ParsePIDSchema([]byte(pidSchema55001))
	require.NoError(t, err)
	// Z17 variant and the XTX passthrough are not part of PID 55001.
	tree := assembleInput(t, "BGM+E03+DOC'IDE+24+TX001'LOC+Z16+MALO001'LOC+Z17+MELO001'RFF+Z13:55001'")

	filtered := Filter(tree, ps)

	inst := filtered.Groups[0].Instances[0]
	assert.NotNil(t, inst.Child("SG5_Z16"))
	assert.Nil(t, inst.Child("SG5_Z17"), "Z17 variant must be pruned")
	assert.NotNil(t, inst.Child("SG6"))

	// Pure: the input tree still has both variants.
	orig := tree.Groups[0].Instances[0]
	assert.NotNil(t, orig.Child("SG5_Z17"))
}

func TestFilter_DoesNotShareStorage(t *testing.T) {
	ps, err := mig.ParsePIDSchema([]byte(pidSchema55001))
	require.NoError(t, err)
	tree := assembleInput(t, "BGM+E03+DOC'IDE+24+TX001'LOC+Z16+MALO001'")

	filtered := Filter(tree, ps)
	loc, err := filtered.Groups[0].Instances[0].Child("SG5_Z16").Instances[0].FindIn("LOC")
	require.NoError(t, err)
	loc.Elements[1][0] = "CHANGED"

	origLoc, err := tree.Groups[0].Instances[0].Child("SG5_Z16").Instances[0].FindIn("LOC")
	require.NoError(t, err)
	assert.Equal(t, "MALO001", origLoc.First(1))
}

package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enermsg/edikit/pkg/condition"
	"github.com/enermsg/edikit/pkg/mig"
	"github.com/enermsg/edikit/pkg/pid"
)

const validatorPIDSchema = `{
  "pruefidentifikator": "55001",
  "message_type": "UTILMD",
  "segments": [
    {"tag": "BGM", "min": 1, "max": 1, "number": "00002",
     "elements": [
       {"id": "C002", "components": [{"id": "D1001", "max_length": 3, "codes": ["E01", "E02", "E03"]}]},
       {"id": "C106", "components": [{"id": "D1004", "max_length": 5}]}
     ]},
    {"tag": "DTM", "min": 0, "max": 9, "number": "00005",
     "elements": [{"id": "C507", "components": [
       {"id": "D2005"}, {"id": "D2380", "max_length": 35}, {"id": "D2379", "codes": ["102", "203"]}
     ]}]}
  ],
  "groups": [
    {"id": "SG4", "min": 1, "max": 99999,
     "segments": [{"tag": "IDE", "min": 1, "max": 1, "number": "00010",
       "elements": [{"id": "D7495", "format": "n"}, {"id": "C206", "components": [{"id": "D7402", "max_length": 35}]}]}],
     "groups": [
       {"id": "SG5", "qualifier": "Z16", "min": 0, "max": 99,
        "discriminator": {"element": 0, "component": 0},
        "segments": [{"tag": "LOC", "min": 1, "max": 1, "number": "00062",
          "elements": [{"id": "D3227"}, {"id": "C517", "components": [{"id": "D3225", "max_length": 35}]}]}]}
     ]}
  ]
}`

func validatorRegistry(t *testing.T) *pid.Registry {
	t.Helper()
	ps, err := mig.ParsePIDSchema([]byte(validatorPIDSchema))
	require.NoError(t, err)
	return pid.NewRegistry(ps)
}

func codesOf(issues []Issue) []string {
	codes := make([]string, 0, len(issues))
	for _, i := range issues {
		codes = append(codes, i.Code)
	}
	return codes
}

func TestValidate_UnknownPruefidentifikator(t *testing.T) {
	v := New(validatorRegistry(t))
	_, err := v.Validate([]byte("BGM+E01+DOC'"), "99999", LevelStructure)
	require.ErrorIs(t, err, ErrUnknownPruefidentifikator)
}

func TestValidate_Structure(t *testing.T) {
	v := New(validatorRegistry(t))

	issues, err := v.Validate([]byte("BGM+E01+DOC'IDE+24+TX001'LOC+Z16+MALO001'"), "55001", LevelStructure)
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = v.Validate([]byte("IDE+24+TX001'"), "55001", LevelStructure)
	require.NoError(t, err)
	assert.Contains(t, codesOf(issues), CodeMissingRequired)
	for _, issue := range issues {
		if issue.Code == CodeMissingRequired {
			assert.Equal(t, SeverityError, issue.Severity)
			assert.Equal(t, CategoryStructure, issue.Category)
		}
	}
}

func TestValidate_EnvelopedInput(t *testing.T) {
	v := New(validatorRegistry(t))
	input := "UNA:+.? 'UNB+UNOC:3+S+R+251217:1229+REF'" +
		"UNH+M1+UTILMD:D:11A:UN:S2.1'BGM+E01+DOC'IDE+24+TX001'LOC+Z16+MALO001'UNT+5+M1'" +
		"UNZ+1+REF'"
	issues, err := v.Validate([]byte(input), "55001", LevelFull)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidate_EmptyInput(t *testing.T) {
	v := New(validatorRegistry(t))
	issues, err := v.Validate(nil, "55001", LevelFull)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidate_ParseError(t *testing.T) {
	v := New(validatorRegistry(t))
	_, err := v.Validate([]byte("BGM+E01+DOC"), "55001", LevelStructure)
	require.ErrorIs(t, err, ErrParse)
}

func TestValidate_ConditionViolation(t *testing.T) {
	ahb := &AHB{
		Pruefidentifikator: "55001",
		Fields: []*Field{
			{Number: "00062", Status: StatusMuss, Expression: "Muss [1]"},
		},
	}
	evaluators := condition.Registry{
		1: func(*condition.Context) condition.Value { return condition.False },
	}
	v := New(validatorRegistry(t), WithAHB(ahb), WithEvaluators(evaluators))

	issues, err := v.Validate([]byte("BGM+E01+DOC'IDE+24+TX001'LOC+Z16+MALO001'"), "55001", LevelConditions)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, CodeMussViolated, issues[0].Code)
	assert.Equal(t, SeverityError, issues[0].Severity)
	assert.Equal(t, CategoryCondition, issues[0].Category)
}

func TestValidate_ConditionFalseFieldAbsent(t *testing.T) {
	ahb := &AHB{
		Pruefidentifikator: "55001",
		Fields: []*Field{
			{Number: "00062", Status: StatusMuss, Expression: "Muss [1]"},
		},
	}
	evaluators := condition.Registry{
		1: func(*condition.Context) condition.Value { return condition.False },
	}
	v := New(validatorRegistry(t), WithAHB(ahb), WithEvaluators(evaluators))

	// No LOC segment: a false gate over an absent field is fine.
	issues, err := v.Validate([]byte("BGM+E01+DOC'IDE+24+TX001'"), "55001", LevelConditions)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidate_ConditionUnknown(t *testing.T) {
	ahb := &AHB{
		Pruefidentifikator: "55001",
		Fields: []*Field{
			{Number: "00062", Status: StatusMuss, Expression: "Muss [7]"},
		},
	}
	// Condition 7 has no evaluator, so the outcome is undecidable.
	v := New(validatorRegistry(t), WithAHB(ahb), WithEvaluators(condition.Registry{}))

	issues, err := v.Validate([]byte("BGM+E01+DOC'IDE+24+TX001'LOC+Z16+MALO001'"), "55001", LevelConditions)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, CodeOutcomeUnknown, issues[0].Code)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Equal(t, uint32(7), issues[0].ConditionID)
}

func TestValidate_SollAndKannSeverities(t *testing.T) {
	ahb := &AHB{
		Pruefidentifikator: "55001",
		Fields: []*Field{
			{Number: "00062", Status: StatusSoll, Expression: "Soll [1]"},
			{Number: "00010", Status: StatusKann, Expression: "Kann [1]"},
		},
	}
	evaluators := condition.Registry{
		1: func(*condition.Context) condition.Value { return condition.False },
	}
	v := New(validatorRegistry(t), WithAHB(ahb), WithEvaluators(evaluators))

	issues, err := v.Validate([]byte("BGM+E01+DOC'IDE+24+TX001'LOC+Z16+MALO001'"), "55001", LevelConditions)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.ElementsMatch(t, []string{CodeSollViolated, CodeKannViolated}, codesOf(issues))
}

func TestValidate_NoEvaluators(t *testing.T) {
	ahb := &AHB{
		Pruefidentifikator: "55001",
		Fields:             []*Field{{Number: "00062", Expression: "[1]"}},
	}
	v := New(validatorRegistry(t), WithAHB(ahb))
	_, err := v.Validate([]byte("BGM+E01+DOC'IDE+24+TX001'"), "55001", LevelConditions)
	require.ErrorIs(t, err, ErrNoEvaluator)
}

func TestValidate_ConditionParseError(t *testing.T) {
	ahb := &AHB{
		Pruefidentifikator: "55001",
		Fields:             []*Field{{Number: "00062", Expression: "[1] ∧"}},
	}
	v := New(validatorRegistry(t), WithAHB(ahb), WithEvaluators(condition.Registry{}))
	_, err := v.Validate([]byte("BGM+E01+DOC'IDE+24+TX001'"), "55001", LevelConditions)
	require.ErrorIs(t, err, ErrConditionParse)
}

func TestValidate_FullValueChecks(t *testing.T) {
	v := New(validatorRegistry(t))
	input := "BGM+E99+TOOLONGVALUE'DTM+137:2024:102'IDE+2A+TX001'LOC+Z16+MALO001'"
	issues, err := v.Validate([]byte(input), "55001", LevelFull)
	require.NoError(t, err)

	codes := codesOf(issues)
	assert.Contains(t, codes, CodeValueNotAllowed, "E99 outside the BGM code list")
	assert.Contains(t, codes, CodeValueTooLong, "document number over max length")
	assert.Contains(t, codes, CodeBadDateFormat, "2024 is not CCYYMMDD")
	assert.Contains(t, codes, CodeNotNumeric, "2A in a numeric component")

	for _, issue := range issues {
		if issue.Code == CodeValueTooLong {
			require.NotNil(t, issue.Location.ElementIndex)
			require.NotNil(t, issue.Location.ComponentIndex)
		}
	}
}

func TestIssue_JSONShape(t *testing.T) {
	issue := Issue{
		Code:     CodeMussViolated,
		Severity: SeverityError,
		Location: at(4),
		Message:  "field present although condition false",
		Category: CategoryCondition,
	}
	data, err := json.Marshal(issue)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"code": "AHB001",
		"severity": "error",
		"location": {"segment_number": 4},
		"message": "field present although condition false",
		"category": "condition"
	}`, string(data))
}

func TestParseAHB(t *testing.T) {
	ahb, err := ParseAHB([]byte(`{
		"pruefidentifikator": "55001",
		"beschreibung": "Anmeldung NN",
		"fields": [
			{"number": "00062", "name": "Marktlokations-ID", "status": "Muss", "expression": "Muss [1] ∧ [2]"},
			{"number": "00010", "status": "Kann", "expression": "Kann [3]"}
		],
		"bedingungen": {"1": "wenn Stammdaten", "2": "wenn Netznutzung"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "55001", ahb.Pruefidentifikator)
	require.Len(t, ahb.Fields, 2)
	assert.Equal(t, StatusMuss, ahb.Fields[0].Status)
	assert.Equal(t, StatusKann, ahb.Fields[1].Status)
	assert.Equal(t, "wenn Netznutzung", ahb.Bedingungen[2])

	_, err = ParseAHB([]byte(`{"fields": []}`))
	require.Error(t, err)

	_, err = ParseAHB([]byte(`{"pruefidentifikator": "1", "fields": [{"status": "Vielleicht"}]}`))
	require.Error(t, err)
}

package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Status is the AHB requirement grade of a field.
type Status int

const (
	StatusMuss Status = iota
	StatusSoll
	StatusKann
)

func (s Status) String() string {
	switch s {
	case StatusMuss:
		return "Muss"
	case StatusSoll:
		return "Soll"
	case StatusKann:
		return "Kann"
	}
	return "unknown"
}

// Field links one MIG segment position (by its Number attribute) to the AHB
// condition expression gating it.
type Field struct {
	Number     string // MIG segment number, e.g. "00062"
	Name       string
	Status     Status
	Expression string // raw AHB expression, e.g. "Muss [1] ∧ [2]"
}

// AHB is the workflow overlay for one Prüfidentifikator: which fields are
// required under which named conditions.
type AHB struct {
	Pruefidentifikator string
	Beschreibung       string
	Fields             []*Field
	Bedingungen        map[uint32]string // condition number to prose text
}

type ahbJSON struct {
	Pruefidentifikator string            `json:"pruefidentifikator"`
	Beschreibung       string            `json:"beschreibung"`
	Fields             []fieldJSON       `json:"fields"`
	Bedingungen        map[string]string `json:"bedingungen"`
}

type fieldJSON struct {
	Number     string `json:"number"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Expression string `json:"expression"`
}

// LoadAHB reads an AHB overlay from a JSON file produced by the upstream
// schema loader.
func LoadAHB(path string) (*AHB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading AHB file: %w", err)
	}
	return ParseAHB(data)
}

// ParseAHB decodes an AHB overlay from JSON.
func ParseAHB(data []byte) (*AHB, error) {
	var raw ahbJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding AHB: %w", err)
	}
	if raw.Pruefidentifikator == "" {
		return nil, fmt.Errorf("decoding AHB: pruefidentifikator missing")
	}
	ahb := &AHB{
		Pruefidentifikator: raw.Pruefidentifikator,
		Beschreibung:       raw.Beschreibung,
	}
	for _, f := range raw.Fields {
		status, err := parseStatus(f.Status)
		if err != nil {
			return nil, fmt.Errorf("decoding AHB field %s: %w", f.Number, err)
		}
		ahb.Fields = append(ahb.Fields, &Field{
			Number:     f.Number,
			Name:       f.Name,
			Status:     status,
			Expression: f.Expression,
		})
	}
	if len(raw.Bedingungen) > 0 {
		ahb.Bedingungen = make(map[uint32]string, len(raw.Bedingungen))
		for k, text := range raw.Bedingungen {
			id, err := strconv.ParseUint(k, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("decoding AHB: condition key %q: %w", k, err)
			}
			ahb.Bedingungen[uint32(id)] = text
		}
	}
	return ahb, nil
}

func parseStatus(s string) (Status, error) {
	switch s {
	case "", "Muss", "muss":
		return StatusMuss, nil
	case "Soll", "soll":
		return StatusSoll, nil
	case "Kann", "kann":
		return StatusKann, nil
	}
	return StatusMuss, fmt.Errorf("unknown status %q", s)
}

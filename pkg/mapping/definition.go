package mapping

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Level scopes a definition to the message envelope or to a single
// IDE-delimited transaction.
type Level int

const (
	LevelTransaction Level = iota
	LevelMessage
)

// Meta describes the entity a definition produces and where its source data
// lives in the assembled tree.
type Meta struct {
	Entity        string // unique definition key, e.g. "Marktlokation"
	BO4EType      string // target type name emitted as boTyp
	CompanionType string // optional EDIFACT-only companion type
	JSONKey       string // key in the output document; defaults to lowercase entity
	SourceGroup   string // group (variant) ID, e.g. "SG5_Z16"
	SourcePath    string // optional direct navigation path, e.g. "sg4.sg8_z79"
	Discriminator *Predicate
	Level         Level
}

// FieldSpec binds one EDIFACT path to a JSON target. Exactly the declarative
// surface of the TOML file: plain string values become {Target: s}.
type FieldSpec struct {
	Target    string
	Transform string
	When      *Predicate
	Default   string
	EnumMap   map[string]string
	// Fields nests sub-mappings; their targets are joined below this target.
	Fields map[string]FieldSpec
}

// Predicate is a parsed "path == 'literal'" guard.
type Predicate struct {
	Path  string
	Value string
}

// Definition is one loaded mapping file.
type Definition struct {
	Meta            Meta
	Fields          map[string]FieldSpec
	CompanionFields map[string]FieldSpec
	Handlers        []string
}

// DefinitionSet holds all definitions of a directory, split by level and keyed
// by entity name. Immutable after loading.
type DefinitionSet struct {
	byEntity    map[string]*Definition
	Message     []*Definition
	Transaction []*Definition
}

// Get returns the definition for an entity name.
func (s *DefinitionSet) Get(entity string) (*Definition, bool) {
	d, ok := s.byEntity[entity]
	return d, ok
}

// All returns every definition ordered by entity name.
func (s *DefinitionSet) All() []*Definition {
	out := make([]*Definition, 0, len(s.byEntity))
	for _, d := range s.byEntity {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Meta.Entity < out[j].Meta.Entity })
	return out
}

// LoadDir loads every *.toml file under dir as one definition each. Duplicate
// entity names fail loading.
func LoadDir(dir string) (*DefinitionSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading mapping directory: %w", err)
	}
	set := &DefinitionSet{byEntity: map[string]*Definition{}}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		def, err := ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if err := set.add(def); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
	}
	return set, nil
}

// NewDefinitionSet builds a set from already-parsed definitions (tests,
// embedded configurations).
func NewDefinitionSet(defs ...*Definition) (*DefinitionSet, error) {
	set := &DefinitionSet{byEntity: map[string]*Definition{}}
	for _, d := range defs {
		if err := set.add(d); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (s *DefinitionSet) add(def *Definition) error {
	if _, exists := s.byEntity[def.Meta.Entity]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateEntity, def.Meta.Entity)
	}
	s.byEntity[def.Meta.Entity] = def
	if def.Meta.Level == LevelMessage {
		s.Message = append(s.Message, def)
	} else {
		s.Transaction = append(s.Transaction, def)
	}
	sort.Slice(s.Message, func(i, j int) bool { return s.Message[i].Meta.Entity < s.Message[j].Meta.Entity })
	sort.Slice(s.Transaction, func(i, j int) bool { return s.Transaction[i].Meta.Entity < s.Transaction[j].Meta.Entity })
	return nil
}

type rawDefinition struct {
	Meta struct {
		Entity        string `toml:"entity"`
		BO4EType      string `toml:"bo4e_type"`
		CompanionType string `toml:"companion_type"`
		JSONKey       string `toml:"json_key"`
		SourceGroup   string `toml:"source_group"`
		SourcePath    string `toml:"source_path"`
		Discriminator string `toml:"discriminator"`
		Level         string `toml:"level"`
	} `toml:"meta"`
	Fields          map[string]any `toml:"fields"`
	CompanionFields map[string]any `toml:"companion_fields"`
	ComplexHandlers []struct {
		Name string `toml:"name"`
	} `toml:"complex_handlers"`
}

// ParseDefinition decodes a single TOML mapping definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var raw rawDefinition
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTOMLParse, err)
	}
	if raw.Meta.Entity == "" {
		return nil, fmt.Errorf("%w: meta.entity is required", ErrTOMLParse)
	}
	def := &Definition{
		Meta: Meta{
			Entity:        raw.Meta.Entity,
			BO4EType:      raw.Meta.BO4EType,
			CompanionType: raw.Meta.CompanionType,
			JSONKey:       raw.Meta.JSONKey,
			SourceGroup:   raw.Meta.SourceGroup,
			SourcePath:    raw.Meta.SourcePath,
		},
	}
	if def.Meta.JSONKey == "" {
		def.Meta.JSONKey = strings.ToLower(raw.Meta.Entity)
	}
	switch raw.Meta.Level {
	case "", "transaction":
		def.Meta.Level = LevelTransaction
	case "message":
		def.Meta.Level = LevelMessage
	default:
		return nil, fmt.Errorf("%w: meta.level %q", ErrTOMLParse, raw.Meta.Level)
	}
	if raw.Meta.Discriminator != "" {
		p, err := ParsePredicate(raw.Meta.Discriminator)
		if err != nil {
			return nil, err
		}
		def.Meta.Discriminator = &p
	}
	var err error
	if def.Fields, err = normalizeFields(raw.Fields); err != nil {
		return nil, err
	}
	if def.CompanionFields, err = normalizeFields(raw.CompanionFields); err != nil {
		return nil, err
	}
	for _, h := range raw.ComplexHandlers {
		if h.Name == "" {
			return nil, fmt.Errorf("%w: complex_handlers entry without name", ErrTOMLParse)
		}
		def.Handlers = append(def.Handlers, h.Name)
	}
	return def, nil
}

func normalizeFields(raw map[string]any) (map[string]FieldSpec, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]FieldSpec, len(raw))
	for path, v := range raw {
		spec, err := normalizeFieldSpec(path, v)
		if err != nil {
			return nil, err
		}
		out[path] = spec
	}
	return out, nil
}

func normalizeFieldSpec(path string, v any) (FieldSpec, error) {
	switch val := v.(type) {
	case string:
		return FieldSpec{Target: val}, nil
	case map[string]any:
		spec := FieldSpec{}
		spec.Target, _ = val["target"].(string)
		spec.Transform, _ = val["transform"].(string)
		spec.Default, _ = val["default"].(string)
		if when, ok := val["when"].(string); ok && when != "" {
			p, err := ParsePredicate(when)
			if err != nil {
				return FieldSpec{}, fmt.Errorf("field %q: %w", path, err)
			}
			spec.When = &p
		}
		if em, ok := val["enum_map"].(map[string]any); ok {
			spec.EnumMap = make(map[string]string, len(em))
			for k, ev := range em {
				s, ok := ev.(string)
				if !ok {
					return FieldSpec{}, fmt.Errorf("%w: field %q enum_map value for %q is not a string", ErrTOMLParse, path, k)
				}
				spec.EnumMap[k] = s
			}
		}
		if nested, ok := val["fields"].(map[string]any); ok {
			sub, err := normalizeFields(nested)
			if err != nil {
				return FieldSpec{}, err
			}
			spec.Fields = sub
		}
		if spec.Target == "" && spec.Fields == nil {
			return FieldSpec{}, fmt.Errorf("%w: field %q has neither target nor nested fields", ErrTOMLParse, path)
		}
		return spec, nil
	default:
		return FieldSpec{}, fmt.Errorf("%w: field %q has unsupported value type %T", ErrTOMLParse, path, v)
	}
}

// ParsePredicate parses a "path == 'literal'" expression.
func ParsePredicate(s string) (Predicate, error) {
	parts := strings.SplitN(s, "==", 2)
	if len(parts) != 2 {
		return Predicate{}, fmt.Errorf("%w: predicate %q, want \"path == 'literal'\"", ErrInvalidPath, s)
	}
	path := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	value = strings.Trim(value, "'\"")
	if path == "" {
		return Predicate{}, fmt.Errorf("%w: predicate %q has empty path", ErrInvalidPath, s)
	}
	return Predicate{Path: path, Value: value}, nil
}

package validate

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/enermsg/edikit/pkg/assemble"
	"github.com/enermsg/edikit/pkg/condition"
	"github.com/enermsg/edikit/pkg/edifact"
	"github.com/enermsg/edikit/pkg/mig"
	"github.com/enermsg/edikit/pkg/pid"
	"github.com/enermsg/edikit/pkg/stream"
)

var (
	// ErrParse wraps tokenizer and framing failures; nothing can be validated.
	ErrParse = errors.New("edifact parse failure")
	// ErrConditionParse indicates an AHB expression the condition parser rejects.
	ErrConditionParse = errors.New("ahb condition parse failure")
	// ErrUnknownPruefidentifikator indicates a PID with no registered schema.
	ErrUnknownPruefidentifikator = errors.New("unknown pruefidentifikator")
	// ErrNoEvaluator indicates condition-level validation without a dispatch table.
	ErrNoEvaluator = errors.New("no condition evaluators registered")
)

// Level selects how deep validation goes.
type Level int

const (
	// LevelStructure reports MIG structure diagnostics only.
	LevelStructure Level = iota
	// LevelConditions additionally evaluates AHB condition expressions.
	LevelConditions
	// LevelFull additionally checks value lengths, formats and code lists.
	LevelFull
)

func (l Level) String() string {
	switch l {
	case LevelStructure:
		return "structure"
	case LevelConditions:
		return "conditions"
	case LevelFull:
		return "full"
	}
	return "unknown"
}

// Validator runs the validation pipeline for registered PID schemas and AHB
// overlays. Immutable after construction; share freely across goroutines.
type Validator struct {
	registry   *pid.Registry
	ahbs       map[string]*AHB
	evaluators condition.Registry
	provider   condition.ExternalProvider
	logger     *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithAHB registers AHB overlays, keyed by their Prüfidentifikator.
func WithAHB(ahbs ...*AHB) Option {
	return func(v *Validator) {
		for _, a := range ahbs {
			v.ahbs[a.Pruefidentifikator] = a
		}
	}
}

// WithEvaluators installs the per-condition dispatch table.
func WithEvaluators(reg condition.Registry) Option {
	return func(v *Validator) { v.evaluators = reg }
}

// WithProvider installs the external-condition provider.
func WithProvider(p condition.ExternalProvider) Option {
	return func(v *Validator) { v.provider = p }
}

// WithLogger sets the structured logger; the default discards nothing but
// writes to slog's default handler.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

// New builds a Validator over the registry of PID schemas.
func New(registry *pid.Registry, opts ...Option) *Validator {
	v := &Validator{
		registry: registry,
		ahbs:     map[string]*AHB{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs the pipeline on raw EDIFACT bytes: tokenize, frame, assemble
// each message, then apply the checks the level asks for. Recoverable findings
// accumulate as issues; only failures that prevent progress return an error.
func (v *Validator) Validate(input []byte, pruefidentifikator string, level Level) ([]Issue, error) {
	schema, err := v.registry.Lookup(pruefidentifikator)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPruefidentifikator, pruefidentifikator)
	}

	bodies, err := messageBodies(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var issues []Issue
	for _, body := range bodies {
		tree, diags, err := assemble.Assemble(body, schema.Schema)
		if err != nil {
			return nil, err
		}
		for _, d := range diags {
			issues = append(issues, issueFromDiagnostic(d))
		}
		if level >= LevelConditions {
			more, err := v.checkConditions(schema, tree, body, pruefidentifikator)
			if err != nil {
				return nil, err
			}
			issues = append(issues, more...)
		}
		if level >= LevelFull {
			issues = append(issues, checkValues(body, schema.Schema)...)
		}
	}

	v.logger.Debug("validated interchange",
		"pruefidentifikator", pruefidentifikator,
		"level", level.String(),
		"messages", len(bodies),
		"issues", len(issues))
	return issues, nil
}

// messageBodies splits enveloped input into per-message segment lists; bare
// segment lists without UNB become a single body.
func messageBodies(input []byte) ([][]edifact.Segment, error) {
	segments, _, err := edifact.Tokenize(input)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, nil
	}
	if segments[0].Tag != "UNB" {
		return [][]edifact.Segment{segments}, nil
	}
	ic, err := stream.Split(input)
	if err != nil {
		return nil, err
	}
	bodies := make([][]edifact.Segment, 0, len(ic.Messages))
	for _, m := range ic.Messages {
		bodies = append(bodies, m.Body)
	}
	return bodies, nil
}

func issueFromDiagnostic(d assemble.Diagnostic) Issue {
	issue := Issue{
		Location: at(d.SegmentNumber),
		Message:  d.Message,
		Category: CategoryStructure,
	}
	switch d.Kind {
	case assemble.DiagMissingRequiredSegment:
		issue.Code = CodeMissingRequired
		issue.Severity = SeverityError
	case assemble.DiagMaxRepetitionsExceeded:
		issue.Code = CodeMaxRepetitions
		issue.Severity = SeverityWarning
	case assemble.DiagUnexpectedSegment:
		issue.Code = CodeUnexpectedSegment
		issue.Severity = SeverityWarning
	}
	return issue
}

// checkConditions evaluates every AHB field expression for the PID and
// reports fields present despite a False gate, and gates that cannot be
// decided.
func (v *Validator) checkConditions(schema *mig.PIDSchema, tree *assemble.Tree, body []edifact.Segment, pruefidentifikator string) ([]Issue, error) {
	ahb, ok := v.ahbs[pruefidentifikator]
	if !ok || len(ahb.Fields) == 0 {
		return nil, nil
	}
	if v.evaluators == nil {
		return nil, ErrNoEvaluator
	}

	ctx := &condition.Context{
		Pruefidentifikator: pruefidentifikator,
		Segments:           body,
		Tree:               tree,
		Provider:           v.provider,
	}

	var issues []Issue
	for _, field := range ahb.Fields {
		expr, err := condition.Parse(field.Expression)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrConditionParse, field.Number, err)
		}
		value := condition.Evaluate(expr, ctx, v.evaluators)
		present, segNumber := fieldPresence(schema.Schema, tree, field.Number)

		switch {
		case value == condition.False && present:
			issues = append(issues, statusViolation(field, segNumber))
		case value == condition.Unknown:
			issues = append(issues, Issue{
				Code:        CodeOutcomeUnknown,
				Severity:    SeverityWarning,
				Location:    at(segNumber),
				Message:     fmt.Sprintf("field %s: condition outcome undecidable", field.Number),
				Category:    CategoryCondition,
				ConditionID: firstLeaf(expr, v.evaluators),
			})
		}
	}
	return issues, nil
}

func statusViolation(field *Field, segNumber int) Issue {
	issue := Issue{
		Location: at(segNumber),
		Message:  fmt.Sprintf("field %s present although its %s condition is false", field.Number, field.Status),
		Category: CategoryCondition,
	}
	switch field.Status {
	case StatusMuss:
		issue.Code = CodeMussViolated
		issue.Severity = SeverityError
	case StatusSoll:
		issue.Code = CodeSollViolated
		issue.Severity = SeverityWarning
	case StatusKann:
		issue.Code = CodeKannViolated
		issue.Severity = SeverityInfo
	}
	return issue
}

// firstLeaf picks the condition number to attach to an Unknown finding: the
// first leaf without an evaluator, falling back to the first leaf.
func firstLeaf(expr condition.Expr, reg condition.Registry) uint32 {
	if missing := reg.Missing(expr); len(missing) > 0 {
		return missing[0]
	}
	if leaves := condition.Leaves(expr); len(leaves) > 0 {
		return leaves[0]
	}
	return 0
}

// fieldPresence locates the segment the AHB field number points at: whether
// any assembled segment carries the linked tag, and its wire number.
func fieldPresence(schema *mig.Schema, tree *assemble.Tree, number string) (bool, int) {
	def := defByNumber(schema.Segments, schema.Groups, number)
	if def == nil {
		return false, 0
	}
	for _, seg := range treeSegments(tree) {
		if equalTags(seg.Tag, def.Tag) {
			return true, seg.Number
		}
	}
	return false, 0
}

func defByNumber(segs []*mig.SegmentDef, groups []*mig.GroupDef, number string) *mig.SegmentDef {
	for _, s := range segs {
		if s.Number == number && number != "" {
			return s
		}
	}
	for _, g := range groups {
		if found := defByNumber(g.Segments, g.Groups, number); found != nil {
			return found
		}
	}
	return nil
}

// treeSegments flattens an assembled tree in document order.
func treeSegments(tree *assemble.Tree) []*edifact.Segment {
	var out []*edifact.Segment
	for i := range tree.BeforeGroups {
		out = append(out, &tree.BeforeGroups[i])
	}
	out = append(out, groupSegments(tree.Groups)...)
	for i := range tree.AfterGroups {
		out = append(out, &tree.AfterGroups[i])
	}
	return out
}

func groupSegments(groups []*assemble.Group) []*edifact.Segment {
	var out []*edifact.Segment
	for _, g := range groups {
		for _, inst := range g.Instances {
			for i := range inst.Segments {
				out = append(out, &inst.Segments[i])
			}
			out = append(out, groupSegments(inst.Children)...)
		}
	}
	return out
}

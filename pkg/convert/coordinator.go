package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/enermsg/edikit/pkg/assemble"
	"github.com/enermsg/edikit/pkg/edifact"
	"github.com/enermsg/edikit/pkg/mapping"
	"github.com/enermsg/edikit/pkg/mig"
	"github.com/enermsg/edikit/pkg/pid"
	"github.com/enermsg/edikit/pkg/stream"
)

// ErrEmptyDocument indicates a reverse call with no usable JSON input.
var ErrEmptyDocument = errors.New("empty BO4E document")

// Coordinator runs conversions over one MIG schema and one mapping engine.
// Immutable after construction; each batch worker owns its own instance or
// shares one, both are safe.
type Coordinator struct {
	schema   *mig.Schema
	engine   *mapping.Engine
	registry *pid.Registry
	logger   *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRegistry installs PID schemas; conversions then prune each tree to the
// detected PID's view, and an undetectable or unknown PID becomes fatal.
func WithRegistry(registry *pid.Registry) Option {
	return func(c *Coordinator) { c.registry = registry }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// New builds a Coordinator.
func New(schema *mig.Schema, engine *mapping.Engine, opts ...Option) *Coordinator {
	c := &Coordinator{
		schema: schema,
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MessageResult is the outcome for one UNH…UNT message.
type MessageResult struct {
	Reference          string
	Pruefidentifikator string
	Document           []byte
	Diagnostics        []assemble.Diagnostic
	Issues             []mapping.Issue
	Trace              []mapping.TraceRecord

	// Tree is the unfiltered assembled tree; Rerender replays it for the
	// byte-exact round trip.
	Tree *assemble.Tree
}

// Result is the outcome of one forward conversion.
type Result struct {
	Interchange *stream.Interchange
	Messages    []*MessageResult
}

// ForwardOption configures one forward conversion.
type ForwardOption func(*forwardConfig)

type forwardConfig struct {
	trace bool
}

// WithTrace records the mapping trace for every message.
func WithTrace() ForwardOption {
	return func(cfg *forwardConfig) { cfg.trace = true }
}

// Forward converts EDIFACT bytes to BO4E JSON, one document per message.
// Structure diagnostics and mapping issues accumulate per message; only
// failures that prevent progress return an error.
func (c *Coordinator) Forward(ctx context.Context, input []byte, opts ...ForwardOption) (*Result, error) {
	var cfg forwardConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ic, err := frame(input)
	if err != nil {
		return nil, err
	}
	result := &Result{Interchange: ic}

	for i := range ic.Messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg := &ic.Messages[i]
		mres, err := c.forwardMessage(msg, cfg)
		if err != nil {
			return nil, fmt.Errorf("message %q: %w", msg.Reference(), err)
		}
		result.Messages = append(result.Messages, mres)
	}

	c.logger.Debug("forward conversion complete",
		"messages", len(result.Messages))
	return result, nil
}

func (c *Coordinator) forwardMessage(msg *stream.Message, cfg forwardConfig) (*MessageResult, error) {
	tree, diags, err := assemble.Assemble(msg.Body, c.schema)
	if err != nil {
		return nil, err
	}

	mres := &MessageResult{
		Reference:   msg.Reference(),
		Diagnostics: diags,
		Tree:        tree,
	}

	mapped := tree
	if c.registry != nil {
		det, err := pid.Detect(tree)
		if err != nil {
			return nil, err
		}
		ps, err := c.registry.Lookup(det.Pruefidentifikator)
		if err != nil {
			return nil, err
		}
		mres.Pruefidentifikator = det.Pruefidentifikator
		mapped = pid.Filter(tree, ps)
	}

	var mapOpts []mapping.ForwardOption
	if cfg.trace {
		mapOpts = append(mapOpts, mapping.WithTrace())
	}
	fres, err := c.engine.Forward(mapped, mapOpts...)
	if err != nil {
		return nil, err
	}
	mres.Document = fres.Document
	mres.Issues = fres.Issues
	mres.Trace = fres.Trace
	return mres, nil
}

// frame splits enveloped input; bare segment lists without UNB become a
// single anonymous message.
func frame(input []byte) (*stream.Interchange, error) {
	segments, delims, err := edifact.Tokenize(input)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return &stream.Interchange{Delimiters: delims}, nil
	}
	if segments[0].Tag == "UNB" || segments[0].Tag == "UNH" {
		return stream.Split(input)
	}
	return &stream.Interchange{
		Delimiters:  delims,
		ExplicitUNA: edifact.HasUNA(input),
		Messages:    []stream.Message{{Body: segments}},
	}, nil
}

// Rerender flattens every message tree back to wire bytes with the original
// delimiters and envelope. For input that produced no passthrough loss this
// reproduces the original bytes exactly.
func (c *Coordinator) Rerender(result *Result) ([]byte, error) {
	ic := result.Interchange
	var segments []edifact.Segment
	if ic.Header != nil {
		segments = append(segments, *ic.Header)
	}
	for i, mres := range result.Messages {
		msg := &ic.Messages[i]
		if msg.Header.Tag != "" {
			segments = append(segments, msg.Header)
		}
		segments = append(segments, assemble.Disassemble(mres.Tree, c.schema)...)
		if msg.Trailer.Tag != "" {
			segments = append(segments, msg.Trailer)
		}
	}
	if ic.Trailer != nil {
		segments = append(segments, *ic.Trailer)
	}
	return edifact.Render(segments, ic.Delimiters, ic.ExplicitUNA), nil
}

// ReverseOption configures one reverse conversion.
type ReverseOption func(*reverseConfig)

type reverseConfig struct {
	envelope   []stream.EnvelopeOption
	delimiters edifact.Delimiters
	withUNA    bool
}

// WithEnvelope passes envelope settings (sender, receiver, reference) through
// to the interchange builder.
func WithEnvelope(opts ...stream.EnvelopeOption) ReverseOption {
	return func(cfg *reverseConfig) { cfg.envelope = append(cfg.envelope, opts...) }
}

// WithDelimiters renders with a non-default delimiter set and emits the
// matching UNA header.
func WithDelimiters(d edifact.Delimiters) ReverseOption {
	return func(cfg *reverseConfig) {
		cfg.delimiters = d
		cfg.withUNA = true
	}
}

// WithUNA forces an explicit UNA header even for default delimiters.
func WithUNA() ReverseOption {
	return func(cfg *reverseConfig) { cfg.withUNA = true }
}

// Reverse converts a BO4E document back to a rendered EDIFACT interchange.
// Field-level problems come back as issues; the segments they would have
// produced are omitted.
func (c *Coordinator) Reverse(ctx context.Context, doc []byte, opts ...ReverseOption) ([]byte, []mapping.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(doc) == 0 {
		return nil, nil, ErrEmptyDocument
	}
	cfg := reverseConfig{delimiters: edifact.DefaultDelimiters()}
	for _, opt := range opts {
		opt(&cfg)
	}

	tree, issues, err := c.engine.Reverse(doc)
	if err != nil {
		return nil, issues, err
	}
	body := assemble.Disassemble(tree, c.schema)

	builder := stream.NewEnvelope(cfg.envelope...)
	builder.AddMessage(body)
	segments := builder.Build()

	out := edifact.Render(segments, cfg.delimiters, cfg.withUNA)
	c.logger.Debug("reverse conversion complete",
		"segments", len(segments),
		"issues", len(issues))
	return out, issues, nil
}

package stream

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/enermsg/edikit/pkg/edifact"
)

// EnvelopeBuilder constructs the UNB/UNH…UNT/UNZ framing around message bodies
// for the reverse direction. References are generated when not supplied.
type EnvelopeBuilder struct {
	sender    string
	receiver  string
	reference string
	syntax    string
	version   string
	msgType   []string
	timestamp time.Time
	bodies    [][]edifact.Segment
	msgRefs   []string
}

// EnvelopeOption configures an EnvelopeBuilder.
type EnvelopeOption func(*EnvelopeBuilder)

// WithSender sets the UNB sender identification.
func WithSender(id string) EnvelopeOption {
	return func(b *EnvelopeBuilder) { b.sender = id }
}

// WithReceiver sets the UNB receiver identification.
func WithReceiver(id string) EnvelopeOption {
	return func(b *EnvelopeBuilder) { b.receiver = id }
}

// WithReference sets the interchange control reference.
func WithReference(ref string) EnvelopeOption {
	return func(b *EnvelopeBuilder) { b.reference = ref }
}

// WithMessageType sets the UNH message identifier components, e.g.
// "UTILMD", "D", "11A", "UN", "S2.1".
func WithMessageType(parts ...string) EnvelopeOption {
	return func(b *EnvelopeBuilder) { b.msgType = parts }
}

// WithTimestamp fixes the UNB preparation timestamp (defaults to now).
func WithTimestamp(ts time.Time) EnvelopeOption {
	return func(b *EnvelopeBuilder) { b.timestamp = ts }
}

// NewEnvelope creates a builder with generated references and UNOC:3 syntax.
func NewEnvelope(opts ...EnvelopeOption) *EnvelopeBuilder {
	b := &EnvelopeBuilder{
		syntax:    "UNOC",
		version:   "3",
		reference: generateReference(),
		timestamp: time.Now().UTC(),
		msgType:   []string{"UTILMD", "D", "11A", "UN"},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddMessage appends one message body; a message reference is generated.
func (b *EnvelopeBuilder) AddMessage(body []edifact.Segment) {
	b.bodies = append(b.bodies, body)
	b.msgRefs = append(b.msgRefs, strconv.Itoa(len(b.bodies)))
}

// AddMessageRef appends one message body with an explicit reference.
func (b *EnvelopeBuilder) AddMessageRef(ref string, body []edifact.Segment) {
	b.bodies = append(b.bodies, body)
	b.msgRefs = append(b.msgRefs, ref)
}

// Build assembles the framed segment list: UNB, then for each body UNH + body +
// UNT with correct counts, then UNZ.
func (b *EnvelopeBuilder) Build() []edifact.Segment {
	out := make([]edifact.Segment, 0, 2)
	out = append(out, edifact.Segment{
		Tag: "UNB",
		Elements: []edifact.Element{
			{b.syntax, b.version},
			{b.sender},
			{b.receiver},
			{b.timestamp.Format("060102"), b.timestamp.Format("1504")},
			{b.reference},
		},
	})
	for i, body := range b.bodies {
		ref := b.msgRefs[i]
		out = append(out, edifact.Segment{
			Tag: "UNH",
			Elements: []edifact.Element{
				{ref},
				append(edifact.Element(nil), b.msgType...),
			},
		})
		out = append(out, body...)
		out = append(out, edifact.Segment{
			Tag: "UNT",
			Elements: []edifact.Element{
				{strconv.Itoa(len(body) + 2)},
				{ref},
			},
		})
	}
	out = append(out, edifact.Segment{
		Tag: "UNZ",
		Elements: []edifact.Element{
			{strconv.Itoa(len(b.bodies))},
			{b.reference},
		},
	})
	for i := range out {
		out[i].Number = i + 1
	}
	return out
}

// generateReference derives a 14-character interchange reference from a UUID.
func generateReference() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:14])
}

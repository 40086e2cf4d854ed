package stream

import (
	"errors"
	"testing"

	"github.com/enermsg/edikit/pkg/edifact"
)

const twoMessageInterchange = "UNB+UNOC:3+SENDER+RECEIVER+251217:1229+REF42'" +
	"UNH+001+UTILMD:D:11A:UN:S2.1'BGM+E03+DOC1'UNT+3+001'" +
	"UNH+002+UTILMD:D:11A:UN:S2.1'BGM+E03+DOC2'UNT+3+002'" +
	"UNZ+2+REF42'"

type recordingHandler struct {
	BaseHandler
	events []string
	ords   []int
	stopAt string
}

func (r *recordingHandler) OnDelimiters(edifact.Delimiters, bool) {
	r.events = append(r.events, "UNA")
}

func (r *recordingHandler) OnInterchangeStart(*edifact.Segment) Control {
	r.events = append(r.events, "UNB")
	if r.stopAt == "UNB" {
		return Stop
	}
	return Continue
}

func (r *recordingHandler) OnMessageStart(ord int, _ *edifact.Segment) Control {
	r.events = append(r.events, "UNH")
	r.ords = append(r.ords, ord)
	return Continue
}

func (r *recordingHandler) OnSegment(ord int, seg *edifact.Segment) Control {
	r.events = append(r.events, seg.Tag)
	r.ords = append(r.ords, ord)
	if r.stopAt == seg.Tag {
		return Stop
	}
	return Continue
}

func (r *recordingHandler) OnMessageEnd(*edifact.Segment)     { r.events = append(r.events, "UNT") }
func (r *recordingHandler) OnInterchangeEnd(*edifact.Segment) { r.events = append(r.events, "UNZ") }

func TestParse_EventSequence(t *testing.T) {
	h := &recordingHandler{}
	if err := Parse([]byte(twoMessageInterchange), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"UNA", "UNB", "UNH", "BGM", "UNT", "UNH", "BGM", "UNT", "UNZ"}
	if len(h.events) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(h.events), h.events)
	}
	for i, e := range want {
		if h.events[i] != e {
			t.Errorf("event %d: expected %s, got %s", i, e, h.events[i])
		}
	}
	// message ordinals: UNH=1, BGM=1, UNH=2, BGM=2
	wantOrds := []int{1, 1, 2, 2}
	for i, o := range wantOrds {
		if h.ords[i] != o {
			t.Errorf("ordinal %d: expected %d, got %d", i, o, h.ords[i])
		}
	}
}

func TestParse_Stop(t *testing.T) {
	h := &recordingHandler{stopAt: "BGM"}
	err := Parse([]byte(twoMessageInterchange), h)
	if !errors.Is(err, ErrStoppedByHandler) {
		t.Fatalf("expected ErrStoppedByHandler, got %v", err)
	}
	// Nothing after the first BGM must have been dispatched.
	for _, e := range h.events {
		if e == "UNZ" {
			t.Error("parse continued past Stop")
		}
	}
}

func TestSplit_TwoMessages(t *testing.T) {
	ic, err := Split([]byte(twoMessageInterchange))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ic.Reference() != "REF42" {
		t.Errorf("expected interchange reference REF42, got %q", ic.Reference())
	}
	if len(ic.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(ic.Messages))
	}
	if ic.Messages[0].Reference() != "001" || ic.Messages[1].Reference() != "002" {
		t.Errorf("message references not preserved: %q %q",
			ic.Messages[0].Reference(), ic.Messages[1].Reference())
	}
	if ic.Messages[0].Type() != "UTILMD" {
		t.Errorf("expected message type UTILMD, got %q", ic.Messages[0].Type())
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	ic, err := Split([]byte(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ic.Messages) != 0 || ic.Header != nil || ic.Trailer != nil {
		t.Errorf("expected empty interchange, got %+v", ic)
	}
}

func TestSplit_FramingErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{
			"unt reference mismatch",
			"UNB+UNOC:3+S+R+251217:1229+R1'UNH+001+UTILMD:D:11A:UN'BGM+E03'UNT+3+XXX'UNZ+1+R1'",
			ErrReferenceMismatch,
		},
		{
			"unt count mismatch",
			"UNB+UNOC:3+S+R+251217:1229+R1'UNH+001+UTILMD:D:11A:UN'BGM+E03'UNT+9+001'UNZ+1+R1'",
			ErrCountMismatch,
		},
		{
			"unz count mismatch",
			"UNB+UNOC:3+S+R+251217:1229+R1'UNH+001+UTILMD:D:11A:UN'BGM+E03'UNT+3+001'UNZ+7+R1'",
			ErrCountMismatch,
		},
		{
			"missing unt",
			"UNB+UNOC:3+S+R+251217:1229+R1'UNH+001+UTILMD:D:11A:UN'BGM+E03'UNZ+1+R1'",
			ErrUnbalancedEnvelope,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split([]byte(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEnvelopeBuilder_RoundTrip(t *testing.T) {
	b := NewEnvelope(
		WithSender("SENDER"),
		WithReceiver("RECEIVER"),
		WithReference("REF42"),
		WithMessageType("UTILMD", "D", "11A", "UN", "S2.1"),
	)
	b.AddMessageRef("001", []edifact.Segment{
		{Tag: "BGM", Elements: []edifact.Element{{"E03"}, {"DOC1"}}},
	})
	segs := b.Build()
	raw := edifact.Render(segs, edifact.DefaultDelimiters(), true)
	ic, err := Split(raw)
	if err != nil {
		t.Fatalf("built envelope does not re-parse: %v", err)
	}
	if len(ic.Messages) != 1 || ic.Messages[0].Reference() != "001" {
		t.Errorf("unexpected interchange: %+v", ic)
	}
	if ic.Reference() != "REF42" {
		t.Errorf("expected reference REF42, got %q", ic.Reference())
	}
}

func TestEnvelopeBuilder_GeneratedReference(t *testing.T) {
	b := NewEnvelope()
	if len(b.reference) != 14 {
		t.Errorf("expected 14-character generated reference, got %q", b.reference)
	}
}

package stream

import (
	"fmt"
	"strconv"

	"github.com/enermsg/edikit/pkg/edifact"
)

// Message is one UNH…UNT chunk of an interchange.
type Message struct {
	Header  edifact.Segment // UNH
	Body    []edifact.Segment
	Trailer edifact.Segment // UNT
}

// Reference returns the message reference number from the UNH header.
func (m *Message) Reference() string { return m.Header.First(0) }

// Type returns the message type identifier (e.g. "UTILMD") from the UNH header.
func (m *Message) Type() string {
	v, _ := m.Header.Component(1, 0)
	return v
}

// Interchange is the framed result of splitting a segment stream at UNB/UNH/
// UNT/UNZ boundaries.
type Interchange struct {
	Delimiters  edifact.Delimiters
	ExplicitUNA bool
	Header      *edifact.Segment // UNB, nil when absent
	Messages    []Message
	Trailer     *edifact.Segment // UNZ, nil when absent
}

// Reference returns the interchange control reference from the UNB header.
func (ic *Interchange) Reference() string {
	if ic.Header == nil {
		return ""
	}
	return ic.Header.First(4)
}

type splitHandler struct {
	BaseHandler
	ic      Interchange
	current *Message
	err     error
}

func (s *splitHandler) OnDelimiters(d edifact.Delimiters, explicit bool) {
	s.ic.Delimiters = d
	s.ic.ExplicitUNA = explicit
}

func (s *splitHandler) OnInterchangeStart(unb *edifact.Segment) Control {
	seg := unb.Clone()
	s.ic.Header = &seg
	return Continue
}

func (s *splitHandler) OnMessageStart(_ int, unh *edifact.Segment) Control {
	if s.current != nil {
		s.err = fmt.Errorf("segment %d: UNH inside open message: %w", unh.Number, ErrUnbalancedEnvelope)
		return Stop
	}
	s.current = &Message{Header: unh.Clone()}
	return Continue
}

func (s *splitHandler) OnSegment(ord int, seg *edifact.Segment) Control {
	if ord == 0 {
		s.err = fmt.Errorf("segment %d (%s) outside UNH…UNT: %w", seg.Number, seg.Tag, ErrUnbalancedEnvelope)
		return Stop
	}
	s.current.Body = append(s.current.Body, seg.Clone())
	return Continue
}

func (s *splitHandler) OnMessageEnd(unt *edifact.Segment) {
	if s.current == nil {
		s.err = fmt.Errorf("segment %d: UNT without UNH: %w", unt.Number, ErrUnbalancedEnvelope)
		return
	}
	s.current.Trailer = unt.Clone()
	s.ic.Messages = append(s.ic.Messages, *s.current)
	s.current = nil
}

func (s *splitHandler) OnInterchangeEnd(unz *edifact.Segment) {
	seg := unz.Clone()
	s.ic.Trailer = &seg
}

// Split parses input into a framed interchange and verifies the envelope
// invariants: each UNT reference matches its UNH, each UNT count covers the
// segments from UNH through UNT inclusive, and the UNZ count equals the number
// of messages. Empty or whitespace-only input yields an empty interchange.
func Split(input []byte) (*Interchange, error) {
	h := &splitHandler{}
	if err := Parse(input, h); err != nil {
		if h.err != nil {
			return nil, h.err
		}
		return nil, err
	}
	if h.current != nil {
		return nil, fmt.Errorf("message %q has no UNT: %w", h.current.Reference(), ErrUnbalancedEnvelope)
	}
	for i := range h.ic.Messages {
		m := &h.ic.Messages[i]
		unhRef := m.Reference()
		untRef := m.Trailer.First(1)
		if unhRef != untRef {
			return nil, fmt.Errorf("UNH reference %q vs UNT reference %q: %w", unhRef, untRef, ErrReferenceMismatch)
		}
		count, err := strconv.Atoi(m.Trailer.First(0))
		if err != nil {
			return nil, fmt.Errorf("UNT count %q: %w", m.Trailer.First(0), ErrCountMismatch)
		}
		if want := len(m.Body) + 2; count != want {
			return nil, fmt.Errorf("UNT count %d, message has %d segments: %w", count, want, ErrCountMismatch)
		}
	}
	if h.ic.Trailer != nil {
		count, err := strconv.Atoi(h.ic.Trailer.First(0))
		if err != nil {
			return nil, fmt.Errorf("UNZ count %q: %w", h.ic.Trailer.First(0), ErrCountMismatch)
		}
		if count != len(h.ic.Messages) {
			return nil, fmt.Errorf("UNZ count %d, interchange has %d messages: %w", count, len(h.ic.Messages), ErrCountMismatch)
		}
	}
	return &h.ic, nil
}

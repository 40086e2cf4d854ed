package stream

import (
	"errors"
	"fmt"

	"github.com/enermsg/edikit/pkg/edifact"
)

// Control is returned by handler callbacks to steer the parse.
type Control int

const (
	// Continue proceeds with the next segment.
	Continue Control = iota
	// Stop terminates the parse; Parse returns ErrStoppedByHandler.
	Stop
)

var (
	// ErrStoppedByHandler is returned when a callback requests termination.
	ErrStoppedByHandler = errors.New("parse stopped by handler")
	// ErrReferenceMismatch indicates a UNT reference that differs from its UNH.
	ErrReferenceMismatch = errors.New("message reference mismatch")
	// ErrCountMismatch indicates a UNT or UNZ count that does not match reality.
	ErrCountMismatch = errors.New("control count mismatch")
	// ErrUnbalancedEnvelope indicates framing segments out of order or missing.
	ErrUnbalancedEnvelope = errors.New("unbalanced envelope")
)

// Handler receives parse events. Segments outside UNH…UNT carry message
// ordinal 0; message ordinals are 1-based and increase monotonically.
type Handler interface {
	OnDelimiters(d edifact.Delimiters, explicitUNA bool)
	OnInterchangeStart(unb *edifact.Segment) Control
	OnMessageStart(ordinal int, unh *edifact.Segment) Control
	OnSegment(messageOrdinal int, seg *edifact.Segment) Control
	OnMessageEnd(unt *edifact.Segment)
	OnInterchangeEnd(unz *edifact.Segment)
}

// BaseHandler is a no-op Handler for embedding; override what you need.
type BaseHandler struct{}

func (BaseHandler) OnDelimiters(edifact.Delimiters, bool)              {}
func (BaseHandler) OnInterchangeStart(*edifact.Segment) Control        { return Continue }
func (BaseHandler) OnMessageStart(int, *edifact.Segment) Control       { return Continue }
func (BaseHandler) OnSegment(int, *edifact.Segment) Control            { return Continue }
func (BaseHandler) OnMessageEnd(*edifact.Segment)                      {}
func (BaseHandler) OnInterchangeEnd(*edifact.Segment)                  {}

// Parse tokenizes input and dispatches every segment to h. The segment ordinal
// is the tokenizer-assigned Number; the parser additionally tracks which
// message each segment belongs to.
func Parse(input []byte, h Handler) error {
	segments, delims, err := edifact.Tokenize(input)
	if err != nil {
		return err
	}
	h.OnDelimiters(delims, edifact.HasUNA(input))

	messageOrdinal := 0
	inMessage := false
	for i := range segments {
		seg := &segments[i]
		switch seg.Tag {
		case "UNB":
			if h.OnInterchangeStart(seg) == Stop {
				return fmt.Errorf("segment %d (UNB): %w", seg.Number, ErrStoppedByHandler)
			}
		case "UNH":
			messageOrdinal++
			inMessage = true
			if h.OnMessageStart(messageOrdinal, seg) == Stop {
				return fmt.Errorf("segment %d (UNH): %w", seg.Number, ErrStoppedByHandler)
			}
		case "UNT":
			h.OnMessageEnd(seg)
			inMessage = false
		case "UNZ":
			h.OnInterchangeEnd(seg)
		default:
			ord := 0
			if inMessage {
				ord = messageOrdinal
			}
			if h.OnSegment(ord, seg) == Stop {
				return fmt.Errorf("segment %d (%s): %w", seg.Number, seg.Tag, ErrStoppedByHandler)
			}
		}
	}
	return nil
}

// Package edifact implements the EDIFACT wire layer: delimiter handling with UNA
// overrides, release-character escaping, the raw segment model, the streaming
// tokenizer, and the renderer that turns segments back into bytes.
//
// The tokenizer and renderer are exact inverses: for every byte sequence produced
// by Render with a given delimiter set, tokenizing and re-rendering yields the
// identical bytes.
package edifact

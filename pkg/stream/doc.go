// Package stream drives a SAX-style pass over a tokenized interchange,
// dispatching UNA/UNB/UNH/UNT/UNZ and body segments to a Handler with
// Continue/Stop flow control, and splits the flat segment list into framed
// interchange chunks with validated UNH/UNT/UNZ counts and references.
package stream

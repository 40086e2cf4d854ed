// Package assemble turns a message's flat segment list into a hierarchical
// tree of MIG-defined groups and repetitions (and back). Structure problems
// found on the way are recoverable: they accumulate as diagnostics while
// assembly continues, and unexpected segments are preserved as passthrough
// entries so the disassembler can replay them for byte-exact round trips.
package assemble

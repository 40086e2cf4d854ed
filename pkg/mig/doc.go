// Package mig models the Message Implementation Guide: segment and group
// definitions with cardinalities, MIG-defined ordering counters,
// qualifier-discriminated group variants, and path resolution from aliased
// EDIFACT paths (e.g. "loc.c517.d3225") to element/component indices.
//
// Two loaders are provided: LoadXML reads the compact MIG XML dialect, and
// LoadPIDSchema reads the PID schema JSON produced by the upstream
// schema-generation step.
package mig

// Package mapping projects assembled EDIFACT trees onto BO4E business objects
// and back, driven by declarative TOML definitions: one entity per file, each
// binding aliased EDIFACT paths to JSON target paths with optional transforms,
// bidirectional enum maps, value guards and qualifier discriminators.
//
// The declarative layer covers the bulk of all fields; genuinely graph-shaped
// work (cross-entity links, conditional fan-out) is delegated to named complex
// handlers registered on the engine. Unknown handler or transform names fail
// at load time, not at runtime.
package mapping

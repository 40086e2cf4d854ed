// Package convert wires the pipeline end to end: tokenize, frame, assemble,
// detect and filter by Prüfidentifikator, and project to BO4E JSON — plus the
// reverse path from JSON back to rendered EDIFACT bytes.
package convert

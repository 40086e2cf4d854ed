// Package pid determines the Prüfidentifikator of an assembled message from
// its BGM document code and RFF+Z13 reference, and prunes an assembled tree to
// the branches a PID's schema declares.
package pid

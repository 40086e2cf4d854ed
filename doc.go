/*
Package edikit converts EDIFACT interchanges of the German energy market
(Marktkommunikation) to and from the canonical BO4E business-object model, and
validates messages against MIG structure rules and AHB workflow rules keyed by
Prüfidentifikator (PID).

# Overview

edikit is a pure-Go implementation of the UTILMD-family conversion pipeline:

	bytes → tokenizer → stream parser → assembler → PID filter → mapping → BO4E JSON

and the exact inverse for the reverse direction. The forward → reverse round trip
reproduces the input byte for byte when no mapping is intentionally destructive.

# Package Structure

The library is organized into the following packages:

	github.com/enermsg/edikit/pkg/edifact   - Delimiters, tokenizer, segment model, renderer
	github.com/enermsg/edikit/pkg/stream    - SAX-style stream parser and interchange framing
	github.com/enermsg/edikit/pkg/mig       - MIG schema model and loaders
	github.com/enermsg/edikit/pkg/assemble  - MIG-guided assembler and disassembler
	github.com/enermsg/edikit/pkg/pid       - Prüfidentifikator detection and tree filtering
	github.com/enermsg/edikit/pkg/mapping   - Declarative TOML mapping engine (EDIFACT ⇄ BO4E)
	github.com/enermsg/edikit/pkg/condition - AHB condition expressions, three-valued evaluation
	github.com/enermsg/edikit/pkg/validate  - MIG/AHB validation with typed issues
	github.com/enermsg/edikit/pkg/convert   - High-level conversion coordinator

# Quick Start

To convert an interchange to BO4E JSON:

	import (
	    "github.com/enermsg/edikit/pkg/convert"
	    "github.com/enermsg/edikit/pkg/mapping"
	    "github.com/enermsg/edikit/pkg/mig"
	)

	schema, _ := mig.LoadXML("UTILMD_MIG.xml")
	defs, _ := mapping.LoadDir("mappings/utilmd")
	engine, _ := mapping.NewEngine(schema, defs)
	conv := convert.New(schema, engine)
	result, err := conv.Forward(ctx, rawBytes)

# Concurrency

The core is synchronous and allocation-local per message. Loaded MIG schemas and
mapping definitions are immutable after loading and may be shared across
goroutines. All parallelism lives in the batch driver.
*/
package edikit

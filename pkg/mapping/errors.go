package mapping

import "errors"

var (
	// ErrTOMLParse indicates an unreadable mapping definition file.
	ErrTOMLParse = errors.New("mapping definition parse failure")
	// ErrInvalidPath indicates an EDIFACT or JSON path that cannot be used.
	ErrInvalidPath = errors.New("invalid mapping path")
	// ErrUnknownHandler indicates a complex handler name with no registration.
	ErrUnknownHandler = errors.New("unknown complex handler")
	// ErrUnknownTransform indicates a transform name with no registration.
	ErrUnknownTransform = errors.New("unknown transform")
	// ErrDuplicateEntity indicates two definitions claiming the same entity name.
	ErrDuplicateEntity = errors.New("duplicate entity definition")
	// ErrMissingField indicates a reverse mapping read that found no value.
	ErrMissingField = errors.New("missing field")
	// ErrTypeConversion indicates a value that does not fit its target.
	ErrTypeConversion = errors.New("type conversion failure")
	// ErrNoInverse indicates a forward transform without a paired inverse.
	ErrNoInverse = errors.New("transform has no inverse")
)

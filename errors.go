package classconf

import "errors"

// Sentinel errors returned by the package. Callers should match them with
// errors.Is; returned errors carry additional context around these values.
var (
	// ErrFileNotFound is returned when the config file does not exist and
	// the registry was not told to create it.
	ErrFileNotFound = errors.New("config file not found")

	// ErrParse is returned when a config file exists but its content
	// cannot be decoded into a document.
	ErrParse = errors.New("config parse failed")

	// ErrTopLevelConflict is returned when more than one spec in a set is
	// marked top-level.
	ErrTopLevelConflict = errors.New("multiple top-level specs")

	// ErrNotRegistered is returned by Get for a type that was never
	// registered with the registry.
	ErrNotRegistered = errors.New("type not registered")

	// ErrMissingKey is returned when a document lacks a field's external
	// key, or lacks a registered spec's section entirely.
	ErrMissingKey = errors.New("missing config key")

	// ErrTypeCoercion is returned when a document value cannot be
	// converted to the target field's type.
	ErrTypeCoercion = errors.New("type coercion failed")

	// ErrWriteConflict is returned by Generate when the target file
	// already exists and overwriting was not requested.
	ErrWriteConflict = errors.New("target config file already exists")

	// ErrSpec is returned for invalid spec construction or an invalid
	// combination of specs.
	ErrSpec = errors.New("invalid spec")
)

package xsd

import "fmt"

// Error kinds. These are not a type hierarchy the caller is meant to
// switch on structurally; they are a closed, named set of failure
// categories. Each carries the original cause so errors.Is/errors.As/
// errors.Unwrap reach whatever produced it — no wrapping site is allowed
// to launder a cause through errors.New(err.Error()), which would
// collapse secondary attributes (e.g. an os.PathError's Errno) into an
// unstructured string.

// URLError reports a failure to resolve or fetch a resource (schema or
// instance document location, HTTP status, missing file, ...).
type URLError struct {
	Location string
	Cause    error
}

func (e *URLError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("resolving %q: %v", e.Location, e.Cause)
	}
	return fmt.Sprintf("resolving %q", e.Location)
}

func (e *URLError) Unwrap() error { return e.Cause }

// ParseError reports ill-formed XSD or XML, or a reference (QName) that
// the builder could not resolve against the registry.
type ParseError struct {
	Source string // schema/document URI, or "" for in-memory sources
	Detail string
	Cause  error
}

func (e *ParseError) Error() string {
	msg := e.Detail
	if e.Source != "" {
		msg = fmt.Sprintf("%s: %s", e.Source, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ValidationError reports that an XML instance document violates the
// compiled schema. It wraps one or more Violation records produced by
// the validator/decoder traversal.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	v := e.Violations[0]
	if len(e.Violations) == 1 {
		return fmt.Sprintf("%s: %s", v.Code, v.Message)
	}
	return fmt.Sprintf("%s: %s (and %d more)", v.Code, v.Message, len(e.Violations)-1)
}

// DecodeError reports that a lexical value failed to parse against its
// datatype during decoding (distinct from ValidationError: this is a
// typed-value conversion failure, not a schema-shape violation).
type DecodeError struct {
	TypeName string
	Value    string
	Cause    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %q as %s: %v", e.Value, e.TypeName, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// TypeError reports misuse of a public entry point, such as passing a
// registry of the wrong provenance to a schema document constructor.
type TypeError struct {
	Detail string
}

func (e *TypeError) Error() string { return e.Detail }

func wrapParse(source, detail string, cause error) error {
	return &ParseError{Source: source, Detail: detail, Cause: cause}
}

func wrapURL(location string, cause error) error {
	return &URLError{Location: location, Cause: cause}
}

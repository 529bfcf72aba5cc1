package entities

import "errors"

var (
	// ErrMalformedDocument: bytes are not a valid instance of the declared format.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrUnsupportedFormat: no adapter is registered for the format.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrUnknownSession: no record exists for the session id.
	ErrUnknownSession = errors.New("unknown session")
	// ErrBlockIndex: a block index does not address a block of the document.
	ErrBlockIndex = errors.New("block index out of range")
	// ErrInvalidKnowledgeBase: duplicate or empty fields, empty values.
	ErrInvalidKnowledgeBase = errors.New("invalid knowledge base")
	// ErrArtifactNotFound: a stored document handle does not resolve.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrInvalidInput: request arguments are missing or unusable.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrVersionConflict: a session version was written twice.
var ErrVersionConflict = errors.New("session version already exists")

package seeds

import "errors"

var (
	ErrDuplicateRegistration = errors.New("seed already registered")
	ErrInvalidDefinition     = errors.New("invalid seed definition")
	ErrMissingFixture        = errors.New("fixture file not found")
	ErrSerialization         = errors.New("fixture does not match schema")
	ErrFixtureWrite          = errors.New("fixture file not writable")
	ErrMissingMetadata       = errors.New("seed metadata file not found")
)

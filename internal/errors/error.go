package errors

import "errors"

var (
	ErrIllegalMove        = errors.New("illegal move")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrIncompleteCorpus   = errors.New("corpus is incomplete")
	ErrUnsupportedSchema  = errors.New("unsupported corpus schema version")
	ErrCorpusExists       = errors.New("corpus already exists")
	ErrRunNotFound        = errors.New("run not found")
	ErrGameRecordNotFound = errors.New("game record not found")
	ErrStoreUnavailable   = errors.New("store is not configured")
	ErrInternal           = errors.New("internal error")
)

package graph

import (
	"errors"

	dErrors "smarttracing/pkg/domain-errors"
)

// Kind classifies a graph operation for error translation and metrics.
type Kind int

const (
	KindQuery Kind = iota
	KindCreate
	KindUpdate
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	default:
		return "query"
	}
}

// Translate is the single boundary between engine failures and the domain
// error taxonomy. Errors that already carry a domain code pass through
// untouched; anything else is wrapped with the code for kind and keeps the
// engine error on its Unwrap chain.
func Translate(kind Kind, desc string, err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch kind {
	case KindCreate:
		return dErrors.Wrap(err, dErrors.CodeEntityCreation, desc)
	case KindUpdate:
		return dErrors.Wrap(err, dErrors.CodeUpdateFailed, desc)
	default:
		return dErrors.Wrap(err, dErrors.CodeQueryFailed, desc)
	}
}

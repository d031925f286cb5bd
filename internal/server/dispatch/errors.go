package dispatch

import (
	"errors"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
	"github.com/dmitrijs2005/pledgeboard/internal/server/evaluations"
	"github.com/dmitrijs2005/pledgeboard/internal/wire"
)

// statusOf maps service errors onto response status codes.
func statusOf(err error) wire.Status {
	switch {
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrNoSession),
		errors.Is(err, common.ErrInvalidToken):
		return wire.StatusUnauthorized
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrorAlreadyExists),
		errors.Is(err, wire.ErrBadPayload),
		errors.Is(err, evaluations.ErrDuplicateVote),
		errors.Is(err, evaluations.ErrNothingToCancel),
		errors.Is(err, evaluations.ErrInvalidType):
		return wire.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return wire.StatusNotFound
	default:
		return wire.StatusInternalError
	}
}

// message is what the client sees for err. Internal failures are not
// described beyond their class.
func message(err error) string {
	switch st := statusOf(err); st {
	case wire.StatusInternalError:
		if errors.Is(err, common.ErrorStorageExhausted) {
			return common.ErrorStorageExhausted.Error()
		}
		return common.ErrorInternal.Error()
	case wire.StatusUnauthorized:
		return common.ErrorUnauthorized.Error()
	default:
		return err.Error()
	}
}

func fail(req *wire.Envelope, err error) *wire.Envelope {
	return failure(req, statusOf(err), message(err))
}

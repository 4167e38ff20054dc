package usecase

import (
	"context"
	"errors"

	"archdiagram/internal/domain/entity"
)

const (
	MsgInternal        = "internal server error"
	MsgUpstream        = "the language model is currently unavailable"
	MsgMalformedOutput = "the language model returned an unusable response"
	MsgTimeout         = "request timed out"
	MsgCanceled        = "request canceled"
)

// PublicMessage returns the text a client may see for err. Only errors raised
// by our own validation keep their detail; everything else gets a fixed message.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, entity.ErrUnknownNodeType),
		errors.Is(err, entity.ErrInvalidInput),
		errors.Is(err, entity.ErrInvalidSpecification),
		errors.Is(err, entity.ErrNotFound):
		return err.Error()
	case errors.Is(err, entity.ErrUpstreamUnavailable):
		return MsgUpstream
	case errors.Is(err, entity.ErrMalformedModelOutput):
		return MsgMalformedOutput
	case errors.Is(err, context.DeadlineExceeded):
		return MsgTimeout
	case errors.Is(err, context.Canceled):
		return MsgCanceled
	default:
		return MsgInternal
	}
}

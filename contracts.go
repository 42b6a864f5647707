package casclient

import (
	"context"

	"github.com/porthorian/casclient/pkg/validation"
)

// Assertion is the validated outcome of a ticket validation.
type Assertion = validation.Assertion

// PostProcessFunc runs after an Assertion has been constructed and may
// convert the success into a validation failure.
type PostProcessFunc = validation.PostProcessFunc

// ParamsFunc contributes protocol-specific query parameters to the
// validation request.
type ParamsFunc = validation.ParamsFunc

// Validator validates an opaque service ticket on behalf of a service
// URL and produces the authenticated assertion.
type Validator interface {
	Validate(ctx context.Context, ticket string, service string) (validation.Assertion, error)
}

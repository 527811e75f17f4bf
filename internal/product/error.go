package product

import "errors"

// These never leave the package: Client folds them into not-found/unavailable.
var (
	errUpstreamStatus     = errors.New("catalog returned non-success status")
	errEnvelopeMalformed  = errors.New("catalog envelope malformed")
	errEnvelopeNotSuccess = errors.New("catalog envelope reported failure")
	errPayloadMissing     = errors.New("catalog payload missing")
	errPayloadNotObject   = errors.New("catalog payload is not an object")
)

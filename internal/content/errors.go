package content

import "errors"

// Content engine errors. Config-shape errors map to 400, ErrNotFound to 404.
var (
	ErrUnknownSection    = errors.New("unknown section")
	ErrUnknownItemType   = errors.New("unknown item type")
	ErrUnknownNestedType = errors.New("unknown nested type")
	ErrUnsupported       = errors.New("operation not supported for section")
	ErrInvalidField      = errors.New("invalid field name")
	ErrEmptyPayload      = errors.New("no writable fields in payload")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrNotFound          = errors.New("not found")
	ErrNotConfigured     = errors.New("content store not configured")
)

// IsClientError reports whether err was caused by the request shape.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownSection) ||
		errors.Is(err, ErrUnknownItemType) ||
		errors.Is(err, ErrUnknownNestedType) ||
		errors.Is(err, ErrUnsupported) ||
		errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrEmptyPayload) ||
		errors.Is(err, ErrInvalidPayload)
}

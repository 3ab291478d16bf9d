package feed

import "errors"

var (
	// ErrProviderUnavailable covers transport failures, timeouts and
	// non-success responses from the news provider.
	ErrProviderUnavailable = errors.New("news provider unavailable")
	// ErrMalformedPayload is returned when the provider answers with a body
	// that cannot be decoded.
	ErrMalformedPayload = errors.New("malformed provider payload")
	// ErrStoreUnavailable is returned when the article store cannot be read.
	// It is the only aggregation failure surfaced to callers.
	ErrStoreUnavailable = errors.New("article store unavailable")
	// ErrMissingURL marks a raw record without an identity.
	ErrMissingURL = errors.New("raw article has no url")
	// ErrInvalidPage is returned for page or page size below one.
	ErrInvalidPage = errors.New("page and page size must be positive")
)

package providers

import "errors"

var (
	// ErrTransport indicates a network, HTTP or SDK failure talking to the model.
	ErrTransport = errors.New("model transport failure")
	// ErrEmptyResult indicates the call succeeded but yielded nothing usable.
	ErrEmptyResult = errors.New("model returned no usable result")
	// ErrInvalidRequest indicates missing or malformed request input.
	ErrInvalidRequest = errors.New("invalid generation request")
	// ErrMissingAPIKey indicates missing provider API key.
	ErrMissingAPIKey = errors.New("missing api key")
)

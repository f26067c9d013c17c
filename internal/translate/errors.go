package translate

import "errors"

// ErrEmptyMessages is raised when a client request supplies no messages.
var ErrEmptyMessages = errors.New("translate: messages must be non-empty")

// ErrUnsupportedModel is raised when the model mapper cannot resolve the
// client's model label. Wraps the underlying modelmap error.
var ErrUnsupportedModel = errors.New("translate: unsupported model")

// Package dto holds the JSON request and response shapes of the HTTP API and
// the mapping between them and the persistence models.
package dto

// Envelope wraps every JSON response body.
type Envelope[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func OK[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: data}
}

func Fail(code, message string, details map[string]string) Envelope[any] {
	return Envelope[any]{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
	}
}

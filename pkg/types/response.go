package types

// SuccessEnvelope is the body of every 2xx response. Mutations that report
// an outcome carry a message; reads carry data; some carry both.
type SuccessEnvelope struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// APIError is the public part of a failure. Details only appear for codes
// whose metadata allows them.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps APIError under "error".
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Success builds a success body. An empty message is left out of the JSON.
func Success(message string, data any) SuccessEnvelope {
	return SuccessEnvelope{Message: message, Data: data}
}

// Failure builds an error body. A nil details value is left out of the JSON.
func Failure(code, message string, details any) ErrorEnvelope {
	return ErrorEnvelope{Error: APIError{Code: code, Message: message, Details: details}}
}

package errors

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewErrorResponse builds the wire form of an error for HTTP handlers.
func NewErrorResponse(err error) ErrorResponse {
	var ie *InternalError
	detail := ErrorDetail{Display: err.Error()}
	if As(err, &ie) {
		detail.Display = ie.DisplayError()
		detail.InternalError = ie.Error()
	}
	return ErrorResponse{Success: false, Error: detail}
}

package model

// Response is a generic struct for API responses
type Response struct {
	Data    interface{} `json:"data,omitempty"`
	Error   *string     `json:"error,omitempty"`
	Message string      `json:"message"`
	// Warnings carries non-fatal notices, e.g. days with missing observations.
	Warnings []string `json:"warnings,omitempty"`
}

// ErrorResponse builds the envelope used for every failed request.
func ErrorResponse(errMsg string) Response {
	return Response{
		Error:   &errMsg,
		Message: "Error",
	}
}

package models

// ErrorResponse is the body of every non-2xx status API response.
type ErrorResponse struct {
	Code  string `json:"code" example:"service.not_found"`
	Error string `json:"error" example:"service not found: ghost"`
}

package shared

// DomainError is an error with a stable machine-readable code.
// The HTTP layer maps Code to a status; Message is shown to callers.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// ErrNotFound is returned by repositories for a missing row
var ErrNotFound = NewDomainError("NOT_FOUND", "Resource not found")

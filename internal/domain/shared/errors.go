package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Ledger and payment errors
var (
	ErrInsufficientFunds    = NewDomainError("INSUFFICIENT_FUNDS", "Insufficient funds in wallet segment")
	ErrAuthenticationFailed = NewDomainError("AUTHENTICATION_FAILED", "Signature or timestamp verification failed")
	ErrValidationFailed     = NewDomainError("VALIDATION_FAILED", "Payload failed business validation")
	ErrAlreadyProcessed     = NewDomainError("ALREADY_PROCESSED", "Event has already been processed")
	ErrAlreadyRedeemed      = NewDomainError("ALREADY_REDEEMED", "Voucher has already been redeemed by this user")
	ErrVoucherExpired       = NewDomainError("VOUCHER_EXPIRED", "Voucher has expired")
	ErrVoucherDepleted      = NewDomainError("VOUCHER_DEPLETED", "Voucher has no remaining value or uses")
	ErrDeliveryFailed       = NewDomainError("DELIVERY_FAILED", "Outbound delivery permanently failed")
)

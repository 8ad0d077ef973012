// Package businessflow contains the core business logic and use cases for invitation workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Operator-related errors
	ErrOperatorNotFound  = errors.New("operator not found")
	ErrOperatorSuspended = errors.New("operator account is suspended")
	ErrIncorrectPassword = errors.New("incorrect password")

	// Salon-related errors
	ErrSalonNotFound = errors.New("salon not found")
	ErrSalonInactive = errors.New("salon is inactive")

	// Campaign-related errors
	ErrCampaignNotFound         = errors.New("campaign not found")
	ErrCampaignAccessDenied     = errors.New("campaign access denied")
	ErrCampaignInvalidState     = errors.New("campaign is not in a valid state for this operation")
	ErrCampaignNoTargets        = errors.New("campaign has no eligible customers to invite")
	ErrCampaignTitleRequired    = errors.New("campaign title is required")
	ErrCampaignTemplateRequired = errors.New("campaign template is required")
	ErrCampaignTemplateTooLong  = errors.New("campaign template is too long")
	ErrCampaignChannelInvalid   = errors.New("campaign channel is invalid")
	ErrScheduleTimeNotPresent   = errors.New("schedule time is not present")
	ErrScheduleTimeInPast       = errors.New("schedule time is in the past")

	// Welcome offer errors
	ErrWelcomeOfferNotFound = errors.New("welcome offer not found")
	ErrWelcomeOfferExpired  = errors.New("welcome offer is expired or disabled")

	// Customer-related errors
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrCustomerAlreadyExists = errors.New("customer with this phone already exists")
	ErrCustomerPhoneRequired = errors.New("customer phone is required")
	ErrCustomerNameRequired  = errors.New("customer name is required")

	// Delivery report errors
	ErrUnknownProviderMessageID = errors.New("unknown provider message id")
	ErrUnknownDeliveryStatus    = errors.New("unknown delivery status")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsOperatorNotFound(err error) bool {
	return errors.Is(err, ErrOperatorNotFound)
}

func IsOperatorSuspended(err error) bool {
	return errors.Is(err, ErrOperatorSuspended)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignAccessDenied(err error) bool {
	return errors.Is(err, ErrCampaignAccessDenied)
}

func IsCampaignInvalidState(err error) bool {
	return errors.Is(err, ErrCampaignInvalidState)
}

func IsCampaignNoTargets(err error) bool {
	return errors.Is(err, ErrCampaignNoTargets)
}

func IsWelcomeOfferNotFound(err error) bool {
	return errors.Is(err, ErrWelcomeOfferNotFound)
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsCustomerAlreadyExists(err error) bool {
	return errors.Is(err, ErrCustomerAlreadyExists)
}

func IsUnknownProviderMessageID(err error) bool {
	return errors.Is(err, ErrUnknownProviderMessageID)
}

package awsx

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// Kind is the abstract classification of a provider error. The pipeline only
// branches on kinds; all provider-specific code matching lives here.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyExists
	KindAccessDenied
	KindInvalidOperation
	KindThrottled
)

var notFoundCodes = map[string]bool{
	"ResourceNotFoundException":    true,
	"NoSuchEntity":                 true,
	"NoSuchEntityException":        true,
	"NotFoundException":            true,
	"WAFNonexistentItemException":  true,
	"DestinationNotFoundException": true,
}

var alreadyExistsCodes = map[string]bool{
	"ResourceAlreadyExistsException": true,
	"EntityAlreadyExists":            true,
	"EntityAlreadyExistsException":   true,
	"ResourceConflictException":      true,
	"WAFDuplicateItemException":      true,
}

var accessDeniedCodes = map[string]bool{
	"AccessDenied":          true,
	"AccessDeniedException": true,
	"UnauthorizedOperation": true,
	"UnauthorizedException": true,
}

var invalidOperationCodes = map[string]bool{
	"InvalidOperationException":    true,
	"WAFInvalidOperationException": true,
	"OperationAbortedException":    true,
}

var throttledCodes = map[string]bool{
	"ThrottlingException":      true,
	"TooManyRequestsException": true,
	"RequestLimitExceeded":     true,
}

// KindOf maps a raw provider error to its abstract kind.
func KindOf(err error) Kind {
	var api smithy.APIError
	if !errors.As(err, &api) {
		return KindUnknown
	}

	code := api.ErrorCode()
	switch {
	case notFoundCodes[code]:
		return KindNotFound
	case alreadyExistsCodes[code]:
		return KindAlreadyExists
	case accessDeniedCodes[code]:
		return KindAccessDenied
	case invalidOperationCodes[code]:
		return KindInvalidOperation
	case throttledCodes[code]:
		return KindThrottled
	}

	// IAM reports a duplicate service-linked role as InvalidInput with a
	// "has been taken" message rather than a conflict code.
	if code == "InvalidInput" || code == "InvalidInputException" {
		if strings.Contains(api.ErrorMessage(), "has been taken") {
			return KindAlreadyExists
		}
	}

	return KindUnknown
}

func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsAlreadyExists(err error) bool { return KindOf(err) == KindAlreadyExists }
func IsAccessDenied(err error) bool  { return KindOf(err) == KindAccessDenied }

// IsInvalidOperation reports the propagation-lag shape WAFv2 returns while a
// freshly created service-linked role or resource policy is still converging.
func IsInvalidOperation(err error) bool { return KindOf(err) == KindInvalidOperation }

// IsDeliveryTestFailure reports the one retriable PutSubscriptionFilter
// failure: the destination policy has not propagated yet, so the test
// message cannot be delivered.
func IsDeliveryTestFailure(err error) bool {
	var api smithy.APIError
	if !errors.As(err, &api) {
		return false
	}
	return api.ErrorCode() == "InvalidParameterException" &&
		strings.Contains(api.ErrorMessage(), "Could not deliver test message")
}

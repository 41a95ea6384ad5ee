// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package gateway

import (
	"github.com/samber/oops"
)

// Error codes attached to gateway failures.
const (
	CodeTransport          = "TRANSPORT_ERROR"
	CodeDomainUnrecognized = "DOMAIN_UNRECOGNIZED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeOTPInvalid         = "OTP_INVALID"
	CodeOTPExpired         = "OTP_EXPIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeApplication        = "APPLICATION_ERROR"
	CodeResponseInvalid    = "RESPONSE_INVALID"
)

var applicationCodes = []string{
	CodeDomainUnrecognized,
	CodeRateLimited,
	CodeOTPInvalid,
	CodeOTPExpired,
	CodeInvalidCredentials,
	CodeUserNotFound,
	CodeApplication,
	CodeResponseInvalid,
}

// TransportError builds the error for an operation that got no response.
func TransportError(op string, err error) error {
	return oops.Code(CodeTransport).
		In("gateway").
		With("operation", op).
		Public(err.Error()).
		Wrap(err)
}

// ApplicationError builds the error for a structured failure returned by the
// backend. message is shown to the user verbatim.
func ApplicationError(op, code string, status int, message string) error {
	return oops.Code(code).
		In("gateway").
		With("operation", op).
		With("status", status).
		Public(message).
		Errorf("%s", message)
}

// HasCode reports whether err is a gateway error with the given code.
func HasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}

// IsTransport reports whether err means no response was received.
func IsTransport(err error) bool {
	return HasCode(err, CodeTransport)
}

// IsApplication reports whether err is a structured failure from the backend.
func IsApplication(err error) bool {
	for _, code := range applicationCodes {
		if HasCode(err, code) {
			return true
		}
	}
	return false
}

// Message returns the text to show the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return oops.GetPublic(err, err.Error())
}

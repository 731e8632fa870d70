// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

// Package auth implements the bearer-token authorization pipeline: header
// extraction, signing-key resolution, RS256 token verification, and
// permission checks, composed into route middleware.
package auth

// AuthError is a standardized authorization failure. Code and Description
// are part of the externally observable contract: the gate reports them to
// the client verbatim, with Status as the HTTP status code.
type AuthError struct {
	Code        string
	Description string
	Status      int
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return e.Code + ": " + e.Description
}

// Pipeline failures. The status mapping must not change: 401 for missing,
// malformed, or expired credentials; 400 for tokens whose shape cannot be
// resolved against the key set or claims contract; 403 for a verified token
// lacking the required permission.
var (
	// ErrHeaderMissing reports an absent Authorization header.
	ErrHeaderMissing = &AuthError{
		Code:        "authorization_header_missing",
		Description: "Authorization header is missing.",
		Status:      401,
	}

	// ErrHeaderMalformed reports a header that does not split into exactly
	// two whitespace-separated parts.
	ErrHeaderMalformed = &AuthError{
		Code:        "invalid_header",
		Description: "Header invalid",
		Status:      401,
	}

	// ErrHeaderScheme reports a header whose first part is not "Bearer".
	ErrHeaderScheme = &AuthError{
		Code:        "invalid_header",
		Description: `Authorization header must start with "Bearer".`,
		Status:      401,
	}

	// ErrKIDMissing reports a token header without a key ID.
	ErrKIDMissing = &AuthError{
		Code:        "invalid_header",
		Description: "Authorization malformed.",
		Status:      401,
	}

	// ErrKeyNotFound reports a key ID absent from the provider's key set,
	// even after a forced refresh.
	ErrKeyNotFound = &AuthError{
		Code:        "invalid_header",
		Description: "Unable to find the appropriate key.",
		Status:      400,
	}

	// ErrKeySourceUnavailable reports that the key set could not be fetched
	// or parsed and no cached key was usable.
	ErrKeySourceUnavailable = &AuthError{
		Code:        "invalid_header",
		Description: "Unable to fetch the signing keys.",
		Status:      400,
	}

	// ErrTokenExpired reports a token past its expiry claim.
	ErrTokenExpired = &AuthError{
		Code:        "token_expired",
		Description: "Token expired.",
		Status:      401,
	}

	// ErrInvalidClaims reports an audience or issuer mismatch.
	ErrInvalidClaims = &AuthError{
		Code:        "invalid_claims",
		Description: "Incorrect claims. Please, check the audience and issuer.",
		Status:      401,
	}

	// ErrTokenParse reports any other token malformation.
	ErrTokenParse = &AuthError{
		Code:        "invalid_header",
		Description: "Unable to parse authentication token.",
		Status:      400,
	}

	// ErrPermissionsMissing reports a verified token without a permissions
	// claim.
	ErrPermissionsMissing = &AuthError{
		Code:        "invalid_claims",
		Description: "Permissions not included in JWT.",
		Status:      400,
	}

	// ErrPermissionDenied reports a verified token whose permissions claim
	// does not contain the required permission.
	ErrPermissionDenied = &AuthError{
		Code:        "unauthorized",
		Description: "Permission not found.",
		Status:      403,
	}
)

// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package auth

import "strings"

// ExtractBearerToken pulls the token out of an Authorization header value.
// The header must consist of exactly two whitespace-separated parts, the
// first being "Bearer" (case-insensitive).
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrHeaderMissing
	}

	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", ErrHeaderMalformed
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrHeaderScheme
	}

	return parts[1], nil
}

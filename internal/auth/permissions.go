// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package auth

import "slices"

// CheckPermission verifies that the claim set carries the required
// permission string. A claim set without a permissions field fails with
// ErrPermissionsMissing; a present field lacking the permission fails with
// ErrPermissionDenied.
func CheckPermission(claims *Claims, permission string) error {
	if claims == nil || claims.Permissions == nil {
		return ErrPermissionsMissing
	}
	if !slices.Contains(claims.Permissions, permission) {
		return ErrPermissionDenied
	}
	return nil
}

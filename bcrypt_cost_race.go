//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// race-enabled builds use a cheaper cost so the suite fits in CI timeouts
	return bcrypt.DefaultCost
}

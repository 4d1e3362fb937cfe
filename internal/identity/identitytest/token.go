// Package identitytest signs tokens the way the external identity provider
// does, for tests and local tooling.
package identitytest

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const Secret = "test-secret"

func Token(subject, role string) string {
	return SignedToken([]byte(Secret), jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
}

func SignedToken(secret []byte, claims jwt.MapClaims) string {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		panic(err)
	}
	return s
}

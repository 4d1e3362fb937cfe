package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	principalKey = "principal"
	// SubjectKey is the gin context key the request logger reads.
	SubjectKey = "subject"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier checks HS256 tokens issued by the identity provider.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify parses the token and extracts the subject ("sub", or legacy
// "user_id") and the role claim.
func (v *Verifier) Verify(tokenString string) (Principal, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject, _ := claims.GetSubject()
	if subject == "" {
		if legacy, ok := claims["user_id"].(string); ok {
			subject = legacy
		}
	}
	if subject == "" {
		return Principal{}, fmt.Errorf("%w: no subject claim", ErrInvalidToken)
	}

	rawRole, _ := claims["role"].(string)
	role, err := ParseRole(rawRole)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return Principal{SubjectID: subject, Role: role}, nil
}

// Authenticate rejects requests without a valid bearer token and stores the
// Principal on the gin context.
func (v *Verifier) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
			return
		}
		principal, err := v.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			return
		}
		c.Set(principalKey, principal)
		c.Set(SubjectKey, principal.SubjectID)
		c.Next()
	}
}

// RequireRole must run after Authenticate.
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": ErrMissingToken.Error()})
			return
		}
		if !p.Is(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "role " + string(p.Role) + " is not allowed to perform this action"})
			return
		}
		c.Next()
	}
}

func FromContext(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(parts[1]), nil
}

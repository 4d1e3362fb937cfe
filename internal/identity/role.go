// Package identity turns a verified bearer token into the (subject, role)
// pair every mutation is authorised against.
package identity

import (
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleProducer    Role = "producer"
	RoleValidator   Role = "validator"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
	RoleConsumer    Role = "consumer"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole accepts the canonical role names plus the "quality inspector"
// aliases for validator. Anything else is rejected; there is no default role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "producer", "farmer":
		return RoleProducer, nil
	case "validator", "quality-inspector", "quality_inspector", "qualityinspector":
		return RoleValidator, nil
	case "distributor":
		return RoleDistributor, nil
	case "retailer":
		return RoleRetailer, nil
	case "consumer":
		return RoleConsumer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Principal is the verified caller.
type Principal struct {
	SubjectID string
	Role      Role
}

func (p Principal) Is(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

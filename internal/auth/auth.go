package auth

import (
	"errors"
	"strings"
)

var ErrUnauthorized = errors.New("caller is not authorized")

// AccessControl answers whether a caller holds the platform owner role.
type AccessControl interface {
	IsOwner(address string) bool
	Owner() string
}

type ownable struct {
	owner string
}

func NewOwnable(owner string) AccessControl {
	return ownable{owner: strings.ToLower(owner)}
}

func (o ownable) IsOwner(address string) bool {
	return strings.ToLower(address) == o.owner
}

func (o ownable) Owner() string {
	return o.owner
}

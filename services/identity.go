package services

import (
	"strconv"
	"strings"
)

type IdentityKind int

const (
	// IdentityNew marks a node the client created; it has no row yet.
	IdentityNew IdentityKind = iota
	// IdentityDurable marks a node that claims an existing row by its id.
	IdentityDurable
)

type Identity struct {
	Kind IdentityKind
	ID   uint
}

// ClassifyIdentity decides whether a submitted token names a persisted row. Only a positive
// integer written with digits alone is durable; "tmp-1", "", "0", "-3" and "5.0" are new.
// Whether a durable id actually belongs to the edited form is decided by the reconciler.
func ClassifyIdentity(token NodeID) Identity {
	s := strings.TrimSpace(string(token))
	if s == "" {
		return Identity{Kind: IdentityNew}
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Identity{Kind: IdentityNew}
		}
	}
	id, err := strconv.ParseUint(s, 10, strconv.IntSize)
	if err != nil || id == 0 {
		return Identity{Kind: IdentityNew}
	}
	return Identity{Kind: IdentityDurable, ID: uint(id)}
}

package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrGroupExists   = errors.New("group already exists")
	ErrInvalidGroup  = errors.New("invalid group")
	ErrGroupFull     = errors.New("group is at capacity")
	ErrAlreadyMember = errors.New("user is already a member")
	ErrNotMember     = errors.New("user is not a member")
	ErrAdminRemoval  = errors.New("cannot remove group admin")
)

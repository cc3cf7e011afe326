package members

import "errors"

var (
	ErrNotFound   = errors.New("members: not found")
	ErrValidation = errors.New("members: invalid input")
	ErrInUse      = errors.New("members: subscription still assigned")
)

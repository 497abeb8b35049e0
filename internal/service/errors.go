package service

import "errors"

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownModule    = errors.New("unknown training module")
	ErrNotFound         = errors.New("not found")
)

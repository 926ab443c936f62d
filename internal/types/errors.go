package types

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrParse               = errors.New("unexpected response shape")
	ErrTimeout             = errors.New("task timed out")
	ErrUnknownPlatform     = errors.New("unknown platform")
)

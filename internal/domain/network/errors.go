package network

import "errors"

var (
	ErrNetworkNotFound = errors.New("network not found")
	ErrInvalidSettings = errors.New("invalid network settings")
)

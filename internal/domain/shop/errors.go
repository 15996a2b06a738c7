package shop

import "errors"

var (
	ErrShopNotFound       = errors.New("shop not found")
	ErrWorkTypeNotFound   = errors.New("work type not found")
	ErrTerminalNotFound   = errors.New("terminal not found")
	ErrInvalidTerminal    = errors.New("invalid terminal credentials")
	ErrTerminalIPMismatch = errors.New("request address is not bound to this shop")
)

package employee

import "errors"

var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrEmploymentNotFound = errors.New("employment not found")
	ErrNoEmployeeForUser  = errors.New("no employee found for user")
)

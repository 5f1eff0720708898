package employee

import "errors"

var (
	ErrEmployeeNotFound = errors.New("Employee not found")
	ErrBalanceNotFound  = errors.New("Leave balance not found")
)

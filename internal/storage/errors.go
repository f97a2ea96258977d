package storage

import "fmt"

// Error is a database failure during one operation of a load. Code and
// Detail carry the server's SQLSTATE and detail message when available.
type Error struct {
	Op     string // "create schema", "drop table", "copy", "add primary key", ...
	Table  string
	Code   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := "storage: " + e.Op
	if e.Table != "" {
		msg += " " + e.Table
	}
	msg += fmt.Sprintf(": %v", e.Err)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Code != "" {
		msg += " [SQLSTATE " + e.Code + "]"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

package database

import (
	"errors"
	"fmt"
	"net/netip"
)

// ErrClosed reports use of a Reader after Close.
var ErrClosed = errors.New("attempt to read from a closed database")

// InvalidDatabaseError reports a structurally invalid or corrupt database
// file.
type InvalidDatabaseError struct {
	msg string
}

func (e InvalidDatabaseError) Error() string { return e.msg }

func invalidf(format string, args ...any) InvalidDatabaseError {
	return InvalidDatabaseError{msg: fmt.Sprintf(format, args...)}
}

// IPVersionError reports an IPv6 lookup against an IPv4-only database.
type IPVersionError struct {
	Addr netip.Addr
}

func (e IPVersionError) Error() string {
	return fmt.Sprintf("cannot look up IPv6 address %s in an IPv4-only database", e.Addr)
}

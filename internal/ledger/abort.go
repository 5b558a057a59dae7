package ledger

import (
	"fmt"
	"regexp"
	"strconv"
)

// AbortError describes a committed transaction that aborted in Move code.
type AbortError struct {
	// Location is the aborting module, e.g. "0xabc::bidding_system".
	Location string
	// Name is the error constant name when the node reports one.
	Name string
	// Code is the numeric abort code.
	Code uint64
	// VMStatus is the raw status string.
	VMStatus string
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("move abort in %s: %s(%d)", e.Location, e.Name, e.Code)
	}
	return fmt.Sprintf("move abort in %s: code %d", e.Location, e.Code)
}

// Matches both "Move abort in 0x1::m: E_NAME(0x3): text" and the bare
// "Move abort in 0x1::m: 0x3" form older nodes emit.
var abortPattern = regexp.MustCompile(`Move abort in ([0-9a-zA-Zx_]+::[0-9a-zA-Z_]+): (?:([A-Za-z_][A-Za-z0-9_]*)\()?(0x[0-9a-fA-F]+|[0-9]+)`)

// ParseAbort extracts abort details from a vm_status string. It returns nil
// when the status is not a Move abort.
func ParseAbort(vmStatus string) *AbortError {
	m := abortPattern.FindStringSubmatch(vmStatus)
	if m == nil {
		return nil
	}
	code, err := strconv.ParseUint(m[3], 0, 64)
	if err != nil {
		return nil
	}
	return &AbortError{
		Location: m[1],
		Name:     m[2],
		Code:     code,
		VMStatus: vmStatus,
	}
}

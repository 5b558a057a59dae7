package registry

import (
	"strings"

	"github.com/a2a-aptos/bidagent/internal/errors"
	"github.com/a2a-aptos/bidagent/internal/ledger"
)

// abortCodes maps the bidding_system abort codes to rejection sentinels.
var abortCodes = map[uint64]error{
	1:  errors.ErrDuplicateTaskID,
	2:  errors.ErrTaskNotFound,
	3:  errors.ErrTaskNotOpen,
	4:  errors.ErrDeadlinePassed,
	5:  errors.ErrInvalidPrice,
	6:  errors.ErrNoBids,
	7:  errors.ErrNotAssigned,
	8:  errors.ErrNotWinner,
	9:  errors.ErrInvalidBudget,
	10: errors.ErrInvalidDeadline,
	11: errors.ErrDuplicateBid,
	12: errors.ErrInvalidReputation,
	13: errors.ErrPlatformNotInitialized,
	14: errors.ErrPlatformExists,
}

// abortNames maps normalized error constant names (upper case, no "E"
// prefix, no underscores) to rejection sentinels. Names take precedence
// over codes because the contract's numbering is not part of its interface.
var abortNames = map[string]error{
	"TASKALREADYEXISTS":      errors.ErrDuplicateTaskID,
	"DUPLICATETASKID":        errors.ErrDuplicateTaskID,
	"TASKEXISTS":             errors.ErrDuplicateTaskID,
	"TASKNOTFOUND":           errors.ErrTaskNotFound,
	"TASKNOTOPEN":            errors.ErrTaskNotOpen,
	"DEADLINEPASSED":         errors.ErrDeadlinePassed,
	"BIDDINGCLOSED":          errors.ErrDeadlinePassed,
	"INVALIDPRICE":           errors.ErrInvalidPrice,
	"PRICEEXCEEDSBUDGET":     errors.ErrInvalidPrice,
	"NOBIDS":                 errors.ErrNoBids,
	"TASKNOTASSIGNED":        errors.ErrNotAssigned,
	"NOTASSIGNED":            errors.ErrNotAssigned,
	"NOTWINNER":              errors.ErrNotWinner,
	"INVALIDBUDGET":          errors.ErrInvalidBudget,
	"INSUFFICIENTBUDGET":     errors.ErrInvalidBudget,
	"INVALIDDEADLINE":        errors.ErrInvalidDeadline,
	"DUPLICATEBID":           errors.ErrDuplicateBid,
	"ALREADYBID":             errors.ErrDuplicateBid,
	"INVALIDREPUTATION":      errors.ErrInvalidReputation,
	"PLATFORMNOTINITIALIZED": errors.ErrPlatformNotInitialized,
	"NOTINITIALIZED":         errors.ErrPlatformNotInitialized,
	"ALREADYINITIALIZED":     errors.ErrPlatformExists,
	"PLATFORMEXISTS":         errors.ErrPlatformExists,
}

func normalizeAbortName(name string) string {
	name = strings.ToUpper(strings.ReplaceAll(name, "_", ""))
	return strings.TrimPrefix(name, "E")
}

// rejectionFor returns the sentinel for an abort raised by op, or nil when
// unknown. Numeric codes are only meaningful for aborts raised by the
// registry module itself; framework modules reuse the same small numbers.
func (c *Client) rejectionFor(op string, abort *ledger.AbortError) error {
	if abort.Name != "" {
		name := normalizeAbortName(abort.Name)
		if name == "INVALIDSTATUS" {
			return invalidStatus(op)
		}
		if err, ok := abortNames[name]; ok {
			return err
		}
	}
	if !c.raisedBy(abort.Location) {
		return nil
	}
	return abortCodes[abort.Code]
}

// invalidStatus maps the contract's generic wrong-state abort to the
// rejection matching op.
func invalidStatus(op string) error {
	if op == OpComplete {
		return errors.ErrNotAssigned
	}
	return errors.ErrTaskNotOpen
}

// raisedBy reports whether loc ("<address>::<module>") is the registry
// module. Nodes print addresses both padded and short.
func (c *Client) raisedBy(loc string) bool {
	addr, module, ok := strings.Cut(loc, "::")
	return ok && module == c.module && shortAddress(addr) == shortAddress(c.platform)
}

func shortAddress(addr string) string {
	return "0x" + strings.TrimLeft(strings.TrimPrefix(ledger.NormalizeAddress(addr), "0x"), "0")
}

// translate turns a ledger error into a registry rejection when it is a
// Move abort; other errors are returned unchanged.
func (c *Client) translate(op, taskID string, err error) error {
	var abort *ledger.AbortError
	if !errors.As(err, &abort) {
		return err
	}
	cause := c.rejectionFor(op, abort)
	if cause == nil {
		cause = abort
	}
	return errors.NewRegistryError(op, cause).WithTaskID(taskID).WithAbortCode(abort.Code)
}

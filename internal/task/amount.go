package task

import (
	"fmt"
	"strings"

	"github.com/a2a-aptos/bidagent/internal/errors"
)

// OctasPerAPT is the number of smallest units in one APT.
const OctasPerAPT uint64 = 100_000_000

// FormatAmount renders octas as "X.XXXXXXXX APT (N Octas)".
func FormatAmount(octas uint64) string {
	return fmt.Sprintf("%d.%08d APT (%d Octas)", octas/OctasPerAPT, octas%OctasPerAPT, octas)
}

// ValidatePublish checks publish arguments before anything is submitted.
func ValidatePublish(id string, maxBudget uint64, deadlineSecs int64) error {
	if strings.TrimSpace(id) == "" {
		return errors.NewValidationError("task id must not be empty").WithField("task_id")
	}
	if maxBudget == 0 {
		return errors.NewValidationError("budget must be greater than 0").WithField("budget").WithValue(maxBudget)
	}
	if deadlineSecs <= 0 {
		return errors.NewValidationError("deadline must be greater than 0 seconds").WithField("deadline").WithValue(deadlineSecs)
	}
	return nil
}

// ValidateBid checks place_bid arguments before anything is submitted.
func ValidateBid(taskID string, price uint64, reputation int) error {
	if strings.TrimSpace(taskID) == "" {
		return errors.NewValidationError("task id must not be empty").WithField("task_id")
	}
	if price == 0 {
		return errors.NewValidationError("price must be greater than 0").WithField("price").WithValue(price)
	}
	if reputation < 0 || reputation > MaxReputation {
		return errors.NewValidationError("reputation score must be between 0 and 100").WithField("reputation").WithValue(reputation)
	}
	return nil
}

package accounts

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// IsOutsideThresholdPeriod reports whether the given instant happened
// longer ago than the threshold, expressed as a duration string
// e.g. "24h".
func IsOutsideThresholdPeriod(t time.Time, threshold string) (bool, error) {
	d, err := time.ParseDuration(threshold)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid threshold duration").
			WithMetadata(map[string]any{"threshold": threshold})
	}
	return time.Since(t) > d, nil
}

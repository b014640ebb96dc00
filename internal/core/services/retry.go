package services

import "context"

// repairFunc inspects a failed attempt. It returns true when the failure was
// repaired and exactly one retry is allowed; returning false propagates the
// original error. A repair error propagates instead of the original.
type repairFunc func(ctx context.Context, err error) (bool, error)

// attemptWithRepair runs attempt, and on failure consults repair for a single
// retry. The retry's error propagates unchanged; there is never a second
// repair, which keeps the retry-once guarantee auditable in one place.
func attemptWithRepair(ctx context.Context, attempt func(ctx context.Context) error, repair repairFunc) error {
	err := attempt(ctx)
	if err == nil {
		return nil
	}

	repaired, repairErr := repair(ctx, err)
	if repairErr != nil {
		return repairErr
	}
	if !repaired {
		return err
	}

	return attempt(ctx)
}

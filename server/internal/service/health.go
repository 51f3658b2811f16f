package service

import (
	"context"
	"fmt"
	"time"

	"github.com/navid-fn/fareradar/internal/faulttolerance"
)

// StaleAfter is how old the newest run may be before the API reports degraded.
const StaleAfter = 26 * time.Hour

// LastRunCheck reports degraded when the default route has no run newer than
// maxAge. It passes when no route is configured.
func (fs *FareService) LastRunCheck(maxAge time.Duration, now func() time.Time) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if fs.defaultRoute == "" {
			return nil
		}
		runs, err := fs.repo.LatestRuns(ctx, fs.defaultRoute, 1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("%w: no run archived yet", faulttolerance.ErrDegraded)
		}
		if age := now().Sub(runs[0].FinishedAt); age > maxAge {
			return fmt.Errorf("%w: last run finished %s ago", faulttolerance.ErrDegraded, age.Round(time.Minute))
		}
		return nil
	}
}

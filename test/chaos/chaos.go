package chaos

import (
	"context"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TerminateRandomBackend periodically kills one backend whose
// application_name is appName. Run it from a pool with a different name so
// the killer never shoots itself.
func TerminateRandomBackend(ctx context.Context, pool *pgxpool.Pool, appName string, stop <-chan struct{}) int {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	killed := 0
	for {
		select {
		case <-ctx.Done():
			return killed
		case <-stop:
			return killed
		case <-ticker.C:
			if rand.Intn(3) != 0 {
				continue
			}
			var n int
			err := pool.QueryRow(ctx, `
SELECT COUNT(*) FROM (
    SELECT pg_terminate_backend(pid) FROM pg_stat_activity
    WHERE datname = current_database()
      AND application_name = $1
      AND pid <> pg_backend_pid()
    ORDER BY random()
    LIMIT 1
) t`, appName).Scan(&n)
			if err == nil {
				killed += n
			}
		}
	}
}

package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Oracle is an invariant expressed as a query that must return no rows.
type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_single_accepted_proposal",
			SQL: `SELECT job_id, COUNT(*) FROM proposals
                  WHERE status = 'ACCEPTED'
                  GROUP BY job_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_started_job_has_accepted_proposal",
			SQL: `SELECT j.id, j.status FROM jobs j
                  WHERE j.status <> 'OPEN'
                    AND NOT EXISTS (SELECT 1 FROM proposals p
                                    WHERE p.job_id = j.id AND p.status = 'ACCEPTED')`,
		},
		{
			Name: "O3_open_job_has_no_accepted_proposal",
			SQL: `SELECT j.id FROM jobs j
                  JOIN proposals p ON p.job_id = j.id
                  WHERE j.status = 'OPEN' AND p.status = 'ACCEPTED'`,
		},
		{
			Name: "O4_accepted_job_siblings_rejected",
			SQL: `SELECT p.id, p.status FROM proposals p
                  JOIN jobs j ON j.id = p.job_id
                  WHERE j.status <> 'OPEN' AND p.status = 'PENDING'`,
		},
		{
			Name: "O5_reviewed_work_was_delivered",
			SQL: `SELECT j.id, j.status FROM jobs j
                  JOIN proposals p ON p.job_id = j.id AND p.status = 'ACCEPTED'
                  WHERE j.status IN ('REVIEW', 'COMPLETED') AND p.delivered_at IS NULL`,
		},
		{
			Name: "O6_started_at_set",
			SQL:  `SELECT id, status FROM jobs WHERE status <> 'OPEN' AND started_at IS NULL`,
		},
		{
			Name: "O7_outbox_not_stale",
			SQL: `SELECT id::text, attempts FROM outbox
                  WHERE status = 'pending'
                    AND now() - created_at > interval '5 minutes'`,
		},
		{
			Name: "O8_mail_has_notification",
			SQL: `SELECT o.id FROM outbox o
                  WHERE o.topic = 'notification.mail'
                    AND NOT EXISTS (SELECT 1 FROM notifications n
                                    WHERE n.id::text = o.payload->>'notification_id')`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
	}
	return "", "", nil
}

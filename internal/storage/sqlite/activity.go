package sqlite

import (
	"context"
	"fmt"

	"github.com/centsible-app/centsible/internal/models"
)

// ListUserActivity retrieves the newest expense and payment entries across
// all of the user's groups, merged into a single feed.
func (s *SQLiteStore) ListUserActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT * FROM (
		    SELECT 'expense' AS type, e.group_id, g.name, e.payer_id, e.description, e.total_amount, e.created_at
		    FROM expenses e
		    JOIN groups g ON g.id = e.group_id
		    WHERE e.group_id IN (SELECT group_id FROM group_members WHERE user_id = ?)
		  UNION ALL
		    SELECT 'payment' AS type, p.group_id, g.name, p.payer_id,
		           CASE WHEN p.note = '' THEN 'Payment' ELSE p.note END,
		           p.amount, p.created_at
		    FROM payments p
		    JOIN groups g ON g.id = p.group_id
		    WHERE p.group_id IN (SELECT group_id FROM group_members WHERE user_id = ?)
		 )
		 ORDER BY created_at DESC
		 LIMIT ?`,
		userID, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var feed []models.Activity
	for rows.Next() {
		var entry models.Activity
		var entryType string
		if err := rows.Scan(&entryType, &entry.GroupID, &entry.GroupName, &entry.ActorID,
			&entry.Description, &entry.Amount, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entry.Type = models.ActivityType(entryType)
		feed = append(feed, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}

	return feed, nil
}

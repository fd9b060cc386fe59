package visits

import (
	"context"
	"fmt"
	"time"
)

// Stats is the public, aggregate-only view of recorded visits.
type Stats struct {
	TotalVisits    int64          `json:"total_visits"`
	UniqueVisitors int64          `json:"unique_visitors"`
	VisitsToday    int64          `json:"visits_today"`
	VisitsThisWeek int64          `json:"visits_this_week"`
	Sections       []SectionCount `json:"sections"`
}

type SectionCount struct {
	Path   string `json:"path"`
	Visits int64  `json:"visits"`
}

func (t *Tracker) Stats(ctx context.Context) (*Stats, error) {
	now := t.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Format(timeLayout)
	week := now.Add(-7 * 24 * time.Hour).Format(timeLayout)

	stats := &Stats{Sections: []SectionCount{}}
	err := t.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT hashed_ip),
			COALESCE(SUM(timestamp >= ?), 0),
			COALESCE(SUM(timestamp >= ?), 0)
		FROM visits`, today, week,
	).Scan(&stats.TotalVisits, &stats.UniqueVisitors, &stats.VisitsToday, &stats.VisitsThisWeek)
	if err != nil {
		return nil, fmt.Errorf("loading visit totals: %w", err)
	}

	rows, err := t.db.QueryContext(ctx, `
		SELECT path, COUNT(*) AS n
		FROM visits
		GROUP BY path
		ORDER BY n DESC, path`)
	if err != nil {
		return nil, fmt.Errorf("loading section visits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc SectionCount
		if err := rows.Scan(&sc.Path, &sc.Visits); err != nil {
			return nil, fmt.Errorf("scanning section visits: %w", err)
		}
		stats.Sections = append(stats.Sections, sc)
	}
	return stats, rows.Err()
}

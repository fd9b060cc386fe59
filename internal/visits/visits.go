// Package visits records privacy-conscious page visits in SQLite. IP
// addresses are never stored: each is salted with a per-process secret and
// hashed, so visitors can be counted as unique within one run of the site
// but not identified. Requests sending "DNT: 1" are not recorded.
package visits

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS visits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip TEXT NOT NULL,
	user_agent TEXT,
	path TEXT NOT NULL,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS visits_timestamp ON visits (timestamp);`

// Paths under these prefixes are never tracked.
var skipPrefixes = []string{
	"/static/",
	"/images/",
	"/api/",
	"/metrics",
	"/healthz",
	"/favicon",
	"/privacy",
}

type Tracker struct {
	db      *sql.DB
	salt    string
	logger  *zap.Logger
	now     func() time.Time
	counter prometheus.Counter

	wg sync.WaitGroup
}

type Option func(*Tracker)

// WithCounter increments c for every stored visit.
func WithCounter(c prometheus.Counter) Option {
	return func(t *Tracker) { t.counter = c }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// Open opens (creating if needed) the visits database at path. ":memory:"
// gives a throwaway database.
func Open(path string, logger *zap.Logger, opts ...Option) (*Tracker, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening visits db %s: %w", path, err)
	}
	// SQLite serialises writers; one connection also keeps ":memory:"
	// databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating visits table: %w", err)
	}

	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		db.Close()
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	t := &Tracker{
		db:     db,
		salt:   hex.EncodeToString(salt),
		logger: logger.Named("visits"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// HashIP returns the truncated salted hash stored in place of ip.
func (t *Tracker) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + t.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// Record stores one visit.
func (t *Tracker) Record(ctx context.Context, ip, userAgent, path string) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO visits (hashed_ip, user_agent, path, timestamp) VALUES (?, ?, ?, ?)`,
		t.HashIP(ip), userAgent, path, t.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording visit: %w", err)
	}
	if t.counter != nil {
		t.counter.Inc()
	}
	return nil
}

// Middleware records successful GET page views in the background, keyed by
// route pattern rather than raw URL.
func (t *Tracker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet || c.Writer.Status() >= 400 {
			return
		}
		route := c.FullPath()
		if route == "" || skipped(route) || c.GetHeader("DNT") == "1" {
			return
		}

		ip, ua := c.ClientIP(), c.GetHeader("User-Agent")
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := t.Record(ctx, ip, ua, route); err != nil {
				t.logger.Warn("visit not recorded", zap.Error(err))
			}
		}()
	}
}

func skipped(path string) bool {
	for _, p := range skipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Cleanup deletes visits older than the retention period.
func (t *Tracker) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := t.now().Add(-retention).UTC().Format(timeLayout)
	res, err := t.db.ExecContext(ctx, `DELETE FROM visits WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up visits: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		t.logger.Info("privacy cleanup removed old visits",
			zap.Int64("removed", n),
			zap.Duration("retention", retention),
		)
	}
	return n, nil
}

// Forget deletes every visit stored for ip. Only visits recorded under the
// current salt can be matched.
func (t *Tracker) Forget(ctx context.Context, ip string) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM visits WHERE hashed_ip = ?`, t.HashIP(ip))
	if err != nil {
		return 0, fmt.Errorf("forgetting visitor: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Ping checks the database connection.
func (t *Tracker) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// Wait blocks until background inserts started by Middleware finish.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Close waits for pending inserts and closes the database.
func (t *Tracker) Close() error {
	t.wg.Wait()
	return t.db.Close()
}

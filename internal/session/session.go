// Package session caches each visitor's most recent publications upload so
// the keyword filter can be changed without uploading again. Sessions are
// identified by a cookie and never see each other's tables.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Zachkp/researcher-profile/internal/logging"
	"github.com/Zachkp/researcher-profile/internal/publications"
)

// ErrNotFound is returned when a session holds no upload, including when it
// has expired.
var ErrNotFound = errors.New("no upload for session")

// Upload is what a session remembers about the last accepted file.
type Upload struct {
	FileName   string              `json:"file_name"`
	Size       int64               `json:"size"`
	UploadedAt time.Time           `json:"uploaded_at"`
	Table      *publications.Table `json:"table"`
}

// Store holds at most one Upload per session id. Entries expire after the
// store's idle TTL; every Get refreshes it.
type Store interface {
	Get(ctx context.Context, id string) (*Upload, error)
	Put(ctx context.Context, id string, u *Upload) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Middleware ensures every request carries a session cookie and exposes the
// id through ID. The cookie is re-issued on each request so its lifetime
// slides with activity, matching the store TTL.
func Middleware(cookieName string, ttl time.Duration, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookieName)
		if err != nil || !valid(id) {
			id = uuid.NewString()
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, id, int(ttl.Seconds()), "/", "", secure, true)
		c.Set(logging.SessionKey, id)
		c.Next()
	}
}

// ID returns the session id set by Middleware.
func ID(c *gin.Context) string {
	return c.GetString(logging.SessionKey)
}

func valid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

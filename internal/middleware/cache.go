package middleware

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// cacheWriter buffers the response body while forwarding it to the client
type cacheWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// ResponseCache caches successful GET responses in Redis for ttl seconds.
// Keys include the authenticated user so sellers never see each other's
// listings. With a nil client the middleware is a no-op.
func ResponseCache(rdb *redis.Client, ttlSeconds int) gin.HandlerFunc {
	if rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}

	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c)
		ctx := c.Request.Context()

		if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			c.Abort()
			return
		}

		writer := &cacheWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Header("X-Cache", "MISS")

		c.Next()

		if writer.Status() == http.StatusOK && writer.buf.Len() > 0 {
			rdb.SetEx(ctx, key, writer.buf.Bytes(), ttl)
		}
	}
}

func cacheKey(c *gin.Context) string {
	userID, _ := c.Get("userID")
	raw := fmt.Sprintf("%v:%s:%s", userID, c.Request.URL.Path, c.Request.URL.RawQuery)
	return fmt.Sprintf("cache:%x", sha1.Sum([]byte(raw)))
}

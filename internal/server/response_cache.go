package server

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/workforce/internal/cache"
)

const cacheHeader = "X-API-Cache"

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

// ResponseCacheMiddleware serves repeated GETs from a short-lived cache,
// marking each response HIT or MISS. Only successful responses are stored;
// writes elsewhere invalidate through the namespace registry.
func ResponseCacheMiddleware(bk *cache.Bookkeeper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cache.Key(cache.NamespaceResponse, map[string]any{
			"path":  c.Request.URL.Path,
			"query": c.Request.URL.RawQuery,
		})

		var cached cachedResponse
		hit, err := bk.Get(c.Request.Context(), key, &cached)
		if err == nil && hit {
			c.Header(cacheHeader, "HIT")
			c.Data(cached.Status, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		c.Header(cacheHeader, "MISS")
		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()
		c.Writer = writer.ResponseWriter

		if c.Writer.Status() != http.StatusOK {
			return
		}
		_ = bk.Put(c.Request.Context(), cache.NamespaceResponse, key, cachedResponse{
			Status:      c.Writer.Status(),
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.buf.Bytes(),
		}, cache.TTLResponse)
	}
}

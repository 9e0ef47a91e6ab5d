package middleware

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	internalRedis "ridedispatch/internal/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
)

// bodyRecorder tees the response body so it can be stored after the handler.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a mutating request
// carrying a previously seen Idempotency-Key. Keys are scoped by tenant,
// method and route. Conflicts and server errors are not stored so the
// client can retry them. A nil store disables replay.
func IdempotencyMiddleware(store internalRedis.ResponseStoreInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if store == nil || key == "" || !mutating(c.Request.Method) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		scope := idempotencyScope(TenantID(c), c.Request.Method, c.FullPath(), key)

		stored, err := store.GetResponse(ctx, scope)
		if err == nil && stored != nil {
			replay(c, stored)
			return
		}

		w := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// A failed lookup means Redis is unreachable; storing would fail too.
		if err != nil || !cacheable(w.Status()) {
			return
		}
		resp := internalRedis.StoredResponse{
			StatusCode: w.Status(),
			Body:       w.body.Bytes(),
		}
		if ct := w.Header().Get("Content-Type"); ct != "" {
			resp.Headers = http.Header{"Content-Type": {ct}}
		}
		_ = store.SetResponse(context.WithoutCancel(ctx), scope, resp)
	}
}

func replay(c *gin.Context, stored *internalRedis.StoredResponse) {
	contentType := stored.Headers.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Header(replayedHeader, "true")
	c.Data(stored.StatusCode, contentType, stored.Body)
	c.Abort()
}

func mutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func idempotencyScope(tenant, method, route, key string) string {
	return tenant + ":" + method + ":" + route + ":" + key
}

func cacheable(status int) bool {
	return status >= 200 && status < 500 && status != http.StatusConflict
}

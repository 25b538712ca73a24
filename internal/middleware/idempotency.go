package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resource-conflict-api/internal/service"
	"github.com/noah-isme/resource-conflict-api/pkg/response"
)

const (
	// IdempotencyHeader carries the caller's retry key.
	IdempotencyHeader = "Idempotency-Key"
	// ReplayedHeader marks a response served from the idempotency store.
	ReplayedHeader = "Idempotent-Replayed"
)

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response when a request repeats an Idempotency-Key with
// the same body. Requests without the header pass through untouched.
func Idempotency(svc *service.IdempotencyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || !svc.Enabled() {
			c.Next()
			return
		}
		if err := service.ValidateKey(key); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(payload))
		fingerprint := service.Fingerprint(payload)
		ctx := c.Request.Context()

		// Claim the key before looking for a stored response: a retry arriving while the
		// first attempt is still running must not miss the record it is about to write.
		if err := svc.Begin(ctx, key); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		// the caller may disconnect; the marker must still be cleared
		defer svc.Release(context.WithoutCancel(ctx), key)

		record, found, err := svc.Lookup(ctx, key, fingerprint)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if found {
			c.Header(ReplayedHeader, "true")
			c.Header("Cache-Control", "no-store")
			c.Data(record.Status, "application/json; charset=utf-8", record.Body)
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		status := recorder.Status()
		if status >= http.StatusOK && status < http.StatusMultipleChoices {
			svc.Remember(context.WithoutCancel(ctx), key, fingerprint, status, rawJSON(recorder.body.Bytes()))
		}
	}
}

type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

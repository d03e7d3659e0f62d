package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"marketplace-catalog/internal/catalog"
	"marketplace-catalog/internal/catalog/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader     = "X-Request-ID"
	viewerIDHeader      = "X-Viewer-ID"
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	viewerKey           = "viewer"

	anonymousViewerPrefix = "anon:"
	userViewerPrefix      = "user:"
)

type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (catalog.Session, error)
}

type SessionNotifier interface {
	SessionInvalidated(ctx context.Context, session *catalog.Session, cause error)
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Set(requestIDHeader, requestID)
		c.Next()
	}
}

func AccessLogMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID, _ := c.Get(requestIDHeader)
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", requestID,
			"client_ip", c.ClientIP(),
		}
		if v, ok := c.Get(viewerKey); ok {
			attrs = append(attrs, "viewer_id", v.(service.Viewer).ID)
		}
		logger.Info("http request", attrs...)
	}
}

// ViewerMiddleware resolves who is asking. A bearer token must resolve to a
// live session; without one the caller is an anonymous viewer keyed by
// X-Viewer-ID, which is minted when missing or malformed. Signed-in clients
// that still send X-Viewer-ID carry it as the viewer's SignedOutID.
func ViewerMiddleware(resolver SessionResolver, notifier SessionNotifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader(authorizationHeader)); ok {
			session, err := resolver.ResolveSession(c.Request.Context(), token)
			if errors.Is(err, catalog.ErrSessionExpired) {
				notifier.SessionInvalidated(c.Request.Context(), nil, err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "session expired"})
				return
			}
			if err != nil {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: "failed to resolve session"})
				return
			}
			viewer := service.Viewer{ID: userViewerPrefix + session.UserID, Session: &session}
			if id, err := uuid.Parse(c.GetHeader(viewerIDHeader)); err == nil {
				viewer.SignedOutID = anonymousViewerPrefix + id.String()
			}
			c.Set(viewerKey, viewer)
			c.Next()
			return
		}

		id, err := uuid.Parse(c.GetHeader(viewerIDHeader))
		if err != nil {
			id = uuid.New()
		}
		c.Header(viewerIDHeader, id.String())
		c.Set(viewerKey, service.Viewer{ID: anonymousViewerPrefix + id.String()})
		c.Next()
	}
}

func viewerFrom(c *gin.Context) service.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		return v.(service.Viewer)
	}
	return service.Viewer{}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	return token, token != ""
}

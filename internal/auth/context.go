package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const (
	HeaderUserID   = "X-User-ID"
	metadataUserID = "x-user-id"
)

type actorKey struct{}

// WithActor stores the acting user id on ctx.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// GetActor returns the acting user id. It checks the context value first and
// falls back to incoming gRPC metadata.
func GetActor(ctx context.Context) string {
	if val, ok := ctx.Value(actorKey{}).(string); ok && val != "" {
		return val
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get(metadataUserID); len(val) > 0 {
			return strings.TrimSpace(val[0])
		}
	}
	return ""
}

// Middleware copies X-User-ID into the request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader(HeaderUserID)); userID != "" {
			c.Request = c.Request.WithContext(WithActor(c.Request.Context(), userID))
		}
		c.Next()
	}
}

func UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if userID := GetActor(ctx); userID != "" {
			ctx = WithActor(ctx, userID)
		}
		return handler(ctx, req)
	}
}

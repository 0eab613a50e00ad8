// Package middleware 提供HTTP中间件
package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/paiban/roster/internal/security"
	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
)

type apiKeyContextKey struct{}

// WithAPIKey 将已验证的密钥存入上下文
func WithAPIKey(ctx context.Context, key *security.APIKey) context.Context {
	return context.WithValue(ctx, apiKeyContextKey{}, key)
}

// APIKeyFromContext 读取已验证的密钥
func APIKeyFromContext(ctx context.Context) (*security.APIKey, bool) {
	key, ok := ctx.Value(apiKeyContextKey{}).(*security.APIKey)
	return key, ok
}

// Auth 认证中间件；管理器未登记任何密钥时放行所有请求
func Auth(keys *security.APIKeyManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !keys.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := security.ExtractAPIKey(r)
			if raw == "" {
				writeError(w, apperrors.New(apperrors.CodeUnauthorized, "API密钥未提供"))
				return
			}

			key, err := keys.Validate(raw)
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("API密钥验证失败")
				writeError(w, apperrors.Wrap(err, apperrors.CodeUnauthorized, "无效的API密钥"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAPIKey(r.Context(), key)))
		})
	}
}

// RequireScope 权限范围检查；未启用认证时上下文中没有密钥，直接放行
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key, ok := APIKeyFromContext(r.Context()); ok && !key.HasScope(scope) {
				writeError(w, apperrors.New(apperrors.CodeForbidden, "权限不足").WithField("scope", scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit 按密钥或客户端地址限流；limiter 为 nil 时不限流
func RateLimit(limiter *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				writeError(w, apperrors.New(apperrors.CodeRateLimited, "请求频率超限"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders 安全头中间件
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		next.ServeHTTP(w, r)
	})
}

// clientKey 已认证请求按密钥计数，否则按客户端 IP
func clientKey(r *http.Request) string {
	if key, ok := APIKeyFromContext(r.Context()); ok {
		return "key:" + key.Hash
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"fields":  err.Fields,
	})
}

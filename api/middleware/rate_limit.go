package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/muxdry/storefront-backend/api/responses"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
	pkgredis "github.com/muxdry/storefront-backend/pkg/redis"
)

// maxEmailPeek bounds how much of a public request body is buffered to find the email.
const maxEmailPeek = 64 << 10

// RateLimitPolicy throttles one public surface per client IP and, when the body
// carries an email, per normalized email.
type RateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "public"
	}
	return RateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

type gate struct {
	limiter pkgredis.RateLimiter
	logg    *logger.Logger
	policy  string
	window  time.Duration
}

// admit counts one hit against scope. On refusal it has already written the response.
func (g gate) admit(ctx context.Context, w http.ResponseWriter, scope string, limit int) bool {
	allowed, hits, err := g.limiter.FixedWindowAllow(ctx, scope, int64(limit), g.window)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if allowed {
		return true
	}
	if g.logg != nil {
		g.logg.Warn(g.logg.WithFields(ctx, map[string]any{
			"policy":         g.policy,
			"attempts":       hits,
			"limit":          limit,
			"window_seconds": int(g.window.Seconds()),
		}), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(g.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, try again later"))
	return false
}

// PublicRateLimit enforces a policy on unauthenticated endpoints such as login,
// registration and the contact form.
func PublicRateLimit(policy RateLimitPolicy, limiter pkgredis.RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}
		g := gate{limiter: limiter, logg: logg, policy: policy.name, window: policy.window}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if ip := clientIP(r); policy.ipLimit > 0 && ip != "" {
				if !g.admit(ctx, w, policy.name+":ip:"+ip, policy.ipLimit) {
					return
				}
			}

			if policy.emailLimit > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				if email != "" && !g.admit(ctx, w, policy.name+":email:"+digest(email), policy.emailLimit) {
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserRateLimit caps authenticated traffic per user. It must run after Auth.
func UserRateLimit(limiter pkgredis.RateLimiter, limit int, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 || window <= 0 {
			return next
		}
		g := gate{limiter: limiter, logg: logg, policy: "api", window: window}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID := UserIDFromContext(r.Context()); userID != "" && !g.admit(r.Context(), w, "api:user:"+userID, limit) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peekEmail reads the leading part of the body for an "email" field and puts
// the bytes back so the handler still sees the whole body.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, maxEmailPeek))
	if err != nil {
		return "", err
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(head, &body) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(body.Email)), nil
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for _, hop := range strings.Split(forwarded, ",") {
			if ip := strings.TrimSpace(hop); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

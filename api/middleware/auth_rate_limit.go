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
	"time"

	"github.com/angelmondragon/ticketbooth-backend/api/responses"
	"github.com/angelmondragon/ticketbooth-backend/internal/users"
	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/logger"
)

// emailSniffLimit caps how much of the body is read to find the email.
const emailSniffLimit = 8 << 10

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy throttles one auth surface per client IP and per email.
// A zero limit switches that counter off.
type RateLimitPolicy struct {
	Surface  string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

// AuthRateLimitPolicies returns the signin, signup and forgot-password policies.
// Signup limits also cover verification resends.
func AuthRateLimitPolicies(cfg config.AuthRateLimitConfig) (signin, signup, forgot RateLimitPolicy) {
	signin = RateLimitPolicy{Surface: "signin", Window: cfg.LoginWindow, PerIP: cfg.LoginIPLimit, PerEmail: cfg.LoginEmailLimit}
	signup = RateLimitPolicy{Surface: "signup", Window: cfg.RegisterWindow, PerIP: cfg.RegisterIPLimit, PerEmail: cfg.RegisterEmailLimit}
	forgot = RateLimitPolicy{Surface: "forgot", Window: cfg.ForgotWindow, PerIP: cfg.ForgotIPLimit, PerEmail: cfg.ForgotEmailLimit}
	return signin, signup, forgot
}

func (p RateLimitPolicy) active() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerEmail > 0)
}

// bucket is one counter a request is charged against.
type bucket struct {
	kind  string
	scope string
	limit int
}

// AuthRateLimit charges each request to its IP counter and, when the JSON
// body names an email, to a counter keyed by the email's SHA-256.
func AuthRateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var buckets []bucket
			if ip := remoteIP(r); policy.PerIP > 0 && ip != "" {
				buckets = append(buckets, bucket{kind: "ip", scope: policy.Surface + ":ip:" + ip, limit: policy.PerIP})
			}
			if policy.PerEmail > 0 {
				if digest := emailDigest(r); digest != "" {
					buckets = append(buckets, bucket{kind: "email", scope: policy.Surface + ":email:" + digest, limit: policy.PerEmail})
				}
			}

			for _, b := range buckets {
				allowed, count, err := store.FixedWindowAllow(ctx, b.scope, int64(b.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"surface":  policy.Surface,
							"counter":  b.kind,
							"attempts": count,
							"limit":    b.limit,
						}), "auth.rate_limit.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// remoteIP expects chi's RealIP to have already folded proxy headers into RemoteAddr.
func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// emailDigest peeks at the body for an "email" field and leaves the body
// intact for the handler.
func emailDigest(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, emailSniffLimit))
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}
	if err != nil {
		return ""
	}

	var probe struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(head, &probe) != nil {
		return ""
	}
	email := users.NormalizeEmail(probe.Email)
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

type readCloser struct {
	io.Reader
	io.Closer
}

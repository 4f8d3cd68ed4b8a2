package httpx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/time/rate"

	domainauth "github.com/creatorhub/jobcore/internal/domain/auth"
	"github.com/creatorhub/jobcore/internal/domain/model"
	apperrors "github.com/creatorhub/jobcore/internal/errors"
	"github.com/creatorhub/jobcore/internal/service"
)

// Header names read by the auth and webhook middleware.
const (
	HeaderOwnerID   = "X-Owner-ID"
	HeaderSignature = "X-Signature"

	signaturePrefix = "sha256="
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer (flushing for streams).
func (w *respWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// LimitBody caps request bodies at maxBytes. Non-positive values disable the cap.
func LimitBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticator resolves request credentials into a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, creds service.Credentials) (domainauth.Principal, error)
}

// Authenticate returns a middleware that resolves the caller from the Authorization bearer token
// (or the owner header when the authenticator trusts it) and stores it in the request context.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := auth.Authenticate(r.Context(), service.Credentials{
				BearerToken: bearerToken(r),
				OwnerHeader: strings.TrimSpace(r.Header.Get(HeaderOwnerID)),
			})
			if err != nil {
				if apperrors.IsForbidden(err) {
					WriteError(w, ErrorParams{
						Code:    http.StatusForbidden,
						ErrCode: "insufficient_permissions",
						Err:     errors.New("insufficient permissions"),
					})
					return
				}
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(SetPrincipalInContext(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// RequireRole returns a middleware that requires the authenticated principal to satisfy role.
// It must run after Authenticate.
func RequireRole(required domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}
			if !principal.Role.Satisfies(required) {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "insufficient_permissions",
					Err:     errors.New("insufficient permissions"),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// JobLookup loads a job by id.
type JobLookup interface {
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
}

// RequireJobOwner returns a middleware that loads the {id} job and rejects callers that do not own it.
// Missing jobs and jobs owned by someone else both produce 404 so existence is not revealed.
// Admins pass for any job; use it only on read-only routes.
func RequireJobOwner(jobs JobLookup) func(http.Handler) http.Handler {
	return requireJobOwner(jobs, true)
}

// RequireOwnJob is RequireJobOwner without the admin bypass. Mutating owner routes use it.
func RequireOwnJob(jobs JobLookup) func(http.Handler) http.Handler {
	return requireJobOwner(jobs, false)
}

func requireJobOwner(jobs JobLookup, adminBypass bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}
			jobID := r.PathValue("id")
			if jobID == "" {
				WriteError(w, ErrorParams{
					Code:    http.StatusBadRequest,
					ErrCode: "invalid_path",
					Err:     errors.New("job id is required"),
				})
				return
			}

			job, err := jobs.GetJob(r.Context(), jobID)
			if err != nil && !apperrors.IsNotFound(err) {
				WriteServiceError(w, err)
				return
			}
			bypass := adminBypass && principal.Role == domainauth.RoleAdmin
			if job == nil || (!bypass && job.OwnerID != principal.Subject) {
				WriteError(w, ErrorParams{
					Code:    http.StatusNotFound,
					ErrCode: string(apperrors.ErrCodeNotFound),
					Err:     errors.New("job not found"),
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(setJobInContext(r.Context(), job)))
		})
	}
}

// VerifySignature returns a middleware that checks the X-Signature header against an HMAC-SHA256
// of the raw body. The body is buffered and restored for the next handler.
func VerifySignature(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "body_too_large", Err: err})
					return
				}
				WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_body", Err: err})
				return
			}
			if !validSignature(secret, body, r.Header.Get(HeaderSignature)) {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "invalid_signature",
					Err:     errors.New("invalid webhook signature"),
				})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

func validSignature(secret, body []byte, header string) bool {
	if len(secret) == 0 {
		return false
	}
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(secret, body))
}

// Sign returns the HMAC-SHA256 of body; senders hex-encode it behind the "sha256=" prefix.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// RateLimit returns a middleware that rejects requests beyond the limiter's budget with 429.
// A nil limiter disables limiting.
func RateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				WriteError(w, ErrorParams{
					Code:    http.StatusTooManyRequests,
					ErrCode: "rate_limited",
					Err:     errors.New("too many requests"),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// chain applies middleware so the first argument is outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

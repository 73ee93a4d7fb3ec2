// Package router mounts the HTTP surface using the standard library's
// http.ServeMux and wires the cross-cutting middleware: request logging,
// security headers, bearer-token authentication and per-route minimum
// user-type filtering.
package router

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/blog"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/page"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/usertype"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers. Conservative
// defaults that work for a JSON API.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeErr(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errs.StatusCode(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": errs.Public(err)})
}

// AuthMiddleware verifies the bearer token and stores the claims on the
// request context. Missing, malformed and expired tokens all end the
// request with 401.
func AuthMiddleware(signer *token.Signer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || raw == "" {
				writeErr(w, errs.ErrUnauthorized)
				return
			}
			ut, err := signer.Verify(raw)
			if err != nil {
				writeErr(w, errs.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(token.NewContext(r.Context(), ut)))
		})
	}
}

// RequireType gates a route behind a minimum user type. The claimed type
// name is resolved through the map, so an unknown claim degrades to zero
// privilege and fails the comparison.
func RequireType(types *usertype.Map, minimum string) func(http.Handler) http.Handler {
	required := types.Get(minimum)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ut, ok := token.FromContext(r.Context())
			if !ok {
				writeErr(w, errs.ErrUnauthorized)
				return
			}
			if !types.Get(ut.UserType).CanAccessLevel(required) {
				writeErr(w, errs.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts the whole API surface under /api.
func RegisterRoutes(
	logger *zap.SugaredLogger,
	signer *token.Signer,
	types *usertype.Map,
	userHandler *user.Handler,
	blogHandler *blog.Handler,
	pageHandler *page.Handler,
) http.Handler {
	mux := http.NewServeMux()
	auth := AuthMiddleware(signer)

	// protect composes auth and the per-route minimum type filter.
	protect := func(minimum string, h http.HandlerFunc) http.Handler {
		return auth(RequireType(types, minimum)(h))
	}

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// user routes
	mux.HandleFunc("POST /api/user/login", userHandler.Login)
	mux.Handle("GET /api/user/id", protect("Editor", userHandler.GetByID))
	mux.Handle("GET /api/user/username", protect("Editor", userHandler.GetByUsername))
	mux.Handle("POST /api/user/add", protect("Admin", userHandler.Add))
	mux.Handle("POST /api/user/edit", protect("Admin", userHandler.Edit))
	mux.Handle("POST /api/user/updatePassword", protect("Admin", userHandler.UpdatePassword))
	mux.HandleFunc("POST /api/user/updatePasswordWithToken", userHandler.UpdatePasswordWithToken)
	mux.HandleFunc("POST /api/user/getPasswordResetToken", userHandler.GetPasswordResetToken)
	mux.Handle("POST /api/user/delete", protect("Admin", userHandler.Delete))

	// blog routes
	mux.HandleFunc("GET /api/blog/id", blogHandler.GetByID)
	mux.HandleFunc("GET /api/blog/slug", blogHandler.GetBySlug)
	mux.HandleFunc("GET /api/blog/posts", blogHandler.Posts)
	mux.Handle("GET /api/blog/posts-admin", protect("Writer", blogHandler.PostsAdmin))
	mux.Handle("POST /api/blog/add", protect("Writer", blogHandler.Add))
	mux.Handle("POST /api/blog/edit", protect("Writer", blogHandler.Edit))
	mux.Handle("POST /api/blog/delete", protect("Writer", blogHandler.Delete))

	// page routes
	mux.HandleFunc("GET /api/page/id", pageHandler.GetByID)
	mux.HandleFunc("GET /api/page/slug", pageHandler.GetBySlug)
	mux.Handle("GET /api/page/pages-admin", protect("Writer", pageHandler.PagesAdmin))
	mux.Handle("POST /api/page/add", protect("Writer", pageHandler.Add))
	mux.Handle("POST /api/page/edit", protect("Writer", pageHandler.Edit))
	mux.Handle("POST /api/page/delete", protect("Writer", pageHandler.Delete))

	return LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
}

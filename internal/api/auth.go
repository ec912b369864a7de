package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"parkdesk/internal/config"
)

const (
	apiKeyHeaderDefault = "x-api-key"
	clientKeyUnknown    = "unknown"

	permBookingsRead  = "bookings:read"
	permBookingsWrite = "bookings:write"
	permPaymentsRead  = "payments:read"
	permPaymentsWrite = "payments:write"
	permSlotsRead     = "slots:read"
	permSlotsWrite    = "slots:write"
	permReportsRead   = "reports:read"
	permVehiclesRead  = "vehicles:read"
	permVehiclesWrite = "vehicles:write"
	permUsersRead     = "users:read"
	permUsersWrite    = "users:write"
)

var (
	errMissingKey       = errors.New("missing api key header")
	errInvalidKey       = errors.New("invalid api key")
	errPermissionDenied = errors.New("permission denied")
)

type clientCtxKey struct{}

// HTTPAuth provides API-key auth and per-key rate limiting.
type HTTPAuth struct {
	cfg     config.APIConfig
	clients map[string]config.APIClientKey
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m, limiter: newRateLimiter(cfg.RateLimit)}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			client, err := a.checkAuth(r)
			if err != nil {
				code := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					code = http.StatusForbidden
				}
				writeError(w, code, err.Error())
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), clientCtxKey{}, client))
		}

		if !a.limiter.allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) header() string {
	if h := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey); h != "" {
		return h
	}
	return apiKeyHeaderDefault
}

func (a *HTTPAuth) checkAuth(r *http.Request) (config.APIClientKey, error) {
	apiKey := strings.TrimSpace(r.Header.Get(a.header()))
	if apiKey == "" {
		return config.APIClientKey{}, errMissingKey
	}

	var (
		client config.APIClientKey
		found  bool
	)
	for key, c := range a.clients {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			client, found = c, true
		}
	}
	if !found {
		return config.APIClientKey{}, errInvalidKey
	}

	if err := checkPermissions(client, r); err != nil {
		return config.APIClientKey{}, err
	}
	return client, nil
}

// checkPermissions allows everything when the client lists no permissions.
func checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermission(r)
	if required == "" || len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	read := r.Method == http.MethodGet || r.Method == http.MethodHead
	pick := func(readPerm, writePerm string) string {
		if read {
			return readPerm
		}
		return writePerm
	}

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/bookings"):
		return pick(permBookingsRead, permBookingsWrite)
	case strings.HasPrefix(path, "/api/v1/payments"):
		return pick(permPaymentsRead, permPaymentsWrite)
	case strings.HasPrefix(path, "/api/v1/slots"):
		return pick(permSlotsRead, permSlotsWrite)
	case strings.HasPrefix(path, "/api/v1/reports"):
		return permReportsRead
	case strings.HasPrefix(path, "/api/v1/vehicles"),
		strings.HasPrefix(path, "/api/v1/owners"),
		strings.HasPrefix(path, "/api/v1/categories"):
		return pick(permVehiclesRead, permVehiclesWrite)
	case strings.HasPrefix(path, "/api/v1/users"), path == "/api/v1/login":
		return pick(permUsersRead, permUsersWrite)
	default:
		return ""
	}
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.header())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

// actingUserID is the staff user bound to the caller's API key, 0 when unknown.
func actingUserID(r *http.Request) int64 {
	if c, ok := r.Context().Value(clientCtxKey{}).(config.APIClientKey); ok {
		return c.UserID
	}
	return 0
}

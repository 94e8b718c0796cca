package httpx

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetglass/fleetglass/internal/devices"
)

// RouterServices holds the services needed by the HTTP router.
type RouterServices struct {
	Broker       SessionBroker
	Devices      *devices.Client
	CookieDomain string
	IsDev        bool
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandlers := &AuthHandlers{
		Broker:       services.Broker,
		CookieDomain: services.CookieDomain,
		IsDev:        services.IsDev,
		Logger:       logger,
	}
	registerAuthRoutes(mux, authHandlers)

	if services.Devices != nil {
		deviceHandlers := &DeviceHandlers{Client: services.Devices, Logger: logger}
		registerDeviceRoutes(mux, deviceHandlers, services.Broker)
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /metrics", promhttp.Handler())

	chain := Recover(logger)(mux)
	chain = Logging(logger)(chain)
	chain = RequestID()(chain)
	return chain
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.EnterpriseLogin)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/consumer/signin", h.ConsumerSignIn)
	mux.HandleFunc("POST /auth/consumer/credential", h.ConsumerCredential)
	mux.HandleFunc("POST /auth/local/signup", h.LocalSignUp)
	mux.HandleFunc("POST /auth/local/confirm", h.LocalConfirm)
	mux.HandleFunc("POST /auth/local/login", h.LocalLogin)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

func registerDeviceRoutes(mux *http.ServeMux, h *DeviceHandlers, broker SessionBroker) {
	wrap := RequireSession(broker)
	mux.Handle("GET /api/devices", wrap(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/devices/{id}", wrap(http.HandlerFunc(h.Get)))
	mux.Handle("GET /api/devices/{id}/events", wrap(http.HandlerFunc(h.Events)))
	mux.Handle("GET /api/devices/{id}/trend", wrap(http.HandlerFunc(h.Trend)))
	mux.Handle("PUT /api/devices/{id}/settings", wrap(http.HandlerFunc(h.UpdateSettings)))
	mux.Handle("POST /api/me/sync", wrap(http.HandlerFunc(h.SyncMe)))
}

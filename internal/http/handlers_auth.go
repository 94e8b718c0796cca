package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	aerrors "github.com/fleetglass/fleetglass/internal/errors"
	"github.com/fleetglass/fleetglass/internal/ports"
)

// callbackPollInterval and callbackPollAttempts bound how long the redirect
// completion handler waits for the broker to install the recovered session
// before giving up and sending the visitor back to the sign-in page.
const (
	callbackPollInterval = 150 * time.Millisecond
	callbackPollAttempts = 5
)

// SessionBroker defines the broker operations the auth handlers need.
type SessionBroker interface {
	SignInEnterprise(ctx context.Context) (authURL, state, nonce string, err error)
	CompleteRedirect(ctx context.Context, cb ports.RedirectCallback) error
	SignInConsumer(ctx context.Context) (domainauth.Session, error)
	DeliverConsumerCredential(credential string) bool
	SignInLocal(ctx context.Context, email, password string) (domainauth.Session, error)
	SignUpLocal(ctx context.Context, email, password string) (domainauth.SignUpOutcome, error)
	ConfirmLocal(ctx context.Context, email, code string) error
	SignOut(ctx context.Context) string
	Session() *domainauth.Session
	State() domainauth.BrokerState
}

// AuthHandlers provides HTTP handlers for the authentication endpoints.
type AuthHandlers struct {
	Broker       SessionBroker
	CookieDomain string
	// IsDev relaxes the Secure flag on auth cookies so plain-HTTP local
	// flows work; production always sets it.
	IsDev  bool
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// EnterpriseLogin begins the enterprise redirect flow.
// GET /auth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) EnterpriseLogin(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	authURL, state, nonce, err := h.Broker.SignInEnterprise(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.setOAuthCookies(w, r, oauthCookieParams{State: state, Nonce: nonce, RedirectURI: redirectURI})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the enterprise redirect.
// GET /auth/callback?code=<code>&state=<state>.
//
// The completion is handed to the broker even when the query carries no code:
// the adapter treats an empty callback as a no-op, and the page may land here
// on a stray navigation. After completion the handler waits briefly for the
// broker to hold a session, then writes exactly one redirect: to the original
// destination when authenticated, to /login when not.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code != "" {
		stateCookie, err := r.Cookie("oauth_state")
		if err != nil || stateCookie.Value != state {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "invalid_state",
				Err:     errors.New("invalid or missing state parameter"),
			})
			return
		}
	}

	var nonce string
	if nonceCookie, err := r.Cookie("oauth_nonce"); err == nil {
		nonce = nonceCookie.Value
	}

	cb := ports.RedirectCallback{Code: code, State: state, Nonce: nonce}
	if err := h.Broker.CompleteRedirect(r.Context(), cb); err != nil {
		h.logger().WarnContext(r.Context(), "redirect completion failed", "error", err)
	}

	h.clearCookie(w, r, "oauth_state")
	h.clearCookie(w, r, "oauth_nonce")

	if h.awaitSession(r.Context()) {
		http.Redirect(w, r, h.getPostLoginRedirect(w, r), http.StatusFound)
		return
	}
	// Unauthenticated visitors land here on stray navigations; not an error.
	h.logger().DebugContext(r.Context(), "no session after redirect completion",
		"error", aerrors.RedirectNotCompleted())
	http.Redirect(w, r, "/login", http.StatusFound)
}

// awaitSession polls the broker for a held session on a short fixed cadence.
// Completion installs the session asynchronously relative to the page load,
// so the first check may race ahead of it.
func (h *AuthHandlers) awaitSession(ctx context.Context) bool {
	for attempt := 0; attempt < callbackPollAttempts; attempt++ {
		if h.Broker.Session() != nil {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(callbackPollInterval):
		}
	}
	return h.Broker.Session() != nil
}

// ConsumerSignIn awaits the one-tap credential delivery.
// POST /auth/consumer/signin.
func (h *AuthHandlers) ConsumerSignIn(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Broker.SignInConsumer(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sessionPayload(&sess))
}

// ConsumerCredential receives the signed credential posted by the one-tap
// widget and hands it to a waiting sign-in.
// POST /auth/consumer/credential (form-encoded, field "credential").
func (h *AuthHandlers) ConsumerCredential(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
		return
	}
	credential := r.PostFormValue("credential")

	if !h.Broker.DeliverConsumerCredential(credential) {
		WriteError(w, ErrorParams{
			Code:    http.StatusConflict,
			ErrCode: "no_pending_sign_in",
			Err:     errors.New("no consumer sign-in is waiting for a credential"),
		})
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]bool{"delivered": true})
}

type localCredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type localConfirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// LocalSignUp registers a new directory account.
// POST /auth/local/signup.
func (h *AuthHandlers) LocalSignUp(w http.ResponseWriter, r *http.Request) {
	var req localCredentialsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	outcome, err := h.Broker.SignUpLocal(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}

// LocalConfirm submits the emailed confirmation code.
// POST /auth/local/confirm.
func (h *AuthHandlers) LocalConfirm(w http.ResponseWriter, r *http.Request) {
	var req localConfirmRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Broker.ConfirmLocal(r.Context(), req.Email, req.Code); err != nil {
		WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LocalLogin authenticates against the user directory.
// POST /auth/local/login.
func (h *AuthHandlers) LocalLogin(w http.ResponseWriter, r *http.Request) {
	var req localCredentialsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess, err := h.Broker.SignInLocal(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sessionPayload(&sess))
}

// Logout signs the current session out.
// POST /auth/logout.
//
// Sign-out never fails outwardly: local state is always cleared, and the
// only variation is where the visitor goes next. An enterprise sign-out
// yields the provider's logout URL; other providers go straight to /login.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	logoutURL := h.Broker.SignOut(r.Context())
	if logoutURL == "" {
		logoutURL = "/login"
	}

	isAJAX := strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
	if isAJAX {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": logoutURL,
		})
		return
	}
	http.Redirect(w, r, logoutURL, http.StatusFound)
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	state := h.Broker.State()
	sess := h.Broker.Session()

	body := map[string]any{
		"state":         string(state),
		"loading":       state == domainauth.StateLoading,
		"authenticated": sess != nil,
	}
	if sess != nil {
		body["user"] = sessionPayload(sess)
	}
	WriteJSON(w, http.StatusOK, body)
}

// sessionPayload renders the client-facing view of a session. Captured
// tokens stay server-side.
func sessionPayload(sess *domainauth.Session) map[string]any {
	return map[string]any{
		"provider": string(sess.Provider),
		"userId":   sess.UserID,
		"email":    sess.Email,
		"name":     sess.Name,
	}
}

// secureCookies reports whether auth cookies must carry the Secure flag.
func (h *AuthHandlers) secureCookies(r *http.Request) bool {
	if !h.IsDev {
		return true
	}
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// clearCookie clears a cookie by setting it to expire immediately.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   h.secureCookies(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// oauthCookieParams groups values needed to set the redirect-flow cookies.
type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

// setOAuthCookies stores state, nonce, and the post-login redirect in secure cookies.
func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	secure := h.secureCookies(r)

	set := func(name, value string) {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   h.CookieDomain,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   600, // 10 minutes
		})
	}
	set("oauth_state", p.State)
	set("oauth_nonce", p.Nonce)
	set("post_login_redirect", p.RedirectURI)
}

// getPostLoginRedirect returns the post-login redirect URL and clears the cookie.
func (h *AuthHandlers) getPostLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	redirectURI := "/"
	if redirectCookie, err := r.Cookie("post_login_redirect"); err == nil {
		redirectURI = safeRedirectPath(redirectCookie.Value)
		h.clearCookie(w, r, "post_login_redirect")
	}
	return redirectURI
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}

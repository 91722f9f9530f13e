package httpapi

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/auth"
)

const (
	loginPath   = "/agent/login"
	agentHome   = "/agent/search"
	noticeParam = "notice"
	expiredCode = "session_expired"
)

// SessionMiddleware resolves the browser session scope and attaches its
// gate to the request context. Health and metrics checks skip it so they
// never mint cookies.
func (h *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		scope, err := h.cookies.Scope(w, r)
		if err != nil {
			log.Printf("scope cookie error=%v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "session unavailable")
			return
		}
		gate := h.registry.Gate(r.Context(), scope)
		next.ServeHTTP(w, r.WithContext(auth.WithGate(r.Context(), gate)))
	})
}

// gateForRequest finds the gate for requests that did not pass through
// SessionMiddleware with their context intact, such as SockJS polling.
func (h *Handler) gateForRequest(r *http.Request) (*auth.Gate, bool) {
	if gate, ok := auth.FromContext(r.Context()); ok {
		return gate, true
	}
	cookie, err := r.Cookie(scopeCookieName)
	if err != nil {
		return nil, false
	}
	scope, err := h.cookies.Decode(cookie.Value)
	if err != nil {
		return nil, false
	}
	return h.registry.Gate(r.Context(), scope), true
}

func currentUser(r *http.Request) (auth.User, bool) {
	gate, ok := auth.FromContext(r.Context())
	if !ok {
		return auth.User{}, false
	}
	return gate.Current()
}

func scopeOf(r *http.Request) string {
	gate, ok := auth.FromContext(r.Context())
	if !ok {
		return ""
	}
	return gate.Scope()
}

func requireUser(w http.ResponseWriter, r *http.Request) (auth.User, bool) {
	user, ok := currentUser(r)
	if !ok {
		redirectToLogin(w, r, "")
		return auth.User{}, false
	}
	return user, true
}

// requireAdmin sends agents back to their own landing page rather than
// showing a forbidden page.
func requireAdmin(w http.ResponseWriter, r *http.Request) (auth.User, bool) {
	user, ok := requireUser(w, r)
	if !ok {
		return auth.User{}, false
	}
	if !user.IsAdmin() {
		http.Redirect(w, r, agentHome, http.StatusSeeOther)
		return auth.User{}, false
	}
	return user, true
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, notice string) {
	http.Redirect(w, r, loginURL(r, notice), http.StatusSeeOther)
}

func redirectExpired(w http.ResponseWriter, r *http.Request) {
	redirectToLogin(w, r, expiredCode)
}

func loginURL(r *http.Request, notice string) string {
	values := url.Values{}
	if r != nil && r.Method == http.MethodGet {
		values.Set("next", r.URL.RequestURI())
	}
	if notice != "" {
		values.Set(noticeParam, notice)
	}
	if len(values) == 0 {
		return loginPath
	}
	return loginPath + "?" + values.Encode()
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	if strings.HasPrefix(next, loginPath) {
		return ""
	}
	return next
}

func landingFor(next string) string {
	if next != "" {
		return next
	}
	return agentHome
}

func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return true
	default:
		return false
	}
}

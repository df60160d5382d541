package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cardfile/cardfile/internal/service"
	"github.com/cardfile/cardfile/internal/store"
	"github.com/cardfile/cardfile/pkg/httpx"
	"github.com/cardfile/cardfile/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	AuthService    *service.AuthService
	UserService    *service.UserService
	ContactService *service.ContactService

	// AvatarDir, when set, is served read-only under /avatars/.
	AvatarDir string
}

func NewRouter(st store.Store, logger *slog.Logger, buildVersion string) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuthentication()
	r.registerUsers()
	r.registerContacts()
	r.registerSystem()

	if r.AvatarDir != "" {
		r.Mux.Handle("GET /avatars/",
			http.StripPrefix("/avatars/", http.FileServer(http.Dir(r.AvatarDir))))
	}
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuthentication() {
	signup := &SignupHandler{AuthService: r.AuthService}
	login := &LoginHandler{AuthService: r.AuthService}
	confirm := &ConfirmEmailHandler{AuthService: r.AuthService}
	refresh := &RefreshHandler{AuthService: r.AuthService}
	request := &RequestEmailHandler{AuthService: r.AuthService}

	// Signup and login are credential endpoints: strict limits. Login is
	// additionally keyed by the submitted email so one IP cannot brute
	// force many accounts in parallel.
	r.Mux.Handle("POST /api/authentication/signup",
		httpx.Chain(signup,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/authentication/login",
		httpx.Chain(login,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)

	// Confirmation links arrive from mail clients; strict is still plenty.
	r.Mux.Handle("GET /api/authentication/confirmed_email/{token}",
		httpx.Chain(confirm,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("GET /api/authentication/refresh_token",
		httpx.Chain(refresh,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/authentication/request_email",
		httpx.Chain(request,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	me := &MeHandler{}
	avatar := &AvatarHandler{UserService: r.UserService}

	r.Mux.Handle("GET /api/users/me",
		httpx.Chain(me,
			AuthnMiddleware(r.AuthService),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /api/users/avatar",
		httpx.Chain(avatar,
			AuthnMiddleware(r.AuthService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerContacts() {
	h := &ContactsHandler{ContactService: r.ContactService}

	secured := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			AuthnMiddleware(r.AuthService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /api/contacts", secured(http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("POST /api/contacts", secured(http.HandlerFunc(h.HandleCreate)))
	r.Mux.Handle("GET /api/contacts/{id}", secured(http.HandlerFunc(h.HandleGet)))
	r.Mux.Handle("PUT /api/contacts/{id}", secured(http.HandlerFunc(h.HandleUpdate)))
	r.Mux.Handle("DELETE /api/contacts/{id}", secured(http.HandlerFunc(h.HandleDelete)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}

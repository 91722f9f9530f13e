package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/apiclient"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/auth"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/detail"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/importer"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/search"
)

// API is the slice of the remote API client the portal uses.
type API interface {
	Login(ctx context.Context, credentials models.LoginRequest) (models.LoginResponse, error)
	search.Searcher
	detail.Fetcher
	importer.Uploader
}

type Options struct {
	Registry *auth.Registry
	API      API
	Tracker  *importer.Tracker
	Cookies  *CookieCodec
	Limiter  *RateLimiter

	AdminIdentifiers []string
	SearchDebounce   time.Duration
	SearchMinLength  int
	ImportMaxBytes   int64
}

type Handler struct {
	registry *auth.Registry
	api      API
	tracker  *importer.Tracker
	cookies  *CookieCodec
	limiter  *RateLimiter

	admins          map[string]struct{}
	searchDebounce  time.Duration
	searchMinLength int
	importMaxBytes  int64
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(options Options) *Handler {
	admins := make(map[string]struct{}, len(options.AdminIdentifiers))
	for _, identifier := range options.AdminIdentifiers {
		admins[strings.ToLower(strings.TrimSpace(identifier))] = struct{}{}
	}
	maxBytes := options.ImportMaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	limiter := options.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(RateLimitConfig{})
	}
	return &Handler{
		registry:        options.Registry,
		api:             options.API,
		tracker:         options.Tracker,
		cookies:         options.Cookies,
		limiter:         limiter,
		admins:          admins,
		searchDebounce:  options.SearchDebounce,
		searchMinLength: options.SearchMinLength,
		importMaxBytes:  maxBytes,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/", h.handleRoot)
	mux.HandleFunc("/about", h.handleMarketing("about", "About Us"))
	mux.HandleFunc("/services", h.handleMarketing("services", "Our Services"))
	mux.HandleFunc("/faq", h.handleMarketing("faq", "Frequently Asked Questions"))
	mux.HandleFunc("/contact", h.handleMarketing("contact", "Contact Us"))
	mux.HandleFunc("/privacy", h.handleMarketing("privacy", "Privacy Policy"))
	mux.HandleFunc("/terms", h.handleMarketing("terms", "Terms of Service"))

	mux.HandleFunc("/agent/login", h.handleLogin)
	mux.HandleFunc("/agent/logout", h.handleLogout)
	mux.HandleFunc("/agent/search", h.handleSearch)
	mux.HandleFunc("/agent/customer/", h.handleCustomer)
	mux.Handle("/agent/live/", h.liveSearchHandler())

	mux.HandleFunc("/admin/import", h.handleImport)
	mux.HandleFunc("/admin/import/", h.handleImportActions)
	return h.SessionMiddleware(mux)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.notFound(w, r)
		return
	}
	h.handleMarketing("landing", "Insurance Claims Made Easy")(w, r)
}

func (h *Handler) handleMarketing(page, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.render(w, r, http.StatusOK, page, title, nil, nil)
	}
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "notfound", "Page Not Found", nil, nil)
}

type loginPage struct {
	Email string
	Next  string
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		next := safeNext(r.URL.Query().Get("next"))
		if _, ok := currentUser(r); ok {
			http.Redirect(w, r, landingFor(next), http.StatusSeeOther)
			return
		}
		h.render(w, r, http.StatusOK, "login", "Agent Login", noticeFromQuery(r), loginPage{Next: next})
	case http.MethodPost:
		h.submitLogin(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) submitLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "login", "Agent Login", &notice{Title: "Login failed", Description: "Invalid form submission.", Destructive: true}, loginPage{})
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	page := loginPage{Email: email, Next: safeNext(r.PostFormValue("next"))}

	if wait, ok := h.limiter.AllowLogin(r); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		h.render(w, r, http.StatusTooManyRequests, "login", "Agent Login", &notice{Title: "Too many attempts", Description: "Please wait a minute before trying again.", Destructive: true}, page)
		return
	}
	if email == "" || password == "" {
		h.render(w, r, http.StatusBadRequest, "login", "Agent Login", &notice{Title: "Login failed", Description: "Email and password are required.", Destructive: true}, page)
		return
	}

	gate, ok := auth.FromContext(r.Context())
	if !ok {
		h.render(w, r, http.StatusInternalServerError, "login", "Agent Login", &notice{Title: "Login failed", Description: "Session unavailable.", Destructive: true}, page)
		return
	}

	resp, err := h.api.Login(r.Context(), models.LoginRequest{Email: email, Password: password})
	if err == nil && resp.Token == "" {
		err = errors.New("login response carried no token")
	}
	if err != nil {
		log.Printf("login failed identifier=%s error=%v", email, err)
		n := noticeFor(err)
		if errors.Is(err, apiclient.ErrUnauthorized) {
			n = notice{Title: "Login failed", Description: "Invalid email or password.", Destructive: true}
		}
		h.render(w, r, statusFor(err), "login", "Agent Login", &n, page)
		return
	}

	role := h.resolveRole(resp.Role, email)
	if err := gate.Login(r.Context(), resp.Token, email, role); err != nil {
		log.Printf("session persist failed scope=%s error=%v", gate.Scope(), err)
		h.render(w, r, http.StatusInternalServerError, "login", "Agent Login", &notice{Title: "Login failed", Description: "Could not start your session. Please try again.", Destructive: true}, page)
		return
	}
	http.Redirect(w, r, landingFor(page.Next), http.StatusSeeOther)
}

func (h *Handler) resolveRole(reported, identifier string) models.Role {
	if role, ok := models.ParseRole(strings.ToLower(strings.TrimSpace(reported))); ok {
		return role
	}
	if _, ok := h.admins[strings.ToLower(identifier)]; ok {
		return models.RoleAdmin
	}
	return models.RoleAgent
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if gate, ok := auth.FromContext(r.Context()); ok {
		if err := gate.Logout(r.Context()); err != nil {
			log.Printf("logout scope=%s error=%v", gate.Scope(), err)
		}
	}
	http.Redirect(w, r, "/agent/login", http.StatusSeeOther)
}

type searchPage struct {
	Modes      []models.SearchMode
	Mode       models.SearchMode
	Query      string
	Rows       search.Rows
	Searched   bool
	MinLength  int
	DebounceMS int64
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	mode, ok := models.ParseSearchMode(r.URL.Query().Get("by"))
	if !ok {
		mode = models.SearchByID
	}
	page := searchPage{
		Modes:      models.SearchModes,
		Mode:       mode,
		Query:      r.URL.Query().Get("q"),
		Rows:       search.Rows{Mode: mode},
		MinLength:  h.searchMinLength,
		DebounceMS: h.searchDebounce.Milliseconds(),
	}

	var n *notice
	if search.Eligible(page.Query, h.searchMinLength) {
		rows, err := search.Execute(r.Context(), h.api, mode, page.Query, user.Token)
		if errors.Is(err, apiclient.ErrUnauthorized) {
			redirectExpired(w, r)
			return
		}
		if err != nil {
			log.Printf("search failed mode=%s error=%v", mode, err)
			failure := noticeFor(err)
			failure.Title = "Search failed"
			n = &failure
		}
		page.Rows = rows
		page.Searched = true
	}
	h.render(w, r, http.StatusOK, "search", "Customer Search", n, page)
}

type customerPage struct {
	Customer  models.Customer
	Plans     []models.Plan
	Total     int
	Filter    detail.Filter
	Insurers  []string
	Statuses  []string
	NotFound  bool
	AllOption string
}

func (h *Handler) handleCustomer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/agent/customer/"), "/")
	if id == "" || strings.Contains(id, "/") {
		h.notFound(w, r)
		return
	}

	view, err := detail.Load(r.Context(), h.api, id, user.Token)
	if errors.Is(err, apiclient.ErrUnauthorized) {
		redirectExpired(w, r)
		return
	}
	if err != nil {
		log.Printf("customer load id=%s error=%v", id, err)
		n := noticeFor(err)
		h.render(w, r, statusFor(err), "customer", "Customer Not Found", &n, customerPage{NotFound: true})
		return
	}

	filter := detail.FilterFromQuery(r.URL.Query())
	page := customerPage{
		Customer:  view.Customer,
		Plans:     filter.Apply(view.Plans),
		Total:     len(view.Plans),
		Filter:    filter,
		Insurers:  detail.Insurers(view.Plans),
		Statuses:  detail.Statuses(view.Plans),
		AllOption: detail.All,
	}
	h.render(w, r, http.StatusOK, "customer", view.Customer.FullName, nil, page)
}

type importPage struct {
	Required []string
	File     *importer.File
	Preview  *importer.Preview
	Job      *jobView
	MaxMB    int64
}

type jobView struct {
	ID       string              `json:"id"`
	FileName string              `json:"file_name"`
	Progress int                 `json:"progress"`
	Done     bool                `json:"done"`
	Result   *models.ImportResult `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
}

func newJobView(job *importer.Job) *jobView {
	view := &jobView{ID: job.ID, FileName: job.FileName, Progress: job.Progress(), Done: job.Finished()}
	if !view.Done {
		return view
	}
	if err := job.Err(); err != nil {
		n := noticeFor(err)
		view.Error = n.Title + ": " + n.Description
		return view
	}
	result := job.Result()
	view.Result = &result
	return view
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	h.renderImport(w, r, http.StatusOK, nil)
}

func (h *Handler) renderImport(w http.ResponseWriter, r *http.Request, status int, n *notice) {
	scope := scopeOf(r)
	page := importPage{Required: importer.RequiredColumns, MaxMB: h.importMaxBytes >> 20}
	if file, ok := h.tracker.Slot(scope).Peek(); ok {
		page.File = &file
		if preview, err := importer.BuildPreview(file); err == nil {
			page.Preview = &preview
		}
	}
	if job, ok := h.tracker.Latest(scope); ok {
		page.Job = newJobView(job)
	}
	h.render(w, r, status, "import", "Import Customer Data", n, page)
}

func (h *Handler) handleImportActions(w http.ResponseWriter, r *http.Request) {
	user, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/import/"), "/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && parts[0] == "select":
		h.handleImportSelect(w, r)
	case len(parts) == 1 && parts[0] == "upload":
		h.handleImportUpload(w, r, user)
	case len(parts) == 1 && parts[0] == "reset":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.tracker.Reset(scopeOf(r))
		http.Redirect(w, r, "/admin/import", http.StatusSeeOther)
	case len(parts) == 2 && parts[0] == "jobs":
		h.handleImportJob(w, r, parts[1])
	default:
		h.notFound(w, r)
	}
}

func (h *Handler) handleImportSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.importMaxBytes+(1<<20))
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.renderImport(w, r, http.StatusRequestEntityTooLarge, &notice{Title: "File too large", Description: fmt.Sprintf("Files up to %dMB are accepted.", h.importMaxBytes>>20), Destructive: true})
			return
		}
		n := noticeFor(importer.ErrNoFile)
		h.renderImport(w, r, http.StatusBadRequest, &n)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	part, header, err := r.FormFile("file")
	if err != nil {
		n := noticeFor(importer.ErrNoFile)
		h.renderImport(w, r, http.StatusBadRequest, &n)
		return
	}
	defer part.Close()

	contentType := header.Header.Get("Content-Type")
	// Reject before reading the payload so a wrong file never costs memory.
	if err := importer.Validate(header.Filename, contentType); err != nil {
		n := noticeFor(err)
		h.renderImport(w, r, http.StatusUnprocessableEntity, &n)
		return
	}
	if header.Size > h.importMaxBytes {
		h.renderImport(w, r, http.StatusRequestEntityTooLarge, &notice{Title: "File too large", Description: fmt.Sprintf("Files up to %dMB are accepted.", h.importMaxBytes>>20), Destructive: true})
		return
	}
	data, err := readAllLimited(part, h.importMaxBytes)
	if err != nil {
		n := noticeFor(err)
		h.renderImport(w, r, http.StatusBadRequest, &n)
		return
	}

	file := importer.File{Name: header.Filename, ContentType: contentType, Size: int64(len(data)), Data: data}
	if err := h.tracker.Select(scopeOf(r), file); err != nil {
		n := noticeFor(err)
		h.renderImport(w, r, http.StatusUnprocessableEntity, &n)
		return
	}
	http.Redirect(w, r, "/admin/import", http.StatusSeeOther)
}

func (h *Handler) handleImportUpload(w http.ResponseWriter, r *http.Request, user auth.User) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	job, err := h.tracker.Start(r.Context(), scopeOf(r), h.api, user.Token)
	if err != nil {
		n := noticeFor(err)
		h.renderImport(w, r, http.StatusBadRequest, &n)
		return
	}
	log.Printf("import started job=%s file=%s bytes=%d", job.ID, job.FileName, job.Size)
	http.Redirect(w, r, "/admin/import/jobs/"+job.ID, http.StatusSeeOther)
}

func (h *Handler) handleImportJob(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	job, ok := h.tracker.Job(scopeOf(r), id)
	if !ok {
		if wantsJSON(r) {
			writeError(w, http.StatusNotFound, "job_not_found", "import job not found")
			return
		}
		h.notFound(w, r)
		return
	}
	if job.Finished() && errors.Is(job.Err(), apiclient.ErrUnauthorized) {
		if wantsJSON(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "session expired")
			return
		}
		redirectExpired(w, r)
		return
	}
	view := newJobView(job)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	h.render(w, r, http.StatusOK, "import_job", "Import Progress", nil, view)
}

func wantsJSON(r *http.Request) bool {
	return r.URL.Query().Get("format") == "json" || strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

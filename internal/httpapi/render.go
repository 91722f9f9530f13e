package httpapi

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/apiclient"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/auth"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/detail"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/importer"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var errFileTooLarge = errors.New("file too large")

var pageNames = []string{
	"landing", "about", "services", "faq", "contact", "privacy", "terms", "notfound",
	"login", "search", "customer", "import", "import_job",
}

var templateFuncs = template.FuncMap{
	"modeLabel": func(mode models.SearchMode) string {
		switch mode {
		case models.SearchByID:
			return "By ID"
		case models.SearchByPhone:
			return "By Phone"
		default:
			return "By Name"
		}
	},
	"lower": strings.ToLower,
}

var pages = parsePages()

func parsePages() map[string]*template.Template {
	parsed := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		parsed[name] = template.Must(template.New("layout.html").Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return parsed
}

// notice is a transient message shown at the top of a page or pushed over
// the live search channel.
type notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive"`
}

// noticeFor turns any workflow error into something a user can act on.
// Raw error text never reaches a page.
func noticeFor(err error) notice {
	if status, ok := apiclient.StatusOf(err); ok {
		return notice{Title: fmt.Sprintf("Request failed (HTTP %d)", status), Description: "The server could not complete the request. Please try again.", Destructive: true}
	}
	var netErr *apiclient.NetworkError
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		return notice{Title: "Session expired", Description: "Please log in again.", Destructive: true}
	case errors.As(err, &netErr):
		return notice{Title: "Unable to reach server", Description: "Check your connection and try again.", Destructive: true}
	case errors.Is(err, importer.ErrUnsupportedFile):
		return notice{Title: "Invalid file type", Description: "Please select a CSV or XLSX file.", Destructive: true}
	case errors.Is(err, importer.ErrNoFile):
		return notice{Title: "No file selected", Description: "Choose a CSV or XLSX file to import.", Destructive: true}
	case errors.Is(err, errFileTooLarge):
		return notice{Title: "File too large", Description: "The selected file exceeds the upload limit.", Destructive: true}
	case errors.Is(err, detail.ErrNotFound):
		return notice{Title: "Customer not found", Description: "No customer matches this ID.", Destructive: true}
	default:
		return notice{Title: "Something went wrong", Description: "Please try again.", Destructive: true}
	}
}

func statusFor(err error) int {
	var (
		httpErr *apiclient.HTTPError
		netErr  *apiclient.NetworkError
	)
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, detail.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &httpErr), errors.As(err, &netErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func noticeFromQuery(r *http.Request) *notice {
	if r.URL.Query().Get(noticeParam) == expiredCode {
		n := noticeFor(apiclient.ErrUnauthorized)
		return &n
	}
	return nil
}

type pageView struct {
	Title    string
	Path     string
	User     auth.User
	LoggedIn bool
	Notice   *notice
	Site     marketingContent
	Data     interface{}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, n *notice, data interface{}) {
	tmpl, ok := pages[name]
	if !ok {
		log.Printf("render unknown page=%s", name)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	view := pageView{Title: title, Path: r.URL.Path, Notice: n, Site: siteContent, Data: data}
	view.User, view.LoggedIn = currentUser(r)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		log.Printf("render page=%s error=%v", name, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errFileTooLarge
	}
	return data, nil
}

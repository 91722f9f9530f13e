package apiclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
)

const MockToken = "mock_jwt_token_123"

var (
	mockCustomerPath = regexp.MustCompile(`/customers/(\d+)$`)
	mockPoliciesPath = regexp.MustCompile(`/customers/(\d+)/policies$`)
)

// MockTransport answers API requests from in-memory fixtures after a fixed
// delay. Unknown paths get a 200 with {"error":"Not found"}.
type MockTransport struct {
	Delay     time.Duration
	Token     string
	Customers []models.Customer
	Plans     []models.Plan
}

func NewMockTransport(delay time.Duration) *MockTransport {
	return &MockTransport{
		Delay: delay,
		Token: MockToken,
		Customers: []models.Customer{
			{ID: "1", FullName: "John Doe", Email: "john.doe@email.com", PhoneE164: "+919876543210", City: "Mumbai"},
			{ID: "2", FullName: "Jane Smith", Email: "jane.smith@email.com", PhoneE164: "+919876543211", City: "Delhi"},
			{ID: "3", FullName: "Raj Patel", Email: "raj.patel@email.com", PhoneE164: "+919876543212", City: "Bangalore"},
		},
		Plans: []models.Plan{
			{ID: "1", ExternalPlanID: "POL001", PlanName: "Health Insurance Premium", InsurerName: "HDFC ERGO", StartDate: "2024-01-01", EndDate: "2024-12-31", Status: "Active"},
			{ID: "2", ExternalPlanID: "POL002", PlanName: "Life Insurance", InsurerName: "LIC India", StartDate: "2024-01-01", EndDate: "2025-12-31", Status: "Active"},
		},
	}
}

func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
		_ = req.Body.Close()
	}

	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	body, err := json.Marshal(m.respond(req.Method, req.URL))
	if err != nil {
		return nil, err
	}
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}

func (m *MockTransport) respond(method string, u *url.URL) interface{} {
	path := u.Path
	switch {
	case strings.HasSuffix(path, "/auth/login") && method == http.MethodPost:
		return map[string]string{"token": m.Token}
	case strings.HasSuffix(path, "/customers/search"):
		return m.search(u.Query())
	case mockCustomerPath.MatchString(path):
		id := mockCustomerPath.FindStringSubmatch(path)[1]
		for _, customer := range m.Customers {
			if customer.ID == id {
				return customer
			}
		}
		return nil
	case mockPoliciesPath.MatchString(path):
		return map[string]interface{}{"policies": m.Plans, "total": len(m.Plans)}
	default:
		return map[string]string{"error": "Not found"}
	}
}

func (m *MockTransport) search(params url.Values) interface{} {
	mode, _ := models.ParseSearchMode(params.Get("by"))
	q := params.Get("q")

	results := []models.Customer{}
	if q != "" {
		switch mode {
		case models.SearchByName:
			needle := strings.ToLower(q)
			for _, customer := range m.Customers {
				if strings.Contains(strings.ToLower(customer.FullName), needle) {
					results = append(results, customer)
				}
			}
		case models.SearchByPhone:
			for _, customer := range m.Customers {
				if customer.PhoneE164 != "" && strings.Contains(customer.PhoneE164, q) {
					results = append(results, customer)
				}
			}
		case models.SearchByID:
			for _, customer := range m.Customers {
				if customer.ID == q {
					return map[string]interface{}{"plans": m.Plans, "total": len(m.Plans)}
				}
			}
		}
	}
	return map[string]interface{}{"customers": results, "total": len(results)}
}

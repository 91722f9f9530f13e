package models

type Customer struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email,omitempty"`
	PhoneE164 string `json:"phone_e164,omitempty"`
	City      string `json:"city,omitempty"`
}

// Plan is a policy or loan record. ExternalPlanID is the identifier agents
// quote to customers; ID is internal to the remote API.
type Plan struct {
	ID             string `json:"id"`
	ExternalPlanID string `json:"external_plan_id"`
	PlanName       string `json:"plan_name,omitempty"`
	InsurerName    string `json:"insurer_name,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	Status         string `json:"status,omitempty"`
}

type SearchMode string

const (
	SearchByID    SearchMode = "id"
	SearchByPhone SearchMode = "phone"
	SearchByName  SearchMode = "name"
)

var SearchModes = []SearchMode{SearchByID, SearchByPhone, SearchByName}

func ParseSearchMode(value string) (SearchMode, bool) {
	switch SearchMode(value) {
	case SearchByID, SearchByPhone, SearchByName:
		return SearchMode(value), true
	default:
		return "", false
	}
}

// SearchResult carries customers for phone/name searches and plans for id
// searches. Either collection may be absent in the response.
type SearchResult struct {
	Customers []Customer `json:"customers,omitempty"`
	Plans     []Plan     `json:"plans,omitempty"`
	Total     int        `json:"total"`
}

type PolicyList struct {
	Policies []Plan `json:"policies"`
	Total    int    `json:"total"`
}

package detail

import (
	"net/url"
	"strings"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
)

// All disables the status or insurer filter.
const All = "all"

type Filter struct {
	Text    string
	Status  string
	Insurer string
}

// FilterFromQuery keeps the text filter as typed; surrounding spaces take part
// in the match.
func FilterFromQuery(values url.Values) Filter {
	f := Filter{
		Text:    values.Get("q"),
		Status:  values.Get("status"),
		Insurer: values.Get("insurer"),
	}
	if f.Status == "" {
		f.Status = All
	}
	if f.Insurer == "" {
		f.Insurer = All
	}
	return f
}

// Match applies every active filter; the text filter matches the external
// plan id, plan name or insurer name, case-insensitively.
func (f Filter) Match(plan models.Plan) bool {
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(plan.ExternalPlanID), needle) &&
			!strings.Contains(strings.ToLower(plan.PlanName), needle) &&
			!strings.Contains(strings.ToLower(plan.InsurerName), needle) {
			return false
		}
	}
	if f.Status != "" && f.Status != All && plan.Status != f.Status {
		return false
	}
	if f.Insurer != "" && f.Insurer != All && plan.InsurerName != f.Insurer {
		return false
	}
	return true
}

// Apply returns the matching plans in input order.
func (f Filter) Apply(plans []models.Plan) []models.Plan {
	out := make([]models.Plan, 0, len(plans))
	for _, plan := range plans {
		if f.Match(plan) {
			out = append(out, plan)
		}
	}
	return out
}

func (f Filter) Active() bool {
	return f.Text != "" || (f.Status != "" && f.Status != All) || (f.Insurer != "" && f.Insurer != All)
}

func Insurers(plans []models.Plan) []string {
	return distinct(plans, func(p models.Plan) string { return p.InsurerName })
}

func Statuses(plans []models.Plan) []string {
	return distinct(plans, func(p models.Plan) string { return p.Status })
}

func distinct(plans []models.Plan, field func(models.Plan) string) []string {
	seen := make(map[string]struct{}, len(plans))
	out := []string{}
	for _, plan := range plans {
		value := field(plan)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

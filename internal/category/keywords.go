package category

import "strings"

// slugKeywords expands short, generic category names into related terms so
// that embeddings carry enough signal. Keyed by category slug.
var slugKeywords = map[string][]string{
	"software":        {"subscription", "saas", "license", "hosting", "cloud services", "app"},
	"office-supplies": {"stationery", "paper", "printer", "toner", "desk"},
	"travel":          {"flight", "hotel", "train", "taxi", "mileage", "accommodation"},
	"meals":           {"restaurant", "lunch", "dinner", "catering", "coffee"},
	"marketing":       {"advertising", "ads", "campaign", "sponsoring", "promotion"},
	"utilities":       {"electricity", "water", "gas", "internet", "phone"},
	"rent":            {"lease", "office space", "premises", "real estate"},
	"insurance":       {"liability", "premium", "coverage", "policy"},
	"hardware":        {"computer", "laptop", "monitor", "equipment", "peripherals"},
	"shipping":        {"postage", "courier", "freight", "delivery"},
	"legal":           {"attorney", "lawyer", "notary", "contract review"},
	"accounting":      {"bookkeeping", "tax advisor", "audit", "payroll"},
	"training":        {"course", "workshop", "conference", "certification", "education"},
	"vehicle":         {"fuel", "car", "parking", "maintenance", "leasing"},
	"bank-fees":       {"account fee", "transaction fee", "interest", "charges"},
}

// keywordExpansion returns the static keyword list for a slug, or nil when
// the slug has no expansion.
func keywordExpansion(slug string) []string {
	return slugKeywords[strings.ToLower(strings.TrimSpace(slug))]
}

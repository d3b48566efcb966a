package journals

import "strings"

type suggestionRule struct {
	keywords []string
	codes    []string
}

var suggestionRules = []suggestionRule{
	{keywords: []string{"fuel", "gas"}, codes: []string{"6250"}},
	{keywords: []string{"material", "shingle", "nail"}, codes: []string{"1300", "5000"}},
	{keywords: []string{"truck", "vehicle", "equipment"}, codes: []string{"1500", "2100"}},
	{keywords: []string{"insurance"}, codes: []string{"6200"}},
	{keywords: []string{"rent"}, codes: []string{"6100"}},
	{keywords: []string{"utility", "electric", "water"}, codes: []string{"6300"}},
	{keywords: []string{"payment received", "customer payment"}, codes: []string{"1010", "1200"}},
	{keywords: []string{"subcontractor", "labor"}, codes: []string{"6400"}},
}

// GetAccountSuggestions keyword-matches a free-text description against
// roofing terms and returns candidate account codes without duplicates.
func GetAccountSuggestions(description string) []string {
	desc := strings.ToLower(description)
	seen := make(map[string]struct{})
	out := []string{}
	for _, rule := range suggestionRules {
		for _, kw := range rule.keywords {
			if !strings.Contains(desc, kw) {
				continue
			}
			for _, code := range rule.codes {
				if _, dup := seen[code]; !dup {
					seen[code] = struct{}{}
					out = append(out, code)
				}
			}
			break
		}
	}
	return out
}

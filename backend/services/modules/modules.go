// Package modules tracks the Founder OS checklist: a fixed, ordered set of
// modules completed per client session. It is independent of course
// enrollments and XP.
package modules

type Module struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

func DefaultModules() []Module {
	return []Module{
		{ID: "ideation", Title: "Find a problem worth solving", Order: 1},
		{ID: "market-research", Title: "Size the market", Order: 2},
		{ID: "customer-discovery", Title: "Talk to customers", Order: 3},
		{ID: "mvp", Title: "Build the smallest useful product", Order: 4},
		{ID: "branding", Title: "Name and brand", Order: 5},
		{ID: "business-model", Title: "Make the numbers work", Order: 6},
		{ID: "pitch", Title: "Pitch your startup", Order: 7},
	}
}

// IDs returns the module identifiers in order.
func IDs(mods []Module) []string {
	ids := make([]string, len(mods))
	for i, m := range mods {
		ids[i] = m.ID
	}
	return ids
}

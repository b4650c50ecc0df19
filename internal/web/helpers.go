package web

import (
	"slices"
	"strings"

	"github.com/bcnelson/sendernet-subscriptions/internal/auth"
	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
	"github.com/bcnelson/sendernet-subscriptions/internal/validation"
)

// toFlashes converts service notices into flashes.
func toFlashes(notices []domain.Notice) []auth.Flash {
	flashes := make([]auth.Flash, 0, len(notices))
	for _, n := range notices {
		flashes = append(flashes, auth.Flash{Level: string(n.Level), Message: n.Message})
	}
	return flashes
}

// fieldErrors keeps the first message per field for inline display.
func fieldErrors(errs validation.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

// selectedSet turns posted group ids into a lookup set.
func selectedSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}

// missingSelections lists selected ids that are not among the options, so a
// saved selection survives when the provider cannot list groups.
func missingSelections(opts domain.GroupOptions, selected map[string]bool) []string {
	known := opts.Map()
	var missing []string
	for id := range selected {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	return missing
}

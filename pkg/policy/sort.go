package policy

import "sort"

// sortRulesByPriority returns a stable, priority-descending copy of
// rules, optionally filtering to enabled ones first.
func sortRulesByPriority(rules []Rule, onlyEnabled bool) []Rule {
	filtered := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if onlyEnabled && !r.Enabled {
			continue
		}
		filtered = append(filtered, r)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Priority > filtered[j].Priority
	})
	return filtered
}

// SortPoliciesByPriority returns a stable, priority-descending copy of
// policies, optionally filtering to enabled ones first.
func SortPoliciesByPriority(policies []Policy, onlyEnabled bool) []Policy {
	filtered := make([]Policy, 0, len(policies))
	for _, p := range policies {
		if onlyEnabled && !p.Enabled {
			continue
		}
		filtered = append(filtered, p)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Priority > filtered[j].Priority
	})
	return filtered
}

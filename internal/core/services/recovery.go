package services

import (
	"github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"
)

// SynthesizeDepartments creates a department for every distinct free-text
// department name on the members that no existing department answers to.
// It returns the existing departments followed by the created ones, and the
// created ones on their own. No alias of a created department equals an alias
// of any other department, and running it again on its own output creates
// nothing.
func SynthesizeDepartments(existing []domain.Department, memberSets ...[]domain.Member) ([]domain.Department, []domain.Department) {
	known := BuildLookup(existing)

	// New ids must not collide with any alias, so the lookup stays unambiguous.
	taken := make(map[string]struct{}, len(known))
	for alias := range known {
		taken[alias] = struct{}{}
	}

	all := make([]domain.Department, 0, len(existing))
	for _, d := range existing {
		all = append(all, d.Clone())
	}

	var created []domain.Department
	for _, members := range memberSets {
		for _, m := range members {
			name := m.FreeTextDepartment()
			key := domain.NormalizeKey(name)
			if key == "" {
				continue
			}
			// Taken covers existing aliases and the ids, codes and names of
			// departments created earlier in this run. Free text matching one
			// resolves to that department instead of creating a rival alias.
			if _, ok := taken[key]; ok {
				continue
			}

			code := domain.UniqueCode(domain.DeriveCode(name), taken)
			taken[domain.NormalizeKey(code)] = struct{}{}
			taken[key] = struct{}{}

			d := domain.Department{
				ID:          code,
				Name:        name,
				Code:        code,
				Description: "",
				Status:      domain.StatusActive,
			}
			created = append(created, d)
			all = append(all, d)
		}
	}
	return all, created
}

// hasUnresolvedFreeText reports whether any member carries a free-text
// department name and no departmentId the lookup knows.
func hasUnresolvedFreeText(lookup Lookup, memberSets ...[]domain.Member) bool {
	for _, members := range memberSets {
		for _, m := range members {
			if _, ok := lookup.Canonical(m.DepartmentID); ok {
				continue
			}
			if m.FreeTextDepartment() != "" {
				return true
			}
		}
	}
	return false
}

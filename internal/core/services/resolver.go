package services

import "github.com/AchilleasB/campus-portal/directory-service/internal/core/domain"

// Lookup maps a normalized department alias (id, code or name) to the
// department's canonical id.
type Lookup map[string]string

// BuildLookup indexes every department by id, name and code. When two
// departments share an alias the later one in slice order wins.
func BuildLookup(departments []domain.Department) Lookup {
	lookup := make(Lookup, len(departments)*3)
	for _, d := range departments {
		if d.ID == "" {
			continue
		}
		for _, alias := range []string{d.ID, d.Name, d.Code} {
			if k := domain.NormalizeKey(alias); k != "" {
				lookup[k] = d.ID
			}
		}
	}
	return lookup
}

// Canonical returns the department id alias refers to.
func (l Lookup) Canonical(alias string) (string, bool) {
	k := domain.NormalizeKey(alias)
	if k == "" {
		return "", false
	}
	id, ok := l[k]
	return id, ok
}

// Resolve links members to departments. A departmentId that is a known alias
// is rewritten to the canonical id. Otherwise a free-text department name
// that is a known alias becomes the departmentId and the free text is
// cleared. Anything else, including a departmentId pointing at a deleted
// department, is left as it is.
//
// The input slice is not modified. The count is the number of members whose
// record changed.
func Resolve(members []domain.Member, lookup Lookup) ([]domain.Member, int) {
	out := make([]domain.Member, len(members))
	changed := 0
	for i, m := range members {
		out[i] = m
		if id, ok := lookup.Canonical(m.DepartmentID); ok {
			if id != m.DepartmentID {
				out[i] = m.Clone()
				out[i].DepartmentID = id
				changed++
			}
			continue
		}
		if id, ok := lookup.Canonical(m.FreeTextDepartment()); ok {
			out[i] = m.Clone()
			out[i].DepartmentID = id
			out[i].Department = ""
			out[i].LegacyDepartment = ""
			changed++
		}
	}
	return out, changed
}

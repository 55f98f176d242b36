package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

type MemberKind string

const (
	KindStudent MemberKind = "student"
	KindFaculty MemberKind = "faculty"
)

// MemberKinds lists the member collections in the order they are processed.
var MemberKinds = []MemberKind{KindStudent, KindFaculty}

// ParseMemberKind accepts the singular and plural forms used in routes.
func ParseMemberKind(s string) (MemberKind, error) {
	switch NormalizeKey(s) {
	case "student", "students":
		return KindStudent, nil
	case "faculty", "faculties":
		return KindFaculty, nil
	}
	return "", NewValidationError("kind", ErrUnknownMemberKind)
}

// Member is a student or faculty record. Department and LegacyDepartment are
// the free-text department names ("department" and "Department" in stored
// JSON) that resolution turns into DepartmentID. Any other stored field is
// kept in Attributes so a load/save round trip does not lose it.
type Member struct {
	ID               string
	Name             string
	DepartmentID     string
	Department       string
	LegacyDepartment string
	Status           Status
	Attributes       map[string]json.RawMessage
}

// FreeTextDepartment returns the trimmed free-text department name,
// preferring the lower-case field.
func (m Member) FreeTextDepartment() string {
	if v := strings.TrimSpace(m.Department); v != "" {
		return v
	}
	return strings.TrimSpace(m.LegacyDepartment)
}

// Clone returns a copy that shares no map with m.
func (m Member) Clone() Member {
	if m.Attributes != nil {
		attrs := make(map[string]json.RawMessage, len(m.Attributes))
		for k, v := range m.Attributes {
			attrs[k] = v
		}
		m.Attributes = attrs
	}
	return m
}

const (
	fieldID               = "id"
	fieldName             = "name"
	fieldDepartmentID     = "departmentId"
	fieldDepartment       = "department"
	fieldLegacyDepartment = "Department"
	fieldStatus           = "status"
)

func (m Member) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Attributes)+6)
	for k, v := range m.Attributes {
		out[k] = v
	}

	set := func(key, value string, omitEmpty bool) error {
		if omitEmpty && value == "" {
			delete(out, key)
			return nil
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		out[key] = raw
		return nil
	}

	if err := set(fieldID, m.ID, false); err != nil {
		return nil, err
	}
	if err := set(fieldName, m.Name, false); err != nil {
		return nil, err
	}
	if err := set(fieldDepartmentID, m.DepartmentID, false); err != nil {
		return nil, err
	}
	if err := set(fieldDepartment, m.Department, true); err != nil {
		return nil, err
	}
	if err := set(fieldLegacyDepartment, m.LegacyDepartment, true); err != nil {
		return nil, err
	}
	if err := set(fieldStatus, string(m.Status), true); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (m *Member) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	take := func(key string) string {
		v, ok := raw[key]
		if !ok {
			return ""
		}
		delete(raw, key)
		s, decodeErr := decodeText(v)
		if decodeErr != nil && err == nil {
			err = decodeErr
		}
		return s
	}

	*m = Member{
		ID:               take(fieldID),
		Name:             take(fieldName),
		DepartmentID:     take(fieldDepartmentID),
		Department:       take(fieldDepartment),
		LegacyDepartment: take(fieldLegacyDepartment),
		Status:           Status(take(fieldStatus)),
	}
	if err != nil {
		return err
	}
	if len(raw) > 0 {
		m.Attributes = raw
	}
	return nil
}

// decodeText reads a JSON string, number or null as text. Some clients send
// numeric ids.
func decodeText(v json.RawMessage) (string, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", nil
	}
	if v[0] == '"' {
		var s string
		err := json.Unmarshal(v, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

package domain

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Course is a course offered by a department.
type Course struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	Section string `json:"section,omitempty"`
}

type Department struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Code        string   `json:"code,omitempty"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Courses     []Course `json:"courses,omitempty"`
}

// Valid reports whether s is one of the statuses a caller may set.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// IsActive treats a missing status as Active, which is how records written
// before statuses existed are read.
func (d Department) IsActive() bool {
	return d.Status == "" || d.Status == StatusActive
}

// Clone returns a copy that shares no slices with d.
func (d Department) Clone() Department {
	if d.Courses != nil {
		d.Courses = append([]Course(nil), d.Courses...)
	}
	return d
}

// DepartmentInput is the payload of the create form.
type DepartmentInput struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// DepartmentPatch carries the fields an edit changes. Nil fields are kept.
type DepartmentPatch struct {
	Name        *string `json:"name,omitempty"`
	Code        *string `json:"code,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// Confirmation is the token a caller passes to show the administrator
// confirmed a destructive operation.
type Confirmation string

const (
	ConfirmArchive         Confirmation = "archive"
	ConfirmRestore         Confirmation = "restore"
	ConfirmPermanentDelete Confirmation = "delete-permanently"
)

// RecoveryReport describes what a recovery run changed.
type RecoveryReport struct {
	Created         []Department `json:"created"`
	UpdatedStudents int          `json:"updatedStudents"`
	UpdatedFaculty  int          `json:"updatedFaculty"`
}

type ResolutionReport struct {
	UpdatedStudents int `json:"updatedStudents"`
	UpdatedFaculty  int `json:"updatedFaculty"`
}

// Roster is what an admin roster screen renders.
type Roster struct {
	Kind        MemberKind   `json:"kind"`
	Members     []Member     `json:"members"`
	Departments []Department `json:"departments"`
}

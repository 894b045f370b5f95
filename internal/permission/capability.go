package permission

// Capability is an action gated by a permission level
type Capability int

const (
	View Capability = iota
	Edit
	ToggleStatus
	ManageCollaborators
	Delete
	Duplicate
)

var capabilityNames = map[Capability]string{
	View:                "view",
	Edit:                "edit",
	ToggleStatus:        "toggle status",
	ManageCollaborators: "manage collaborators",
	Delete:              "delete",
	Duplicate:           "duplicate",
}

// String returns the capability name
func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "unknown"
}

// Capabilities lists every gated action
var Capabilities = []Capability{View, Edit, ToggleStatus, ManageCollaborators, Delete, Duplicate}

var grants = map[Level]map[Capability]bool{
	Admin: {View: true, Edit: true, ToggleStatus: true, ManageCollaborators: true, Delete: true, Duplicate: true},
	Write: {View: true, Edit: true, ToggleStatus: true, Duplicate: true},
	Read:  {View: true, Duplicate: true},
}

// Can reports whether level allows c. None and unknown levels allow nothing.
func Can(level Level, c Capability) bool {
	return grants[level][c]
}

// Allowed returns the capabilities level grants, in Capabilities order
func Allowed(level Level) []Capability {
	var out []Capability
	for _, c := range Capabilities {
		if Can(level, c) {
			out = append(out, c)
		}
	}
	return out
}

// NoPermissionMessage is shown instead of an entity the caller cannot view
const NoPermissionMessage = "No tienes permiso para ver este elemento"

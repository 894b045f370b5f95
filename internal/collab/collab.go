// Package collab edits the ordered collaborator list of a task or project.
package collab

import (
	"errors"
	"fmt"
	"strings"

	"github.com/existflow/taskprox/internal/form"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
)

var (
	ErrDuplicate    = errors.New("collaborator already added")
	ErrNotFound     = errors.New("collaborator not found")
	ErrInvalidEmail = errors.New("invalid collaborator email")
	ErrForbidden    = errors.New("only an admin can manage collaborators")
)

// List is an ordered collaborator list keyed by email
type List struct {
	items []model.Collaborator
}

// FromSlice copies cs into a new list
func FromSlice(cs []model.Collaborator) *List {
	items := make([]model.Collaborator, len(cs))
	copy(items, cs)
	return &List{items: items}
}

// Items returns a copy of the entries in insertion order
func (l *List) Items() []model.Collaborator {
	out := make([]model.Collaborator, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of collaborators
func (l *List) Len() int {
	return len(l.items)
}

// Add appends a collaborator. The email is stored trimmed but as typed;
// a case-insensitive duplicate is a no-op reported as ErrDuplicate.
func (l *List) Add(email string, perm permission.Level) error {
	email = strings.TrimSpace(email)
	if err := form.Email(email); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	if !perm.Assignable() {
		return fmt.Errorf("invalid permission %q", perm)
	}
	if l.indexOf(email) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, email)
	}
	l.items = append(l.items, model.Collaborator{Email: email, Permission: string(perm)})
	return nil
}

// Remove deletes the entry identified by email or internal id
func (l *List) Remove(ref string) error {
	i := l.indexOf(ref)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return nil
}

// SetPermission changes the permission of the entry identified by email or id
func (l *List) SetPermission(ref string, perm permission.Level) error {
	if !perm.Assignable() {
		return fmt.Errorf("invalid permission %q", perm)
	}
	i := l.indexOf(ref)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	l.items[i].Permission = string(perm)
	return nil
}

// Validate checks every entry's permission is assignable
func (l *List) Validate() error {
	return ValidateChanges(nil, l.items)
}

// ValidateChanges checks next for duplicate emails and requires an assignable
// permission on entries that are new or changed relative to prev. Entries
// carried over unchanged keep whatever was stored.
func ValidateChanges(prev, next []model.Collaborator) error {
	stored := make(map[string]string, len(prev))
	for _, c := range prev {
		stored[normalizeEmail(c.Email)] = c.Permission
	}

	seen := make(map[string]bool, len(next))
	for _, c := range next {
		email := normalizeEmail(c.Email)
		if seen[email] {
			return fmt.Errorf("%w: %s", ErrDuplicate, email)
		}
		seen[email] = true
		if perm, ok := stored[email]; ok && perm == c.Permission {
			continue
		}
		if !permission.Level(c.Permission).Assignable() {
			return fmt.Errorf("collaborator %s has invalid permission %q", c.Email, c.Permission)
		}
	}
	return nil
}

// indexOf matches by email first, then by internal id
func (l *List) indexOf(ref string) int {
	email := normalizeEmail(ref)
	for i, c := range l.items {
		if normalizeEmail(c.Email) == email {
			return i
		}
	}
	for i, c := range l.items {
		if c.ID != "" && c.ID == strings.TrimSpace(ref) {
			return i
		}
	}
	return -1
}

// RequireAdmin returns ErrForbidden unless level allows collaborator management
func RequireAdmin(level permission.Level) error {
	if !permission.Can(level, permission.ManageCollaborators) {
		return ErrForbidden
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

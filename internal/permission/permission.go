// Package permission resolves the effective permission a user holds on a task
// or project and answers which actions that permission allows. Every view and
// service goes through Resolver so the rule is applied identically everywhere.
package permission

import (
	"fmt"
	"strings"

	"github.com/existflow/taskprox/internal/model"
)

// Level is an effective permission. Values outside the four constants can
// appear when a stored collaborator entry is malformed; they are passed
// through by Resolve and grant nothing.
type Level string

const (
	None  Level = "none"
	Read  Level = "read"
	Write Level = "write"
	Admin Level = "admin"
)

// Known reports whether l is one of None, Read, Write, Admin
func (l Level) Known() bool {
	switch l {
	case None, Read, Write, Admin:
		return true
	}
	return false
}

// Assignable reports whether l may be stored on a collaborator entry
func (l Level) Assignable() bool {
	return l == Read || l == Write || l == Admin
}

// ParseAssignable validates a permission typed by a user
func ParseAssignable(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if !l.Assignable() {
		return "", fmt.Errorf("invalid permission %q: use read, write or admin", s)
	}
	return l, nil
}

// Entity is anything carrying a creator identity and collaborators
type Entity interface {
	CreatorEmail() string
	CreatorDisplayName() string
	CollaboratorList() []model.Collaborator
}

// Identity is the acting user
type Identity struct {
	Email    string
	FullName string
}

// CreatorMatch selects which identity key proves creatorship
type CreatorMatch string

const (
	MatchEmail       CreatorMatch = "email"
	MatchName        CreatorMatch = "name"
	MatchEmailOrName CreatorMatch = "email+name"
)

// ParseCreatorMatch parses a config value; empty selects MatchEmailOrName
func ParseCreatorMatch(s string) (CreatorMatch, error) {
	switch m := CreatorMatch(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MatchEmailOrName, nil
	case MatchEmail, MatchName, MatchEmailOrName:
		return m, nil
	}
	return "", fmt.Errorf("invalid creator match %q: use email, name or email+name", s)
}

// Resolver applies one creator-matching policy to every lookup
type Resolver struct {
	match CreatorMatch
}

// NewResolver creates a resolver. An unknown policy falls back to MatchEmailOrName.
func NewResolver(match CreatorMatch) Resolver {
	switch match {
	case MatchEmail, MatchName:
	default:
		match = MatchEmailOrName
	}
	return Resolver{match: match}
}

// Match returns the policy in use
func (r Resolver) Match() CreatorMatch {
	if r.match == "" {
		return MatchEmailOrName
	}
	return r.match
}

// Resolve returns the caller's effective permission on e:
// creator → admin, else the caller's collaborator entry verbatim, else none.
func (r Resolver) Resolve(e Entity, id Identity) Level {
	if e == nil || (id.Email == "" && id.FullName == "") {
		return None
	}

	if r.isCreator(e, id) {
		return Admin
	}

	if id.Email != "" {
		for _, c := range e.CollaboratorList() {
			if strings.TrimSpace(c.Email) == id.Email {
				return Level(c.Permission)
			}
		}
	}

	return None
}

// ResolveInherited resolves on the task and, when that yields none, falls back
// to the caller's permission on the task's project. Without a matching local
// project the level the server attached to the task is used.
func (r Resolver) ResolveInherited(task model.Task, project *model.Project, id Identity) Level {
	if id.Email == "" && id.FullName == "" {
		return None
	}
	if l := r.Resolve(task, id); l != None {
		return l
	}
	if project != nil && project.ID == task.ProjectID {
		if l := r.Resolve(*project, id); l != None {
			return l
		}
	}
	for _, l := range []string{task.ProjectPermission, task.EffectivePermission} {
		if l = strings.TrimSpace(l); l != "" {
			return Level(l)
		}
	}
	return None
}

func (r Resolver) isCreator(e Entity, id Identity) bool {
	byEmail := id.Email != "" && e.CreatorEmail() != "" && e.CreatorEmail() == id.Email
	byName := id.FullName != "" && e.CreatorDisplayName() != "" && e.CreatorDisplayName() == id.FullName

	switch r.Match() {
	case MatchEmail:
		return byEmail
	case MatchName:
		return byName
	default:
		return byEmail || byName
	}
}

// Resolve uses the default policy
func Resolve(e Entity, id Identity) Level {
	return Resolver{}.Resolve(e, id)
}

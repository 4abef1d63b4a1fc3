// Package models defines the domain entity types stored in the namespace.
// Each type carries its own schema as an ozzo-validation Validate method;
// the entity reader and writer apply it unless validation is disabled.
package models

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/averlund/orion/internal/para"
)

// Entity is the minimal contract for a stored record: a stable id unique
// within its category's index.
type Entity interface {
	EntityID() string
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func idRules(field *string) *validation.FieldRules {
	return validation.Field(field, validation.Required, validation.Match(idPattern))
}

// Project statuses.
const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectCancelled = "cancelled"
	ProjectOnHold    = "on_hold"
)

// Project is a goal-directed effort with a deadline, stored at
// Projects/<slug>/_meta.yaml.
type Project struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Status      string    `yaml:"status"`
	Description string    `yaml:"description,omitempty"`
	Tags        []string  `yaml:"tags,omitempty"`
	CreatedAt   time.Time `yaml:"created_at,omitempty"`
	UpdatedAt   time.Time `yaml:"updated_at,omitempty"`
}

// EntityID implements Entity.
func (p *Project) EntityID() string { return p.ID }

// Validate checks the project schema.
func (p *Project) Validate() error {
	return validation.ValidateStruct(p,
		idRules(&p.ID),
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Status, validation.Required,
			validation.In(ProjectActive, ProjectCompleted, ProjectCancelled, ProjectOnHold)),
	)
}

// Area statuses.
const (
	AreaActive  = "active"
	AreaDormant = "dormant"
)

// Area is an ongoing responsibility without an end date, stored at
// Areas/<slug>/_meta.yaml.
type Area struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Status      string    `yaml:"status"`
	Description string    `yaml:"description,omitempty"`
	Tags        []string  `yaml:"tags,omitempty"`
	CreatedAt   time.Time `yaml:"created_at,omitempty"`
	UpdatedAt   time.Time `yaml:"updated_at,omitempty"`
}

// EntityID implements Entity.
func (a *Area) EntityID() string { return a.ID }

// Validate checks the area schema.
func (a *Area) Validate() error {
	return validation.ValidateStruct(a,
		idRules(&a.ID),
		validation.Field(&a.Title, validation.Required),
		validation.Field(&a.Status, validation.Required,
			validation.In(AreaActive, AreaDormant)),
	)
}

// Contact is a person record under Resources/contacts.
type Contact struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Email     string    `yaml:"email,omitempty"`
	Phone     string    `yaml:"phone,omitempty"`
	Company   string    `yaml:"company,omitempty"`
	Tags      []string  `yaml:"tags,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// EntityID implements Entity.
func (c *Contact) EntityID() string { return c.ID }

// Validate checks the contact schema.
func (c *Contact) Validate() error {
	return validation.ValidateStruct(c,
		idRules(&c.ID),
		validation.Field(&c.Name, validation.Required),
	)
}

// Note is a free-form text record under Resources/notes.
type Note struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Body      string    `yaml:"body,omitempty"`
	Tags      []string  `yaml:"tags,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// EntityID implements Entity.
func (n *Note) EntityID() string { return n.ID }

// Validate checks the note schema.
func (n *Note) Validate() error {
	return validation.ValidateStruct(n,
		idRules(&n.ID),
		validation.Field(&n.Title, validation.Required),
	)
}

// Resource is the generic record for the remaining resource subtypes
// (templates, procedures, preferences) and loose Resources files.
type Resource struct {
	ID        string         `yaml:"id"`
	Title     string         `yaml:"title"`
	Kind      string         `yaml:"kind,omitempty"`
	Fields    map[string]any `yaml:"fields,omitempty"`
	UpdatedAt time.Time      `yaml:"updated_at,omitempty"`
}

// EntityID implements Entity.
func (r *Resource) EntityID() string { return r.ID }

// Validate checks the resource schema.
func (r *Resource) Validate() error {
	return validation.ValidateStruct(r,
		idRules(&r.ID),
		validation.Field(&r.Title, validation.Required),
	)
}

// InboxItem is one captured entry in Inbox/_queue.yaml.
type InboxItem struct {
	ID         string    `yaml:"id"`
	Title      string    `yaml:"title"`
	Notes      string    `yaml:"notes,omitempty"`
	CapturedAt time.Time `yaml:"captured_at"`
}

// EntityID implements Entity.
func (i *InboxItem) EntityID() string { return i.ID }

// Validate checks the inbox item schema.
func (i *InboxItem) Validate() error {
	return validation.ValidateStruct(i,
		idRules(&i.ID),
		validation.Field(&i.Title, validation.Required),
	)
}

// ForCategory returns a fresh entity value suitable for unmarshaling a
// record of the given category, or false when the category has no typed
// schema (Archive, Inbox queue documents are not single entities).
func ForCategory(cat para.Category) (Entity, bool) {
	switch cat {
	case para.Projects:
		return &Project{}, true
	case para.Areas:
		return &Area{}, true
	case para.Contacts:
		return &Contact{}, true
	case para.Notes:
		return &Note{}, true
	case para.Templates, para.Procedures, para.Preferences, para.Resources:
		return &Resource{}, true
	default:
		return nil, false
	}
}

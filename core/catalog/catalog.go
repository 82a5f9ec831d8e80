// Package catalog manages the reference data documents are filed under:
// departments, categories, tags and roles.
package catalog

import (
	"context"
	"errors"
	"strings"

	"dms-server/core/apperr"
	"dms-server/core/store"
)

// Named wraps a department or category store with validation and
// error mapping. Label is used in messages ("Department", "Category").
type Named struct {
	store store.CatalogStore
	label string
}

func NewNamed(s store.CatalogStore, label string) *Named {
	return &Named{store: s, label: label}
}

type NamedInput struct {
	Name        store.Optional[string] `json:"name"`
	Description store.Optional[string] `json:"description"`
}

func (n *Named) List(ctx context.Context) ([]store.NamedEntity, error) {
	return n.store.List(ctx)
}

func (n *Named) Get(ctx context.Context, id string) (*store.NamedEntity, error) {
	e, err := n.store.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.NotFound(n.label + " not found")
	}
	return e, nil
}

func (n *Named) Create(ctx context.Context, in NamedInput) (*store.NamedEntity, error) {
	name := strings.TrimSpace(in.Name.Value)
	if in.Name.Null || name == "" {
		return nil, apperr.Validation("Name is required")
	}
	e, err := n.store.Create(ctx, name, in.Description.Ptr())
	if err != nil {
		return nil, n.mapErr(err)
	}
	return e, nil
}

func (n *Named) Update(ctx context.Context, id string, in NamedInput) (*store.NamedEntity, error) {
	if in.Name.Set && (in.Name.Null || strings.TrimSpace(in.Name.Value) == "") {
		return nil, apperr.Validation("Name cannot be empty")
	}
	e, err := n.store.Update(ctx, id, in.Name, in.Description)
	if err != nil {
		return nil, n.mapErr(err)
	}
	return e, nil
}

// Delete removes the entry. Documents and users keep existing with the
// reference cleared.
func (n *Named) Delete(ctx context.Context, id string) error {
	return n.mapErr(n.store.Delete(ctx, id))
}

func (n *Named) mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict(n.label + " with this name already exists")
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(n.label + " not found")
	}
	return err
}

type Tags struct {
	store store.TagsStore
}

func NewTags(s store.TagsStore) *Tags {
	return &Tags{store: s}
}

func (t *Tags) List(ctx context.Context) ([]store.Tag, error) {
	return t.store.List(ctx)
}

func (t *Tags) Get(ctx context.Context, id string) (*store.Tag, error) {
	tag, err := t.store.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, apperr.NotFound("Tag not found")
	}
	return tag, nil
}

func (t *Tags) Create(ctx context.Context, name string) (*store.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Name is required")
	}
	tag, err := t.store.Create(ctx, name)
	if errors.Is(err, store.ErrConflict) {
		return nil, apperr.Conflict("Tag already exists")
	}
	return tag, err
}

func (t *Tags) Delete(ctx context.Context, id string) error {
	err := t.store.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Tag not found")
	}
	return err
}

type Roles struct {
	store store.RolesStore
}

func NewRoles(s store.RolesStore) *Roles {
	return &Roles{store: s}
}

func (r *Roles) List(ctx context.Context) ([]store.Role, error) {
	return r.store.List(ctx)
}

func (r *Roles) Get(ctx context.Context, id string) (*store.Role, error) {
	role, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, apperr.NotFound("Role not found")
	}
	return role, nil
}

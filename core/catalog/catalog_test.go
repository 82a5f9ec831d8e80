package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"dms-server/core/apperr"
	"dms-server/core/store"
	"dms-server/core/store/storetest"
)

func TestNamedCreateRejectsDuplicates(t *testing.T) {
	f := storetest.New(t)
	deps := NewNamed(f.Departments, "Department")
	ctx := context.Background()

	if _, err := deps.Create(ctx, NamedInput{Name: store.Some("Legal")}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := deps.Create(ctx, NamedInput{Name: store.Some("Legal")})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	_, err = deps.Create(ctx, NamedInput{Name: store.Some("  ")})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNamedUpdateKeepsAbsentFields(t *testing.T) {
	f := storetest.New(t)
	cats := NewNamed(f.Categories, "Category")
	ctx := context.Background()

	created, err := cats.Create(ctx, NamedInput{Name: store.Some("Policies"), Description: store.Some("company policies")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var in NamedInput
	if err := json.Unmarshal([]byte(`{"name":"Policy"}`), &in); err != nil {
		t.Fatalf("decode: %v", err)
	}
	updated, err := cats.Update(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Policy" || updated.Description == nil || *updated.Description != "company policies" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	in = NamedInput{}
	if err := json.Unmarshal([]byte(`{"description":null}`), &in); err != nil {
		t.Fatalf("decode: %v", err)
	}
	updated, err = cats.Update(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != nil {
		t.Fatalf("expected description cleared")
	}

	if _, err := cats.Update(ctx, "missing", in); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNamedGetAndDelete(t *testing.T) {
	f := storetest.New(t)
	deps := NewNamed(f.Departments, "Department")
	ctx := context.Background()

	if _, err := deps.Get(ctx, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	d, err := deps.Create(ctx, NamedInput{Name: store.Some("Finance")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.User(t, "carol", "user", &d.ID)
	detail, err := deps.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Users) != 1 || detail.Users[0].Username != "carol" {
		t.Fatalf("expected department member, got %+v", detail.Users)
	}
	if err := deps.Delete(ctx, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := deps.Delete(ctx, d.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestTags(t *testing.T) {
	f := storetest.New(t)
	tags := NewTags(f.Tags)
	ctx := context.Background()

	tag, err := tags.Create(ctx, "urgent")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := tags.Create(ctx, "urgent"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	owner := f.User(t, "dave", "user", nil)
	f.Document(t, owner, "memo", "urgent")
	detail, err := tags.Get(ctx, tag.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Documents) != 1 {
		t.Fatalf("expected one tagged document, got %d", len(detail.Documents))
	}
	if err := tags.Delete(ctx, tag.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := tags.Get(ctx, tag.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRolesGet(t *testing.T) {
	f := storetest.New(t)
	roles := NewRoles(f.Roles)
	ctx := context.Background()

	list, err := roles.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 roles, got %d", len(list))
	}
	if _, err := roles.Get(ctx, f.RoleByName["manager"].ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := roles.Get(ctx, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

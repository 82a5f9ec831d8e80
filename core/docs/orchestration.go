package docs

import (
	"context"
	"fmt"
	"strings"

	"dms-server/core/access"
	"dms-server/core/apperr"
	"dms-server/core/audit"
	"dms-server/core/blob"
	"dms-server/core/store"
)

func (s *Service) CreateVersion(ctx context.Context, actor access.Subject, docID string, file *blob.Object, note string) (*store.Version, error) {
	if err := s.ValidateFile(file); err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, docID); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, docID, access.Write); err != nil {
		return nil, err
	}
	return s.versions.Create(ctx, actor, docID, *file, note)
}

func (s *Service) RestoreVersion(ctx context.Context, actor access.Subject, versionID string) (*store.Document, error) {
	v, err := s.versions.Lookup(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, v.DocumentID, access.Write); err != nil {
		return nil, err
	}
	doc, err := s.versions.Restore(ctx, actor, v)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFound("Document not found")
	}
	return s.detail(ctx, doc)
}

func (s *Service) ListVersions(ctx context.Context, actor access.Subject, docID string) ([]store.Version, error) {
	if _, err := s.find(ctx, docID); err != nil {
		return nil, err
	}
	if err := s.access.Require(ctx, actor, docID, access.Read); err != nil {
		return nil, err
	}
	return s.versions.List(ctx, docID)
}

func (s *Service) ListPermissions(ctx context.Context, actor access.Subject, docID string) ([]store.Permission, error) {
	if _, err := s.find(ctx, docID); err != nil {
		return nil, err
	}
	if err := s.access.Require(ctx, actor, docID, access.Read); err != nil {
		return nil, err
	}
	return s.perms.ListForDocument(ctx, docID)
}

// CreatePermission grants rights on a document to a user, role or
// department. At least one grantee is required.
func (s *Service) CreatePermission(ctx context.Context, actor access.Subject, in PermissionInput) (*store.Permission, error) {
	if in.DocumentID == "" {
		return nil, apperr.Validation("documentId is required")
	}
	p := &store.Permission{
		DocumentID:   in.DocumentID,
		UserID:       blankToNil(in.UserID),
		RoleID:       blankToNil(in.RoleID),
		DepartmentID: blankToNil(in.DepartmentID),
		CanRead:      in.CanRead,
		CanWrite:     in.CanWrite,
		CanDelete:    in.CanDelete,
	}
	if len(access.ScopesOf(*p)) == 0 {
		return nil, apperr.Validation("At least one of userId, roleId or departmentId is required")
	}
	if _, err := s.find(ctx, in.DocumentID); err != nil {
		return nil, err
	}
	if err := s.access.Require(ctx, actor, in.DocumentID, access.Write); err != nil {
		return nil, err
	}
	if err := s.perms.Create(ctx, p); err != nil {
		return nil, writeError(err)
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:     actor.UserID,
		Action:     audit.ActionPermissionCreate,
		DocumentID: in.DocumentID,
		Details:    describeGrant(p),
	})
	created, err := s.perms.Get(ctx, p.ID)
	if err != nil || created == nil {
		return p, nil
	}
	return created, nil
}

func (s *Service) UpdatePermission(ctx context.Context, actor access.Subject, id string, in PermissionUpdate) (*store.Permission, error) {
	p, err := s.permission(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.perms.Update(ctx, id, store.PermissionPatch{CanRead: in.CanRead, CanWrite: in.CanWrite, CanDelete: in.CanDelete})
	if err != nil {
		return nil, writeError(err)
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:     actor.UserID,
		Action:     audit.ActionPermissionUpdate,
		DocumentID: p.DocumentID,
		Details:    describeGrant(updated),
	})
	return updated, nil
}

func (s *Service) DeletePermission(ctx context.Context, actor access.Subject, id string) error {
	p, err := s.permission(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.perms.Delete(ctx, id); err != nil {
		return writeError(err)
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:     actor.UserID,
		Action:     audit.ActionPermissionDelete,
		DocumentID: p.DocumentID,
		Details:    "Removed " + describeGrant(p),
	})
	return nil
}

func (s *Service) permission(ctx context.Context, actor access.Subject, id string) (*store.Permission, error) {
	p, err := s.perms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("Permission not found")
	}
	if err := s.access.Require(ctx, actor, p.DocumentID, access.Write); err != nil {
		return nil, err
	}
	return p, nil
}

func describeGrant(p *store.Permission) string {
	if p == nil {
		return ""
	}
	scopes := access.ScopesOf(*p)
	who := "nobody"
	if len(scopes) > 0 {
		names := make([]string, len(scopes))
		for i, sc := range scopes {
			names[i] = fmt.Sprintf("%s %s", sc.Kind, sc.ID)
		}
		who = strings.Join(names, ", ")
	}
	return fmt.Sprintf("permission for %s (read=%t write=%t delete=%t)", who, p.CanRead, p.CanWrite, p.CanDelete)
}

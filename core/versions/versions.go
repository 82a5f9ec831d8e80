package versions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dms-server/core/access"
	"dms-server/core/apperr"
	"dms-server/core/audit"
	"dms-server/core/blob"
	"dms-server/core/store"
	"dms-server/core/utils"
)

type Manager struct {
	docs   store.DocsStore
	blobs  blob.Store
	audit  *audit.Recorder
	logger *utils.Logger
}

func NewManager(docs store.DocsStore, blobs blob.Store, rec *audit.Recorder, logger *utils.Logger) *Manager {
	return &Manager{docs: docs, blobs: blobs, audit: rec, logger: logger}
}

// Create uploads the file and appends version current+1. The blob is
// removed again when the database write fails.
func (m *Manager) Create(ctx context.Context, actor access.Subject, docID string, file blob.Object, note string) (*store.Version, error) {
	doc, err := m.docs.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFound("Document not found")
	}
	stored, err := m.blobs.Put(ctx, file)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "File upload failed", err)
	}
	in := store.NewVersion{
		DocumentID: docID,
		File:       store.FileRef{FileName: file.FileName, FileURL: stored.URL, FileSize: stored.Size, MimeType: file.ContentType},
		CreatedBy:  actor.UserID,
	}
	if note = strings.TrimSpace(note); note != "" {
		in.ChangeNote = &note
	}
	v, err := m.docs.AddVersion(ctx, in)
	if err != nil {
		m.logger.BestEffort("blob cleanup", func() error { return m.blobs.Delete(ctx, stored.URL) })
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Document not found")
		}
		return nil, err
	}
	m.audit.Record(ctx, audit.Entry{
		UserID:     actor.UserID,
		Action:     audit.ActionVersionCreate,
		DocumentID: docID,
		Details:    fmt.Sprintf("Created version %d of %q", v.Version, doc.Title),
	})
	return v, nil
}

// Restore points the document at an older snapshot. The version counter
// and the history are left as they are.
func (m *Manager) Restore(ctx context.Context, actor access.Subject, v *store.Version) (*store.Document, error) {
	if err := m.docs.ApplyVersionFile(ctx, v.DocumentID, v.File()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Document not found")
		}
		return nil, err
	}
	m.audit.Record(ctx, audit.Entry{
		UserID:     actor.UserID,
		Action:     audit.ActionVersionRestore,
		DocumentID: v.DocumentID,
		Details:    fmt.Sprintf("Restored version %d", v.Version),
	})
	return m.docs.GetDocument(ctx, v.DocumentID)
}

// Lookup returns the version or NotFound.
func (m *Manager) Lookup(ctx context.Context, versionID string) (*store.Version, error) {
	v, err := m.docs.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperr.NotFound("Version not found")
	}
	return v, nil
}

func (m *Manager) List(ctx context.Context, docID string) ([]store.Version, error) {
	return m.docs.ListVersions(ctx, docID, 0)
}

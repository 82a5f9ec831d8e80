package docs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dms-server/config"
	"dms-server/core/access"
	"dms-server/core/apperr"
	"dms-server/core/audit"
	"dms-server/core/blob"
	"dms-server/core/checkout"
	"dms-server/core/store"
	"dms-server/core/utils"
	"dms-server/core/versions"
)

type Service struct {
	cfg      *config.AppConfig
	store    store.DocsStore
	perms    store.PermissionsStore
	blobs    blob.Store
	access   *access.Resolver
	locks    *checkout.Manager
	versions *versions.Manager
	audit    *audit.Recorder
	logger   *utils.Logger
	allowed  map[string]bool
}

func NewService(cfg *config.AppConfig, ds store.DocsStore, perms store.PermissionsStore, blobs blob.Store, resolver *access.Resolver,
	locks *checkout.Manager, vm *versions.Manager, rec *audit.Recorder, logger *utils.Logger) *Service {
	allowed := map[string]bool{}
	for _, m := range cfg.EffectiveAllowedMimeTypes() {
		allowed[strings.ToLower(strings.TrimSpace(m))] = true
	}
	return &Service{
		cfg:      cfg,
		store:    ds,
		perms:    perms,
		blobs:    blobs,
		access:   resolver,
		locks:    locks,
		versions: vm,
		audit:    rec,
		logger:   logger,
		allowed:  allowed,
	}
}

// ValidateFile checks presence, size and MIME type of an upload.
func (s *Service) ValidateFile(f *blob.Object) error {
	if f == nil || f.Body == nil || f.Size == 0 {
		return apperr.Validation("No file uploaded")
	}
	if max := s.cfg.Upload.MaxBytes; max > 0 && f.Size > max {
		return apperr.Validation(fmt.Sprintf("File exceeds the %d MB limit", max/(1024*1024)))
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0]))
	if !s.allowed[ct] {
		return apperr.Validation("Invalid file type. Only documents, images, and text files are allowed.")
	}
	f.ContentType = ct
	return nil
}

func (s *Service) Upload(ctx context.Context, actor access.Subject, in UploadInput) (*store.Document, error) {
	if err := s.ValidateFile(in.File); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.File.FileName
	}
	stored, err := s.blobs.Put(ctx, *in.File)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "File upload failed", err)
	}
	doc, err := s.store.CreateDocument(ctx, store.NewDocument{
		Title:        title,
		Description:  optionalString(in.Description),
		File:         store.FileRef{FileName: in.File.FileName, FileURL: stored.URL, FileSize: stored.Size, MimeType: in.File.ContentType},
		CategoryID:   optionalString(in.CategoryID),
		DepartmentID: optionalString(in.DepartmentID),
		OwnerID:      actor.UserID,
		Tags:         in.Tags,
		OwnerGrant:   true,
	})
	if err != nil {
		s.logger.BestEffort("blob cleanup", func() error { return s.blobs.Delete(ctx, stored.URL) })
		return nil, writeError(err)
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:     actor.UserID,
		Action:     audit.ActionDocumentUpload,
		DocumentID: doc.ID,
		Details:    fmt.Sprintf("Uploaded document %q", doc.Title),
	})
	return s.detail(ctx, doc)
}

// Get returns the full detail of a document and records the view.
func (s *Service) Get(ctx context.Context, actor access.Subject, id string) (*store.Document, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.locks.Gate(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.access.Require(ctx, actor, id, access.Read); err != nil {
		return nil, err
	}
	out, err := s.detail(ctx, doc)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:     actor.UserID,
		Action:     audit.ActionDocumentView,
		DocumentID: id,
		Details:    fmt.Sprintf("Viewed document %q", doc.Title),
	})
	return out, nil
}

// List returns active documents the actor may read.
func (s *Service) List(ctx context.Context, actor access.Subject, q ListQuery) ([]store.Document, int, error) {
	limit := q.Limit
	page := q.Page
	if page < 1 {
		page = 1
	}
	return s.store.ListDocuments(ctx, store.DocumentFilter{
		CategoryID:   q.CategoryID,
		DepartmentID: q.DepartmentID,
		TagID:        q.TagID,
		Search:       q.Search,
		ReadableBy:   actor.ReadableFilter(),
		Limit:        limit,
		Offset:       (page - 1) * limit,
	})
}

func (s *Service) Update(ctx context.Context, actor access.Subject, id string, req UpdateRequest) (*store.Document, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, id, access.Write); err != nil {
		return nil, err
	}
	patch := store.DocumentPatch{Description: req.Description}
	if req.Title.Set {
		title := strings.TrimSpace(req.Title.Value)
		if req.Title.Null || title == "" {
			return nil, apperr.Validation("Title cannot be empty")
		}
		patch.Title = store.Some(title)
	}
	patch.CategoryID = normalizeRef(req.CategoryID)
	patch.DepartmentID = normalizeRef(req.DepartmentID)
	if req.Tags.Set {
		patch.Tags = store.Some(req.Tags.Names)
	}
	if !patch.Empty() {
		if err := s.store.UpdateDocument(ctx, id, patch); err != nil {
			return nil, writeError(err)
		}
		s.audit.Record(ctx, audit.Entry{
			UserID:     actor.UserID,
			Action:     audit.ActionDocumentUpdate,
			DocumentID: id,
			Details:    fmt.Sprintf("Updated document %q", doc.Title),
		})
	}
	updated, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, updated)
}

// Delete hides the document and removes its current file when possible.
func (s *Service) Delete(ctx context.Context, actor access.Subject, id string) error {
	doc, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, id, access.Delete); err != nil {
		return err
	}
	if err := s.store.SoftDeleteDocument(ctx, id); err != nil {
		return writeError(err)
	}
	s.logger.BestEffort("blob delete "+doc.FileURL, func() error { return s.blobs.Delete(ctx, doc.FileURL) })
	s.audit.Record(ctx, audit.Entry{
		UserID:     actor.UserID,
		Action:     audit.ActionDocumentDelete,
		DocumentID: id,
		Details:    fmt.Sprintf("Deleted document %q", doc.Title),
	})
	return nil
}

// Download fails with NotFound once the document is deleted.
func (s *Service) Download(ctx context.Context, actor access.Subject, id string) (*Download, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsActive {
		return nil, apperr.NotFound("File not found")
	}
	if err := s.locks.Gate(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.access.Require(ctx, actor, id, access.Read); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:     actor.UserID,
		Action:     audit.ActionDocumentDownload,
		DocumentID: id,
		Details:    fmt.Sprintf("Downloaded %s", doc.FileName),
	})
	return &Download{URL: doc.FileURL, FileName: doc.FileName, MimeType: doc.MimeType, FileSize: doc.FileSize}, nil
}

func (s *Service) find(ctx context.Context, id string) (*store.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFound("Document not found")
	}
	return doc, nil
}

func (s *Service) detail(ctx context.Context, doc *store.Document) (*store.Document, error) {
	if err := s.store.LoadDetail(ctx, doc, detailVersionLimit); err != nil {
		return nil, err
	}
	return doc, nil
}

// authorize checks the right and then the lock.
func (s *Service) authorize(ctx context.Context, actor access.Subject, docID string, right access.Right) error {
	if err := s.access.Require(ctx, actor, docID, right); err != nil {
		return err
	}
	return s.locks.Gate(ctx, actor, docID)
}

// normalizeRef treats an empty id like null.
func normalizeRef(o store.Optional[string]) store.Optional[string] {
	if !o.Set {
		return o
	}
	if v := blankToNil(o.Ptr()); v != nil {
		return store.Some(*v)
	}
	return store.Null[string]()
}

func writeError(err error) error {
	switch {
	case errors.Is(err, store.ErrInvalidRef):
		return apperr.Validation("Referenced category, department, user or role does not exist")
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Document not found")
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict("Duplicate value")
	}
	return err
}

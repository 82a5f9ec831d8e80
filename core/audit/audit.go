package audit

import (
	"context"

	"dms-server/core/apperr"
	"dms-server/core/store"
	"dms-server/core/utils"
)

const (
	ActionDocumentUpload   = "document_upload"
	ActionDocumentView     = "document_view"
	ActionDocumentUpdate   = "document_update"
	ActionDocumentDelete   = "document_delete"
	ActionDocumentDownload = "document_download"
	ActionDocumentCheckout = "document_checkout"
	ActionDocumentCheckin  = "document_checkin"
	ActionVersionCreate    = "document_version_create"
	ActionVersionRestore   = "document_version_restore"
	ActionPermissionCreate = "permission_create"
	ActionPermissionUpdate = "permission_update"
	ActionPermissionDelete = "permission_delete"
	ActionUserLogin        = "user_login"
	ActionUserRegistered   = "user_registered"
	ActionUserUpdate       = "user_update"
	ActionUserDelete       = "user_delete"
)

type Entry struct {
	UserID     string
	Action     string
	DocumentID string
	Details    string
}

// Recorder writes audit rows. Failures are logged and never returned.
type Recorder struct {
	store  store.AuditStore
	logger *utils.Logger
}

func NewRecorder(s store.AuditStore, logger *utils.Logger) *Recorder {
	return &Recorder{store: s, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.store == nil {
		return
	}
	meta := RequestMetaFrom(ctx)
	row := &store.AuditLog{
		UserID:     optional(e.UserID),
		Action:     e.Action,
		DocumentID: optional(e.DocumentID),
		Details:    optional(e.Details),
		IPAddress:  optional(meta.IP),
		UserAgent:  optional(meta.UserAgent),
	}
	// the caller may already be done with the request
	ctx = context.WithoutCancel(ctx)
	r.logger.BestEffort("audit "+e.Action, func() error {
		return r.store.Insert(ctx, row)
	})
}

func (r *Recorder) List(ctx context.Context, filter store.AuditFilter) ([]store.AuditLog, int, error) {
	return r.store.List(ctx, filter)
}

func (r *Recorder) Get(ctx context.Context, id string) (*store.AuditLog, error) {
	entry, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperr.NotFound("Audit log not found")
	}
	return entry, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

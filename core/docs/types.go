package docs

import (
	"encoding/json"
	"fmt"
	"strings"

	"dms-server/core/blob"
	"dms-server/core/store"
)

const detailVersionLimit = 10

type UploadInput struct {
	Title        string
	Description  string
	CategoryID   string
	DepartmentID string
	Tags         []string
	File         *blob.Object
}

// UpdateRequest is the JSON body of a document update. Absent fields are
// left alone; null clears.
type UpdateRequest struct {
	Title        store.Optional[string] `json:"title"`
	Description  store.Optional[string] `json:"description"`
	CategoryID   store.Optional[string] `json:"categoryId"`
	DepartmentID store.Optional[string] `json:"departmentId"`
	Tags         TagField               `json:"tags"`
}

// TagField accepts null, a JSON array or a comma separated string.
type TagField struct {
	Set   bool
	Names []string
}

func (f *TagField) UnmarshalJSON(b []byte) error {
	f.Set = true
	f.Names = nil
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		return nil
	case strings.HasPrefix(raw, "["):
		var names []string
		if err := json.Unmarshal(b, &names); err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		f.Names = names
		return nil
	default:
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("tags must be an array or a comma separated string")
		}
		f.Names = ParseTags(s)
		return nil
	}
}

// ParseTags splits a comma separated list and drops blanks.
func ParseTags(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

type ListQuery struct {
	Page         int
	Limit        int
	CategoryID   string
	DepartmentID string
	TagID        string
	Search       string
}

type Download struct {
	URL      string `json:"fileUrl"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

type PermissionInput struct {
	DocumentID   string  `json:"documentId"`
	UserID       *string `json:"userId"`
	RoleID       *string `json:"roleId"`
	DepartmentID *string `json:"departmentId"`
	CanRead      bool    `json:"canRead"`
	CanWrite     bool    `json:"canWrite"`
	CanDelete    bool    `json:"canDelete"`
}

type PermissionUpdate struct {
	CanRead   *bool `json:"canRead"`
	CanWrite  *bool `json:"canWrite"`
	CanDelete *bool `json:"canDelete"`
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func optionalString(s string) *string {
	return blankToNil(&s)
}

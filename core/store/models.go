package store

import "time"

type Role struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	UserCount   *int          `json:"userCount,omitempty"`
	Users       []UserSummary `json:"users,omitempty"`
}

// NamedEntity backs departments and categories.
type NamedEntity struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   *string       `json:"description,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	DocumentCount *int          `json:"documentCount,omitempty"`
	UserCount     *int          `json:"userCount,omitempty"`
	Documents     []Document    `json:"documents,omitempty"`
	Users         []UserSummary `json:"users,omitempty"`
}

type Department = NamedEntity
type Category = NamedEntity

type Tag struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	CreatedAt     time.Time  `json:"createdAt"`
	DocumentCount *int       `json:"documentCount,omitempty"`
	Documents     []Document `json:"documents,omitempty"`
}

type User struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	Username      string      `json:"username"`
	PasswordHash  string      `json:"-"`
	FullName      string      `json:"fullName"`
	RoleID        string      `json:"roleId"`
	DepartmentID  *string     `json:"departmentId,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	Role          *Role       `json:"role,omitempty"`
	Department    *Department `json:"department,omitempty"`
	DocumentCount *int        `json:"documentCount,omitempty"`
}

func (u *User) RoleName() string {
	if u == nil || u.Role == nil {
		return ""
	}
	return u.Role.Name
}

type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Role     *Role  `json:"role,omitempty"`
}

type DocumentRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Document struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Description     *string      `json:"description"`
	FileName        string       `json:"fileName"`
	FileURL         string       `json:"fileUrl"`
	FileSize        int64        `json:"fileSize"`
	MimeType        string       `json:"mimeType"`
	Version         int          `json:"version"`
	CategoryID      *string      `json:"categoryId"`
	DepartmentID    *string      `json:"departmentId"`
	OwnerID         string       `json:"ownerId"`
	IsActive        bool         `json:"isActive"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
	Category        *Category    `json:"category,omitempty"`
	Department      *Department  `json:"department,omitempty"`
	Owner           *UserSummary `json:"owner,omitempty"`
	Tags            []Tag        `json:"tags,omitempty"`
	Versions        []Version    `json:"versions,omitempty"`
	Permissions     []Permission `json:"permissions,omitempty"`
	VersionCount    *int         `json:"versionCount,omitempty"`
	PermissionCount *int         `json:"permissionCount,omitempty"`
}

// FileRef is the blob pointer shared by documents and versions.
type FileRef struct {
	FileName string
	FileURL  string
	FileSize int64
	MimeType string
}

type Version struct {
	ID         string       `json:"id"`
	DocumentID string       `json:"documentId"`
	Version    int          `json:"version"`
	FileName   string       `json:"fileName"`
	FileURL    string       `json:"fileUrl"`
	FileSize   int64        `json:"fileSize"`
	MimeType   string       `json:"mimeType"`
	ChangeNote *string      `json:"changeNote"`
	CreatedBy  string       `json:"createdBy"`
	CreatedAt  time.Time    `json:"createdAt"`
	Document   *DocumentRef `json:"document,omitempty"`
}

func (v *Version) File() FileRef {
	return FileRef{FileName: v.FileName, FileURL: v.FileURL, FileSize: v.FileSize, MimeType: v.MimeType}
}

type Permission struct {
	ID           string       `json:"id"`
	DocumentID   string       `json:"documentId"`
	UserID       *string      `json:"userId"`
	RoleID       *string      `json:"roleId"`
	DepartmentID *string      `json:"departmentId"`
	CanRead      bool         `json:"canRead"`
	CanWrite     bool         `json:"canWrite"`
	CanDelete    bool         `json:"canDelete"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	User         *UserSummary `json:"user,omitempty"`
	Role         *Role        `json:"role,omitempty"`
	Department   *Department  `json:"department,omitempty"`
}

type Checkout struct {
	ID         string       `json:"id"`
	DocumentID string       `json:"documentId"`
	UserID     string       `json:"userId"`
	ExpiresAt  *time.Time   `json:"expiresAt"`
	CreatedAt  time.Time    `json:"createdAt"`
	User       *UserSummary `json:"user,omitempty"`
	Document   *DocumentRef `json:"document,omitempty"`
}

type AuditLog struct {
	ID         string       `json:"id"`
	UserID     *string      `json:"userId"`
	Action     string       `json:"action"`
	DocumentID *string      `json:"documentId"`
	Details    *string      `json:"details"`
	IPAddress  *string      `json:"ipAddress"`
	UserAgent  *string      `json:"userAgent"`
	CreatedAt  time.Time    `json:"createdAt"`
	User       *UserSummary `json:"user,omitempty"`
	Document   *DocumentRef `json:"document,omitempty"`
}

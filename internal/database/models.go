package database

import (
	"fmt"
	"path"
	"time"

	"media-catalog/internal/mediatypes"
)

// User is a catalog owner. Each user has a media root named after UserName.
type User struct {
	ID           int64  `json:"id"`
	UserName     string `json:"userName"`
	DisplayName  string `json:"displayName"`
	PasswordHash string `json:"-"`
}

// Photo is one catalogued media file. Name is the base file name and Folder
// the optional single sub-folder below the owner's root.
type Photo struct {
	ID          int64     `json:"id"`
	Owner       int64     `json:"owner"`
	Name        string    `json:"name"`
	Folder      string    `json:"folder,omitempty"`
	TimeCreated time.Time `json:"timeCreated"`
	FileSize    int64     `json:"fileSize"`
	Caption     string    `json:"caption,omitempty"`
}

// PhotoDraft is a Photo that has not been assigned an ID yet.
type PhotoDraft struct {
	Owner       int64
	Name        string
	Folder      string
	TimeCreated time.Time
	FileSize    int64
	Caption     string
}

func fullName(folder, name string) string {
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// FullName returns "folder/name", or just name when there is no folder.
// It is unique per owner.
func (p *Photo) FullName() string {
	return fullName(p.Folder, p.Name)
}

// FullName returns "folder/name", or just name when there is no folder.
func (d *PhotoDraft) FullName() string {
	return fullName(d.Folder, d.Name)
}

// PartialPath returns the photo's path relative to the storage root.
// The user must own the photo.
func (p *Photo) PartialPath(user *User) (string, error) {
	if user == nil || user.ID != p.Owner {
		return "", fmt.Errorf("photo %d is not owned by the given user", p.ID)
	}
	return path.Join(user.UserName, p.FullName()), nil
}

// PartialDerivativePath returns "<owner>/<id>.<ext>", the path of the
// photo's preview or thumbnail relative to the derivative root.
func (p *Photo) PartialDerivativePath() string {
	return fmt.Sprintf("%d/%d.%s", p.Owner, p.ID, mediatypes.DerivativeExtension(p.Name))
}

// ToPhoto converts a draft into a Photo with the given ID.
func (d *PhotoDraft) ToPhoto(id int64) Photo {
	return Photo{
		ID:          id,
		Owner:       d.Owner,
		Name:        d.Name,
		Folder:      d.Folder,
		TimeCreated: d.TimeCreated,
		FileSize:    d.FileSize,
		Caption:     d.Caption,
	}
}

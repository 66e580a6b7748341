package database

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxFolderNameLength bounds folder display names.
const MaxFolderNameLength = 255

// MaxRating is the highest star rating; 0 means unrated.
const MaxRating = 5

// Folder is a registered source directory.
type Folder struct {
	ID        int64
	Name      string
	Path      string
	CreatedAt time.Time

	// PhotoCount is the number of active photos; filled by GetFolder and
	// ListFolders.
	PhotoCount int
}

// Photo is one imported image. Nil capture fields are unknown.
type Photo struct {
	ID       int64
	FilePath string
	FolderID *int64

	Rating   int
	Note     string
	Tags     []string
	Lens     string
	Style    string
	Lighting string

	IsDeleted  bool
	IsFavorite bool

	ISO          *int
	FocalLength  *float64
	Aperture     *float64
	ShutterSpeed *float64

	DateCreated  time.Time
	DateImported time.Time
	DateModified time.Time
}

// NewPhoto is the input to ImportPhoto and ImportBatch.
type NewPhoto struct {
	FolderID *int64
	FilePath string

	ISO          *int
	FocalLength  *float64
	Aperture     *float64
	ShutterSpeed *float64
	Lens         string

	// DateCreated is the capture time; zero means "now".
	DateCreated time.Time
}

// Validate checks the photo path.
func (p NewPhoto) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FilePath, validation.Required, validation.By(absolutePath)),
	)
}

// PhotoUpdate carries the user-editable fields. Nil fields are left alone.
type PhotoUpdate struct {
	Rating   *int
	Note     *string
	Tags     *[]string
	Lens     *string
	Style    *string
	Lighting *string
}

// Validate checks the rating range.
func (u PhotoUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Rating, validation.Min(0), validation.Max(MaxRating)),
	)
}

// Empty reports whether the update changes nothing.
func (u PhotoUpdate) Empty() bool {
	return u.Rating == nil && u.Note == nil && u.Tags == nil &&
		u.Lens == nil && u.Style == nil && u.Lighting == nil
}

type folderInput struct {
	Name string
	Path string
}

func (f folderInput) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.Length(1, MaxFolderNameLength)),
		validation.Field(&f.Path, validation.Required, validation.By(absolutePath)),
	)
}

func absolutePath(value interface{}) error {
	s, _ := value.(string)
	if s != "" && !filepath.IsAbs(s) {
		return errors.New("must be an absolute path")
	}
	return nil
}

// NormalizeTags trims tags, drops empty ones and removes case-insensitive
// duplicates, keeping first occurrences in order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return out
}

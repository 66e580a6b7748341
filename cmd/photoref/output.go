package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"photoref/internal/database"
	"photoref/internal/library"
	"photoref/internal/mediatypes"
	"photoref/internal/memory"
)

const dateLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func stars(rating int) string {
	return strings.Repeat("*", rating) + strings.Repeat(".", database.MaxRating-rating)
}

func printPhotos(w io.Writer, photos []database.Photo) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tCREATED\tRATING\tFAV\tPATH")
	for _, p := range photos {
		fav := ""
		if p.IsFavorite {
			fav = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.DateCreated.Local().Format(dateLayout), stars(p.Rating), fav, p.FilePath)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d photos\n", len(photos))
	return nil
}

func printFolders(w io.Writer, folders []database.Folder) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tPHOTOS\tPATH")
	for _, f := range folders {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", f.ID, f.Name, f.PhotoCount, f.Path)
	}
	return tw.Flush()
}

func optional[T any](v *T, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}

func printDetails(w io.Writer, d *library.Details) error {
	p := d.Photo
	folder := "(unassigned)"
	if d.Folder != nil {
		folder = fmt.Sprintf("%s [%d]", d.Folder.Name, d.Folder.ID)
	}
	state := "active"
	if p.IsDeleted {
		state = "trash"
	}

	tw := newTable(w)
	rows := [][2]string{
		{"ID", fmt.Sprint(p.ID)},
		{"Path", p.FilePath},
		{"Type", mediatypes.GetMimeType(p.FilePath)},
		{"Folder", folder},
		{"State", state},
		{"Favorite", fmt.Sprint(p.IsFavorite)},
		{"Rating", stars(p.Rating)},
		{"Tags", orDash(strings.Join(p.Tags, ", "))},
		{"Note", orDash(p.Note)},
		{"Lens", orDash(p.Lens)},
		{"Style", orDash(p.Style)},
		{"Lighting", orDash(p.Lighting)},
		{"ISO", optional(p.ISO, "%d")},
		{"Focal length", optional(p.FocalLength, "%gmm")},
		{"Aperture", optional(p.Aperture, "f/%g")},
		{"Shutter", optional(p.ShutterSpeed, "%gs")},
		{"Created", formatTime(p.DateCreated)},
		{"Imported", formatTime(p.DateImported)},
		{"Modified", formatTime(p.DateModified)},
	}
	if d.File.Degraded() {
		rows = append(rows, [2]string{"File", "unavailable"})
	} else {
		rows = append(rows,
			[2]string{"Dimensions", fmt.Sprintf("%dx%d", d.File.Width, d.File.Height)},
			[2]string{"Size", memory.FormatBytes(d.File.Size)},
		)
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

func printStats(w io.Writer, s *library.Stats) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Library:\t%s\n", orDash(s.LibraryID))
	fmt.Fprintf(tw, "Schema version:\t%d\n", s.SchemaVersion)
	fmt.Fprintf(tw, "Folders:\t%d\n", s.Folders)
	fmt.Fprintf(tw, "Photos:\t%d\n", s.ActivePhotos)
	fmt.Fprintf(tw, "Favorites:\t%d\n", s.FavoritePhotos)
	fmt.Fprintf(tw, "Trash:\t%d\n", s.TrashedPhotos)
	fmt.Fprintf(tw, "Last import:\t%s\n", formatTime(s.LastImport))
	fmt.Fprintf(tw, "Thumbnails:\t%d (%s)\n", s.ThumbnailFiles, memory.FormatBytes(s.ThumbnailBytes))
	fmt.Fprintf(tw, "Metadata cache:\t%d entries\n", s.MetadataEntries)
	return tw.Flush()
}

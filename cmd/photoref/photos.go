package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"photoref/internal/database"
	"photoref/internal/library"
	"photoref/internal/metrics"
)

func (a *app) lsCommand() *cobra.Command {
	var (
		folderID   int64
		unassigned bool
		favorites  bool
		trash      bool
		withTrash  bool
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List photos, newest first",
		Args:  cobra.NoArgs,
		RunE: a.withLibrary(func(cmd *cobra.Command, args []string, lib *library.Library) error {
			ctx := cmd.Context()
			var (
				photos []database.Photo
				err    error
			)
			switch {
			case cmd.Flags().Changed("folder"):
				photos, err = lib.ListByFolder(ctx, folderID)
			case unassigned:
				photos, err = lib.ListUnassigned(ctx)
			case favorites:
				photos, err = lib.ListFavorites(ctx)
			case trash:
				photos, err = lib.ListTrash(ctx)
			default:
				photos, err = lib.ListAll(ctx, withTrash)
			}
			if err != nil {
				return err
			}
			return printPhotos(cmd.OutOrStdout(), photos)
		}),
	}
	cmd.Flags().Int64Var(&folderID, "folder", 0, "only photos in this folder")
	cmd.Flags().BoolVar(&unassigned, "unassigned", false, "only photos without a folder")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "only favorites")
	cmd.Flags().BoolVar(&trash, "trash", false, "only trashed photos")
	cmd.Flags().BoolVar(&withTrash, "include-trash", false, "list trashed photos along with active ones")
	cmd.MarkFlagsMutuallyExclusive("folder", "unassigned", "favorites", "trash", "include-trash")
	return cmd
}

func (a *app) searchCommand() *cobra.Command {
	var (
		opts      database.SearchOptions
		focal     float64
		folderID  int64
		trash     bool
		all       bool
		sortField string
		sortOrder string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Filter photos",
		Long: `Filter photos. Every flag is optional and flags combine with AND.
Text filters are case-insensitive substring matches.`,
		Args: cobra.NoArgs,
		RunE: a.withLibrary(func(cmd *cobra.Command, args []string, lib *library.Library) error {
			if cmd.Flags().Changed("focal") {
				opts.FocalLength = &focal
			}
			if cmd.Flags().Changed("folder") {
				opts.FolderID = &folderID
			}
			switch {
			case trash:
				opts.Scope = database.ScopeTrash
			case all:
				opts.Scope = database.ScopeAll
			}
			opts.SortField = database.SortField(sortField)
			opts.SortOrder = database.SortOrder(sortOrder)

			photos, err := lib.Search(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printPhotos(cmd.OutOrStdout(), photos)
		}),
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Keyword, "keyword", "k", "", "substring of the file path")
	f.StringVar(&opts.Lens, "lens", "", "substring of the lens")
	f.Float64Var(&focal, "focal", 0, "exact focal length in mm")
	f.StringVar(&opts.Style, "style", "", "substring of the style")
	f.StringVar(&opts.Lighting, "lighting", "", "substring of the lighting")
	f.StringVar(&opts.Tags, "tag", "", "substring of any tag")
	f.Int64Var(&folderID, "folder", 0, "folder ID")
	f.BoolVar(&opts.FavoritesOnly, "favorites", false, "only favorites")
	f.BoolVar(&trash, "trash", false, "search the trash instead")
	f.BoolVar(&all, "all", false, "search active and trashed photos")
	f.StringVar(&sortField, "sort", string(database.SortCreated), "created, imported, modified, rating or path")
	f.StringVar(&sortOrder, "order", string(database.SortDesc), "asc or desc")
	f.IntVar(&opts.Limit, "limit", 0, "maximum number of results (0 = all)")
	f.IntVar(&opts.Offset, "offset", 0, "results to skip")
	cmd.MarkFlagsMutuallyExclusive("trash", "all")
	return cmd
}

// photoCommand builds a command taking a photo ID and optional extra
// arguments.
func (a *app) photoCommand(use, short string, args cobra.PositionalArgs, fn func(cmd *cobra.Command, lib *library.Library, id int64, rest []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: a.withLibrary(func(cmd *cobra.Command, args []string, lib *library.Library) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return fn(cmd, lib, id, args[1:])
		}),
	}
}

func (a *app) showCommand() *cobra.Command {
	return a.photoCommand("show ID", "Show photo details", cobra.ExactArgs(1),
		func(cmd *cobra.Command, lib *library.Library, id int64, _ []string) error {
			details, err := lib.PhotoDetails(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printDetails(cmd.OutOrStdout(), details)
		})
}

func (a *app) favCommand(use string, favorite bool) *cobra.Command {
	short := "Mark a photo as favorite"
	if !favorite {
		short = "Clear the favorite flag"
	}
	return a.photoCommand(use+" ID", short, cobra.ExactArgs(1),
		func(cmd *cobra.Command, lib *library.Library, id int64, _ []string) error {
			_, err := lib.SetFavorite(cmd.Context(), id, favorite)
			return err
		})
}

func (a *app) rateCommand() *cobra.Command {
	return a.photoCommand("rate ID RATING", "Set the rating (0-5)", cobra.ExactArgs(2),
		func(cmd *cobra.Command, lib *library.Library, id int64, rest []string) error {
			rating, err := strconv.Atoi(rest[0])
			if err != nil {
				return fmt.Errorf("invalid rating %q", rest[0])
			}
			_, err = lib.UpdatePhoto(cmd.Context(), id, database.PhotoUpdate{Rating: &rating})
			return err
		})
}

func (a *app) tagCommand() *cobra.Command {
	return a.photoCommand("tag ID [TAG...]", "Replace the tags of a photo", cobra.MinimumNArgs(1),
		func(cmd *cobra.Command, lib *library.Library, id int64, tags []string) error {
			photo, err := lib.UpdatePhoto(cmd.Context(), id, database.PhotoUpdate{Tags: &tags})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tags: %s\n", orDash(strings.Join(photo.Tags, ", ")))
			return nil
		})
}

func (a *app) noteCommand() *cobra.Command {
	return a.photoCommand("note ID [TEXT...]", "Replace the note of a photo", cobra.MinimumNArgs(1),
		func(cmd *cobra.Command, lib *library.Library, id int64, words []string) error {
			note := strings.Join(words, " ")
			_, err := lib.UpdatePhoto(cmd.Context(), id, database.PhotoUpdate{Note: &note})
			return err
		})
}

func (a *app) attrCommand() *cobra.Command {
	var lens, style, lighting string
	cmd := a.photoCommand("attr ID", "Set lens, style or lighting", cobra.ExactArgs(1),
		func(cmd *cobra.Command, lib *library.Library, id int64, _ []string) error {
			var u database.PhotoUpdate
			if cmd.Flags().Changed("lens") {
				u.Lens = &lens
			}
			if cmd.Flags().Changed("style") {
				u.Style = &style
			}
			if cmd.Flags().Changed("lighting") {
				u.Lighting = &lighting
			}
			if u.Empty() {
				return fmt.Errorf("nothing to change: pass --lens, --style or --lighting")
			}
			_, err := lib.UpdatePhoto(cmd.Context(), id, u)
			return err
		})
	cmd.Flags().StringVar(&lens, "lens", "", "lens description")
	cmd.Flags().StringVar(&style, "style", "", "style")
	cmd.Flags().StringVar(&lighting, "lighting", "", "lighting")
	return cmd
}

func (a *app) rmCommand() *cobra.Command {
	return a.photoCommand("rm ID", "Move a photo to the trash", cobra.ExactArgs(1),
		func(cmd *cobra.Command, lib *library.Library, id int64, _ []string) error {
			_, err := lib.SoftDelete(cmd.Context(), id)
			return err
		})
}

func (a *app) restoreCommand() *cobra.Command {
	return a.photoCommand("restore ID", "Restore a photo from the trash", cobra.ExactArgs(1),
		func(cmd *cobra.Command, lib *library.Library, id int64, _ []string) error {
			_, err := lib.Restore(cmd.Context(), id)
			return err
		})
}

func (a *app) purgeCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "purge [ID]",
		Short: "Permanently remove trashed photos from the library",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withLibrary(func(cmd *cobra.Command, args []string, lib *library.Library) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("pass either a photo ID or --all")
			}
			if all {
				purged, err := lib.EmptyTrash(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d photos\n", len(purged))
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, err = lib.Purge(cmd.Context(), id)
			return err
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "empty the whole trash")
	return cmd
}

func (a *app) mvCommand() *cobra.Command {
	return a.photoCommand("mv ID FOLDER_ID|none", "Move a photo to another folder", cobra.ExactArgs(2),
		func(cmd *cobra.Command, lib *library.Library, id int64, rest []string) error {
			var folderID *int64
			if rest[0] != "none" {
				target, err := parseID(rest[0])
				if err != nil {
					return err
				}
				folderID = &target
			}
			_, err := lib.ReassignFolder(cmd.Context(), id, folderID)
			return err
		})
}

func (a *app) thumbCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "thumb [ID...]",
		Short: "Print thumbnail paths, rendering them when needed",
		RunE: a.withLibrary(func(cmd *cobra.Command, args []string, lib *library.Library) error {
			ctx := cmd.Context()
			if all {
				photos, err := lib.ListAll(ctx, false)
				if err != nil {
					return err
				}
				if err := lib.WarmThumbnails(ctx, photos); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rendered thumbnails for %d photos\n", len(photos))
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("pass photo IDs or --all")
			}
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				photo, err := lib.Photo(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), lib.Thumbnail(ctx, *photo))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "render thumbnails for every active photo")
	return cmd
}

func (a *app) statsCommand() *cobra.Command {
	var withMetrics bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		Args:  cobra.NoArgs,
		RunE: a.withLibrary(func(cmd *cobra.Command, args []string, lib *library.Library) error {
			stats, err := lib.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if err := printStats(cmd.OutOrStdout(), stats); err != nil {
				return err
			}
			if withMetrics {
				fmt.Fprintln(cmd.OutOrStdout())
				return metrics.Snapshot(cmd.OutOrStdout())
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "also print process metrics")
	return cmd
}

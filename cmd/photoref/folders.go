package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"photoref/internal/indexer"
	"photoref/internal/library"
)

func (a *app) folderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Manage registered folders",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add DIR",
			Short: "Register a directory and import its images",
			Args:  cobra.ExactArgs(1),
			RunE: a.withLibrary(func(cmd *cobra.Command, args []string, lib *library.Library) error {
				folder, result, err := lib.AddFolder(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added folder %d %q\n", folder.ID, folder.Name)
				printImport(cmd, result)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List folders",
			Args:  cobra.NoArgs,
			RunE: a.withLibrary(func(cmd *cobra.Command, args []string, lib *library.Library) error {
				folders, err := lib.Folders(cmd.Context())
				if err != nil {
					return err
				}
				return printFolders(cmd.OutOrStdout(), folders)
			}),
		},
		&cobra.Command{
			Use:   "rename ID NAME",
			Short: "Rename a folder",
			Args:  cobra.ExactArgs(2),
			RunE: a.withLibrary(func(cmd *cobra.Command, args []string, lib *library.Library) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				folder, err := lib.RenameFolder(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Folder %d is now %q\n", folder.ID, folder.Name)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rescan ID",
			Short: "Import files added to a folder",
			Args:  cobra.ExactArgs(1),
			RunE: a.withLibrary(func(cmd *cobra.Command, args []string, lib *library.Library) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				result, err := lib.Rescan(cmd.Context(), id)
				if err != nil {
					return err
				}
				printImport(cmd, result)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "rm ID",
			Short: "Remove a folder and its photos from the library",
			Long:  "Remove a folder and all of its photos, including trashed ones, from the library. Files on disk are not touched.",
			Args:  cobra.ExactArgs(1),
			RunE: a.withLibrary(func(cmd *cobra.Command, args []string, lib *library.Library) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				removed, err := lib.DeleteFolder(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed folder %d and %d photos\n", id, len(removed))
				return nil
			}),
		},
	)
	return cmd
}

func (a *app) importCommand() *cobra.Command {
	var folderID int64
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import individual files",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withLibrary(func(cmd *cobra.Command, args []string, lib *library.Library) error {
			var target *int64
			if cmd.Flags().Changed("folder") {
				target = &folderID
			}
			result, err := lib.ImportFiles(cmd.Context(), target, args)
			if err != nil {
				return err
			}
			printImport(cmd, result)
			return nil
		}),
	}
	cmd.Flags().Int64Var(&folderID, "folder", 0, "target folder ID (default: unassigned)")
	return cmd
}

func printImport(cmd *cobra.Command, result indexer.Result) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Imported %d, skipped %d, failed %d\n", len(result.Imported), len(result.Skipped), len(result.Failed))
	for _, f := range result.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", f)
	}
}

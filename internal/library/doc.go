/*
Package library is the session handle for one photoref project and the
only entry point the command line uses.

A Library owns the data store, the thumbnail cache and the metadata cache
of a project and keeps them consistent across lifecycle transitions:

	Active --SoftDelete--> SoftDeleted --Purge--> (gone)
	   ^                        |
	   +--------Restore---------+

Soft-deleting keeps derived artifacts so a restore is instant. Purge and
folder deletion drop the thumbnail and metadata entries of every removed
photo after the database transaction commits. Source files are never
touched.

Opening a project:

	cfg, err := startup.LoadConfig(dir)
	lib, err := library.Open(ctx, cfg)
	defer lib.Close()

	folder, result, err := lib.AddFolder(ctx, "/photos/beach")
	photos, err := lib.Search(ctx, database.SearchOptions{Keyword: "sunset"})
	path := lib.Thumbnail(ctx, photos[0])
*/
package library

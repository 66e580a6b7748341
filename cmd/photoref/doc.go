// Command photoref manages a personal photo reference library stored in a
// project directory.
//
// Usage:
//
//	photoref [-C project] <command> [arguments]
//
// Commands:
//
//	init                      create .ref/ in the project directory
//	folder add DIR            register DIR and import the images inside it
//	folder list               list folders with photo counts
//	folder rename ID NAME     rename a folder
//	folder rescan ID          import files added to a folder since it was added
//	folder rm ID              remove a folder and its photos (files stay on disk)
//	import FILE...            import single files (--folder ID, else unassigned)
//	ls                        list photos (--folder, --unassigned, --favorites, --trash)
//	search                    filter photos (see photoref search --help)
//	show ID                   photo details
//	fav ID / unfav ID         set or clear the favorite flag
//	rate ID N                 set the rating (0-5)
//	tag ID [TAG...]           replace the tags
//	note ID [TEXT...]         replace the note
//	attr ID                   set lens, style or lighting
//	rm ID                     move to trash
//	restore ID                bring back from trash
//	purge ID | --all          permanently remove trashed photos
//	mv ID FOLDER_ID|none      reassign a photo
//	thumb [ID...]             print thumbnail paths (--all renders every photo)
//	stats                     library and cache statistics (--metrics)
//
// Environment:
//
//	LOG_LEVEL                   debug, info, warn, error (default: info)
//	PHOTOREF_THUMBNAIL_SIZE     thumbnail bounding box in pixels
//	PHOTOREF_THUMBNAIL_QUALITY  thumbnail JPEG quality
//	PHOTOREF_WORKERS            worker pool size
//	PHOTOREF_USE_VIPS           decode through libvips when available
//	PHOTOREF_MEMORY_LIMIT       memory cap in bytes for the soft heap limit
package main

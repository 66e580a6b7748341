/*
Package memory applies a soft heap limit before large imports and
thumbnail warm-ups, and formats byte counts for reports.

Decoding full-resolution photos is the dominant allocation in the
program. When the process runs under a memory cap, ConfigureFromEnv sets
the Go runtime soft limit to a fraction of it so the collector works
harder before the cap is reached:

	GOMEMLIMIT              standard Go variable, wins when set
	PHOTOREF_MEMORY_LIMIT   cap, in bytes or with a unit ("2GiB")
	PHOTOREF_MEMORY_RATIO   share of the cap given to the heap (default 0.85)

Call it once, early in main.
*/
package memory

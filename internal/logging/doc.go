// Package logging implements erpsync.Logger on top of zerolog.
//
// Text output is line oriented and meant for a terminal or CI log:
//
//	Loading item (3/9)
//	[VERBOSE] item: 42 rows read, 40 keys known
//	[ERROR] demand: rolled back
//
// JSON output emits one object per line with level, time and message,
// for log shippers that parse structured records.
package logging

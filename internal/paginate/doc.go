// Package paginate turns a cursor-paginated, rate-limited upstream listing
// API into a single bounded call.
//
// Collect drives a page-fetch function under a record limit and a wall-clock
// budget, with optional early-exit exact-match search and case-insensitive
// substring filtering over a normalized key. Rate limiting truncates the
// enumeration gracefully (partial items plus the cursor to resume from);
// any other upstream error fails the call atomically.
package paginate

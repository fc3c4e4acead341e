// Package main provides the orgtrace CLI.
//
// The CLI supports:
//   - migrate: Create or reset the database schema
//   - seed: Preseed the organization hierarchy from a JSON file
//   - ingest: Disambiguate and load employment records from a JSON file
//   - colleagues: Query a person's colleagues
//   - path: Find the shortest path between two people
//   - timeline: List the change dates of an organization subtree
//   - stats: Show entity counts
//   - doctor: Check store health
//
// Commands that touch the database read connection settings from
// orgtrace.yaml, ORGTRACE_* environment variables, or flags.
package main

func main() {
	Execute()
}

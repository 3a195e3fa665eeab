// Package executor runs a client operation against a federation of sources.
//
// # Pipeline
//
// ExecuteRequest processes one operation in four steps:
//
//  1. Build: the operation is resolved against the global schema into a query
//     tree. Problems are collected and returned as located errors; nothing is
//     sent to any source.
//  2. Split: introspection roots (__schema, __type) are answered by the
//     gateway itself. The remaining roots are localized for every source in
//     registration order. A field no source serves fails the request with a
//     path to the field.
//  3. Fetch: every local query is sent to its Source concurrently, bounded by
//     WithMaxConcurrency. The first failure cancels the other fetches and
//     fails the request with an error wrapping ErrSourceIO. A source
//     answering with an empty list is not a failure.
//  4. Merge: once every source has answered, a merge.Engine combines the
//     responses and the introspection answers into one data object.
//
// # Errors reported by sources
//
// A source may answer with a GraphQL errors array. When it also returns data,
// its errors are passed on to the client with the source's name in
// extensions.source and the request succeeds. A response with errors and no
// data counts as a failure of the source.
//
// # Source contract
//
// Sources receive the localized tree. Fields are aliased to the response keys
// of the global query, so the JSON a source returns can be read with the
// global labels. Hidden key selections appear under their _key_ aliases.
package executor

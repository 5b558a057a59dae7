// Package feed reads the append-only stream of registry events.
//
// Events are addressed by a per-stream sequence number that only grows.
// [Feed.Query] returns events with sequence numbers strictly greater than
// the caller's cursor, oldest first. An empty page means "nothing new yet",
// never end of stream: the indexer behind the feed is eventually consistent
// and may lag the ledger.
//
// [GraphQLFeed] queries an indexer over GraphQL. [Memory] is an in-process
// feed for tests and simulations.
package feed

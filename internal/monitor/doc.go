// Package monitor implements the autonomous bidding agent.
//
// An [Agent] repeatedly queries the event feed for TaskPublished events past
// its cursor, places one bid per event through a [Submitter], and saves the
// cursor to a checkpoint store after each event is settled. Its lifecycle is
// IDLE → POLLING → PROCESSING → IDLE, with SHUTTING_DOWN reachable from any
// of them once the run context is cancelled and STOPPED as the end.
//
// # Cursor Rules
//
//   - The cursor advances to an event only after the ledger confirmed the bid,
//     reported a duplicate bid, reported the task closed or unknown, or
//     rejected the bid for a reason that can never change.
//   - Any other failure stops the batch. The event is retried after the
//     submission backoff without the cursor moving.
//   - The cursor never decreases, and the final save during shutdown happens
//     exactly once.
//
// # Cancellation
//
// Waits and feed queries observe the run context directly. A submission
// already in flight runs on a detached context bounded by the submission
// timeout, so the agent never abandons a transaction the ledger may have
// accepted.
package monitor

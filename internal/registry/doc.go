// Package registry is the client-side view of the task bidding contract.
//
// [Registry] is the set of operations a requester or a provider can propose:
// publish, bid, select a winner, complete and cancel. Each operation is
// accepted or rejected atomically by the registry; rejections are returned
// as *errors.RegistryError wrapping one of the rejection sentinels in the
// internal errors package (ErrTaskNotOpen, ErrDuplicateBid, ...).
//
// Two implementations are provided:
//
//   - [Client] proposes operations as ledger transactions and maps Move
//     abort codes back to the rejection sentinels.
//   - [Memory] is an in-process model of the same state machine with
//     escrow accounting. It backs the tests and local simulations.
//
// Winner selection is decided by the registry. Memory picks the lowest
// price, breaking ties by higher reputation and then by earlier bid; callers
// must not depend on that order.
package registry

// Package task defines the marketplace entities shared by the registry,
// the bidder and the CLI: tasks, bids, lifecycle statuses and the escrow
// settlement that a terminal transition produces.
//
// A task moves through a strictly forward lifecycle:
//
//	PUBLISHED ──select_winner──▶ ASSIGNED ──complete_task──▶ COMPLETED
//	    │
//	    └──────cancel_task──────▶ CANCELLED
//
// COMPLETED and CANCELLED are terminal. Bids are accepted only while a task
// is PUBLISHED and its deadline has not passed. Amounts are integers in the
// ledger's smallest unit (Octas); [FormatAmount] renders them for humans.
package task

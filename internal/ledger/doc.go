// Package ledger talks to a ledger full node over its REST API.
//
// The package covers exactly what the bidding system needs from the chain:
// submit a signed entry-function call, wait until it is committed, and call
// view functions. Transactions are built as JSON, turned into a signing
// message by the node's encode_submission endpoint, signed locally with the
// profile's ed25519 key and then submitted.
//
// # Confirmation
//
// [RESTClient.SubmitAndWait] returns only once the transaction is committed.
// A committed transaction that aborted is returned together with an
// [AbortError] describing the Move abort, so callers can map abort codes to
// domain rejections. Transport failures and timeouts surface as retryable
// errors from the internal errors package.
//
// # Credentials
//
// [LoadProfile] reads named profiles from an aptos CLI config.yaml.
package ledger

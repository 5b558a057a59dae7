package ledger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/a2a-aptos/bidagent/internal/errors"
)

const (
	// defaultMaxGasAmount bounds gas per transaction.
	defaultMaxGasAmount = 200_000

	// defaultGasUnitPrice is used when the node cannot estimate one.
	defaultGasUnitPrice = 100

	// defaultExpiration is how long a submitted transaction stays valid.
	defaultExpiration = 10 * time.Minute

	// defaultRequestTimeout is the per-request HTTP timeout.
	defaultRequestTimeout = 30 * time.Second

	// defaultPollInterval is the wait between confirmation checks.
	defaultPollInterval = time.Second

	// defaultConfirmTimeout bounds WaitForTransaction.
	defaultConfirmTimeout = 60 * time.Second
)

// RESTClient implements Client against a full node's REST API.
type RESTClient struct {
	http           *resty.Client
	maxGas         uint64
	pollInterval   time.Duration
	confirmTimeout time.Duration
	now            func() time.Time
}

// RESTOption configures a RESTClient.
type RESTOption func(*RESTClient)

// WithAPIKey sends key as a bearer token on every request.
func WithAPIKey(key string) RESTOption {
	return func(c *RESTClient) {
		if key != "" {
			c.http.SetAuthToken(key)
		}
	}
}

// WithRequestTimeout sets the per-request HTTP timeout.
func WithRequestTimeout(d time.Duration) RESTOption {
	return func(c *RESTClient) {
		c.http.SetTimeout(d)
	}
}

// WithConfirmTimeout bounds how long WaitForTransaction polls.
func WithConfirmTimeout(d time.Duration) RESTOption {
	return func(c *RESTClient) {
		c.confirmTimeout = d
	}
}

// WithPollInterval sets the wait between confirmation checks.
func WithPollInterval(d time.Duration) RESTOption {
	return func(c *RESTClient) {
		c.pollInterval = d
	}
}

// WithMaxGas sets the max_gas_amount of submitted transactions.
func WithMaxGas(units uint64) RESTOption {
	return func(c *RESTClient) {
		c.maxGas = units
	}
}

// WithClock overrides the clock used for transaction expiration.
func WithClock(now func() time.Time) RESTOption {
	return func(c *RESTClient) {
		c.now = now
	}
}

// NewRESTClient creates a client for the node at baseURL (e.g.
// "https://fullnode.devnet.aptoslabs.com/v1").
func NewRESTClient(baseURL string, opts ...RESTOption) *RESTClient {
	c := &RESTClient{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(defaultRequestTimeout).
			SetHeader("Accept", "application/json").
			SetHeader("Content-Type", "application/json"),
		maxGas:         defaultMaxGasAmount,
		pollInterval:   defaultPollInterval,
		confirmTimeout: defaultConfirmTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is the node's error body.
type apiError struct {
	Message     string `json:"message"`
	ErrorCode   string `json:"error_code"`
	VMErrorCode *int   `json:"vm_error_code,omitempty"`
}

// entryFunctionPayload is the JSON payload of an entry-function transaction.
type entryFunctionPayload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// userTransactionRequest is the unsigned transaction body.
type userTransactionRequest struct {
	Sender                  string               `json:"sender"`
	SequenceNumber          string               `json:"sequence_number"`
	MaxGasAmount            string               `json:"max_gas_amount"`
	GasUnitPrice            string               `json:"gas_unit_price"`
	ExpirationTimestampSecs string               `json:"expiration_timestamp_secs"`
	Payload                 entryFunctionPayload `json:"payload"`
}

type transactionSignature struct {
	Type      string `json:"type"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

type signedTransactionRequest struct {
	userTransactionRequest
	Signature transactionSignature `json:"signature"`
}

type viewRequest struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

func payloadFor(fn EntryFunction) entryFunctionPayload {
	typeArgs := fn.TypeArgs
	if typeArgs == nil {
		typeArgs = []string{}
	}
	args := fn.Args
	if args == nil {
		args = []any{}
	}
	return entryFunctionPayload{
		Type:          "entry_function_payload",
		Function:      fn.ID(),
		TypeArguments: typeArgs,
		Arguments:     args,
	}
}

// responseError converts a non-2xx response into a LedgerError.
func responseError(op string, resp *resty.Response) *errors.LedgerError {
	msg := strings.TrimSpace(string(resp.Body()))
	var body apiError
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		msg = body.Message
		if body.ErrorCode != "" {
			msg = body.ErrorCode + ": " + msg
		}
	}
	status := resp.StatusCode()
	retryable := status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout
	return errors.NewLedgerError(op, errors.New(msg)).
		WithStatusCode(status).
		WithRetryable(retryable)
}

// transportError wraps a request that never produced a response.
func transportError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return errors.Join(errors.ErrCanceled, ctx.Err())
	}
	return errors.NewLedgerError(op, err)
}

// SequenceNumber returns the next sequence number of addr.
func (c *RESTClient) SequenceNumber(ctx context.Context, addr string) (uint64, error) {
	var out struct {
		SequenceNumber string `json:"sequence_number"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("address", NormalizeAddress(addr)).
		SetResult(&out).
		Get("/accounts/{address}")
	if err != nil {
		return 0, transportError(ctx, "get account", err)
	}
	if resp.IsError() {
		return 0, responseError("get account", resp)
	}
	n, err := strconv.ParseUint(out.SequenceNumber, 10, 64)
	if err != nil {
		return 0, errors.NewLedgerError("get account", errors.ErrMalformedResponse).WithRetryable(false)
	}
	return n, nil
}

// GasUnitPrice returns the node's gas estimate, falling back to a default.
func (c *RESTClient) GasUnitPrice(ctx context.Context) uint64 {
	var out struct {
		GasEstimate uint64 `json:"gas_estimate"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/estimate_gas_price")
	if err != nil || resp.IsError() || out.GasEstimate == 0 {
		return defaultGasUnitPrice
	}
	return out.GasEstimate
}

// Submit signs fn for signer and submits it, returning the transaction hash.
func (c *RESTClient) Submit(ctx context.Context, signer Signer, fn EntryFunction) (string, error) {
	seq, err := c.SequenceNumber(ctx, signer.Address())
	if err != nil {
		return "", err
	}

	unsigned := userTransactionRequest{
		Sender:                  signer.Address(),
		SequenceNumber:          strconv.FormatUint(seq, 10),
		MaxGasAmount:            strconv.FormatUint(c.maxGas, 10),
		GasUnitPrice:            strconv.FormatUint(c.GasUnitPrice(ctx), 10),
		ExpirationTimestampSecs: strconv.FormatInt(c.now().Add(defaultExpiration).Unix(), 10),
		Payload:                 payloadFor(fn),
	}

	var encoded string
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(unsigned).
		SetResult(&encoded).
		Post("/transactions/encode_submission")
	if err != nil {
		return "", transportError(ctx, "encode submission", err)
	}
	if resp.IsError() {
		return "", responseError("encode submission", resp)
	}
	message, err := hex.DecodeString(strings.TrimPrefix(encoded, "0x"))
	if err != nil {
		return "", errors.NewLedgerError("encode submission", errors.ErrMalformedResponse).WithRetryable(false)
	}

	signed := signedTransactionRequest{
		userTransactionRequest: unsigned,
		Signature: transactionSignature{
			Type:      "ed25519_signature",
			PublicKey: "0x" + hex.EncodeToString(signer.PublicKey()),
			Signature: "0x" + hex.EncodeToString(signer.Sign(message)),
		},
	}

	var pending Transaction
	resp, err = c.http.R().
		SetContext(ctx).
		SetBody(signed).
		SetResult(&pending).
		Post("/transactions")
	if err != nil {
		return "", transportError(ctx, "submit transaction", err)
	}
	if resp.IsError() {
		return "", responseError("submit transaction", resp)
	}
	if pending.Hash == "" {
		return "", errors.NewLedgerError("submit transaction", errors.ErrMalformedResponse).WithRetryable(false)
	}
	return pending.Hash, nil
}

// TransactionByHash fetches a transaction. A transaction the node has not
// seen yet is reported as pending.
func (c *RESTClient) TransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	var tx Transaction
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("hash", hash).
		SetResult(&tx).
		Get("/transactions/by_hash/{hash}")
	if err != nil {
		return nil, transportError(ctx, "get transaction", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return &Transaction{Hash: hash, Type: "pending_transaction"}, nil
	}
	if resp.IsError() {
		return nil, responseError("get transaction", resp).WithTxHash(hash)
	}
	return &tx, nil
}

// WaitForTransaction polls until hash is committed, the confirm timeout
// elapses, or ctx is done.
func (c *RESTClient) WaitForTransaction(ctx context.Context, hash string) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		tx, err := c.TransactionByHash(ctx, hash)
		if err == nil && !tx.Pending() {
			return tx, nil
		}
		if err != nil && !errors.IsRetryable(err) && !errors.Is(err, errors.ErrCanceled) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, errors.NewTimeoutError("wait for transaction "+hash, c.confirmTimeout)
			}
			return nil, errors.Join(errors.ErrCanceled, ctx.Err())
		case <-ticker.C:
		}
	}
}

// SubmitAndWait implements Client. A committed transaction that failed is
// returned alongside an error; Move aborts are reported as *AbortError.
func (c *RESTClient) SubmitAndWait(ctx context.Context, signer Signer, fn EntryFunction) (*Transaction, error) {
	hash, err := c.Submit(ctx, signer, fn)
	if err != nil {
		return nil, err
	}
	tx, err := c.WaitForTransaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !tx.Success {
		if abort := ParseAbort(tx.VMStatus); abort != nil {
			return tx, abort
		}
		return tx, errors.NewLedgerError(fmt.Sprintf("transaction failed: %s", tx.VMStatus), nil).
			WithTxHash(hash).
			WithRetryable(false)
	}
	return tx, nil
}

// View implements Client.
func (c *RESTClient) View(ctx context.Context, fn EntryFunction) ([]json.RawMessage, error) {
	p := payloadFor(fn)
	var out []json.RawMessage
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(viewRequest{Function: p.Function, TypeArguments: p.TypeArguments, Arguments: p.Arguments}).
		SetResult(&out).
		Post("/view")
	if err != nil {
		return nil, transportError(ctx, "view "+fn.Function, err)
	}
	if resp.IsError() {
		var body apiError
		if json.Unmarshal(resp.Body(), &body) == nil {
			if abort := ParseAbort(body.Message); abort != nil {
				return nil, abort
			}
		}
		return nil, responseError("view "+fn.Function, resp)
	}
	return out, nil
}

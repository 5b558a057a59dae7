package feed

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/a2a-aptos/bidagent/internal/errors"
)

const (
	// DefaultPageSize is the number of events requested per query.
	DefaultPageSize = 25

	// defaultQueryTimeout bounds one indexer request.
	defaultQueryTimeout = 30 * time.Second
)

// eventsQuery selects one event type emitted by one account, strictly after
// a sequence number, oldest first.
const eventsQuery = `query TaskEvents($account_address: String!, $event_type: String!, $since: bigint!, $limit: Int!) {
  events(
    where: {
      account_address: { _eq: $account_address },
      type: { _eq: $event_type },
      sequence_number: { _gt: $since }
    },
    order_by: { sequence_number: asc },
    limit: $limit
  ) {
    sequence_number
    type
    data
  }
}`

// GraphQLFeed implements Feed against an indexer GraphQL endpoint.
type GraphQLFeed struct {
	http      *resty.Client
	endpoint  string
	account   string
	eventType string
}

// GraphQLOption configures a GraphQLFeed.
type GraphQLOption func(*GraphQLFeed)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) GraphQLOption {
	return func(f *GraphQLFeed) {
		f.http.SetTimeout(d)
	}
}

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) GraphQLOption {
	return func(f *GraphQLFeed) {
		if key != "" {
			f.http.SetAuthToken(key)
		}
	}
}

// NewGraphQLFeed creates a feed of eventType events emitted by account.
func NewGraphQLFeed(endpoint, account, eventType string, opts ...GraphQLOption) *GraphQLFeed {
	f := &GraphQLFeed{
		http: resty.New().
			SetTimeout(defaultQueryTimeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		endpoint:  endpoint,
		account:   account,
		eventType: eventType,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type wireEvent struct {
	SequenceNumber uintField       `json:"sequence_number"`
	Type           string          `json:"type"`
	Data           json.RawMessage `json:"data"`
}

type graphQLResponse struct {
	Data *struct {
		Events []wireEvent `json:"events"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Query implements Feed. Every failure (transport, HTTP status, malformed
// body, GraphQL errors) is returned as a *errors.FeedError.
func (f *GraphQLFeed) Query(ctx context.Context, since uint64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	resp, err := f.http.R().
		SetContext(ctx).
		SetBody(graphQLRequest{
			Query: eventsQuery,
			Variables: map[string]any{
				"account_address": f.account,
				"event_type":      f.eventType,
				"since":           since,
				"limit":           limit,
			},
		}).
		Post(f.endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Join(errors.ErrCanceled, ctx.Err())
		}
		return nil, errors.NewFeedError("indexer request failed", err).WithSince(since)
	}
	if resp.IsError() {
		return nil, errors.NewFeedError("indexer returned "+resp.Status(), nil).WithSince(since)
	}

	var body graphQLResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, errors.NewFeedError("malformed indexer response", errors.Join(errors.ErrMalformedResponse, err)).WithSince(since)
	}
	if len(body.Errors) > 0 {
		msgs := make([]string, 0, len(body.Errors))
		for _, e := range body.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, errors.NewFeedError("graphql errors: "+strings.Join(msgs, "; "), nil).WithSince(since)
	}
	if body.Data == nil {
		return nil, errors.NewFeedError("indexer response has no data", errors.ErrMalformedResponse).WithSince(since)
	}

	events := make([]Event, 0, len(body.Data.Events))
	for _, e := range body.Data.Events {
		events = append(events, Event{
			SequenceNumber: uint64(e.SequenceNumber),
			Type:           e.Type,
			Data:           e.Data,
		})
	}
	return normalize(events, since, limit), nil
}

var _ Feed = (*GraphQLFeed)(nil)

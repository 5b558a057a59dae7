package feed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/a2a-aptos/bidagent/internal/errors"
)

func TestDecodeTaskPublished(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    TaskPublished
		wantErr bool
	}{
		{
			name: "string budget",
			data: `{"task_id":"task-1","max_budget":"100000000","creator":"0xc"}`,
			want: TaskPublished{TaskID: "task-1", MaxBudget: 100_000_000, Creator: "0xc"},
		},
		{
			name: "numeric budget and deadline",
			data: `{"task_id":"task-2","max_budget":5,"deadline":"1700003600"}`,
			want: TaskPublished{TaskID: "task-2", MaxBudget: 5, Deadline: 1_700_003_600},
		},
		{
			name: "hex task id",
			data: `{"task_id":"0x7461736b2d33","max_budget":"1"}`,
			want: TaskPublished{TaskID: "task-3", MaxBudget: 1},
		},
		{name: "missing task id", data: `{"max_budget":"1"}`, wantErr: true},
		{name: "missing budget", data: `{"task_id":"t"}`, wantErr: true},
		{name: "negative budget", data: `{"task_id":"t","max_budget":"-1"}`, wantErr: true},
		{name: "not an object", data: `[1,2]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeTaskPublished(Event{SequenceNumber: 9, Data: json.RawMessage(tt.data)})
			if tt.wantErr {
				if !errors.Is(err, errors.ErrInvalidInput) {
					t.Fatalf("err = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeTaskPublished: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMemory_Query(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 5; i++ {
		m.AppendTask("t", 10)
	}
	m.AppendAt(10, "TaskPublishedEvent", json.RawMessage(`{}`))

	got, err := m.Query(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].SequenceNumber != 3 || got[1].SequenceNumber != 4 {
		t.Errorf("Query(2, 2) = %+v", got)
	}

	got, _ = m.Query(context.Background(), 5, 0)
	if len(got) != 1 || got[0].SequenceNumber != 10 {
		t.Errorf("gap not honoured: %+v", got)
	}
	if next := m.AppendTask("t", 1); next != 11 {
		t.Errorf("next sequence = %d, want 11", next)
	}

	got, _ = m.Query(context.Background(), 11, 25)
	if len(got) != 0 {
		t.Errorf("expected empty page past the head, got %+v", got)
	}
}

func TestMemory_FailNext(t *testing.T) {
	m := NewMemory()
	m.AppendTask("t", 1)
	boom := errors.New("boom")
	m.FailNext(boom)

	if _, err := m.Query(context.Background(), 0, 25); !errors.Is(err, boom) {
		t.Fatalf("first query err = %v", err)
	}
	if got, err := m.Query(context.Background(), 0, 25); err != nil || len(got) != 1 {
		t.Fatalf("second query = %v, %v", got, err)
	}
	if m.Queries() != 2 {
		t.Errorf("Queries() = %d", m.Queries())
	}
}

func TestNormalize_FiltersAndSorts(t *testing.T) {
	in := []Event{{SequenceNumber: 7}, {SequenceNumber: 3}, {SequenceNumber: 5}, {SequenceNumber: 9}}
	got := normalize(in, 3, 2)
	if len(got) != 2 || got[0].SequenceNumber != 5 || got[1].SequenceNumber != 7 {
		t.Errorf("normalize = %+v", got)
	}
}

func newIndexer(t *testing.T, handler func(w http.ResponseWriter, req graphQLRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		var req graphQLRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGraphQLFeed_Query(t *testing.T) {
	srv := newIndexer(t, func(w http.ResponseWriter, req graphQLRequest) {
		if !strings.Contains(req.Query, "order_by: { sequence_number: asc }") {
			t.Errorf("query lacks ascending order: %s", req.Query)
		}
		if req.Variables["account_address"] != "0xfeed" {
			t.Errorf("account_address = %v", req.Variables["account_address"])
		}
		if req.Variables["event_type"] != "0xfeed::bidding_system::TaskPublishedEvent" {
			t.Errorf("event_type = %v", req.Variables["event_type"])
		}
		if req.Variables["since"] != float64(41) || req.Variables["limit"] != float64(25) {
			t.Errorf("since/limit = %v/%v", req.Variables["since"], req.Variables["limit"])
		}
		_, _ = w.Write([]byte(`{"data":{"events":[
			{"sequence_number":"43","data":{"task_id":"b","max_budget":"2"}},
			{"sequence_number":42,"data":{"task_id":"a","max_budget":"1"}},
			{"sequence_number":41,"data":{"task_id":"old","max_budget":"1"}}
		]}}`))
	})

	f := NewGraphQLFeed(srv.URL, "0xfeed", "0xfeed::bidding_system::TaskPublishedEvent", WithTimeout(time.Second))
	got, err := f.Query(context.Background(), 41, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].SequenceNumber != 42 || got[1].SequenceNumber != 43 {
		t.Fatalf("Query = %+v", got)
	}
	tp, err := DecodeTaskPublished(got[0])
	if err != nil || tp.TaskID != "a" {
		t.Errorf("decoded %+v, %v", tp, err)
	}
}

func TestGraphQLFeed_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusBadGateway, `{"message":"upstream"}`},
		{"malformed json", http.StatusOK, `{"data":`},
		{"graphql errors", http.StatusOK, `{"errors":[{"message":"field 'events' not found"}]}`},
		{"no data", http.StatusOK, `{}`},
		{"bad sequence number", http.StatusOK, `{"data":{"events":[{"sequence_number":"x","data":{}}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newIndexer(t, func(w http.ResponseWriter, _ graphQLRequest) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			f := NewGraphQLFeed(srv.URL, "0x1", "e")
			got, err := f.Query(context.Background(), 7, 25)
			if got != nil {
				t.Errorf("events = %+v, want nil", got)
			}
			var ferr *errors.FeedError
			if !errors.As(err, &ferr) {
				t.Fatalf("err = %v, want FeedError", err)
			}
			if ferr.Since != 7 || !errors.IsRetryable(err) {
				t.Errorf("FeedError = %+v", ferr)
			}
		})
	}
}

func TestGraphQLFeed_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := NewGraphQLFeed(url, "0x1", "e", WithTimeout(time.Second))
	_, err := f.Query(context.Background(), 0, 25)
	var ferr *errors.FeedError
	if !errors.As(err, &ferr) {
		t.Fatalf("err = %v, want FeedError", err)
	}
}

func TestGraphQLFeed_Canceled(t *testing.T) {
	srv := newIndexer(t, func(w http.ResponseWriter, _ graphQLRequest) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"data":{"events":[]}}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	f := NewGraphQLFeed(srv.URL, "0x1", "e")
	_, err := f.Query(ctx, 0, 25)
	if !errors.Is(err, errors.ErrCanceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
}

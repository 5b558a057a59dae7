package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/a2a-aptos/bidagent/internal/errors"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusPublished, "PUBLISHED"},
		{StatusAssigned, "ASSIGNED"},
		{StatusCompleted, "COMPLETED"},
		{StatusCancelled, "CANCELLED"},
		{Status(0), "UNKNOWN(0)"},
		{Status(9), "UNKNOWN(9)"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := map[Status]bool{
		StatusPublished: false,
		StatusAssigned:  false,
		StatusCompleted: true,
		StatusCancelled: true,
	}
	for s, want := range tests {
		if got := s.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, got, want)
		}
	}
	if Status(5).IsValid() || !StatusAssigned.IsValid() {
		t.Error("IsValid mismatch")
	}
}

func TestCanTransition(t *testing.T) {
	all := []Status{StatusPublished, StatusAssigned, StatusCompleted, StatusCancelled}
	allowed := map[[2]Status]bool{
		{StatusPublished, StatusAssigned}:  true,
		{StatusPublished, StatusCancelled}: true,
		{StatusAssigned, StatusCompleted}:  true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTask_AcceptsBids(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tk := &Task{Status: StatusPublished, Deadline: now.Add(time.Hour)}

	if !tk.AcceptsBids(now) {
		t.Error("open task before deadline should accept bids")
	}
	if tk.AcceptsBids(now.Add(time.Hour)) {
		t.Error("bid exactly at deadline should be rejected")
	}
	tk.Status = StatusAssigned
	if tk.AcceptsBids(now) {
		t.Error("assigned task should not accept bids")
	}
}

func TestTask_CloneIsIndependent(t *testing.T) {
	tk := &Task{ID: "t", Bids: []Bid{{Bidder: "0xa", Price: 1}}}
	c := tk.Clone()
	c.Bids[0].Price = 99
	c.Bids = append(c.Bids, Bid{Bidder: "0xb"})

	if tk.Bids[0].Price != 1 || len(tk.Bids) != 1 {
		t.Errorf("Clone shares bid storage: %+v", tk.Bids)
	}
	if !tk.HasBidFrom("0xa") || tk.HasBidFrom("0xb") {
		t.Error("HasBidFrom mismatch")
	}
}

func TestSettlements_ConserveBudget(t *testing.T) {
	tk := &Task{Creator: "0xc", MaxBudget: 100_000_000, Winner: "0xw", WinningPrice: 80_000_000}

	done := CompletionSettlement(tk)
	if done.ToWinner != 80_000_000 || done.ToCreator != 20_000_000 {
		t.Errorf("CompletionSettlement = %+v", done)
	}
	if done.Total() != tk.MaxBudget {
		t.Errorf("completion releases %d, want %d", done.Total(), tk.MaxBudget)
	}

	cancel := CancellationSettlement(tk)
	if cancel.ToWinner != 0 || cancel.ToCreator != tk.MaxBudget || cancel.Winner != "" {
		t.Errorf("CancellationSettlement = %+v", cancel)
	}
}

func TestStats_SuccessRate(t *testing.T) {
	if (Stats{}).SuccessRate() != 0 {
		t.Error("empty stats should have 0 success rate")
	}
	s := Stats{TotalTasks: 4, CompletedTasks: 1, CancelledTasks: 1}
	if got := s.SuccessRate(); got != 25 {
		t.Errorf("SuccessRate() = %v, want 25", got)
	}
}

func TestTask_JSONOmitsUnsetWinner(t *testing.T) {
	data, err := json.Marshal(&Task{ID: "t", Status: StatusPublished})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["winner"]; ok {
		t.Error("winner should be omitted before assignment")
	}
	if _, ok := m["completed_at"]; ok {
		t.Error("completed_at should be omitted before completion")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		octas uint64
		want  string
	}{
		{0, "0.00000000 APT (0 Octas)"},
		{1, "0.00000001 APT (1 Octas)"},
		{80_000_000, "0.80000000 APT (80000000 Octas)"},
		{100_000_000, "1.00000000 APT (100000000 Octas)"},
		{250_000_001, "2.50000001 APT (250000001 Octas)"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.octas); got != tt.want {
			t.Errorf("FormatAmount(%d) = %q, want %q", tt.octas, got, tt.want)
		}
	}
}

func TestValidatePublish(t *testing.T) {
	if err := ValidatePublish("task-1", 1, 1); err != nil {
		t.Errorf("valid args rejected: %v", err)
	}
	tests := []struct {
		name     string
		id       string
		budget   uint64
		deadline int64
	}{
		{"empty id", " ", 1, 1},
		{"zero budget", "t", 0, 1},
		{"zero deadline", "t", 1, 0},
		{"negative deadline", "t", 1, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePublish(tt.id, tt.budget, tt.deadline)
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("ValidatePublish() = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestValidateBid(t *testing.T) {
	if err := ValidateBid("t", 1, 100); err != nil {
		t.Errorf("valid args rejected: %v", err)
	}
	for _, tc := range []struct {
		id    string
		price uint64
		rep   int
	}{
		{"", 1, 1},
		{"t", 0, 1},
		{"t", 1, 101},
		{"t", 1, -1},
	} {
		if err := ValidateBid(tc.id, tc.price, tc.rep); !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("ValidateBid(%q, %d, %d) = %v", tc.id, tc.price, tc.rep, err)
		}
	}
}

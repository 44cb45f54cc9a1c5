package types

import "testing"

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status OrderStatus
		want   bool
	}{
		{StatusInProgress, false},
		{StatusIncomplete, false},
		{StatusPartiallyCompleted, false},
		{StatusCompleted, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("OrderStatus(%q).Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

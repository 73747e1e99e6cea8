package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarchant/vesper/internal/domain"
)

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    domain.OrderStatus
		wantErr bool
	}{
		{name: "canonical", input: "PENDING", want: domain.StatusPending},
		{name: "lowercase", input: "paid", want: domain.StatusPaid},
		{name: "mixed case with whitespace", input: "  Shipped ", want: domain.StatusShipped},
		{name: "unknown", input: "ARCHIVED", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseOrderStatus(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from domain.OrderStatus
		to   domain.OrderStatus
		want bool
	}{
		{domain.StatusPending, domain.StatusPaid, true},
		{domain.StatusPending, domain.StatusCancelled, true},
		{domain.StatusPending, domain.StatusFailed, true},
		{domain.StatusPending, domain.StatusShipped, false},
		{domain.StatusPaid, domain.StatusProcessing, true},
		{domain.StatusPaid, domain.StatusRefunded, true},
		{domain.StatusPaid, domain.StatusCancelled, true},
		{domain.StatusPaid, domain.StatusDelivered, false},
		{domain.StatusProcessing, domain.StatusShipped, true},
		{domain.StatusProcessing, domain.StatusCancelled, true},
		{domain.StatusProcessing, domain.StatusRefunded, false},
		{domain.StatusShipped, domain.StatusDelivered, true},
		{domain.StatusShipped, domain.StatusCancelled, false},
		{domain.StatusDelivered, domain.StatusRefunded, true},
		// No path out of terminal statuses.
		{domain.StatusCancelled, domain.StatusPending, false},
		{domain.StatusFailed, domain.StatusPending, false},
		{domain.StatusRefunded, domain.StatusPaid, false},
		// No self transitions.
		{domain.StatusPaid, domain.StatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, domain.CanTransition(tt.from, tt.to))
		})
	}
}

func TestNextStatuses(t *testing.T) {
	assert.ElementsMatch(t,
		[]domain.OrderStatus{domain.StatusPaid, domain.StatusCancelled, domain.StatusFailed},
		domain.NextStatuses(domain.StatusPending),
	)
	assert.Empty(t, domain.NextStatuses(domain.StatusCancelled))
	assert.Empty(t, domain.NextStatuses(domain.StatusFailed))
	assert.Empty(t, domain.NextStatuses(domain.StatusRefunded))
}

func TestReleasesStock(t *testing.T) {
	tests := []struct {
		from domain.OrderStatus
		to   domain.OrderStatus
		want bool
	}{
		// Cancellation and decline hand reserved stock back.
		{domain.StatusPending, domain.StatusCancelled, true},
		{domain.StatusPending, domain.StatusFailed, true},
		{domain.StatusPaid, domain.StatusCancelled, true},
		{domain.StatusProcessing, domain.StatusCancelled, true},
		// Forward progress keeps the reservation.
		{domain.StatusPending, domain.StatusPaid, false},
		{domain.StatusProcessing, domain.StatusShipped, false},
		{domain.StatusShipped, domain.StatusDelivered, false},
		// Shipped stock already left the warehouse; a refund does not
		// put it back on the shelf.
		{domain.StatusPaid, domain.StatusRefunded, false},
		{domain.StatusDelivered, domain.StatusRefunded, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ReleasesStock(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []domain.OrderStatus{domain.StatusCancelled, domain.StatusFailed, domain.StatusRefunded} {
		assert.True(t, domain.IsTerminal(s), string(s))
	}
	for _, s := range []domain.OrderStatus{domain.StatusPending, domain.StatusPaid, domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered} {
		assert.False(t, domain.IsTerminal(s), string(s))
	}
}

package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

func TestResolveMode(t *testing.T) {
	tests := []struct {
		in      domain.PaymentMode
		want    domain.PaymentMode
		wantErr error
	}{
		{"", domain.PaymentModeCash, nil},
		{domain.PaymentModeCash, domain.PaymentModeCash, nil},
		{domain.PaymentModeCheque, domain.PaymentModeCheque, nil},
		{"CASH", "", domain.ErrInvalidPaymentMode},
		{"transfer", "", domain.ErrInvalidPaymentMode},
	}

	for _, tc := range tests {
		t.Run(string(tc.in), func(t *testing.T) {
			got, err := ResolveMode(tc.in)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

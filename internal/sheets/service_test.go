package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skontokit/pkg/models"
)

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "full edit URL",
			url:  "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/edit#gid=0",
			want: "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
		},
		{
			name: "bare sheet URL",
			url:  "https://docs.google.com/spreadsheets/d/abc-123_XYZ",
			want: "abc-123_XYZ",
		},
		{
			name:    "not a sheets URL",
			url:     "https://example.com/document/42",
			wantErr: true,
		},
		{
			name:    "empty",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractSpreadsheetID(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecisionRowMatchesHeader(t *testing.T) {
	decision := models.Decision{
		DecidedAt:             time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC),
		Currency:              "EUR",
		FullAmountCents:       10000,
		DiscountedAmountCents: 9700,
		FinalAmountCents:      9700,
		SavingsCents:          300,
		Percentage:            3,
		DueDate:               time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		RemainingDays:         14,
		PaymentMethod:         "other",
		EdgeCase:              "none",
		IsApplied:             true,
		Reference:             "invoice.pdf",
	}

	row := DecisionRow(decision)
	require.Len(t, row, len(Header()))

	assert.Equal(t, "2026-08-29T10:30:00Z", row[0])
	assert.Equal(t, "invoice.pdf", row[1])
	assert.Equal(t, "EUR", row[2])
	assert.Equal(t, 100.0, row[3])
	assert.Equal(t, 97.0, row[4])
	assert.Equal(t, 97.0, row[5])
	assert.Equal(t, 3.0, row[6])
	assert.Equal(t, 3.0, row[7])
	assert.Equal(t, "2026-09-12", row[8])
	assert.Equal(t, 14, row[9])
	assert.Equal(t, "other", row[10])
	assert.Equal(t, "none", row[11])
	assert.Equal(t, true, row[12])
}

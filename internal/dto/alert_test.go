package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func record(output *string) ExecutionLogRecord {
	return ExecutionLogRecord{
		ID:             42,
		ExecutedAt:     time.Date(2025, time.May, 2, 10, 0, 0, 0, time.UTC),
		Success:        true,
		ResponseOutput: output,
	}
}

func TestDecodeAlertPayload(t *testing.T) {
	tests := []struct {
		name   string
		output *string
		want   *AlertResult
	}{
		{
			name:   "absent output",
			output: nil,
			want:   nil,
		},
		{
			name:   "empty output",
			output: strPtr(""),
			want:   nil,
		},
		{
			name:   "non-JSON output",
			output: strPtr("exit status 1: connection refused"),
			want:   nil,
		},
		{
			name:   "JSON without result key",
			output: strPtr(`{"status":"ok","duration_ms":321}`),
			want:   nil,
		},
		{
			name:   "result explicitly null",
			output: strPtr(`{"result":null}`),
			want:   nil,
		},
		{
			name:   "partial result keeps missing fields nil",
			output: strPtr(`{"result":{"stock_symbol":"AAPL","current_price":242.841}}`),
			want: &AlertResult{
				StockSymbol:  strPtr("AAPL"),
				CurrentPrice: floatPtr(242.841),
			},
		},
		{
			name: "full result copies all eight fields",
			output: strPtr(`{"result":{
				"stock_symbol":"MSFT",
				"current_price":431.2,
				"daily_change_amount":-1.6,
				"daily_change_percentage":-0.37,
				"timestamp":"2025-05-02T10:00:00Z",
				"market_status":"open",
				"email_sent":true,
				"recipient_email":"ops@example.com"
			}}`),
			want: &AlertResult{
				StockSymbol:           strPtr("MSFT"),
				CurrentPrice:          floatPtr(431.2),
				DailyChangeAmount:     floatPtr(-1.6),
				DailyChangePercentage: floatPtr(-0.37),
				Timestamp:             strPtr("2025-05-02T10:00:00Z"),
				MarketStatus:          strPtr("open"),
				EmailSent:             boolPtr(true),
				RecipientEmail:        strPtr("ops@example.com"),
			},
		},
		{
			name:   "zero price stays distinct from missing price",
			output: strPtr(`{"result":{"current_price":0}}`),
			want: &AlertResult{
				CurrentPrice: floatPtr(0),
			},
		},
		{
			name:   "unknown keys in result are ignored",
			output: strPtr(`{"result":{"stock_symbol":"NVDA","volume":123456}}`),
			want: &AlertResult{
				StockSymbol: strPtr("NVDA"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeAlertPayload(record(tt.output))
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeAlertPayloadNeverPanics(t *testing.T) {
	// Shapes that have broken JSON decoders before: wrong types, deep
	// nesting, truncated documents.
	hostile := []string{
		`{"result":[1,2,3]}`,
		`{"result":"a string"}`,
		`{"result":{"current_price":"not a number"}}`,
		`{"result":{"email_sent":"yes"}}`,
		`{"result":{`,
		`[]`,
		`null`,
		`0`,
	}
	for _, raw := range hostile {
		assert.NotPanics(t, func() {
			DecodeAlertPayload(record(&raw))
		}, "payload %q", raw)
	}
}

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

package dto

import "encoding/json"

// AlertResult is the business payload the job embeds in a log record's
// response_output. Every field is optional: the payload may be absent,
// malformed, or missing keys, and a nil field means "no data", which is
// distinct from a zero value.
type AlertResult struct {
	StockSymbol           *string  `json:"stock_symbol,omitempty"`
	CurrentPrice          *float64 `json:"current_price,omitempty"`
	DailyChangeAmount     *float64 `json:"daily_change_amount,omitempty"`
	DailyChangePercentage *float64 `json:"daily_change_percentage,omitempty"`
	Timestamp             *string  `json:"timestamp,omitempty"`
	MarketStatus          *string  `json:"market_status,omitempty"`
	EmailSent             *bool    `json:"email_sent,omitempty"`
	RecipientEmail        *string  `json:"recipient_email,omitempty"`
}

// AlertHistoryItem pairs a log record's identity and outcome with its
// decoded payload. Result is nil when the payload could not be decoded.
type AlertHistoryItem struct {
	ID           uint         `json:"id"`
	ExecutedAt   string       `json:"executed_at"`
	Success      bool         `json:"success"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	Result       *AlertResult `json:"result"`
}

type alertEnvelope struct {
	Result *AlertResult `json:"result"`
}

// DecodeAlertPayload extracts the alert result embedded in a log record.
// Upstream log content is untrusted, so every failure mode maps to nil:
// absent output, non-JSON output, or JSON without a result key.
func DecodeAlertPayload(record ExecutionLogRecord) *AlertResult {
	if record.ResponseOutput == nil || *record.ResponseOutput == "" {
		return nil
	}

	var envelope alertEnvelope
	if err := json.Unmarshal([]byte(*record.ResponseOutput), &envelope); err != nil {
		return nil
	}
	return envelope.Result
}

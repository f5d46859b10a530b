package common

const (
	KEY_RECIPIENT_EMAIL = "recipient_email"
	KEY_ALERT_PAYLOAD   = "alert_payload:%d"
)

const (
	KEY_LOG_HOOK_SEND_ALERT = "send_alert"
)

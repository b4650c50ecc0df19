package domain

// NoticeLevel is the severity of a user-facing message.
type NoticeLevel string

const (
	NoticeStatus  NoticeLevel = "status"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a message meant for the person using the form.
// Operator detail belongs in the logs, never here.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

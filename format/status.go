// Package format renders user-facing status lines.
package format

const (
	errorPrefix   = "⚠️ Error: "
	successPrefix = "✅ "
	tooltipPrefix = "💡 "
)

func CreateErrorMessageText(text string) string {
	return errorPrefix + text
}

func CreateSuccessMessageText(text string) string {
	return successPrefix + text
}

func CreateTooltipMessageText(text string) string {
	return tooltipPrefix + text
}

// ErrorText renders err, or the empty string for nil.
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	return CreateErrorMessageText(err.Error())
}

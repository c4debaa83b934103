package format

import (
	"errors"
	"testing"
)

func TestStatusText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"error", CreateErrorMessageText("disk full"), "⚠️ Error: disk full"},
		{"success", CreateSuccessMessageText("done"), "✅ done"},
		{"tooltip", CreateTooltipMessageText("tip"), "💡 tip"},
		{"empty error", CreateErrorMessageText(""), "⚠️ Error: "},
		{"error value", ErrorText(errors.New("timeout")), "⚠️ Error: timeout"},
		{"nil error", ErrorText(nil), ""},
	}
	for _, test := range tests {
		if test.got != test.want {
			t.Errorf("%s: got %q, want %q", test.name, test.got, test.want)
		}
	}
}

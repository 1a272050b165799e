package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		wantValid  bool
		wantErrors int
	}{
		{"strong password", "Spa#2025x", true, 0},
		{"too short", "Ab1!", false, 1},
		{"no uppercase", "relax#2025", false, 1},
		{"no lowercase", "RELAX#2025", false, 1},
		{"no digit", "Relaxing#Spa", false, 1},
		{"no special", "Relaxing2025", false, 1},
		{"empty", "", false, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := ValidatePassword(tt.password)
			assert.Equal(t, tt.wantValid, report.IsValid)
			assert.Len(t, report.Errors, tt.wantErrors)
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	got := SanitizeInput(`<script>alert("x") & 'y'</script>`)
	assert.Equal(t, "&lt;script&gt;alert(&quot;x&quot;) &amp; &#x27;y&#x27;&lt;/script&gt;", got)
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("ana@example.com"))
	assert.False(t, ValidateEmail("ana@example"))
	assert.False(t, ValidateEmail("ana example@x.com"))
	assert.False(t, ValidateEmail(""))
}

package cli

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		width     int
		alignment Alignment
		want      []string
	}{
		{
			name:      "center",
			text:      "hi",
			width:     10,
			alignment: AlignCenter,
			want:      []string{"╒════════╕", "│   hi   │", "└────────┘"},
		},
		{
			name:      "left",
			text:      "hi",
			width:     6,
			alignment: AlignLeft,
			want:      []string{"╒════╕", "│hi  │", "└────┘"},
		},
		{
			name:      "right",
			text:      "hi",
			width:     6,
			alignment: AlignRight,
			want:      []string{"╒════╕", "│  hi│", "└────┘"},
		},
		{
			name:      "truncated",
			text:      "abcdefghij",
			width:     6,
			alignment: AlignLeft,
			want:      []string{"╒════╕", "│abc…│", "└────┘"},
		},
		{
			name:      "multi line",
			text:      "a\r\nb",
			width:     3,
			alignment: AlignLeft,
			want:      []string{"╒═╕", "│a│", "│b│", "└─┘"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, strings.Join(tt.want, "\n"), Banner(tt.text, tt.width, tt.alignment))
		})
	}
}

func TestBannerTooNarrow(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Banner("hi", 2, AlignLeft))
	assert.Empty(t, VerdictBanner("s1", "Positive", true, 0))
}

func TestVerdictBanner(t *testing.T) { //nolint:paralleltest
	prev := color.NoColor
	color.NoColor = true

	t.Cleanup(func() { color.NoColor = prev })

	out := VerdictBanner("s1", "Negative", true, 14)
	lines := strings.Split(out, "\n")

	require.Len(t, lines, 4)
	assert.Equal(t, "│ sample s1  │", lines[1])
	assert.Equal(t, "│  Negative  │", lines[2])
}

func TestValidateSequence(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateSequence("acgt"))
	require.NoError(t, ValidateSequence(" ORF1 N\tE "))
	require.ErrorIs(t, ValidateSequence("   "), ErrEmptyInput)

	err := ValidateSequence("AC-G")
	require.ErrorIs(t, err, ErrInvalidSequence)
	assert.Contains(t, err.Error(), "position 3")
}

func TestNormalizeSequence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ORF1acgtN", NormalizeSequence(" ORF1 ac gt\nN "))
}

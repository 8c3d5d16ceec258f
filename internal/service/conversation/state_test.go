package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotTokenRoundTrip(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Johannesburg")
	require.NoError(t, err)

	start := time.Date(2026, 9, 15, 10, 30, 0, 0, loc)
	token := EncodeSlotToken(start)
	assert.Equal(t, "book_slot_2026-09-15 10:30", token)

	parsed, err := ParseSlotToken(token, loc)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(start))
	assert.Equal(t, loc, parsed.Location())
}

func TestParseSlotTokenRejectsGarbage(t *testing.T) {
	loc := time.UTC

	for _, token := range []string{
		"",
		"book_slot_",
		"book_slot_tomorrow",
		"book_slot_2026-09-15",
		"pick_slot_2026-09-15 10:30",
		"2026-09-15 10:30",
	} {
		_, err := ParseSlotToken(token, loc)
		assert.Error(t, err, "token %q should not parse", token)
	}
}

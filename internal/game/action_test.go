package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		token string
		want  Action
	}{
		{"fold", Fold()},
		{"pack", Fold()},
		{"PACK", Fold()},
		{"see", See()},
		{"bet", Bet(25)},
		{" chaal ", Bet(25)},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseAction(tt.token, 25)
			require.NoError(t, err)
			if tt.want.Kind != ActionBet {
				tt.want.Amount = 0
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseAction("show", 0)
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", ErrInvalidBet)))
	assert.True(t, IsValidation(ErrRoomFull))
	assert.False(t, IsValidation(ErrEmptyDeck))
	assert.False(t, IsValidation(ErrSeatOutOfRange))
	assert.False(t, IsValidation(nil))
}

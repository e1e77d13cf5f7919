package cs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leighmacdonald/slottrack/internal/cs"
)

func TestParseTeam(t *testing.T) {
	require.Equal(t, cs.T, cs.ParseTeam("TERRORIST"))
	require.Equal(t, cs.T, cs.ParseTeam("t"))
	require.Equal(t, cs.CT, cs.ParseTeam("CT"))
	require.Equal(t, cs.Spectator, cs.ParseTeam("Spectator"))
	require.Equal(t, cs.Unassigned, cs.ParseTeam(""))
	require.Equal(t, cs.Unassigned, cs.ParseTeam("something"))
}

func TestTeamPlaying(t *testing.T) {
	require.True(t, cs.T.Playing())
	require.True(t, cs.CT.Playing())
	require.False(t, cs.Spectator.Playing())
	require.False(t, cs.Unassigned.Playing())
}

func TestTeamOpposite(t *testing.T) {
	require.Equal(t, cs.CT, cs.T.Opposite())
	require.Equal(t, cs.T, cs.CT.Opposite())
	require.Equal(t, cs.Unassigned, cs.Spectator.Opposite())
}

func TestParseCVarValue(t *testing.T) {
	response := `"mp_roundtime" = "1.92" ( def. "5" ) min. 1.000000 max. 60.000000
 - How many minutes each round takes.`

	value, err := cs.ParseCVarValue(response, "mp_roundtime")
	require.NoError(t, err)
	require.Equal(t, "1.92", value)

	_, errMissing := cs.ParseCVarValue(response, "sv_password")
	require.ErrorIs(t, errMissing, cs.ErrCVarNotFound)
}

func TestParseCVarValueIsForm(t *testing.T) {
	value, err := cs.ParseCVarValue(`"sv_password" is "hunter2"`, "sv_password")
	require.NoError(t, err)
	require.Equal(t, "hunter2", value)
}

func TestRoundSeconds(t *testing.T) {
	seconds, err := cs.RoundSeconds("1.92")
	require.NoError(t, err)
	require.Equal(t, 115, seconds)

	seconds, err = cs.RoundSeconds("2")
	require.NoError(t, err)
	require.Equal(t, 120, seconds)

	_, errBad := cs.RoundSeconds("abc")
	require.ErrorIs(t, errBad, cs.ErrCVarValue)

	_, errZero := cs.RoundSeconds("0")
	require.ErrorIs(t, errZero, cs.ErrCVarValue)
}

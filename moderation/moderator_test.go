package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Censor_Replaces_Forbidden_Word(t *testing.T) {
	req := require.New(t)
	m, err := NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	out, found := m.Censor("well badword indeed")
	req.Equal("well ******* indeed", out)
	req.Len(found, 1)
}

func Test_Censor_Catches_Leet_Speak(t *testing.T) {
	req := require.New(t)
	m, err := NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	out, found := m.Censor("b4dw0rd")
	req.Equal("*******", out)
	req.Len(found, 1)
}

func Test_Censor_Leaves_Clean_Text_Alone(t *testing.T) {
	req := require.New(t)
	m, err := NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	out, found := m.Censor("a perfectly fine sentence")
	req.Equal("a perfectly fine sentence", out)
	req.Empty(found)
}

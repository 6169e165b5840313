package signal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeData(t *testing.T) {
	var p struct {
		Nickname string `json:"nickname"`
	}
	assert.NoError(t, decodeData(nil, &p))
	assert.NoError(t, decodeData(json.RawMessage("null"), &p))
	assert.Empty(t, p.Nickname)

	assert.NoError(t, decodeData(json.RawMessage(`{"nickname":"Ann"}`), &p))
	assert.Equal(t, "Ann", p.Nickname)

	assert.Error(t, decodeData(json.RawMessage(`{"nickname":42}`), &p))
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "unjoined", stateUnjoined.String())
	assert.Equal(t, "joined", stateJoined.String())
	assert.Equal(t, "closed", stateClosed.String())
}

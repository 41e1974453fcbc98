package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSendAfterCloseReturnsError(t *testing.T) {
	c := &wsConn{send: make(chan any, sendBuffer), logger: zap.NewNop()}
	c.Close()

	err := c.Send(errorFrame("late frame"))
	assert.ErrorIs(t, err, errConnClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	c := &wsConn{send: make(chan any, sendBuffer), logger: zap.NewNop()}
	c.Close()
	c.Close()

	assert.ErrorIs(t, c.Send("frame"), errConnClosed)
}

func TestSendReportsFullBuffer(t *testing.T) {
	c := &wsConn{send: make(chan any, 1), logger: zap.NewNop()}
	require.NoError(t, c.Send("first"))
	assert.ErrorIs(t, c.Send("second"), errSendBufferFull)
}

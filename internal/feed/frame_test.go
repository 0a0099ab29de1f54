package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantID   string
		wantErr  bool
		wantTick bool
	}{
		{"market_id", `{"market_id":"0x1","size":10,"price":0.5}`, "0x1", false, true},
		{"marketId", `{"marketId":"0x2","amount":"3","last_price":"0.2"}`, "0x2", false, true},
		{"condition_id", `{"condition_id":"0x3"}`, "0x3", false, false},
		{"priority", `{"condition_id":"c","marketId":"b","market_id":"a"}`, "a", false, false},
		{"empty market_id falls through", `{"market_id":"","marketId":"b"}`, "b", false, false},
		{"numeric id ignored", `{"market_id":42,"condition_id":"c"}`, "c", false, false},
		{"no id", `{"type":"heartbeat"}`, "", false, false},
		{"invalid json", `not json`, "", true, false},
		{"array", `[1,2,3]`, "", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseFrame([]byte(tt.data), time.Now())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, msg.MarketID)
			_, ok := msg.Tick()
			assert.Equal(t, tt.wantTick, ok)
		})
	}
}

func TestSubscribeFrame(t *testing.T) {
	data, err := json.Marshal(NewSubscribeFrame("0xabc"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"market","channel":"trades","market_id":"0xabc"}`, string(data))
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateOpen, "open"},
		{StateClosing, "closing"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

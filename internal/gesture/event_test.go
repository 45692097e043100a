package gesture

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_MarshalJSON(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Pan(0, 40), `{"type":"pan","dx":0,"dy":40}`},
		{Pan(-25, 0), `{"type":"pan","dx":-25,"dy":0}`},
		{Zoom(40), `{"type":"zoom","delta":40}`},
		{Zoom(-33), `{"type":"zoom","delta":-33}`},
		{Rotate(60), `{"type":"rotate","delta":60}`},
	}

	for _, tt := range tests {
		t.Run(tt.event.String(), func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestEvent_MarshalJSON_UnknownKind(t *testing.T) {
	_, err := json.Marshal(Event{Kind: "swipe"})
	assert.Error(t, err)
}

func TestEvent_UnmarshalJSON(t *testing.T) {
	var e Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"zoom","delta":-12,"dx":5}`), &e))
	assert.Equal(t, Zoom(-12), e)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"pan","dx":3,"dy":-4}`), &e))
	assert.Equal(t, Pan(3, -4), e)

	assert.Error(t, json.Unmarshal([]byte(`{"type":"wave"}`), &e))
	assert.Error(t, json.Unmarshal([]byte(`not json`), &e))
}

func TestEvent_String(t *testing.T) {
	assert.Equal(t, "pan +0,+40", Pan(0, 40).String())
	assert.Equal(t, "zoom -5", Zoom(-5).String())
	assert.Equal(t, "rotate +60", Rotate(60).String())
}

func TestKind_Valid(t *testing.T) {
	for _, k := range Kinds {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("Pan").Valid())
}

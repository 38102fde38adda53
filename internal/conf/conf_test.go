package conf

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDurationUnmarshal(t *testing.T) {
	cases := map[string]time.Duration{
		`"30s"`:  30 * time.Second,
		`"10m"`:  10 * time.Minute,
		`"1.5"`:  1500 * time.Millisecond,
		`2`:      2 * time.Second,
		`""`:     0,
		`null`:   0,
		`"720h"`: 720 * time.Hour,
	}
	for raw, want := range cases {
		var d Duration
		require.NoError(t, json.Unmarshal([]byte(raw), &d), raw)
		require.Equal(t, want, d.AsDuration(), raw)
	}

	var d Duration
	require.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	require.Error(t, json.Unmarshal([]byte(`true`), &d))
}

func TestBootstrapDecode(t *testing.T) {
	raw := `{
		"server": {"http": {"addr": "0.0.0.0:8000", "timeout": "10m"}},
		"describe": {"default_provider": "gemini", "stop_on_insufficient_credits": false, "item_costs": {"gemini": 2}, "item_timeout": "45s"},
		"session": {"ttl": "1h"}
	}`
	var bc Bootstrap
	require.NoError(t, json.Unmarshal([]byte(raw), &bc))
	require.Equal(t, 10*time.Minute, bc.Server.Http.Timeout.AsDuration())
	require.Equal(t, "gemini", bc.Describe.DefaultProvider)
	require.NotNil(t, bc.Describe.StopOnInsufficientCredits)
	require.False(t, *bc.Describe.StopOnInsufficientCredits)
	require.Equal(t, int64(2), bc.Describe.ItemCosts["gemini"])
	require.Equal(t, 45*time.Second, bc.Describe.ItemTimeout.AsDuration())
	require.Equal(t, time.Hour, bc.Session.TTL.AsDuration())

	out, err := json.Marshal(bc.Session.TTL)
	require.NoError(t, err)
	require.Equal(t, `"1h0m0s"`, string(out))
}

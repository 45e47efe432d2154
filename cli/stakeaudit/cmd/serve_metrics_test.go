package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	testchain "github.com/namada-utils/stakeaudit/internal/testutils/chain"
	testlogger "github.com/namada-utils/stakeaudit/internal/testutils/logger"
	"github.com/namada-utils/stakeaudit/types"
)

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServeMetrics(t *testing.T) {
	const trace = "transfer/channel-1/uosmo"
	c := testchain.New().SetEpoch(12).
		SetLastBlock(4321, time.Now()).
		SetTotalStaked(types.NativeWhole(3000)).
		SetTotalSupply(nam, types.NativeWhole(12000)).
		SetTotalSupply(types.IBCTokenAddress(trace), types.NativeWhole(80))
	srv := testchain.NewServer(t, c)
	home := setupHomeDir(t, fmt.Sprintf("native_token = %q\nibc_tokens = [%q]\n", namToken, trace))
	listen := freeAddress(t)

	consoleWriter = &testConsoleWriter{}
	app := New(testlogger.LoggerBuilder(t))
	app.baseCmd.SetArgs(strings.Fields(fmt.Sprintf("--dir %s serve-metrics --rpc %s --listen %s", home, srv.URL, listen)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- app.Execute(ctx) }()

	var body string
	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + listen + "/metrics")
		if err != nil {
			return false
		}
		defer res.Body.Close()
		b, err := io.ReadAll(res.Body)
		if err != nil || res.StatusCode != http.StatusOK {
			return false
		}
		body = string(b)
		return true
	}, 5*time.Second, 50*time.Millisecond)

	require.Contains(t, body, "stakeaudit_chain_epoch 12")
	require.Contains(t, body, "stakeaudit_chain_last_block_height 4321")
	require.Contains(t, body, "stakeaudit_chain_staked_ratio 0.25")
	require.Contains(t, body, `stakeaudit_token_supply{token="OSMO"} 80`)
	require.Contains(t, body, fmt.Sprintf(`stakeaudit_token_supply{token=%q} 12000`, namToken))
	// requests made by the collector are counted too
	require.Contains(t, body, `stakeaudit_chain_requests_total{endpoint="epoch",status="ok"}`)

	res, err := http.Post("http://"+listen+"/metrics", "text/plain", nil)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	require.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			require.ErrorIs(t, err, context.Canceled)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server didn't stop")
	}
}

func TestServeMetrics_InvalidConfig(t *testing.T) {
	home := setupHomeDir(t, fmt.Sprintf("native_token = %q\nibc_tokens = [\"unknown-alias\"]\n", namToken))
	_, err := execCommand(t, home, "serve-metrics --listen "+freeAddress(t))
	require.ErrorIs(t, err, types.ErrAliasNotFound)
	require.ErrorContains(t, err, "unknown-alias")
}

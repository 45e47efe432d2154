package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	test "github.com/namada-utils/stakeaudit/internal/testutils"
	testchain "github.com/namada-utils/stakeaudit/internal/testutils/chain"
	testlogger "github.com/namada-utils/stakeaudit/internal/testutils/logger"
	"github.com/namada-utils/stakeaudit/types"
)

func TestChainCollector(t *testing.T) {
	nam, osmo := test.RandomAddress(), test.RandomAddress()
	c := testchain.New().SetEpoch(12).
		SetLastBlock(4321, time.Now()).
		SetTotalStaked(types.NativeWhole(3000)).
		SetTotalSupply(nam, types.NativeWhole(12000)).
		SetTotalSupply(osmo, types.NativeWhole(80)).
		SetBalance(osmo, types.MASPAddress, 20_500_000)

	collector := NewChainCollector(c, nam, []Token{{Name: "NAM", Address: nam}, {Name: "OSMO", Address: osmo}}, types.NativeDecimals, time.Second, testlogger.New(t))
	expected := `
# HELP stakeaudit_chain_epoch Current epoch of the chain.
# TYPE stakeaudit_chain_epoch gauge
stakeaudit_chain_epoch 12
# HELP stakeaudit_chain_last_block_height Height of the last committed block.
# TYPE stakeaudit_chain_last_block_height gauge
stakeaudit_chain_last_block_height 4321
# HELP stakeaudit_chain_staked_ratio Total stake divided by the native token supply.
# TYPE stakeaudit_chain_staked_ratio gauge
stakeaudit_chain_staked_ratio 0.25
# HELP stakeaudit_chain_total_staked Total active stake at the current epoch.
# TYPE stakeaudit_chain_total_staked gauge
stakeaudit_chain_total_staked 3000
# HELP stakeaudit_token_shielded Balance of the token in the shielded pool.
# TYPE stakeaudit_token_shielded gauge
stakeaudit_token_shielded{token="NAM"} 0
stakeaudit_token_shielded{token="OSMO"} 20.5
# HELP stakeaudit_token_supply Total supply of the token.
# TYPE stakeaudit_token_supply gauge
stakeaudit_token_supply{token="NAM"} 12000
stakeaudit_token_supply{token="OSMO"} 80
`
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected)))
}

func TestChainCollector_QueryFailure(t *testing.T) {
	nam := test.RandomAddress()
	// no last block in the chain
	c := testchain.New().SetTotalSupply(nam, types.NativeWhole(10))
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewChainCollector(c, nam, []Token{{Name: "NAM", Address: nam}}, types.NativeDecimals, time.Second, testlogger.New(t)))

	mfs, err := reg.Gather()
	require.ErrorContains(t, err, "no blocks yet")
	// the rest is still collected
	names := make([]string, len(mfs))
	for i, mf := range mfs {
		names[i] = mf.GetName()
	}
	require.Contains(t, names, "stakeaudit_token_supply")
	require.Contains(t, names, "stakeaudit_chain_epoch")
	require.NotContains(t, names, "stakeaudit_chain_last_block_height")
}

package types

import "time"

type (
	// WeightedValidator is a consensus validator with its bonded stake.
	WeightedValidator struct {
		Address     Address `json:"address"`
		BondedStake Amount  `json:"bondedStake"`
	}

	ValidatorMetadata struct {
		Name          string `json:"name,omitempty"`
		Email         string `json:"email,omitempty"`
		Website       string `json:"website,omitempty"`
		DiscordHandle string `json:"discordHandle,omitempty"`
	}

	BlockInfo struct {
		Height uint64    `json:"height"`
		Time   time.Time `json:"time"`
	}

	// RewardsRates are the annual proof-of-stake rates.
	RewardsRates struct {
		StakingRewardsRate Dec `json:"stakingRewardsRate"`
		InflationRate      Dec `json:"inflationRate"`
	}
)

package config

import (
	"fmt"
	"strings"

	"cosmossdk.io/math"
	"github.com/spf13/viper"

	"github.com/The-Membrane/brane-auction/shared/auction"
)

// AuctionParams are the settings needed to start a fresh auction house
type AuctionParams struct {
	Config auction.Config
	// First is auctioned right away when no state exists yet
	First auction.Submission
}

// LoadAuctionParams reads auction settings with viper. Values come from an
// optional brane.{yaml,json,toml} in the working directory or /etc/brane, and
// can be overridden with BRANE_* environment variables (BRANE_BID_DENOM,
// BRANE_CURATION_THRESHOLD, ...).
func LoadAuctionParams(v *viper.Viper) (*AuctionParams, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetConfigName("brane")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/brane")
	v.SetEnvPrefix("BRANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("bid_denom", "ustars")
	v.SetDefault("mint_denom", auction.DefaultMintDenom)
	v.SetDefault("mint_cost", "0")
	v.SetDefault("reward_amount", auction.DefaultRewardAmount.String())
	v.SetDefault("submission_cost", auction.DefaultSubmissionCost.String())
	v.SetDefault("submission_limit", auction.DefaultSubmissionLimit)
	v.SetDefault("vote_period_days", auction.DefaultVotePeriodDays)
	v.SetDefault("auction_period_days", auction.DefaultAuctionPeriodDays)
	v.SetDefault("curation_threshold", auction.DefaultCurationThreshold.String())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := auction.DefaultConfig(
		auction.Addr(v.GetString("owner")),
		auction.Addr(v.GetString("collection")),
		v.GetString("bid_denom"),
	)
	cfg.RewardDenom = v.GetString("reward_denom")
	cfg.MintDenom = v.GetString("mint_denom")
	cfg.SubmissionLimit = v.GetUint64("submission_limit")
	cfg.VotePeriodDays = v.GetUint64("vote_period_days")
	cfg.AuctionPeriodDays = v.GetUint64("auction_period_days")

	var err error
	if cfg.MintCost, err = parseAmount(v, "mint_cost"); err != nil {
		return nil, err
	}
	if cfg.RewardAmount, err = parseAmount(v, "reward_amount"); err != nil {
		return nil, err
	}
	if cfg.SubmissionCost, err = parseAmount(v, "submission_cost"); err != nil {
		return nil, err
	}
	if cfg.CurationThreshold, err = math.LegacyNewDecFromStr(v.GetString("curation_threshold")); err != nil {
		return nil, fmt.Errorf("invalid curation_threshold: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &AuctionParams{
		Config: cfg,
		First: auction.Submission{
			Submitter:        auction.Addr(v.GetString("first_submission.submitter")),
			ProceedRecipient: auction.Addr(v.GetString("first_submission.proceed_recipient")),
			TokenURI:         v.GetString("first_submission.token_uri"),
		},
	}, nil
}

func parseAmount(v *viper.Viper, key string) (math.Int, error) {
	amt, ok := math.NewIntFromString(v.GetString(key))
	if !ok || amt.IsNegative() {
		return math.Int{}, fmt.Errorf("invalid %s: %q", key, v.GetString(key))
	}
	return amt, nil
}

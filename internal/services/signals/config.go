package signals

// Config holds the thresholds of every rule block.
type Config struct {
	BasePositionPct float64        `yaml:"base_position_pct" default:"1.0"`
	Squeeze         SqueezeConfig  `yaml:"squeeze"`
	Gamma           GammaConfig    `yaml:"gamma"`
	Breakout        BreakoutConfig `yaml:"breakout"`
	Bounce          BounceConfig   `yaml:"bounce"`
	Momentum        MomentumConfig `yaml:"momentum"`
}

type SqueezeConfig struct {
	MinShortInterestPct float64 `yaml:"min_short_interest_pct" default:"15"`
	MinBorrowFeePct     float64 `yaml:"min_borrow_fee_pct" default:"5"`
	MaxLevelDistancePct float64 `yaml:"max_level_distance_pct" default:"1.0"`
	MinLevelVolume      float64 `yaml:"min_level_volume" default:"1000000"`
	StopBufferPct       float64 `yaml:"stop_buffer_pct" default:"0.5"`
	RewardMultiple      float64 `yaml:"reward_multiple" default:"3.0"`
}

type GammaConfig struct {
	MaxPutCallRatio     float64 `yaml:"max_put_call_ratio" default:"0.8"`
	MinCallOpenInterest float64 `yaml:"min_call_open_interest" default:"10000"`
	StopPct             float64 `yaml:"stop_pct" default:"1.0"`
}

type BreakoutConfig struct {
	VolumeMultiple float64 `yaml:"volume_multiple" default:"2.0"`
	VolumeWindow   int     `yaml:"volume_window" default:"20"`
	CloseBufferPct float64 `yaml:"close_buffer_pct" default:"0.05"`
	StopBufferPct  float64 `yaml:"stop_buffer_pct" default:"0.3"`
	RewardMultiple float64 `yaml:"reward_multiple" default:"2.0"`
}

type BounceConfig struct {
	MaxLevelDistancePct float64 `yaml:"max_level_distance_pct" default:"0.5"`
	VolumeMultiple      float64 `yaml:"volume_multiple" default:"1.5"`
	VolumeWindow        int     `yaml:"volume_window" default:"20"`
	WickBodyRatio       float64 `yaml:"wick_body_ratio" default:"2.0"`
	StopBufferPct       float64 `yaml:"stop_buffer_pct" default:"0.2"`
	RewardMultiple      float64 `yaml:"reward_multiple" default:"2.0"`
}

type MomentumConfig struct {
	FromOpenPct    float64 `yaml:"from_open_pct" default:"1.0"`
	RollingPct     float64 `yaml:"rolling_pct" default:"0.5"`
	RollingBars    int     `yaml:"rolling_bars" default:"15"`
	StreakBars     int     `yaml:"streak_bars" default:"3"`
	MinTriggers    int     `yaml:"min_triggers" default:"2"`
	StopPct        float64 `yaml:"stop_pct" default:"0.5"`
	RewardMultiple float64 `yaml:"reward_multiple" default:"2.0"`
}

func DefaultConfig() Config {
	return Config{
		BasePositionPct: 1.0,
		Squeeze: SqueezeConfig{
			MinShortInterestPct: 15,
			MinBorrowFeePct:     5,
			MaxLevelDistancePct: 1.0,
			MinLevelVolume:      1_000_000,
			StopBufferPct:       0.5,
			RewardMultiple:      3.0,
		},
		Gamma: GammaConfig{
			MaxPutCallRatio:     0.8,
			MinCallOpenInterest: 10_000,
			StopPct:             1.0,
		},
		Breakout: BreakoutConfig{
			VolumeMultiple: 2.0,
			VolumeWindow:   20,
			CloseBufferPct: 0.05,
			StopBufferPct:  0.3,
			RewardMultiple: 2.0,
		},
		Bounce: BounceConfig{
			MaxLevelDistancePct: 0.5,
			VolumeMultiple:      1.5,
			VolumeWindow:        20,
			WickBodyRatio:       2.0,
			StopBufferPct:       0.2,
			RewardMultiple:      2.0,
		},
		Momentum: MomentumConfig{
			FromOpenPct:    1.0,
			RollingPct:     0.5,
			RollingBars:    15,
			StreakBars:     3,
			MinTriggers:    2,
			StopPct:        0.5,
			RewardMultiple: 2.0,
		},
	}
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Marketen/slotwatch/internal/adapters"
	"github.com/Marketen/slotwatch/internal/application/services"
)

// Chains and source kinds.
const (
	ChainSolana   = "solana"
	ChainEthereum = "ethereum"

	SourceCommand = "command"
	SourceFile    = "file"
	SourceRPC     = "rpc"
	SourceBeacon  = "beacon"
	SourceHTTP    = "http"
)

// Ethereum replacements for the Solana defaults of New(). An epoch there
// holds 32 slots, so the Solana lead time would never find a slot.
const (
	EthereumScheduleSource = SourceBeacon
	EthereumLeadTimeSlots  = 2
	EthereumSecondsPerSlot = 12.0
)

// chainDefaultKeys are the keys whose default depends on the chain.
var chainDefaultKeys = []string{"schedule_source", "lead_time_slots", "seconds_per_slot"}

// Config holds runtime configuration for a slotwatch run.
type Config struct {
	LogLevel string `koanf:"log_level"`

	Chain string `koanf:"chain"`

	// ScheduleSource is one of command, file, rpc (Solana) or beacon (Ethereum).
	ScheduleSource  string `koanf:"schedule_source"`
	ScheduleCommand string `koanf:"schedule_command"`
	ScheduleFile    string `koanf:"schedule_file"`

	// ParticipantSource is one of http, command or file.
	ParticipantSource           string `koanf:"participant_source"`
	ParticipantURL              string `koanf:"participant_url"`
	ParticipantIdentityField    string `koanf:"participant_identity_field"`
	ParticipantFlagField        string `koanf:"participant_flag_field"`
	ParticipantFlagPresenceOnly bool   `koanf:"participant_flag_presence_only"`
	ParticipantCommand          string `koanf:"participant_command"`
	ParticipantFile             string `koanf:"participant_file"`

	RPCURL        string `koanf:"rpc_url"`
	BeaconNodeURL string `koanf:"beacon_node_url"`

	LeadTimeSlots  uint64  `koanf:"lead_time_slots"`
	SecondsPerSlot float64 `koanf:"seconds_per_slot"`
	BucketCount    int     `koanf:"bucket_count"`

	OutputPath  string  `koanf:"output_path"`
	ImageWidth  int     `koanf:"image_width"`
	ImageHeight int     `koanf:"image_height"`
	PointScale  float64 `koanf:"point_scale"`

	RequestTimeout time.Duration `koanf:"request_timeout"`

	MetricsTextfile string `koanf:"metrics_textfile"`
	MetricsPushURL  string `koanf:"metrics_push_url"`
}

// New returns a Config with Solana mainnet defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		Chain:                    ChainSolana,
		ScheduleSource:           SourceCommand,
		ScheduleCommand:          "solana leader-schedule",
		ParticipantSource:        SourceHTTP,
		ParticipantURL:           "https://api.stakewiz.com/validators",
		ParticipantIdentityField: adapters.DefaultIdentityField,
		ParticipantFlagField:     adapters.DefaultFlagField,
		RPCURL:                   adapters.DefaultSolanaRPCURL,
		LeadTimeSlots:            services.DefaultLeadTimeSlots,
		SecondsPerSlot:           services.DefaultSecondsPerSlot,
		BucketCount:              services.DefaultBucketCount,
		OutputPath:               "bubble.png",
		ImageWidth:               adapters.DefaultImageWidth,
		ImageHeight:              adapters.DefaultImageHeight,
		PointScale:               adapters.DefaultPointScale,
		RequestTimeout:           adapters.DefaultRequestTimeout,
	}
}

// applyChainDefaults replaces the Solana defaults of keys not present in set
// with those of the configured chain.
func (c *Config) applyChainDefaults(set map[string]bool) {
	if c.Chain != ChainEthereum {
		return
	}
	if !set["schedule_source"] {
		c.ScheduleSource = EthereumScheduleSource
	}
	if !set["lead_time_slots"] {
		c.LeadTimeSlots = EthereumLeadTimeSlots
	}
	if !set["seconds_per_slot"] {
		c.SecondsPerSlot = EthereumSecondsPerSlot
	}
}

// ScheduleArgv splits ScheduleCommand on whitespace.
func (c *Config) ScheduleArgv() []string { return strings.Fields(c.ScheduleCommand) }

// ParticipantArgv splits ParticipantCommand on whitespace.
func (c *Config) ParticipantArgv() []string { return strings.Fields(c.ParticipantCommand) }

// Validate checks enums, ranges and that every selected source has what it needs.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch c.Chain {
	case ChainSolana:
		switch c.ScheduleSource {
		case SourceCommand, SourceFile, SourceRPC:
		default:
			return invalid("schedule_source %q is not supported on %s", c.ScheduleSource, c.Chain)
		}
		if strings.TrimSpace(c.RPCURL) == "" {
			return invalid("rpc_url is required on %s", c.Chain)
		}
	case ChainEthereum:
		switch c.ScheduleSource {
		case SourceBeacon, SourceFile:
		default:
			return invalid("schedule_source %q is not supported on %s", c.ScheduleSource, c.Chain)
		}
		if strings.TrimSpace(c.BeaconNodeURL) == "" {
			return invalid("beacon_node_url is required on %s", c.Chain)
		}
	default:
		return invalid("unknown chain %q", c.Chain)
	}

	if c.ScheduleSource == SourceCommand && len(c.ScheduleArgv()) == 0 {
		return invalid("schedule_command is required for schedule_source=command")
	}
	if c.ScheduleSource == SourceFile && strings.TrimSpace(c.ScheduleFile) == "" {
		return invalid("schedule_file is required for schedule_source=file")
	}

	switch c.ParticipantSource {
	case SourceHTTP:
		if strings.TrimSpace(c.ParticipantURL) == "" {
			return invalid("participant_url is required for participant_source=http")
		}
	case SourceCommand:
		if len(c.ParticipantArgv()) == 0 {
			return invalid("participant_command is required for participant_source=command")
		}
	case SourceFile:
		if strings.TrimSpace(c.ParticipantFile) == "" {
			return invalid("participant_file is required for participant_source=file")
		}
	default:
		return invalid("unknown participant_source %q", c.ParticipantSource)
	}

	if c.SecondsPerSlot <= 0 {
		return invalid("seconds_per_slot must be positive, got %v", c.SecondsPerSlot)
	}
	if c.BucketCount <= 0 {
		return invalid("bucket_count must be positive, got %d", c.BucketCount)
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return invalid("image size must be positive, got %dx%d", c.ImageWidth, c.ImageHeight)
	}
	if c.RequestTimeout <= 0 {
		return invalid("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

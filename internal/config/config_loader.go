package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix  = "SLOTWATCH_"
	EnvConfig  = EnvPrefix + "CONFIG"
	ConfigFlag = "config"
)

// RegisterFlags adds one flag per config key to fs, named with dashes
// (lead_time_slots -> --lead-time-slots) and defaulting to New().
func RegisterFlags(fs *pflag.FlagSet) {
	d := New()
	fs.String(ConfigFlag, "", "YAML config file (env "+EnvConfig+")")
	fs.String("log-level", d.LogLevel, "debug, info, warn or error")
	fs.String("chain", d.Chain, "solana or ethereum")
	fs.String("schedule-source", d.ScheduleSource, "command, file, rpc (solana) or beacon (ethereum); defaults to "+EthereumScheduleSource+" on ethereum")
	fs.String("schedule-command", d.ScheduleCommand, "command printing `<slot> <identity>` lines")
	fs.String("schedule-file", d.ScheduleFile, "file with `<slot> <identity>` lines")
	fs.String("participant-source", d.ParticipantSource, "http, command or file")
	fs.String("participant-url", d.ParticipantURL, "URL returning a JSON array of validator info objects")
	fs.String("participant-identity-field", d.ParticipantIdentityField, "JSON field holding the validator identity")
	fs.String("participant-flag-field", d.ParticipantFlagField, "JSON field marking program participants")
	fs.Bool("participant-flag-presence-only", d.ParticipantFlagPresenceOnly, "count a validator as participant when the flag field exists, whatever its value")
	fs.String("participant-command", d.ParticipantCommand, "command printing one participant identity per line")
	fs.String("participant-file", d.ParticipantFile, "file with one participant identity per line")
	fs.String("rpc-url", d.RPCURL, "Solana JSON-RPC endpoint")
	fs.String("beacon-node-url", d.BeaconNodeURL, "Ethereum beacon node endpoint")
	fs.Uint64("lead-time-slots", d.LeadTimeSlots, fmt.Sprintf("minimum slots ahead of the current slot for a slot to count; defaults to %d on ethereum", EthereumLeadTimeSlots))
	fs.Float64("seconds-per-slot", d.SecondsPerSlot, fmt.Sprintf("slot duration used for time estimates; defaults to %g on ethereum", EthereumSecondsPerSlot))
	fs.Int("bucket-count", d.BucketCount, "number of buckets in the concentration series")
	fs.String("output-path", d.OutputPath, "PNG chart path, empty to skip rendering")
	fs.Int("image-width", d.ImageWidth, "chart width in pixels")
	fs.Int("image-height", d.ImageHeight, "chart height in pixels")
	fs.Float64("point-scale", d.PointScale, "bubble radius in pixels at fraction 1")
	fs.Duration("request-timeout", d.RequestTimeout, "per-request timeout for network calls")
	fs.String("metrics-textfile", d.MetricsTextfile, "write Prometheus metrics to this textfile")
	fs.String("metrics-push-url", d.MetricsPushURL, "push Prometheus metrics to this Pushgateway")
}

// Load builds a Config by layering, low to high precedence:
//  1. defaults (New())
//  2. YAML file from --config or SLOTWATCH_CONFIG
//  3. env (prefix SLOTWATCH_)
//  4. flags set on the command line
//
// On ethereum, chain-dependent keys none of these layers set take the
// Ethereum defaults. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	base := New()
	k := koanf.New(".")

	path := os.Getenv(EnvConfig)
	if fs != nil {
		if p, err := fs.GetString(ConfigFlag); err == nil && p != "" {
			path = p
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// SLOTWATCH_LEAD_TIME_SLOTS -> lead_time_slots
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}
	k.Delete("config")

	// posflag fills unchanged flags with their defaults, so look before it runs
	set := make(map[string]bool, len(chainDefaultKeys))
	for _, key := range chainDefaultKeys {
		set[key] = k.Exists(key) || (fs != nil && fs.Changed(strings.ReplaceAll(key, "_", "-")))
	}

	if fs != nil {
		flags := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if f.Name == ConfigFlag {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
		})
		if err := k.Load(flags, nil); err != nil {
			return nil, fmt.Errorf("%w: flags: %v", ErrLoadConfig, err)
		}
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	cfg.applyChainDefaults(set)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Marketen/slotwatch/internal/application/domain"
)

const DefaultSolanaRPCURL = "https://api.mainnet-beta.solana.com"

// SolanaRPCAdapter serves the current slot and, optionally, the leader
// schedule from a Solana JSON-RPC node.
type SolanaRPCAdapter struct {
	client     *rpc.Client
	commitment rpc.CommitmentType
	timeout    time.Duration
}

// NewSolanaRPCAdapter connects lazily to endpoint. Access tokens may be passed
// in the URL query, as most RPC providers expect.
func NewSolanaRPCAdapter(endpoint string, timeout time.Duration) *SolanaRPCAdapter {
	return &SolanaRPCAdapter{
		client:     rpc.New(endpoint),
		commitment: rpc.CommitmentFinalized,
		timeout:    timeout,
	}
}

// CurrentSlot returns the node's latest slot at finalized commitment.
func (s *SolanaRPCAdapter) CurrentSlot(ctx context.Context) (domain.Slot, error) {
	var slot uint64
	err := withRetry(ctx, s.timeout, "getSlot", func(ctx context.Context) error {
		out, err := s.client.GetSlot(ctx, s.commitment)
		if err != nil {
			return err
		}
		slot = out
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("getSlot: %w", err)
	}
	return domain.Slot(slot), nil
}

// LoadSchedule fetches the leader schedule of the current epoch. The RPC
// returns slot offsets relative to the first slot of the epoch.
func (s *SolanaRPCAdapter) LoadSchedule(ctx context.Context) (domain.Schedule, error) {
	var info *rpc.GetEpochInfoResult
	err := withRetry(ctx, s.timeout, "getEpochInfo", func(ctx context.Context) error {
		out, err := s.client.GetEpochInfo(ctx, s.commitment)
		if err != nil {
			return err
		}
		info = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("getEpochInfo: %w", err)
	}
	if info.SlotIndex > info.AbsoluteSlot {
		return nil, fmt.Errorf("getEpochInfo: slot index %d beyond absolute slot %d", info.SlotIndex, info.AbsoluteSlot)
	}
	epochStart := info.AbsoluteSlot - info.SlotIndex

	var leaders rpc.GetLeaderScheduleResult
	err = withRetry(ctx, s.timeout, "getLeaderSchedule", func(ctx context.Context) error {
		out, err := s.client.GetLeaderSchedule(ctx)
		if err != nil {
			return err
		}
		leaders = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("getLeaderSchedule: %w", err)
	}

	schedule := make(domain.Schedule)
	for pubkey, offsets := range leaders {
		id := domain.Identity(pubkey.String())
		for _, offset := range offsets {
			schedule[domain.Slot(epochStart+offset)] = id
		}
	}
	return schedule, nil
}

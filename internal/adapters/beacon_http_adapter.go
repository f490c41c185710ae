package adapters

import (
	"context"
	"fmt"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/Marketen/slotwatch/internal/application/domain"

	"github.com/attestantio/go-eth2-client/api"
	eth2http "github.com/attestantio/go-eth2-client/http"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/rs/zerolog"
)

const SlotsPerEpoch = domain.Slot(32) // Ethereum consensus constant

// BeaconAdapter serves the proposer schedule and head slot of an Ethereum
// beacon node using go-eth2-client.
type BeaconAdapter struct {
	client  *eth2http.Service
	timeout time.Duration

	mu sync.Mutex
	// head seen by the last LoadSchedule, handed to the next CurrentSlot so
	// both describe the same epoch
	scheduleHead *domain.Slot
}

// NewBeaconAdapter is the constructor used from main.go.
func NewBeaconAdapter(ctx context.Context, endpoint string, timeout time.Duration) (*BeaconAdapter, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	customHTTPClient := &nethttp.Client{
		Timeout: 4 * timeout, // global upper bound; per-request timeout below
	}

	client, err := eth2http.New(
		ctx,
		eth2http.WithAddress(endpoint),
		eth2http.WithHTTPClient(customHTTPClient),
		eth2http.WithTimeout(timeout),
		// Silence go-eth2-client logs unless they are warnings+.
		eth2http.WithLogLevel(zerolog.WarnLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to beacon node %s: %w", endpoint, err)
	}

	return &BeaconAdapter{client: client.(*eth2http.Service), timeout: timeout}, nil
}

// CurrentSlot returns the head slot LoadSchedule resolved its epoch from, if
// one is pending, and otherwise the slot of the head block header.
func (b *BeaconAdapter) CurrentSlot(ctx context.Context) (domain.Slot, error) {
	b.mu.Lock()
	pending := b.scheduleHead
	b.scheduleHead = nil
	b.mu.Unlock()
	if pending != nil {
		return *pending, nil
	}
	return b.headSlot(ctx)
}

func (b *BeaconAdapter) headSlot(ctx context.Context) (domain.Slot, error) {
	var slot domain.Slot
	err := withRetry(ctx, b.timeout, "beacon head header", func(ctx context.Context) error {
		resp, err := b.client.BeaconBlockHeader(ctx, &api.BeaconBlockHeaderOpts{Block: "head"})
		if err != nil {
			return err
		}
		if resp == nil || resp.Data == nil || resp.Data.Header == nil || resp.Data.Header.Message == nil {
			return fmt.Errorf("empty head header response")
		}
		slot = domain.Slot(resp.Data.Header.Message.Slot)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return slot, nil
}

// LoadSchedule returns the proposer duties of the epoch containing the head
// slot, keyed by slot and identified by validator pubkey.
func (b *BeaconAdapter) LoadSchedule(ctx context.Context) (domain.Schedule, error) {
	head, err := b.headSlot(ctx)
	if err != nil {
		return nil, err
	}
	epoch := domain.Epoch(head / SlotsPerEpoch)

	schedule := make(domain.Schedule)
	err = withRetry(ctx, b.timeout, "proposer duties", func(ctx context.Context) error {
		resp, err := b.client.ProposerDuties(ctx, &api.ProposerDutiesOpts{
			Epoch: phase0.Epoch(epoch),
		})
		if err != nil {
			return err
		}
		for _, d := range resp.Data {
			schedule[domain.Slot(d.Slot)] = domain.Identity(d.PubKey.String())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("proposer duties for epoch %d: %w", epoch, err)
	}

	b.mu.Lock()
	b.scheduleHead = &head
	b.mu.Unlock()
	return schedule, nil
}

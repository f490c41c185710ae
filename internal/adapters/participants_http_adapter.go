package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Marketen/slotwatch/internal/application/domain"
	"github.com/Marketen/slotwatch/internal/logger"
)

const (
	DefaultIdentityField = "identity"
	DefaultFlagField     = "is_jito"
)

// HTTPParticipantSource reads a JSON array of validator-info objects, such as
// the stakewiz validators endpoint, and keeps identities whose flag is set.
type HTTPParticipantSource struct {
	URL           string
	IdentityField string
	FlagField     string
	// FlagPresenceOnly accepts any object carrying the flag field, whatever
	// its value.
	FlagPresenceOnly bool
	Timeout          time.Duration

	client *nethttp.Client
}

func NewHTTPParticipantSource(url string, timeout time.Duration) *HTTPParticipantSource {
	return &HTTPParticipantSource{
		URL:           url,
		IdentityField: DefaultIdentityField,
		FlagField:     DefaultFlagField,
		Timeout:       timeout,
		client:        &nethttp.Client{},
	}
}

func (h *HTTPParticipantSource) LoadParticipants(ctx context.Context) (domain.ParticipantSet, error) {
	var body []byte
	err := withRetry(ctx, h.Timeout, "participant fetch", func(ctx context.Context) error {
		b, err := h.get(ctx)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h.decode(body)
}

func (h *HTTPParticipantSource) get(ctx context.Context) ([]byte, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, h.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	client := h.client
	if client == nil {
		client = nethttp.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != nethttp.StatusOK {
		err := fmt.Errorf("GET %s: unexpected status %d", h.URL, resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != nethttp.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	return body, nil
}

func (h *HTTPParticipantSource) decode(body []byte) (domain.ParticipantSet, error) {
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode participants from %s: %w", h.URL, err)
	}

	idField, flagField := h.IdentityField, h.FlagField
	if idField == "" {
		idField = DefaultIdentityField
	}
	if flagField == "" {
		flagField = DefaultFlagField
	}

	set := domain.NewParticipantSet()
	for _, entry := range entries {
		rawFlag, ok := entry[flagField]
		if !ok {
			continue
		}
		if !h.FlagPresenceOnly && !isTrue(rawFlag) {
			continue
		}
		var id string
		if err := json.Unmarshal(entry[idField], &id); err != nil || strings.TrimSpace(id) == "" {
			continue
		}
		set[domain.Identity(strings.TrimSpace(id))] = struct{}{}
	}
	logger.Debug("Decoded %d validator entries, %d participants", len(entries), set.Len())
	return set, nil
}

// isTrue reports whether raw is JSON true, or a string/number spelling of it.
func isTrue(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "true", `"true"`, "1":
		return true
	}
	return false
}

package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"semp-gateway/config"
	"semp-gateway/internal/events"
	"semp-gateway/internal/gateway"
	"semp-gateway/internal/model"
)

// ErrUpstreamCode is returned when the upstream answers with a non-zero application code.
var ErrUpstreamCode = errors.New("upstream returned non-zero application code")

// Stats summarises one sync cycle.
type Stats struct {
	Fetched    int
	Registered int
	Replaced   int
	Unchanged  int
	Skipped    int
}

// Service periodically mirrors an upstream device inventory into the gateway.
type Service struct {
	cfg       config.SyncConfig
	gateway   *gateway.Gateway
	publisher events.Publisher
	client    *http.Client
}

// NewService creates and initializes a new sync service. publisher may be nil.
func NewService(cfg config.SyncConfig, gw *gateway.Gateway, publisher events.Publisher) *Service {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Sync will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Service{
		cfg:       cfg,
		gateway:   gw,
		publisher: publisher,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
}

// Run syncs immediately and then once per configured interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Inventory sync is disabled. Not starting.")
		return
	}
	log.Println("Starting inventory sync service...")

	s.runOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Inventory sync service shutting down.")
			return
		case <-timer.C:
			s.runOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	stats, err := s.SyncOnce(ctx)
	if err != nil {
		log.Printf("Sync cycle aborted: %v", err)
		return
	}
	log.Printf("Sync cycle finished: fetched=%d registered=%d replaced=%d unchanged=%d skipped=%d",
		stats.Fetched, stats.Registered, stats.Replaced, stats.Unchanged, stats.Skipped)
}

// SyncOnce fetches every page of the upstream inventory and registers the
// valid records. A fetch error is returned only if no items were retrieved.
func (s *Service) SyncOnce(ctx context.Context) (Stats, error) {
	var stats Stats

	var allItems []ApiItem
	total := 1
	pageSize := s.cfg.Request.PageSize
	if pageSize <= 0 {
		pageSize = 1
	}
	var fetchErr error
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			log.Printf("Error fetching page %d: %v", page, err)
			fetchErr = err
			break
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		allItems = append(allItems, resp.Data.Items...)
	}
	stats.Fetched = len(allItems)

	if fetchErr != nil && len(allItems) == 0 {
		return stats, fetchErr
	}

	for _, item := range allItems {
		rec, err := item.toRecord()
		if err != nil {
			log.Printf("Skipping upstream device %q: %v", item.DeviceID, err)
			stats.Skipped++
			continue
		}
		if rec.id.SEMP {
			log.Printf("Upstream device %s: vendor=%s serial=%s sub=%d", rec.id.Raw, rec.id.VendorID, rec.id.Serial, rec.id.SubDevice)
		}

		if existing, ok := s.gateway.GetDevice(rec.info.DeviceID); ok && rec.matches(existing) {
			stats.Unchanged++
			continue
		}

		eventType := events.DeviceRegistered
		if s.gateway.SetDevice(rec.info.DeviceID, model.NewDevice(rec.info, rec.sched)) {
			eventType = events.DeviceReplaced
			stats.Replaced++
		} else {
			stats.Registered++
		}
		if s.publisher != nil {
			_ = s.publisher.Publish(ctx, events.New(eventType, rec.info.DeviceID))
		}
	}

	return stats, nil
}

// fetchPage fetches a single page of device records from the upstream API.
func (s *Service) fetchPage(ctx context.Context, page int) (*ApiResponse, error) {
	payload := make(map[string]any)
	for k, v := range s.cfg.Request.Payload {
		payload[k] = v
	}
	payload["page"] = page
	payload["pageSize"] = s.cfg.Request.PageSize

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Request.URL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.cfg.Request.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp ApiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api response: %w", err)
	}

	if apiResp.Code != 0 {
		return nil, fmt.Errorf("%w: %d", ErrUpstreamCode, apiResp.Code)
	}

	return &apiResp, nil
}

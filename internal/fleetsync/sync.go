package fleetsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"medtransport-dispatch/config"
	"medtransport-dispatch/internal/dispatch"
	"medtransport-dispatch/internal/logging"
	"medtransport-dispatch/internal/model"
	"medtransport-dispatch/internal/parse"
)

// UnitWriter persists unit snapshots.
type UnitWriter interface {
	UpsertUnits(ctx context.Context, units []model.Unit) error
}

// Service polls the upstream fleet API and refreshes unit snapshots.
type Service struct {
	cfg    *config.FleetConfig
	store  UnitWriter
	client *http.Client
	loc    *time.Location
	now    func() time.Time

	onUpdate func()
}

// NewService creates and initializes a new fleet sync service.
func NewService(cfg *config.FleetConfig, store UnitWriter) *Service {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logging.Logger.Warnf("Invalid proxy URL %q: %v. Fleet sync will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logging.Logger.Warnf("Unknown timezone %q, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}

	return &Service{
		cfg:   cfg,
		store: store,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		loc: loc,
		now: time.Now,
	}
}

// OnUpdate registers fn to run after a sync writes units, e.g. to drop cached
// recommendations built from the previous snapshot.
func (s *Service) OnUpdate(fn func()) {
	s.onUpdate = fn
}

// Run starts the sync loop and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		logging.Logger.Info("Fleet sync is disabled. Not starting.")
		return
	}
	logging.Logger.Info("Starting fleet sync service...")

	s.logSync(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Logger.Info("Fleet sync service shutting down.")
			return
		case <-timer.C:
			s.logSync(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) logSync(ctx context.Context) {
	n, err := s.SyncOnce(ctx)
	if err != nil {
		logging.Logger.WithError(err).Error("Fleet sync cycle failed")
		return
	}
	logging.Logger.WithField("units", n).Info("Fleet sync cycle finished")
}

// SyncOnce fetches every page and upserts the snapshots. It returns the number of
// units written. A fetch error with nothing retrieved leaves stored data untouched;
// a partial fetch still writes what arrived.
func (s *Service) SyncOnce(ctx context.Context) (int, error) {
	var items []ApiUnit
	total := 1
	pageSize := s.cfg.Request.PageSize
	var fetchErr error
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			logging.Logger.Warnf("Error fetching page %d: %v", page, err)
			fetchErr = err
			break
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		items = append(items, resp.Data.Items...)
		logging.Logger.Debugf("Fetched page %d, total items so far: %d/%d", page, len(items), total)
	}

	if fetchErr != nil && len(items) == 0 {
		return 0, fmt.Errorf("fetch aborted with no items: %w", fetchErr)
	}

	units := make([]model.Unit, 0, len(items))
	for _, item := range items {
		u, err := s.toModel(item)
		if err != nil {
			logging.Logger.WithFields(logrus.Fields{"id": item.ID, "display_id": item.DisplayID}).
				Warnf("Skipping unit: %v", err)
			continue
		}
		units = append(units, u)
	}
	if len(units) == 0 {
		return 0, nil
	}

	if err := s.store.UpsertUnits(ctx, units); err != nil {
		return 0, fmt.Errorf("failed to upsert units: %w", err)
	}
	if s.onUpdate != nil {
		s.onUpdate()
	}
	return len(units), nil
}

func (s *Service) toModel(item ApiUnit) (model.Unit, error) {
	id, err := uuid.Parse(item.ID)
	if err != nil {
		return model.Unit{}, fmt.Errorf("invalid unit id: %w", err)
	}
	org, err := uuid.Parse(item.OrganizationID)
	if err != nil {
		return model.Unit{}, fmt.Errorf("invalid organization id: %w", err)
	}
	if item.DisplayID == "" {
		return model.Unit{}, errors.New("missing display id")
	}

	status := dispatch.UnitStatus(s.cfg.DefaultStatus)
	if item.Status != "" {
		st, err := parse.UnitStatus(item.Status)
		if err != nil {
			logging.Logger.Debugf("Unit %s: %v, using %s", item.DisplayID, err, status)
		} else {
			status = st
		}
	}

	u := model.Unit{
		ID:                   id,
		OrganizationID:       org,
		DisplayID:            item.DisplayID,
		Status:               string(status),
		Capabilities:         string(item.Capabilities),
		FatigueLevel:         string(parse.FatigueLevel(item.FatigueLevel)),
		OnTimeArrivalPct:     item.OnTimeArrivalPct,
		AvgResponseMinutes:   item.AvgResponseMinutes,
		ComplianceAuditScore: item.ComplianceAuditScore,
		CrewIDs:              parse.StringList(item.CrewIDs),
	}
	if item.Latitude != nil && item.Longitude != nil {
		u.Latitude, u.Longitude = item.Latitude, item.Longitude
		seen, err := s.parseTimestamp(item.LocationTime)
		if err != nil {
			logging.Logger.Debugf("Unit %s: %v", item.DisplayID, err)
		}
		if seen == nil {
			now := s.now().UTC()
			seen = &now
		}
		u.LocationUpdatedAt = seen
	}
	return u, nil
}

// parseTimestamp converts the API's timestamp string into a time.Time object, respecting the configured timezone.
func (s *Service) parseTimestamp(tsStr *string) (*time.Time, error) {
	if tsStr == nil || *tsStr == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(s.cfg.TimestampLayout, *tsStr, s.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp %q: %w", *tsStr, err)
	}
	parsed = parsed.UTC()
	return &parsed, nil
}

// fetchPage fetches a single page of unit data from the upstream API.
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
		return nil, fmt.Errorf("API returned non-zero application code: %d", apiResp.Code)
	}

	return &apiResp, nil
}

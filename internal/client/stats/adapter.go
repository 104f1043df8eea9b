package statsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GregMSThompson/chart-renderer/internal/chartstate"
	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/internal/errs"
)

const (
	serviceName  = "stats"
	seriesPath   = "/series"
	maxBodyBytes = 8 << 20
)

// Adapter fetches chart series from the stats service.
type Adapter struct {
	baseURL  string
	registry *chartstate.Registry
	http     *http.Client
}

func NewAdapter(baseURL string, timeout time.Duration, registry *chartstate.Registry) *Adapter {
	return &Adapter{
		baseURL:  strings.TrimRight(baseURL, "/"),
		registry: registry,
		http:     &http.Client{Timeout: timeout},
	}
}

// Fetch requests the series for state. The query carries every resolved
// field with plain values, so the stats service unescapes it once.
func (a *Adapter) Fetch(ctx context.Context, state chartstate.State) (dto.RawSeries, error) {
	var out dto.RawSeries

	u, err := url.Parse(a.baseURL + seriesPath)
	if err != nil {
		return out, errs.NewExternalServiceError(serviceName, false, err)
	}
	u.RawQuery = a.registry.Params(state).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return out, errs.NewExternalServiceError(serviceName, false, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return out, errs.NewExternalServiceError(serviceName, true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		transient := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return out, errs.NewExternalServiceError(serviceName, transient, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return dto.RawSeries{}, errs.NewExternalServiceError(serviceName, false, fmt.Errorf("decode series: %w", err))
	}
	if len(out.Labels) == 0 || len(out.Series) == 0 {
		return dto.RawSeries{}, errs.NewExternalServiceError(serviceName, false, fmt.Errorf("empty series"))
	}
	return out, nil
}

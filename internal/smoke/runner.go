package smoke

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/mentionproxy/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Report collects the results of a run in probe order.
type Report struct {
	BaseURL  string
	Results  []Result
	Duration time.Duration
}

// Failed counts probes that did not answer 2xx.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}

// Run executes every probe concurrently. It returns ErrUnhealthy when a
// required probe fails; other failures are only reported.
func Run(ctx context.Context, cfg Config, client *http.Client) (Report, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return Report{}, err
	}
	if client == nil {
		client = &http.Client{}
	}

	probes := Probes(cfg)
	report := Report{BaseURL: cfg.BaseURL, Results: make([]Result, len(probes))}
	start := time.Now()

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Concurrency)
	for i, p := range probes {
		eg.Go(func() error {
			report.Results[i] = probe(ctx, client, cfg, p)
			return nil
		})
	}
	_ = eg.Wait()
	report.Duration = time.Since(start)

	log := logger.Named("smoke")
	var unhealthy error
	for _, res := range report.Results {
		fields := []logger.Field{
			logger.String("probe", res.Probe.Name),
			logger.Int("status", res.Status),
			logger.Duration("latency", res.Latency),
		}
		if res.OK() {
			log.Info(ctx, "probe finished", fields...)
			continue
		}
		if res.Err != nil {
			fields = append(fields, logger.Error(res.Err))
		}
		log.Warn(ctx, "probe failed", fields...)
		if res.Probe.Required && unhealthy == nil {
			unhealthy = fmt.Errorf("%w: %s", ErrUnhealthy, res.Probe.Path)
		}
	}
	return report, unhealthy
}

func probe(ctx context.Context, client *http.Client, cfg Config, p Probe) Result {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	res := Result{Probe: p}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+p.Path, http.NoBody)
	if err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		res.Latency = time.Since(start)
		res.Err = err
		return res
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	res.Latency = time.Since(start)
	res.Status = resp.StatusCode
	return res
}

package monitor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rs-systems/healthwatch/internal/config"
	"github.com/rs-systems/healthwatch/internal/models"
)

// maxSamplesPerEndpoint bounds the rolling window kept per endpoint so a
// long-running process does not grow without limit.
const maxSamplesPerEndpoint = 100

// Endpoint is a single HTTP target the API probe exercises each cycle.
type Endpoint struct {
	Name           string
	Path           string
	Method         string
	ExpectedStatus int
}

// DefaultEndpoints covers the core surface of the repair portal.
func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{Name: "health", Path: "/health/", Method: http.MethodGet, ExpectedStatus: http.StatusOK},
		{Name: "api_root", Path: "/api/", Method: http.MethodGet, ExpectedStatus: http.StatusOK},
		{Name: "repairs_list", Path: "/api/repairs/", Method: http.MethodGet, ExpectedStatus: http.StatusOK},
		{Name: "customers_list", Path: "/api/customers/", Method: http.MethodGet, ExpectedStatus: http.StatusOK},
		{Name: "technicians_list", Path: "/api/technicians/", Method: http.MethodGet, ExpectedStatus: http.StatusOK},
	}
}

type sample struct {
	responseTimeMs float64
	isError        bool
	at             time.Time
}

// APIProbe exercises the portal's HTTP endpoints and keeps a bounded rolling
// window of response times per endpoint for rate and latency metrics.
type APIProbe struct {
	baseURL    string
	client     *http.Client
	endpoints  []Endpoint
	thresholds config.Thresholds
	log        *logrus.Logger

	mu      sync.Mutex
	samples map[string][]sample
}

func NewAPIProbe(cfg config.APIProbeConfig, thresholds config.Thresholds, log *logrus.Logger) *APIProbe {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIProbe{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		endpoints:  DefaultEndpoints(),
		thresholds: thresholds,
		log:        log,
		samples:    make(map[string][]sample),
	}
}

func (p *APIProbe) Component() models.Component { return models.ComponentAPI }

func (p *APIProbe) CheckHealth(ctx context.Context) models.HealthCheckResult {
	res := p.checkEndpoint(ctx, p.endpoints[0])
	result := models.NewHealthCheckResult(models.ComponentAPI, models.StatusHealthy, "API is responding")
	result.ResponseTimeMs = res.ResponseTimeMs
	if !res.Success {
		result.Status = models.StatusUnhealthy
		result.Message = fmt.Sprintf("Health endpoint failed: %s", res.Error)
		if res.Error == "" {
			result.Message = fmt.Sprintf("Health endpoint returned status %d", res.StatusCode)
		}
	} else if res.ResponseTimeMs != nil && *res.ResponseTimeMs > p.thresholds.APIResponseMs {
		result.Status = models.StatusDegraded
		result.Message = fmt.Sprintf("API is slow: %.0fms", *res.ResponseTimeMs)
	}
	result.Details = map[string]interface{}{"endpoint": p.endpoints[0].Path}
	return result
}

func (p *APIProbe) Monitor(ctx context.Context) *models.ComponentReport {
	results := make([]models.EndpointResult, len(p.endpoints))
	var wg sync.WaitGroup
	for i, ep := range p.endpoints {
		wg.Add(1)
		go func(i int, ep Endpoint) {
			defer wg.Done()
			results[i] = p.checkEndpoint(ctx, ep)
		}(i, ep)
	}
	wg.Wait()

	for _, res := range results {
		p.record(res)
	}

	metrics := p.CalculateMetrics()
	metrics.EndpointResults = results

	return &models.ComponentReport{
		Component: models.ComponentAPI,
		Health:    p.healthFromResults(results),
		Metrics:   metrics,
		Timestamp: time.Now(),
	}
}

func (p *APIProbe) checkEndpoint(ctx context.Context, ep Endpoint) models.EndpointResult {
	result := models.EndpointResult{
		Endpoint:  ep.Path,
		Name:      ep.Name,
		Method:    ep.Method,
		Timestamp: time.Now(),
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, p.baseURL+ep.Path, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	result.ResponseTimeMs = &elapsed
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	result.StatusCode = resp.StatusCode
	result.Success = resp.StatusCode == ep.ExpectedStatus
	if !result.Success {
		result.Error = fmt.Sprintf("expected status %d, got %d", ep.ExpectedStatus, resp.StatusCode)
	}
	return result
}

func (p *APIProbe) record(res models.EndpointResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := sample{isError: !res.Success, at: res.Timestamp}
	if res.ResponseTimeMs != nil {
		s.responseTimeMs = *res.ResponseTimeMs
	}
	window := append(p.samples[res.Endpoint], s)
	if len(window) > maxSamplesPerEndpoint {
		window = window[len(window)-maxSamplesPerEndpoint:]
	}
	p.samples[res.Endpoint] = window
}

// CalculateMetrics aggregates the rolling windows into per-endpoint and
// overall figures. Endpoints with no samples yet report zeroes.
func (p *APIProbe) CalculateMetrics() models.APIMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	metrics := models.APIMetrics{Endpoints: make(map[string]models.EndpointMetrics, len(p.samples))}

	paths := make([]string, 0, len(p.samples))
	for path := range p.samples {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var totalTime float64
	for _, path := range paths {
		window := p.samples[path]
		em := models.EndpointMetrics{RequestCount: int64(len(window))}
		var sum float64
		for _, s := range window {
			if s.isError {
				em.ErrorCount++
			}
			sum += s.responseTimeMs
		}
		if em.RequestCount > 0 {
			em.ErrorRatePct = round2(float64(em.ErrorCount) / float64(em.RequestCount) * 100)
			em.AverageResponseTimeMs = round2(sum / float64(em.RequestCount))
			last := window[len(window)-1].at
			em.LastCheck = &last
		}
		metrics.Endpoints[path] = em
		metrics.Summary.TotalRequests += em.RequestCount
		metrics.Summary.TotalErrors += em.ErrorCount
		totalTime += sum
	}

	if metrics.Summary.TotalRequests > 0 {
		metrics.Summary.ErrorRatePct = round2(float64(metrics.Summary.TotalErrors) /
			float64(metrics.Summary.TotalRequests) * 100)
		metrics.Summary.AverageResponseTimeMs = round2(totalTime / float64(metrics.Summary.TotalRequests))
	}
	return metrics
}

func (p *APIProbe) healthFromResults(results []models.EndpointResult) models.HealthCheckResult {
	failed := 0
	var slowest float64
	for _, res := range results {
		if !res.Success {
			failed++
		}
		if res.ResponseTimeMs != nil && *res.ResponseTimeMs > slowest {
			slowest = *res.ResponseTimeMs
		}
	}

	result := models.NewHealthCheckResult(models.ComponentAPI, models.StatusHealthy, "API is responding")
	switch {
	case failed == len(results):
		result.Status = models.StatusUnhealthy
		result.Message = "All API endpoints are failing"
	case failed > 0:
		result.Status = models.StatusDegraded
		result.Message = fmt.Sprintf("%d of %d API endpoints are failing", failed, len(results))
	case slowest > p.thresholds.APIResponseMs:
		result.Status = models.StatusDegraded
		result.Message = fmt.Sprintf("API is slow: worst endpoint at %.0fms", slowest)
	}
	result.Details = map[string]interface{}{
		"endpoints_checked": len(results),
		"endpoints_failed":  failed,
	}
	return result
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

type LoadTestConfig struct {
	BaseURL             string
	ConcurrentShoppers  int
	TestDurationSeconds int
	RampUpSeconds       int
	ProductCount        int
	// CheckoutEvery is how many add-to-cart rounds a shopper makes before
	// checking out.
	CheckoutEvery int
}

type TestResult struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	CheckoutAttempts   int64
	SuccessfulOrders   int64
	ResponseTimes      []time.Duration
	Errors             map[string]int64
	mutex              sync.Mutex
}

type PerformanceMetrics struct {
	StartTime           time.Time        `json:"start_time"`
	EndTime             time.Time        `json:"end_time"`
	TotalDuration       time.Duration    `json:"total_duration"`
	ThroughputRPS       float64          `json:"throughput_rps"`
	SuccessfulRPS       float64          `json:"successful_rps"`
	P50ResponseTime     time.Duration    `json:"p50_response_time"`
	P95ResponseTime     time.Duration    `json:"p95_response_time"`
	P99ResponseTime     time.Duration    `json:"p99_response_time"`
	ErrorRate           float64          `json:"error_rate"`
	CheckoutSuccessRate float64          `json:"checkout_success_rate"`
	Errors              map[string]int64 `json:"errors,omitempty"`
}

type LoadTester struct {
	config    *LoadTestConfig
	result    *TestResult
	transport *http.Transport
}

func NewLoadTester(config *LoadTestConfig) *LoadTester {
	return &LoadTester{
		config: config,
		result: &TestResult{
			ResponseTimes: make([]time.Duration, 0),
			Errors:        make(map[string]int64),
		},
		transport: &http.Transport{
			MaxIdleConns:        1000,
			MaxIdleConnsPerHost: 100,
			MaxConnsPerHost:     200,
		},
	}
}

// newShopperClient gives each shopper its own cookie jar, and so its own
// session, and stops at redirects so each request is timed on its own.
func (lt *LoadTester) newShopperClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: lt.transport,
		Jar:       jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (lt *LoadTester) recordResponse(duration time.Duration, success bool, operation string, err error) {
	lt.result.mutex.Lock()
	defer lt.result.mutex.Unlock()

	atomic.AddInt64(&lt.result.TotalRequests, 1)
	lt.result.ResponseTimes = append(lt.result.ResponseTimes, duration)

	if success {
		atomic.AddInt64(&lt.result.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&lt.result.FailedRequests, 1)
		if err != nil {
			lt.result.Errors[fmt.Sprintf("%s: %s", operation, err.Error())]++
		}
	}
}

func (lt *LoadTester) request(client *http.Client, method, path, operation string, want int) bool {
	req, err := http.NewRequest(method, lt.config.BaseURL+path, nil)
	if err != nil {
		lt.recordResponse(0, false, operation, err)
		return false
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		lt.recordResponse(duration, false, operation, err)
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode != want {
		lt.recordResponse(duration, false, operation, fmt.Errorf("status %d", resp.StatusCode))
		return false
	}
	lt.recordResponse(duration, true, operation, nil)
	return true
}

func (lt *LoadTester) simulateShopper(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	client := lt.newShopperClient()
	rounds := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		productID := rand.IntN(lt.config.ProductCount) + 1
		lt.request(client, http.MethodGet, "/", "home", http.StatusOK)
		lt.request(client, http.MethodGet, fmt.Sprintf("/products/%d", productID), "product", http.StatusOK)
		lt.request(client, http.MethodPost, fmt.Sprintf("/add-to-cart/%d", productID), "add_to_cart", http.StatusSeeOther)
		if rand.IntN(3) == 0 {
			lt.request(client, http.MethodPost, fmt.Sprintf("/cart/increase/%d", productID), "increase", http.StatusSeeOther)
		}
		lt.request(client, http.MethodGet, "/cart", "cart", http.StatusOK)

		rounds++
		if rounds%lt.config.CheckoutEvery == 0 {
			atomic.AddInt64(&lt.result.CheckoutAttempts, 1)
			if lt.request(client, http.MethodPost, "/checkout", "checkout", http.StatusSeeOther) {
				atomic.AddInt64(&lt.result.SuccessfulOrders, 1)
			}
		}

		time.Sleep(time.Duration(rand.IntN(500)) * time.Millisecond)
	}
}

func (lt *LoadTester) Run() *PerformanceMetrics {
	fmt.Printf("Starting load test with %d concurrent shoppers for %d seconds\n",
		lt.config.ConcurrentShoppers, lt.config.TestDurationSeconds)

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(lt.config.TestDurationSeconds)*time.Second)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nReceived interrupt signal, stopping test...")
			cancel()
		case <-ctx.Done():
		}
	}()

	startTime := time.Now()
	var wg sync.WaitGroup

	shopperInterval := time.Duration(lt.config.RampUpSeconds) * time.Second / time.Duration(lt.config.ConcurrentShoppers)
	for i := 0; i < lt.config.ConcurrentShoppers; i++ {
		wg.Add(1)
		go lt.simulateShopper(ctx, &wg)

		if i < lt.config.ConcurrentShoppers-1 {
			time.Sleep(shopperInterval)
		}
	}

	go lt.monitorProgress(ctx, startTime)

	wg.Wait()
	return lt.calculateMetrics(startTime, time.Now())
}

func (lt *LoadTester) monitorProgress(ctx context.Context, startTime time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := time.Since(startTime)
			totalReqs := atomic.LoadInt64(&lt.result.TotalRequests)
			successReqs := atomic.LoadInt64(&lt.result.SuccessfulRequests)

			fmt.Printf("[%s] Total: %d, Success: %d, RPS: %.1f, Orders: %d\n",
				elapsed.Round(time.Second), totalReqs, successReqs,
				float64(totalReqs)/elapsed.Seconds(), atomic.LoadInt64(&lt.result.SuccessfulOrders))
		}
	}
}

func (lt *LoadTester) calculateMetrics(startTime, endTime time.Time) *PerformanceMetrics {
	lt.result.mutex.Lock()
	defer lt.result.mutex.Unlock()

	totalDuration := endTime.Sub(startTime)
	totalRequests := atomic.LoadInt64(&lt.result.TotalRequests)
	successfulRequests := atomic.LoadInt64(&lt.result.SuccessfulRequests)

	metrics := &PerformanceMetrics{
		StartTime:     startTime,
		EndTime:       endTime,
		TotalDuration: totalDuration,
		Errors:        lt.result.Errors,
	}

	if totalDuration.Seconds() > 0 {
		metrics.ThroughputRPS = float64(totalRequests) / totalDuration.Seconds()
		metrics.SuccessfulRPS = float64(successfulRequests) / totalDuration.Seconds()
	}
	if totalRequests > 0 {
		metrics.ErrorRate = float64(atomic.LoadInt64(&lt.result.FailedRequests)) / float64(totalRequests) * 100
	}
	if lt.result.CheckoutAttempts > 0 {
		metrics.CheckoutSuccessRate = float64(lt.result.SuccessfulOrders) / float64(lt.result.CheckoutAttempts) * 100
	}
	if len(lt.result.ResponseTimes) > 0 {
		metrics.P50ResponseTime = calculatePercentile(lt.result.ResponseTimes, 50)
		metrics.P95ResponseTime = calculatePercentile(lt.result.ResponseTimes, 95)
		metrics.P99ResponseTime = calculatePercentile(lt.result.ResponseTimes, 99)
	}

	return metrics
}

func calculatePercentile(durations []time.Duration, percentile int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	index := int(float64(len(sorted)) * float64(percentile) / 100.0)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func (pm *PerformanceMetrics) PrintReport() {
	fmt.Printf("LOAD TEST RESULTS\n")
	fmt.Printf("Test Duration: %v\n", pm.TotalDuration.Round(time.Second))
	fmt.Printf("\n")

	fmt.Printf("THROUGHPUT METRICS:\n")
	fmt.Printf("- Total RPS: %.2f requests/second\n", pm.ThroughputRPS)
	fmt.Printf("- Successful RPS: %.2f requests/second\n", pm.SuccessfulRPS)
	fmt.Printf("- Error Rate: %.2f%%\n", pm.ErrorRate)
	fmt.Printf("\n")

	fmt.Printf("RESPONSE TIME METRICS:\n")
	fmt.Printf("- P50 Response Time: %v\n", pm.P50ResponseTime.Round(time.Millisecond))
	fmt.Printf("- P95 Response Time: %v\n", pm.P95ResponseTime.Round(time.Millisecond))
	fmt.Printf("- P99 Response Time: %v\n", pm.P99ResponseTime.Round(time.Millisecond))
	fmt.Printf("\n")

	fmt.Printf("BUSINESS METRICS:\n")
	fmt.Printf("- Checkout Success Rate: %.2f%%\n", pm.CheckoutSuccessRate)
	for key, count := range pm.Errors {
		fmt.Printf("- %s: %d\n", key, count)
	}
}

func (pm *PerformanceMetrics) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(pm, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}

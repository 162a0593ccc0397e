package main

import (
	"flag"
	"log"
	"time"
)

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "Storefront base URL")
	profile := flag.String("profile", "default", "Load profile: light, default, heavy or stress")
	output := flag.String("out", "", "Write the JSON report to this file")
	flag.Parse()

	config := &LoadTestConfig{
		BaseURL:             *baseURL,
		ConcurrentShoppers:  50,
		TestDurationSeconds: 60,
		RampUpSeconds:       10,
		ProductCount:        20,
		CheckoutEvery:       5,
	}

	switch *profile {
	case "light":
		config.ConcurrentShoppers = 10
		config.TestDurationSeconds = 30
	case "heavy":
		config.ConcurrentShoppers = 200
		config.TestDurationSeconds = 300
	case "stress":
		config.ConcurrentShoppers = 500
		config.TestDurationSeconds = 600
	}

	tester := NewLoadTester(config)
	metrics := tester.Run()
	metrics.PrintReport()

	if *output == "" {
		*output = "loadtest_" + time.Now().Format("20060102_150405") + ".json"
	}
	if err := metrics.SaveToFile(*output); err != nil {
		log.Fatalf("Failed to save report: %v", err)
	}
	log.Printf("Report saved to %s", *output)
}

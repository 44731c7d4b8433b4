// Command waitload waits for the API server to come up and triggers a
// document load if the server reports none loaded. Meant to run once as a
// deployment init step.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const (
	maxAttempts  = 30
	pollInterval = 2 * time.Second
)

type healthResponse struct {
	Status          string `json:"status"`
	DocumentsLoaded bool   `json:"documents_loaded"`
}

func main() {
	baseURL := flag.String("url", envOr("API_URL", "http://localhost:8000"), "API base URL")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := &http.Client{Timeout: 10 * time.Second}

	health, err := waitHealthy(client, *baseURL, log)
	if err != nil {
		log.Error("server never became healthy", "error", err)
		os.Exit(1)
	}
	if health.DocumentsLoaded {
		log.Info("documents already loaded")
		return
	}

	log.Info("triggering document load")
	resp, err := client.Post(*baseURL+"/api/load-documents", "application/json", nil)
	if err != nil {
		log.Error("load request failed", "error", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Error("load request rejected", "status", resp.StatusCode)
		os.Exit(1)
	}

	var report map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&report); err == nil {
		log.Info("documents loaded", "report", report)
	} else {
		log.Info("documents loaded")
	}
}

func waitHealthy(client *http.Client, baseURL string, log *slog.Logger) (*healthResponse, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := client.Get(baseURL + "/api/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			var health healthResponse
			decErr := json.NewDecoder(resp.Body).Decode(&health)
			resp.Body.Close()
			if decErr == nil {
				log.Info("server healthy", "attempt", attempt, "documents_loaded", health.DocumentsLoaded)
				return &health, nil
			}
		} else if err == nil {
			resp.Body.Close()
		}
		log.Info("waiting for server", "attempt", attempt)
		time.Sleep(pollInterval)
	}
	return nil, fmt.Errorf("no healthy response after %d attempts", maxAttempts)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Wuchinator/scan-analytics/internal/scan"
)

func main() {
	baseURL := flag.String("url", "http://localhost:5000", "scan service base url")
	userID := flag.String("user", uuid.New().String(), "user id to act as")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Printf("Acting as user %s\n\n", *userID)

	samples := []scan.IngestRequest{
		scan.NewIngestRequest("email", 3, 87, "phishing"),
		scan.NewIngestRequest("link", 1, 10, "phishing"),
		scan.NewIngestRequest("message", 2, 55, "malware"),
	}

	fmt.Println("Logging scans")
	for _, sample := range samples {
		body, err := json.Marshal(sample)
		if err != nil {
			log.Fatalf("Failed to encode scan: %v", err)
		}
		resp := do(client, http.MethodPost, *baseURL+"/api/scans/log", *userID, body)
		fmt.Printf("   %s\n", resp)
	}

	for _, path := range []string{
		"/api/dashboard/summary",
		"/api/dashboard/by-type?dimension=threat_type",
		"/api/dashboard/timeseries?days=3",
		"/api/dashboard/recent?limit=5",
	} {
		fmt.Printf("\nGET %s\n", path)
		fmt.Printf("   %s\n", do(client, http.MethodGet, *baseURL+path, *userID, nil))
	}
}

func do(client *http.Client, method, url, userID string, body []byte) string {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, bytes.TrimSpace(data))
}

package main

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/processor"
)

// Sends a signed processor event to a local instance. Useful for driving the
// reconciliation path without the real processor:
//
//	go run ./cmd/tools/mockwebhook -type payout.paid -object-id tr_123
func main() {
	url := flag.String("url", "http://localhost:8080/webhooks/processor", "Webhook URL")
	secret := flag.String("secret", os.Getenv("PROCESSOR_WEBHOOK_SECRET"), "Webhook secret")
	eventID := flag.String("event-id", "evt_"+randomHex(8), "Event ID")
	eventType := flag.String("type", processor.EvPaymentSucceeded, "Event type")
	objectID := flag.String("object-id", "pi_"+randomHex(8), "Object id (intent ref, transfer ref, account ref...)")
	amount := flag.Int("amount", 11000, "Amount in cents")
	currency := flag.String("currency", "gbp", "Currency")
	status := flag.String("status", "", "Object status field")
	failureReason := flag.String("failure-reason", "", "Failure reason (failure events)")
	dryRun := flag.Bool("dry-run", false, "Only print signature header, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and PROCESSOR_WEBHOOK_SECRET not set\n")
		os.Exit(1)
	}

	object := map[string]any{
		"id":       *objectID,
		"amount":   *amount,
		"currency": *currency,
	}
	if *status != "" {
		object["status"] = *status
	}
	if *failureReason != "" {
		object["failure_reason"] = *failureReason
	}

	body, err := json.Marshal(map[string]any{
		"id":   *eventID,
		"type": *eventType,
		"data": map[string]any{"object": object},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	sigHeader := processor.SignatureHeaderValue([]byte(*secret), time.Now().Unix(), body)

	fmt.Printf("%s: %s\n", processor.SignatureHeader, sigHeader)
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	req, err := http.NewRequest("POST", *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(processor.SignatureHeader, sigHeader)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

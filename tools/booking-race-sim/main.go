// booking-race-sim fires concurrent bookings at one slot and prints how the
// service resolved them. Exactly one request should succeed.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/md-rashed-zaman/vetbook/libs/auth"
	"github.com/md-rashed-zaman/vetbook/libs/config"
)

func main() {
	var (
		baseURL  = flag.String("base-url", config.String("BASE_URL", "http://localhost:8083"), "booking-service base url")
		secret   = flag.String("secret", config.String("JWT_SECRET", ""), "HS256 signing secret shared with the service")
		vetID    = flag.String("vet", config.String("VET_ID", "vet-1"), "veterinarian id")
		ownerID  = flag.String("owner", config.String("OWNER_ID", "owner-1"), "pet owner id")
		petID    = flag.String("pet", config.String("PET_ID", "pet-1"), "pet id owned by -owner")
		date     = flag.String("date", time.Now().AddDate(0, 0, 1).Format("2006-01-02"), "slot date")
		start    = flag.String("start", "09:00", "slot start time")
		requests = flag.Int("n", 20, "concurrent booking requests")
		generate = flag.Bool("generate", true, "publish the default day for -vet first")
		method   = flag.String("payment-method", "card", "payment method; empty books without paying")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("JWT_SECRET is required")
	}
	base := strings.TrimRight(*baseURL, "/")
	client := &http.Client{Timeout: 30 * time.Second}

	if *generate {
		status, body, err := post(client, base+"/api/v1/slots/generate", sign(*vetID, *secret), map[string]string{"date": *date})
		if err != nil {
			fatal(err.Error())
		}
		fmt.Printf("generate status=%d body=%s\n", status, strings.TrimSpace(body))
	}

	ownerToken := sign(*ownerID, *secret)
	payload := map[string]any{
		"veterinarian_id":  *vetID,
		"pet_id":           *petID,
		"date":             *date,
		"start_time":       *start,
		"appointment_type": "regular_checkup",
		"severity":         "low",
	}
	if *method != "" {
		payload["payment_method"] = *method
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		counts = map[string]int{}
	)
	begin := time.Now()
	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, body, err := post(client, base+"/api/v1/appointments/book", ownerToken, payload)
			key := fmt.Sprintf("%d %s", status, errorCode(body))
			if err != nil {
				key = "transport error"
			}
			mu.Lock()
			counts[key]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("%d requests in %s\n", *requests, time.Since(begin).Round(time.Millisecond))
	for _, k := range keys {
		fmt.Printf("  %-32s %d\n", k, counts[k])
	}
}

func sign(subject, secret string) string {
	token, err := auth.SignHS256(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
	}}, secret)
	if err != nil {
		fatal(err.Error())
	}
	return token
}

func post(client *http.Client, url, token string, body any) (int, string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, "", err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.String(), nil
}

func errorCode(body string) string {
	var env struct {
		Code string `json:"code"`
	}
	if json.Unmarshal([]byte(body), &env) != nil {
		return ""
	}
	return env.Code
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

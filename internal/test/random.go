package test

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"
)

const asciiLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandomASCIIString returns an alphanumeric string with length in [minLen, maxLen].
func RandomASCIIString(minLen, maxLen int) string {
	if minLen <= 0 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	length := minLen
	if maxLen > minLen {
		length += randomIntn(maxLen - minLen + 1)
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = asciiLetters[randomIntn(len(asciiLetters))]
	}
	return string(buf)
}

// RandomWebhookPayload returns a JSON webhook body of eventType with a random order id
// and random extra attributes.
func RandomWebhookPayload(eventType string) []byte {
	attrs := make(map[string]string, 4)
	for i := randomIntn(4); i >= 0; i-- {
		attrs[RandomASCIIString(3, 8)] = RandomASCIIString(1, 32)
	}
	body, _ := json.Marshal(map[string]any{
		"type": eventType,
		"data": map[string]any{"id": "ord_" + RandomASCIIString(8, 8), "attributes": attrs},
	})
	return body
}

func randomIntn(n int) int {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Intn(n)
}

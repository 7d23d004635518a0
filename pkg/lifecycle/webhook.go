// Copyright 2025 Certen Protocol
//
// Webhook Delivery
// Best-effort delivery of lifecycle state-change notifications to a
// caller-supplied callback URL, with bounded retry on transient failures.

package lifecycle

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/metrics"
)

const (
	webhookMaxRetries  = 5
	webhookBaseDelay   = time.Second
	webhookJitterRatio = 0.2

	webhookEventStatusChanged = "attestation.status_changed"
)

type webhookJob struct {
	URL           string
	AttestationID string
	From          string
	To            string
	At            time.Time

	attempt int
}

// webhookPayload is the wire contract delivered to callback_url: an
// external integration surface, not an internal type, so its field names
// are fixed by agreement with whatever receives them.
type webhookPayload struct {
	Event   string    `json:"event"`
	ClaimID string    `json:"claim_id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	At      time.Time `json:"at"`
}

// webhookDispatcher delivers state-change notifications on its own worker
// pool, independent of the attestation processing pool, so a slow or dead
// callback endpoint never backs up attestation processing.
type webhookDispatcher struct {
	client *http.Client
	logger *log.Logger

	queue  chan webhookJob
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newWebhookDispatcher() *webhookDispatcher {
	return &webhookDispatcher{
		client: &http.Client{Timeout: 10 * time.Second},
		logger: log.New(os.Stdout, "[Webhook] ", log.LstdFlags),
		queue:  make(chan webhookJob, 1024),
		stopCh: make(chan struct{}),
	}
}

func (d *webhookDispatcher) start() {
	const deliveryWorkers = 4
	for i := 0; i < deliveryWorkers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *webhookDispatcher) stop() {
	close(d.stopCh)
	d.wg.Wait()
}

func (d *webhookDispatcher) enqueue(job webhookJob) {
	select {
	case d.queue <- job:
	default:
		d.logger.Printf("queue full, dropping notification for %s", job.AttestationID)
	}
}

func (d *webhookDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stopCh:
			return
		case job := <-d.queue:
			d.deliver(job)
		}
	}
}

// deliver attempts one delivery and, on a retryable failure, re-enqueues
// the job after an exponential backoff with jitter. 2xx responses and
// non-retryable 4xx responses terminate the job.
func (d *webhookDispatcher) deliver(job webhookJob) {
	body, err := json.Marshal(webhookPayload{
		Event:   webhookEventStatusChanged,
		ClaimID: job.AttestationID,
		From:    job.From,
		To:      job.To,
		At:      job.At,
	})
	if err != nil {
		d.logger.Printf("marshal notification for %s: %v", job.AttestationID, err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, job.URL, bytes.NewReader(body))
	if err != nil {
		d.logger.Printf("build request for %s: %v", job.AttestationID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.retryOrDrop(job, "connection error: "+redactedClientError(err, job.URL))
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
		return
	case isRetryableStatus(resp.StatusCode):
		d.retryOrDrop(job, "status "+resp.Status)
	default:
		metrics.WebhookDeliveries.WithLabelValues("rejected").Inc()
		d.logger.Printf("notification for %s rejected with %s, not retrying", job.AttestationID, resp.Status)
	}
}

func isRetryableStatus(code int) bool {
	if code >= 500 {
		return true
	}
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}

func (d *webhookDispatcher) retryOrDrop(job webhookJob, reason string) {
	job.attempt++
	if job.attempt >= webhookMaxRetries {
		metrics.WebhookDeliveries.WithLabelValues("dropped").Inc()
		d.logger.Printf("giving up on notification for %s after %d attempts: %s", job.AttestationID, job.attempt, reason)
		return
	}

	delay := webhookBaseDelay * time.Duration(1<<uint(job.attempt-1))
	jitter := time.Duration(float64(delay) * webhookJitterRatio * (rand.Float64()*2 - 1))
	delay += jitter

	go func() {
		time.Sleep(delay)
		d.enqueue(job)
	}()
}

// redactURL avoids leaking query-string credentials in log lines.
func redactURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i] + "?<redacted>"
	}
	return u
}

// redactedClientError formats an http.Client error for logging with its
// embedded request URL redacted. net/http wraps transport failures in a
// *url.Error whose Error() string otherwise puts the raw callback URL
// (query string and all) straight into the log.
func redactedClientError(err error, fallbackURL string) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Op + " " + redactURL(urlErr.URL) + ": " + urlErr.Err.Error()
	}
	return redactURL(fallbackURL) + ": " + err.Error()
}

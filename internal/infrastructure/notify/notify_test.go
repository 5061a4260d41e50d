package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"sstcompliance/internal/ports"
)

func TestWebhookPostsToDashedEndpoint(t *testing.T) {
	var (
		gotPath string
		gotSig  string
		gotBody ports.Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSig = r.Header.Get(SignatureHeader)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	hook, err := NewWebhook(WebhookConfig{BaseURL: srv.URL + "/hooks/", Secret: "s3cret"})
	if err != nil {
		t.Fatalf("NewWebhook() error = %v", err)
	}

	event := ports.Event{
		Type:       "incident_reported",
		EntityID:   "inc-1",
		Fields:     map[string]any{"priority": "critical"},
		OccurredAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if gotPath != "/hooks/incident-reported" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody.Type != "incident_reported" || gotBody.EntityID != "inc-1" {
		t.Fatalf("body = %+v", gotBody)
	}
	if !strings.HasPrefix(gotSig, "sha256=") {
		t.Fatalf("signature = %q", gotSig)
	}
}

func TestWebhookNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	hook, err := NewWebhook(WebhookConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewWebhook() error = %v", err)
	}
	if err := hook.Notify(context.Background(), ports.Event{Type: "finding_closed"}); err == nil {
		t.Fatalf("Notify() expected error for 502")
	}
}

func TestNewWebhookRequiresURL(t *testing.T) {
	if _, err := NewWebhook(WebhookConfig{BaseURL: "  "}); err == nil {
		t.Fatalf("NewWebhook() expected error")
	}
}

func TestNATSSubject(t *testing.T) {
	p := newNATSPublisher(nil, "", 0)
	if got := p.Subject("finding_closed"); got != "sst.events.finding_closed" {
		t.Fatalf("Subject() = %q", got)
	}
	p = newNATSPublisher(nil, "plant.a.", 0)
	if got := p.Subject("equipment_renewed"); got != "plant.a.equipment_renewed" {
		t.Fatalf("Subject() = %q", got)
	}
}

// natsStub speaks just enough of the NATS protocol for one client to
// connect, publish and flush. Published subjects are sent on pubs.
func natsStub(t *testing.T) (string, <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	pubs := make(chan string, 8)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		port := ln.Addr().(*net.TCPAddr).Port
		fmt.Fprintf(conn, "INFO {\"server_id\":\"stub\",\"version\":\"2.10.0\",\"host\":\"127.0.0.1\",\"port\":%d,\"max_payload\":1048576,\"proto\":1}\r\n", port)
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "PING":
				if _, err := io.WriteString(conn, "PONG\r\n"); err != nil {
					return
				}
			case strings.HasPrefix(line, "PUB "):
				fields := strings.Fields(line)
				size, _ := strconv.Atoi(fields[len(fields)-1])
				if _, err := io.CopyN(io.Discard, r, int64(size)+2); err != nil {
					return
				}
				pubs <- fields[1]
			}
		}
	}()
	return "nats://" + ln.Addr().String(), pubs
}

func TestNATSNotifyWithoutDeadline(t *testing.T) {
	url, pubs := natsStub(t)

	p, err := NewNATSPublisher(context.Background(), NATSConfig{URL: url, FlushTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewNATSPublisher() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	if err := p.Notify(context.Background(), ports.Event{Type: "finding_closed", EntityID: "f-1"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	select {
	case got := <-pubs:
		if got != "sst.events.finding_closed" {
			t.Fatalf("published subject = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no publish received")
	}
}

type fakeChannel struct {
	name string
	err  error

	mu     sync.Mutex
	events []ports.Event
}

func (f *fakeChannel) Channel() string { return f.name }

func (f *fakeChannel) Notify(_ context.Context, event ports.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingRecorder) RecordNotification(_ string, channel string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	key := channel + ":ok"
	if err != nil {
		key = channel + ":error"
	}
	c.counts[key]++
}

func TestFanOutDeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &fakeChannel{name: "ok"}
	bad := &fakeChannel{name: "bad", err: boom}
	rec := &countingRecorder{}

	fan := NewFanOut(rec, ok, nil, bad)
	if fan.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", fan.Len())
	}

	err := fan.Notify(context.Background(), ports.Event{Type: "actions_created", EntityID: "inc-9"})
	if !errors.Is(err, boom) {
		t.Fatalf("Notify() error = %v, want boom", err)
	}
	if len(ok.events) != 1 || len(bad.events) != 1 {
		t.Fatalf("deliveries ok=%d bad=%d", len(ok.events), len(bad.events))
	}
	if rec.counts["ok:ok"] != 1 || rec.counts["bad:error"] != 1 {
		t.Fatalf("recorder counts = %v", rec.counts)
	}
}

func TestFanOutEmptyIsNoop(t *testing.T) {
	if err := NewFanOut(nil).Notify(context.Background(), ports.Event{Type: "x"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
}

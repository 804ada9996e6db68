package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/nkovacs/adnsd/internal/provider"
	"github.com/nkovacs/adnsd/internal/security"
	"github.com/nkovacs/adnsd/internal/wire"
	"github.com/nkovacs/adnsd/internal/zone"
)

func mustName(t *testing.T, s string) wire.Name {
	t.Helper()
	n, err := wire.ParseName(s)
	if err != nil {
		t.Fatalf("parse name %q: %v", s, err)
	}
	return n
}

func testZone(t *testing.T) *zone.Zone {
	t.Helper()
	z := zone.New()
	z.SOA = &wire.SOAData{
		MName: mustName(t, "ns1.example.com"), RName: mustName(t, "hostmaster.example.com"),
		Serial: 1, Refresh: 3600, Retry: 900, Expire: 604800, Minimum: 300,
	}
	z.Nameservers = []wire.Name{mustName(t, "ns1.example.com")}
	z.Records = []wire.Record{
		wire.NewRecord(mustName(t, "www.example.com"), 300, wire.AData{Addr: [4]byte{1, 2, 3, 4}}),
	}
	return z
}

func TestWatchSnapshotsPublishesZone(t *testing.T) {
	s := New("127.0.0.1:0", make(chan provider.Update, 1), nil)
	if s.Snapshot() != nil {
		t.Fatalf("expected no snapshot before publish")
	}

	snapshots := make(chan *zone.Zone, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.WatchSnapshots(ctx, snapshots)

	z := testZone(t)
	snapshots <- z
	waitFor(t, func() bool { return s.Snapshot() == z })
}

func TestServeUDPAnswersQuery(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	s := New(conn.LocalAddr().String(), make(chan provider.Update, 1), nil)
	s.current.Store(testZone(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.serveUDP(ctx, conn)

	client, err := net.Dial("udp", conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	p := wire.Packet{
		Header:    wire.Header{ID: 99, RecursionDesired: true},
		Questions: []wire.Question{{Name: mustName(t, "www.example.com"), Type: wire.TypeA, Class: wire.ClassIN}},
	}
	if _, err := client.Write(p.Serialize(udpMaxSize)); err != nil {
		t.Fatalf("write query: %v", err)
	}

	if err := client.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	buf := make([]byte, udpMaxSize)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	resp, _, err := wire.ParsePacket(buf[:n])
	if err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Header.ID != 99 {
		t.Fatalf("expected matching transaction ID, got %d", resp.Header.ID)
	}
	if len(resp.Answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(resp.Answers))
	}
}

func TestServeUDPDropsRateLimitedSource(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	limiter := security.NewRateLimiter(0, time.Minute, 100)
	s := New(conn.LocalAddr().String(), make(chan provider.Update, 1), limiter)
	s.current.Store(testZone(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.serveUDP(ctx, conn)

	client, err := net.Dial("udp", conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	p := wire.Packet{
		Header:    wire.Header{ID: 1, RecursionDesired: true},
		Questions: []wire.Question{{Name: mustName(t, "www.example.com"), Type: wire.TypeA, Class: wire.ClassIN}},
	}
	raw := p.Serialize(udpMaxSize)

	// The first datagram from a source always creates its rate limit
	// entry and is allowed; the second exceeds the threshold of 0 and
	// starts a cooldown.
	if _, err := client.Write(raw); err != nil {
		t.Fatalf("write query: %v", err)
	}
	if err := client.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	buf := make([]byte, udpMaxSize)
	if _, err := client.Read(buf); err != nil {
		t.Fatalf("expected the first query to be answered: %v", err)
	}

	if _, err := client.Write(raw); err != nil {
		t.Fatalf("write second query: %v", err)
	}
	if err := client.SetReadDeadline(time.Now().Add(200 * time.Millisecond)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	if _, err := client.Read(buf); err == nil {
		t.Fatalf("expected no response once the source was rate limited")
	}
}

func waitFor(t *testing.T, ready func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ready() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

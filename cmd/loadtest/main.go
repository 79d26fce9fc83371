// Command loadtest drives concurrent websocket bidders against a running
// auction server and reports acceptance counts and latency percentiles.
//
// Every bidder joins the same lot, so the run exercises the per-lot
// serialization path under real contention:
//
//	go run ./cmd/loadtest -addr ws://localhost:8080/ws -lot lot1 -bidders 50 -bids 20
//
// The -secret flag must match the server's JWT_SECRET so the driver can
// mint its own session tokens.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/revisaosegura/copartbr-sub000/internal/identity"
	model "github.com/revisaosegura/copartbr-sub000/internal/models"
	"github.com/revisaosegura/copartbr-sub000/internal/repository"
	"github.com/revisaosegura/copartbr-sub000/internal/room"
	"github.com/revisaosegura/copartbr-sub000/internal/ws"
)

type scenario struct {
	Addr         string
	LotID        string
	Bidders      int
	BidsPerUser  int
	StartAmount  int64
	MaxIncrement int64
	Burst        bool
	Secret       string
}

// metrics collects per-bid latencies and outcome counts across bidders.
type metrics struct {
	mu        sync.Mutex
	latencies []time.Duration

	accepted int64
	rejected int64
	errors   int64
}

func (m *metrics) record(d time.Duration) {
	m.mu.Lock()
	m.latencies = append(m.latencies, d)
	m.mu.Unlock()
}

func (m *metrics) stats() (min, max, avg, p95, p99 time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) == 0 {
		return
	}
	sort.Slice(m.latencies, func(i, j int) bool { return m.latencies[i] < m.latencies[j] })

	min = m.latencies[0]
	max = m.latencies[len(m.latencies)-1]

	var total time.Duration
	for _, d := range m.latencies {
		total += d
	}
	avg = total / time.Duration(len(m.latencies))
	p95 = m.latencies[int(0.95*float64(len(m.latencies)))]
	p99 = m.latencies[int(0.99*float64(len(m.latencies)))]
	return
}

func main() {
	s := scenario{}
	flag.StringVar(&s.Addr, "addr", "ws://localhost:8080/ws", "websocket endpoint")
	flag.StringVar(&s.LotID, "lot", "lot1", "lot every bidder targets")
	flag.IntVar(&s.Bidders, "bidders", 50, "concurrent bidder connections")
	flag.IntVar(&s.BidsPerUser, "bids", 20, "bids placed per bidder")
	flag.Int64Var(&s.StartAmount, "start", 100000, "baseline bid amount in cents")
	flag.Int64Var(&s.MaxIncrement, "increment", 50000, "max random raise over the observed highest, in cents")
	flag.BoolVar(&s.Burst, "burst", false, "no delay between bids")
	flag.StringVar(&s.Secret, "secret", "insecure-dev-secret", "JWT secret shared with the server")
	flag.Parse()

	if err := run(s); err != nil {
		fmt.Fprintln(os.Stderr, "loadtest:", err)
		os.Exit(1)
	}
}

func run(s scenario) error {
	if s.MaxIncrement <= 0 {
		s.MaxIncrement = 1
	}

	// the resolver is only used to sign tokens; the directory behind it
	// is never consulted for that
	signer := identity.NewResolver(s.Secret, repository.NewMemoryRepo())

	m := &metrics{}

	// every bidder raises over the highest amount it has observed on the
	// broadcast stream, so later bids keep clearing the bar
	var observedHighest int64
	if s.StartAmount > 0 {
		observedHighest = s.StartAmount
	}

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < s.Bidders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := runBidder(s, signer, m, &observedHighest, n); err != nil {
				atomic.AddInt64(&m.errors, 1)
				fmt.Fprintf(os.Stderr, "bidder %d: %v\n", n, err)
			}
		}(i)
	}
	wg.Wait()

	elapsed := time.Since(start)
	totalOps := m.accepted + m.rejected
	min, max, avg, p95, p99 := m.stats()

	fmt.Printf("lot: %s | bidders: %d | bids: %d | accepted: %d | rejected: %d | conn errors: %d\n",
		s.LotID, s.Bidders, totalOps, m.accepted, m.rejected, m.errors)
	fmt.Printf("elapsed: %s | throughput: %.2f bids/sec\n", elapsed, float64(totalOps)/elapsed.Seconds())
	fmt.Printf("latency(ms) min: %.2f avg: %.2f max: %.2f p95: %.2f p99: %.2f\n",
		float64(min.Microseconds())/1000, float64(avg.Microseconds())/1000, float64(max.Microseconds())/1000,
		float64(p95.Microseconds())/1000, float64(p99.Microseconds())/1000)
	fmt.Printf("final highest observed: %d\n", atomic.LoadInt64(&observedHighest))
	return nil
}

func runBidder(s scenario, signer *identity.Resolver, m *metrics, observedHighest *int64, n int) error {
	user := model.User{
		UserID:      fmt.Sprintf("load_user_%d", n),
		DisplayName: fmt.Sprintf("Load Bidder %d", n),
	}
	token, err := signer.SignSession(user, time.Hour)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(s.Addr+"?token="+token, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	if err := conn.WriteJSON(ws.ClientMessage{Type: ws.MsgJoin, LotID: s.LotID}); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(n)))

	bidsPlaced := 0
	awaitingOutcome := false
	var pending int64
	var sentAt time.Time

	for bidsPlaced < s.BidsPerUser || awaitingOutcome {
		if !awaitingOutcome {
			pending = atomic.LoadInt64(observedHighest) + 1 + rnd.Int63n(s.MaxIncrement)
			sentAt = time.Now()
			err := conn.WriteJSON(ws.ClientMessage{Type: ws.MsgPlaceBid, LotID: s.LotID, Amount: pending})
			if err != nil {
				return fmt.Errorf("place bid: %w", err)
			}
			awaitingOutcome = true
			bidsPlaced++
		}

		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&env); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch env.Type {
		case "bid_accepted":
			var ev room.BidAcceptedEvent
			if err := json.Unmarshal(env.Data, &ev); err != nil {
				continue
			}
			raiseObserved(observedHighest, ev.HighestBid)
			if ev.Bid.BidderID == user.UserID && ev.Bid.Amount == pending {
				m.record(time.Since(sentAt))
				atomic.AddInt64(&m.accepted, 1)
				awaitingOutcome = false
			}

		case ws.EventBidRejected:
			m.record(time.Since(sentAt))
			atomic.AddInt64(&m.rejected, 1)
			awaitingOutcome = false

		case "bid_history", ws.EventError:
			// history replay on join; protocol errors are not bid outcomes
		}

		if !awaitingOutcome && !s.Burst {
			time.Sleep(time.Millisecond)
		}
	}
	return nil
}

func raiseObserved(observed *int64, seen int64) {
	for {
		cur := atomic.LoadInt64(observed)
		if seen <= cur || atomic.CompareAndSwapInt64(observed, cur, seen) {
			return
		}
	}
}

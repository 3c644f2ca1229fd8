// Command simulate stands in for delivery platforms: it posts randomized
// online orders to a running floor server through the public order API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/spf13/pflag"
)

var customerNames = []string{"Asha", "Rohan", "Meera", "Kabir", "Ishaan", "Priya", "Dev", "Nisha"}

type options struct {
	addr      string
	count     int
	interval  time.Duration
	platforms []string
	maxLines  int
	maxQty    int
	seed      uint64
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	flagSet.StringVar(&opts.addr, "addr", "http://localhost:8081", "base URL of the floor server")
	flagSet.IntVarP(&opts.count, "count", "n", 10, "number of orders to place (0 runs until interrupted)")
	flagSet.DurationVar(&opts.interval, "interval", 2*time.Second, "delay between orders")
	flagSet.StringSliceVar(&opts.platforms, "platforms", []string{enum.PlatformSwiggy, enum.PlatformZomato, enum.PlatformDirect}, "platforms to pick from")
	flagSet.IntVar(&opts.maxLines, "max-lines", 3, "maximum distinct menu items per order")
	flagSet.IntVar(&opts.maxQty, "max-qty", 3, "maximum quantity per line")
	flagSet.Uint64Var(&opts.seed, "seed", 0, "random seed (0 picks one from the clock)")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.maxLines <= 0 || opts.maxQty <= 0 {
		return fmt.Errorf("--max-lines and --max-qty must be > 0")
	}
	if len(opts.platforms) == 0 {
		return fmt.Errorf("--platforms must name at least one platform")
	}
	if opts.seed == 0 {
		opts.seed = uint64(time.Now().UnixNano())
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim := newSimulator(opts, &http.Client{Timeout: 10 * time.Second}, logger)
	return sim.Run(ctx)
}

type menuItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

type orderLine struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type placeOrderBody struct {
	OrderType    string      `json:"order_type"`
	Platform     string      `json:"platform"`
	CustomerName string      `json:"customer_name"`
	Items        []orderLine `json:"items"`
}

type placedOrder struct {
	ID       int64  `json:"id"`
	Platform string `json:"platform"`
	Total    string `json:"total"`
}

type simulator struct {
	opts   options
	client *http.Client
	rng    *rand.Rand
	logger *slog.Logger
}

func newSimulator(opts options, client *http.Client, logger *slog.Logger) *simulator {
	return &simulator{
		opts:   opts,
		client: client,
		rng:    rand.New(rand.NewPCG(opts.seed, opts.seed>>1|1)),
		logger: logger,
	}
}

// Run places orders until count is reached or ctx is done. The menu is
// fetched once up front; an item that goes unavailable later is reported by
// the server and skipped.
func (s *simulator) Run(ctx context.Context) error {
	menu, err := s.fetchMenu(ctx)
	if err != nil {
		return err
	}
	if len(menu) == 0 {
		return errors.New("menu has no available items")
	}
	s.logger.Info("simulating online orders", "menu_items", len(menu), "count", s.opts.count, "platforms", s.opts.platforms)

	for placed := 0; s.opts.count == 0 || placed < s.opts.count; placed++ {
		if placed > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.opts.interval):
			}
		}

		order, err := s.placeOrder(ctx, s.randomOrder(menu))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("place order failed", "err", err)
			continue
		}
		s.logger.Info("order placed", "order_id", order.ID, "platform", order.Platform, "total", order.Total)
	}
	return nil
}

func (s *simulator) randomOrder(menu []menuItem) placeOrderBody {
	n := 1 + s.rng.IntN(min(s.opts.maxLines, len(menu)))
	picked := s.rng.Perm(len(menu))[:n]

	lines := make([]orderLine, 0, n)
	for _, i := range picked {
		lines = append(lines, orderLine{MenuItemID: menu[i].ID, Quantity: 1 + s.rng.IntN(s.opts.maxQty)})
	}
	return placeOrderBody{
		OrderType:    enum.OrderTypeOnline,
		Platform:     strings.ToUpper(s.opts.platforms[s.rng.IntN(len(s.opts.platforms))]),
		CustomerName: customerNames[s.rng.IntN(len(customerNames))],
		Items:        lines,
	}
}

func (s *simulator) fetchMenu(ctx context.Context) ([]menuItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.addr+"/menu", nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch menu: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch menu: %s", resp.Status)
	}

	var all []menuItem
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}
	available := all[:0]
	for _, it := range all {
		if it.Available {
			available = append(available, it)
		}
	}
	return available, nil
}

func (s *simulator) placeOrder(ctx context.Context, body placeOrderBody) (placedOrder, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return placedOrder{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.addr+"/orders", bytes.NewReader(raw))
	if err != nil {
		return placedOrder{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return placedOrder{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return placedOrder{}, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	var out placedOrder
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return placedOrder{}, fmt.Errorf("decode order: %w", err)
	}
	return out, nil
}

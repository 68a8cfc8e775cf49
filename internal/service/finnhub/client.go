package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"SignalForge/internal/domain/models"
	drepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
)

var _ drepo.QuoteStream = (*Client)(nil)

type Config struct {
	APIKey         string        `yaml:"api_key"`
	WebsocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
	Symbols        []string      `yaml:"symbols"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
}

// Client streams trade prints from the Finnhub websocket.
type Client struct {
	cfg    Config
	log    *applogger.Logger
	dialer *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func New(cfg Config, log *applogger.Logger) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &Client{cfg: cfg, log: log, dialer: websocket.DefaultDialer}
}

func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.cfg.WebsocketURL)
	if err != nil {
		return fmt.Errorf("finnhub url: %w", err)
	}
	if c.cfg.APIKey != "" {
		q := u.Query()
		q.Set("token", c.cfg.APIKey)
		u.RawQuery = q.Encode()
	}
	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("finnhub connected", applogger.String("url", c.cfg.WebsocketURL))
	return nil
}

func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("finnhub not connected")
	}
	for _, s := range c.cfg.Symbols {
		msg := map[string]string{"type": "subscribe", "symbol": strings.ToUpper(s)}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.log.Info("finnhub subscribed", applogger.Strings("symbols", c.cfg.Symbols))
	return nil
}

type fhTrade struct {
	S string   `json:"s"`
	P float64  `json:"p"`
	V float64  `json:"v"`
	T int64    `json:"t"`
	C []string `json:"c"`
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

// Finnhub trade condition 12 marks a print reported off exchange (FINRA TRF).
const conditionOffExchange = "12"

func toPrint(d fhTrade) models.Print {
	p := models.Print{
		Symbol:    strings.ToUpper(d.S),
		Price:     d.P,
		Size:      d.V,
		Side:      models.SideUnknown,
		Timestamp: time.UnixMilli(d.T).UTC(),
	}
	for _, cond := range d.C {
		if cond == conditionOffExchange {
			p.OffExchange = true
		}
	}
	return p
}

// decodeFrame returns the prints in one frame; non-trade frames yield none.
func decodeFrame(b []byte) ([]models.Print, error) {
	var m fhMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m.Type != "trade" {
		return nil, nil
	}
	out := make([]models.Print, 0, len(m.Data))
	for _, d := range m.Data {
		if d.S == "" || d.P <= 0 {
			continue
		}
		out = append(out, toPrint(d))
	}
	return out, nil
}

// Read streams prints until the connection fails or ctx ends. Prints are dropped
// when the consumer falls behind.
func (c *Client) Read(ctx context.Context) (<-chan models.Print, <-chan error) {
	prints := make(chan models.Print, 1024)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if conn != nil {
					_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				}
			}
		}
	}()

	go func() {
		defer close(prints)
		defer close(errs)
		if conn == nil {
			errs <- fmt.Errorf("finnhub conn nil")
			return
		}
		dropped := 0
		for ctx.Err() == nil {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("finnhub read: %w", err)
				return
			}
			batch, err := decodeFrame(b)
			if err != nil {
				c.log.Debug("finnhub frame ignored", applogger.Error(err))
				continue
			}
			for _, p := range batch {
				select {
				case prints <- p:
				default:
					dropped++
					if dropped%1000 == 1 {
						c.log.Warn("finnhub consumer behind, dropping prints", applogger.Int("dropped", dropped))
					}
				}
			}
		}
	}()

	return prints, errs
}

func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.cfg.ReconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

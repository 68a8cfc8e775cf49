package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	applogger "SignalForge/pkg/logger"
)

// MessageHandler handles messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

type ConsumerOption func(*ConsumerConfig)

type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	WorkerCount int
	BufferSize  int
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string
	MinBytes    int
	MaxBytes    int
	Logger      *applogger.Logger
	Hook        ConsumerHook
	Registerer  prometheus.Registerer
}

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) { c.GroupID = groupID }
}

func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
	}
}

// WithConsumerRetry configures retry attempts and the backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// WithConsumerDLQ routes messages that exhaust their retries to topic.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

func WithConsumerLogger(l *applogger.Logger) ConsumerOption {
	return func(c *ConsumerConfig) {
		if l != nil {
			c.Logger = l
		}
	}
}

func WithConsumerHook(h ConsumerHook) ConsumerOption {
	return func(c *ConsumerConfig) {
		if h != nil {
			c.Hook = h
		}
	}
}

func WithConsumerRegisterer(reg prometheus.Registerer) ConsumerOption {
	return func(c *ConsumerConfig) { c.Registerer = reg }
}

// Consumer reads registered topics and fans messages out to a worker pool.
// Messages of one partition are handled one at a time.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *applogger.Logger
	m        *consumerMetrics
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	msgCh    chan *message
	stopCh   chan struct{}
	stopOnce sync.Once
	readWg   sync.WaitGroup
	workWg   sync.WaitGroup
	dlq      *kafka.Writer

	lockMu    sync.Mutex
	partLocks map[string]*sync.Mutex
}

type message struct {
	topic string
	km    kafka.Message
}

func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "signalforge",
		WorkerCount: 1,
		BufferSize:  64,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    10e3,
		MaxBytes:    10e6,
		Logger:      applogger.Nop(),
		Hook:        NoopHook{},
		Registerer:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	c := &Consumer{
		cfg:       cfg,
		log:       cfg.Logger.With(applogger.String("component", "kafka_consumer")),
		m:         consumerMetricsFor(cfg.Registerer),
		readers:   make(map[string]*kafka.Reader),
		handlers:  make(map[string]MessageHandler),
		msgCh:     make(chan *message, cfg.BufferSize),
		stopCh:    make(chan struct{}),
		partLocks: make(map[string]*sync.Mutex),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}
	return c, nil
}

// RegisterHandler must be called before Start. A second handler for the same
// topic is ignored.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, ok := c.handlers[h.Topic()]; ok {
		c.log.Warn("handler already registered", applogger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}
	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
	}
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.workWg.Add(1)
		go c.worker()
	}
	for topic, r := range c.readers {
		c.readWg.Add(1)
		go c.read(topic, r)
	}
	c.log.Info("kafka consumer started",
		applogger.Int("workers", c.cfg.WorkerCount),
		applogger.Int("topics", len(c.readers)))
	return nil
}

// Stop drains in-flight messages and closes readers, bounded by ctx.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stopCh)
		done := make(chan struct{})
		go func() {
			c.readWg.Wait()
			close(c.msgCh)
			c.workWg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		}
		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Warn("close reader", applogger.String("topic", topic), applogger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.log.Warn("close dlq writer", applogger.Error(cerr))
			}
		}
		c.log.Info("kafka consumer stopped")
	})
	return err
}

func (c *Consumer) read(topic string, r *kafka.Reader) {
	defer c.readWg.Done()
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		km, err := r.FetchMessage(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				c.log.Warn("fetch message", applogger.String("topic", topic), applogger.Error(err))
			}
			continue
		}
		select {
		case c.msgCh <- &message{topic: topic, km: km}:
			c.m.depth.WithLabelValues(topic).Set(float64(len(c.msgCh)))
		case <-c.stopCh:
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.workWg.Done()
	for msg := range c.msgCh {
		c.process(msg)
	}
}

func (c *Consumer) process(msg *message) {
	h, ok := c.handlers[msg.topic]
	if !ok {
		return
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panic in message handler", applogger.String("topic", msg.topic), applogger.Any("panic", r))
			c.m.handled.WithLabelValues(msg.topic, "panic").Inc()
		}
	}()

	pl := c.partitionLock(msg.topic, msg.km.Partition)
	pl.Lock()
	defer pl.Unlock()

	err := c.handleWithRetry(h, msg)
	result := "ok"
	if err != nil {
		result = "error"
		c.cfg.Hook.OnError(context.Background(), msg.topic, msg.km, err)
		c.log.Error("message failed",
			applogger.String("topic", msg.topic),
			applogger.Int("partition", msg.km.Partition),
			applogger.Int64("offset", msg.km.Offset),
			applogger.Error(err))
		if c.dlq != nil {
			c.toDLQ(msg)
			result = "dlq"
		}
	}
	// Failed messages without a DLQ stay uncommitted and are redelivered.
	if err == nil || c.dlq != nil {
		c.commit(c.readers[msg.topic], msg.km)
	}
	c.m.handled.WithLabelValues(msg.topic, result).Inc()
	c.m.latency.WithLabelValues(msg.topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) handleWithRetry(h MessageHandler, msg *message) error {
	var err error
	for attempt := 1; ; attempt++ {
		ctx, data, berr := c.cfg.Hook.BeforeHandle(context.Background(), msg.topic, msg.km, msg.km.Value)
		if berr != nil {
			return berr
		}
		err = h.Handle(ctx, data)
		c.cfg.Hook.AfterHandle(ctx, msg.topic, msg.km, err)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.stopCh:
			return err
		}
	}
}

func (c *Consumer) toDLQ(msg *message) {
	err := c.dlq.WriteMessages(context.Background(), kafka.Message{
		Topic:   c.cfg.DLQTopic,
		Key:     msg.km.Key,
		Value:   msg.km.Value,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "source_topic", Value: []byte(msg.topic)}},
	})
	if err != nil {
		c.log.Error("write dlq", applogger.String("topic", c.cfg.DLQTopic), applogger.Error(err))
	}
}

func (c *Consumer) commit(r *kafka.Reader, km kafka.Message) {
	if r == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(20*time.Millisecond, 200*time.Millisecond, attempt))
	}
	c.log.Warn("commit offset", applogger.String("topic", km.Topic), applogger.Int64("offset", km.Offset), applogger.Error(err))
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	key := fmt.Sprintf("%s/%d", topic, partition)
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	l, ok := c.partLocks[key]
	if !ok {
		l = &sync.Mutex{}
		c.partLocks[key] = l
	}
	return l
}

// backoffWithJitter doubles min per attempt, caps at max and adds up to 20% jitter.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := min
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	if j := int64(d) / 5; j > 0 {
		d += time.Duration(rand.Int63n(j))
	}
	return d
}

type consumerMetrics struct {
	handled *prometheus.CounterVec
	latency *prometheus.HistogramVec
	depth   *prometheus.GaugeVec
}

var (
	consumerMu    sync.Mutex
	consumerByReg = map[prometheus.Registerer]*consumerMetrics{}
)

func consumerMetricsFor(reg prometheus.Registerer) *consumerMetrics {
	consumerMu.Lock()
	defer consumerMu.Unlock()
	if m, ok := consumerByReg[reg]; ok {
		return m
	}
	m := &consumerMetrics{
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalforge_kafka_consumer_messages_total",
			Help: "Messages handled by result",
		}, []string{"topic", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalforge_kafka_consumer_handle_seconds",
			Help:    "Handling latency including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalforge_kafka_consumer_queue_depth",
			Help: "Messages waiting for a worker",
		}, []string{"topic"}),
	}
	if reg != nil {
		reg.MustRegister(m.handled, m.latency, m.depth)
	}
	consumerByReg[reg] = m
	return m
}

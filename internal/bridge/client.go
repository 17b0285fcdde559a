package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"postsync/internal/metrics"
)

const (
	DefaultScheduleTimeout = 5 * time.Second
	DefaultPostTimeout     = 30 * time.Second
)

// Client turns the message channel to one extension into request/response
// calls. Calls never return an error: every failure resolves to a result
// with Success=false.
type Client struct {
	ch     Channel
	logger *zap.Logger

	ScheduleTimeout time.Duration
	PostTimeout     time.Duration

	mu      sync.Mutex
	waiters map[string]chan Envelope
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewClient starts the receive loop; it runs until the channel fails or
// Close is called.
func NewClient(ch Channel, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ch:              ch,
		logger:          logger,
		ScheduleTimeout: DefaultScheduleTimeout,
		PostTimeout:     DefaultPostTimeout,
		waiters:         make(map[string]chan Envelope),
		done:            make(chan struct{}),
		cancel:          cancel,
	}
	go c.receiveLoop(ctx)
	return c
}

// Done is closed once the client can no longer reach the extension.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() {
	c.cancel()
	_ = c.ch.Close()
	<-c.done
}

func (c *Client) SchedulePosts(ctx context.Context, posts []ScheduledPost) ScheduleResult {
	correlationID := uuid.Must(uuid.NewV4()).String()
	payload, err := json.Marshal(SchedulePosts{Posts: posts})
	if err != nil {
		return ScheduleResult{Error: err.Error()}
	}

	env, state := c.call(ctx, "schedule:"+correlationID, Envelope{
		Type:          TypeSchedulePosts,
		CorrelationID: correlationID,
		Payload:       payload,
	}, c.ScheduleTimeout)
	c.observe(TypeSchedulePosts, state)

	switch state {
	case callTimedOut:
		return ScheduleResult{TimedOut: true, Error: "extension did not answer in time"}
	case callUnavailable:
		return ScheduleResult{Unavailable: true, Error: "extension unavailable"}
	}
	var res ScheduleResult
	if err := json.Unmarshal(env.Payload, &res); err != nil {
		return ScheduleResult{Error: "malformed schedule result"}
	}
	res.TimedOut, res.Unavailable = false, false
	return res
}

// PostNow asks the extension to publish one post immediately. The answer is
// matched by the echoed post id.
func (c *Client) PostNow(ctx context.Context, p PostNow) PostResult {
	payload, err := json.Marshal(p)
	if err != nil {
		return PostResult{PostID: p.ID, Error: err.Error()}
	}

	env, state := c.call(ctx, "post:"+p.ID, Envelope{
		Type:          TypePostNow,
		CorrelationID: p.ID,
		Payload:       payload,
	}, c.PostTimeout)
	c.observe(TypePostNow, state)

	switch state {
	case callTimedOut:
		return PostResult{PostID: p.ID, TimedOut: true, Error: "extension did not answer in time"}
	case callUnavailable:
		return PostResult{PostID: p.ID, Unavailable: true, Error: "extension unavailable"}
	case callBusy:
		return PostResult{PostID: p.ID, Error: "a publish for this post is already in progress"}
	}
	var res PostResult
	if err := json.Unmarshal(env.Payload, &res); err != nil {
		return PostResult{PostID: p.ID, Error: "malformed post result"}
	}
	res.PostID = p.ID
	res.TimedOut, res.Unavailable = false, false
	return res
}

type callState int

const (
	callAnswered callState = iota
	callTimedOut
	callUnavailable
	callBusy
)

func (c *Client) call(ctx context.Context, key string, env Envelope, timeout time.Duration) (Envelope, callState) {
	wait := make(chan Envelope, 1)

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return Envelope{}, callUnavailable
	default:
	}
	if _, busy := c.waiters[key]; busy {
		c.mu.Unlock()
		return Envelope{}, callBusy
	}
	c.waiters[key] = wait
	c.mu.Unlock()
	defer c.forget(key, wait)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	err := c.ch.Send(sendCtx, env)
	cancel()
	if err != nil {
		c.logger.Warn("⚠️ Could not reach extension", zap.String("type", string(env.Type)), zap.Error(err))
		if ctx.Err() == nil && sendCtx.Err() != nil {
			return Envelope{}, callTimedOut
		}
		return Envelope{}, callUnavailable
	}

	select {
	case resp := <-wait:
		return resp, callAnswered
	case <-timer.C:
		return Envelope{}, callTimedOut
	case <-ctx.Done():
		return Envelope{}, callTimedOut
	case <-c.done:
		return Envelope{}, callUnavailable
	}
}

func (c *Client) forget(key string, wait chan Envelope) {
	c.mu.Lock()
	if c.waiters[key] == wait {
		delete(c.waiters, key)
	}
	c.mu.Unlock()
}

func (c *Client) receiveLoop(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		close(c.done)
		c.waiters = make(map[string]chan Envelope)
		c.mu.Unlock()
	}()

	for {
		env, err := c.ch.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Info("🔌 Extension channel closed", zap.Error(err))
			}
			return
		}

		key, ok := correlationKey(env)
		if !ok {
			c.logger.Debug("Ignoring extension message", zap.String("type", string(env.Type)))
			continue
		}

		c.mu.Lock()
		wait, found := c.waiters[key]
		if found {
			delete(c.waiters, key)
		}
		c.mu.Unlock()

		if !found {
			c.logger.Debug("Dropping late or unmatched answer", zap.String("key", key))
			continue
		}
		wait <- env
	}
}

func correlationKey(env Envelope) (string, bool) {
	switch env.Type {
	case TypeScheduleResult:
		if env.CorrelationID == "" {
			return "", false
		}
		return "schedule:" + env.CorrelationID, true
	case TypePostResult:
		var res PostResult
		if err := json.Unmarshal(env.Payload, &res); err == nil && res.PostID != "" {
			return "post:" + res.PostID, true
		}
		if env.CorrelationID != "" {
			return "post:" + env.CorrelationID, true
		}
	}
	return "", false
}

func (c *Client) observe(t MessageType, state callState) {
	result := metrics.ResultOK
	switch state {
	case callTimedOut:
		result = metrics.ResultTimeout
	case callUnavailable:
		result = metrics.ResultUnavailable
	case callBusy:
		result = metrics.ResultRejected
	}
	metrics.BridgeResults.WithLabelValues(string(t), result).Inc()
}

package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// fakeExtension answers requests on its end of a channel with respond.
func fakeExtension(t *testing.T, ch Channel, respond func(Envelope) []Envelope) {
	t.Helper()
	go func() {
		for {
			env, err := ch.Receive(context.Background())
			if err != nil {
				return
			}
			for _, out := range respond(env) {
				if err := ch.Send(context.Background(), out); err != nil {
					return
				}
			}
		}
	}()
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	assert.NoError(t, err)
	return b
}

func TestSchedulePostsRoundTrip(t *testing.T) {
	server, ext := NewPipe()
	c := NewClient(server, zap.NewNop())
	defer c.Close()

	var got SchedulePosts
	fakeExtension(t, ext, func(env Envelope) []Envelope {
		assert.Equal(t, TypeSchedulePosts, env.Type)
		assert.NoError(t, json.Unmarshal(env.Payload, &got))
		queue := len(got.Posts)
		return []Envelope{{
			Type:          TypeScheduleResult,
			CorrelationID: env.CorrelationID,
			Payload:       mustJSON(t, ScheduleResult{Success: true, QueueLength: &queue}),
		}}
	})

	res := c.SchedulePosts(context.Background(), []ScheduledPost{
		{ID: "p1", Content: "first", ScheduleTime: time.Now()},
		{ID: "p2", Content: "second", ScheduleTime: time.Now()},
	})
	assert.True(t, res.Success)
	assert.False(t, res.TimedOut)
	require.NotNil(t, res.QueueLength)
	assert.Equal(t, 2, *res.QueueLength)
	assert.Len(t, got.Posts, 2)
}

func TestPostNowMatchesAnswersByPostID(t *testing.T) {
	server, ext := NewPipe()
	c := NewClient(server, zap.NewNop())
	defer c.Close()

	// hold both requests, then answer in reverse order
	var (
		mu      sync.Mutex
		pending []PostNow
	)
	fakeExtension(t, ext, func(env Envelope) []Envelope {
		var p PostNow
		assert.NoError(t, json.Unmarshal(env.Payload, &p))
		mu.Lock()
		defer mu.Unlock()
		pending = append(pending, p)
		if len(pending) < 2 {
			return nil
		}
		var out []Envelope
		for i := len(pending) - 1; i >= 0; i-- {
			url := "https://www.linkedin.com/feed/update/" + pending[i].ID
			out = append(out, Envelope{
				Type:    TypePostResult,
				Payload: mustJSON(t, PostResult{PostID: pending[i].ID, Success: true, LinkedinURL: &url}),
			})
		}
		return out
	})

	var wg sync.WaitGroup
	results := make(map[string]PostResult)
	var rmu sync.Mutex
	for _, id := range []string{"a", "b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res := c.PostNow(context.Background(), PostNow{ID: id, Content: "content " + id})
			rmu.Lock()
			results[id] = res
			rmu.Unlock()
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b"} {
		res := results[id]
		assert.True(t, res.Success, id)
		assert.Equal(t, id, res.PostID)
		require.NotNil(t, res.LinkedinURL)
		assert.True(t, strings.HasSuffix(*res.LinkedinURL, "/"+id))
	}
}

func TestCallTimesOutWhenExtensionIsSilent(t *testing.T) {
	server, ext := NewPipe()
	c := NewClient(server, zap.NewNop())
	c.ScheduleTimeout = 20 * time.Millisecond
	c.PostTimeout = 20 * time.Millisecond
	defer c.Close()
	fakeExtension(t, ext, func(Envelope) []Envelope { return nil })

	sched := c.SchedulePosts(context.Background(), []ScheduledPost{{ID: "p1"}})
	assert.False(t, sched.Success)
	assert.True(t, sched.TimedOut)

	post := c.PostNow(context.Background(), PostNow{ID: "p1"})
	assert.False(t, post.Success)
	assert.True(t, post.TimedOut)
	assert.Equal(t, "p1", post.PostID)
}

func TestLateAnswerIsDropped(t *testing.T) {
	server, ext := NewPipe()
	c := NewClient(server, zap.NewNop())
	c.PostTimeout = 20 * time.Millisecond
	defer c.Close()

	var calls int
	var mu sync.Mutex
	fakeExtension(t, ext, func(env Envelope) []Envelope {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			time.Sleep(50 * time.Millisecond)
		}
		return []Envelope{{
			Type:    TypePostResult,
			Payload: mustJSON(t, PostResult{PostID: "p1", Success: n > 1}),
		}}
	})

	first := c.PostNow(context.Background(), PostNow{ID: "p1"})
	assert.True(t, first.TimedOut)

	// let the late answer arrive with nobody waiting for it
	time.Sleep(60 * time.Millisecond)
	c.PostTimeout = time.Second
	second := c.PostNow(context.Background(), PostNow{ID: "p1"})
	assert.True(t, second.Success)
	assert.False(t, second.TimedOut)
}

func TestDuplicatePostNowIsRejectedWhileInFlight(t *testing.T) {
	server, ext := NewPipe()
	c := NewClient(server, zap.NewNop())
	defer c.Close()

	received := make(chan struct{})
	release := make(chan struct{})
	fakeExtension(t, ext, func(env Envelope) []Envelope {
		close(received)
		<-release
		return []Envelope{{Type: TypePostResult, Payload: mustJSON(t, PostResult{PostID: "dup", Success: true})}}
	})

	first := make(chan PostResult, 1)
	go func() { first <- c.PostNow(context.Background(), PostNow{ID: "dup"}) }()
	<-received

	second := c.PostNow(context.Background(), PostNow{ID: "dup"})
	assert.False(t, second.Success)
	assert.NotEmpty(t, second.Error)

	close(release)
	assert.True(t, (<-first).Success)
}

func TestClosedChannelIsUnavailable(t *testing.T) {
	server, ext := NewPipe()
	c := NewClient(server, zap.NewNop())
	require.NoError(t, ext.Close())

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("client did not notice the closed channel")
	}

	res := c.PostNow(context.Background(), PostNow{ID: "p1"})
	assert.True(t, res.Unavailable)
	assert.False(t, res.Success)

	sched := c.SchedulePosts(context.Background(), nil)
	assert.True(t, sched.Unavailable)
}

func TestCancelledContextEndsCall(t *testing.T) {
	server, ext := NewPipe()
	c := NewClient(server, zap.NewNop())
	defer c.Close()
	fakeExtension(t, ext, func(Envelope) []Envelope { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := c.PostNow(ctx, PostNow{ID: "p1"})
	assert.False(t, res.Success)
	assert.True(t, res.TimedOut)
}

func TestHubWithoutExtension(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	assert.False(t, h.Connected("owner"))
	assert.True(t, h.PostNow(context.Background(), "owner", PostNow{ID: "p1"}).Unavailable)
	assert.True(t, h.SchedulePosts(context.Background(), "owner", nil).Unavailable)
}

func TestHubRoutesToOwnerAndReplacesConnections(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	answer := func(ok bool) func(Envelope) []Envelope {
		return func(env Envelope) []Envelope {
			return []Envelope{{
				Type:          TypeScheduleResult,
				CorrelationID: env.CorrelationID,
				Payload:       mustJSON(t, ScheduleResult{Success: ok}),
			}}
		}
	}

	server1, ext1 := NewPipe()
	old := h.Attach("owner", server1)
	fakeExtension(t, ext1, answer(false))

	server2, ext2 := NewPipe()
	h.Attach("owner", server2)
	fakeExtension(t, ext2, answer(true))

	select {
	case <-old.Done():
	case <-time.After(time.Second):
		t.Fatal("replaced client was not closed")
	}

	assert.True(t, h.Connected("owner"))
	assert.True(t, h.SchedulePosts(context.Background(), "owner", nil).Success)
	assert.True(t, h.SchedulePosts(context.Background(), "someone-else", nil).Unavailable)

	require.NoError(t, ext2.Close())
	assert.Eventually(t, func() bool { return !h.Connected("owner") }, time.Second, 5*time.Millisecond)
}

func TestWebsocketChannel(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		c := h.Attach("owner", NewWSChannel(conn))
		<-c.Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	go func() {
		var env Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return
		}
		var p PostNow
		_ = json.Unmarshal(env.Payload, &p)
		payload, _ := json.Marshal(PostResult{PostID: p.ID, Success: true})
		_ = wsjson.Write(ctx, conn, Envelope{Type: TypePostResult, Payload: payload})
	}()

	require.Eventually(t, func() bool { return h.Connected("owner") }, time.Second, 5*time.Millisecond)
	res := h.PostNow(ctx, "owner", PostNow{ID: "ws-post", Content: "hello"})
	assert.True(t, res.Success)
	assert.Equal(t, "ws-post", res.PostID)
}

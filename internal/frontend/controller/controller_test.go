package controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zhouzirui/z-tavern/webchat/internal/dom/htmldom"
	"github.com/zhouzirui/z-tavern/webchat/internal/frontend/backend"
	"github.com/zhouzirui/z-tavern/webchat/internal/frontend/eventloop"
	"github.com/zhouzirui/z-tavern/webchat/internal/frontend/transcript"
)

const hostPage = `<!doctype html><html><body>
<div id="chat-history"></div>
<input id="user-input" type="text">
<button id="send-btn">Send</button>
<button id="clear-btn">Clear</button>
</body></html>`

type stubBackend struct {
	mu       sync.Mutex
	received []string
	reply    func(w http.ResponseWriter, input string)
}

func (s *stubBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input := r.PostForm.Get(backend.FieldUserInput)

	s.mu.Lock()
	s.received = append(s.received, input)
	reply := s.reply
	s.mu.Unlock()

	reply(w, input)
}

func (s *stubBackend) setReply(reply func(w http.ResponseWriter, input string)) {
	s.mu.Lock()
	s.reply = reply
	s.mu.Unlock()
}

func (s *stubBackend) requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

type harness struct {
	t       *testing.T
	doc     *htmldom.Document
	loop    *eventloop.Loop
	ctrl    *Controller
	stub    *stubBackend
	logs    *observer.ObservedLogs
	input   *htmldom.Element
	sendBtn *htmldom.Element
	clear   *htmldom.Element
	history *htmldom.Element
}

func newHarness(t *testing.T, reply func(w http.ResponseWriter, input string), opts ...Option) *harness {
	t.Helper()

	stub := &stubBackend{reply: reply}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client, err := backend.New(srv.URL)
	require.NoError(t, err)

	doc, err := htmldom.ParseString(hostPage)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	opts = append([]Option{WithLogger(zap.New(core))}, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	loop := eventloop.New(16)

	ctrl, release, err := Mount(ctx, doc, DefaultHostElements, client, loop, opts...)
	require.NoError(t, err)

	h := &harness{
		t:       t,
		doc:     doc,
		loop:    loop,
		ctrl:    ctrl,
		stub:    stub,
		logs:    logs,
		input:   doc.Element("user-input"),
		sendBtn: doc.Element("send-btn"),
		clear:   doc.Element("clear-btn"),
		history: doc.Element("chat-history"),
	}

	go loop.Run(ctx)
	t.Cleanup(func() {
		release()
		cancel()
	})
	return h
}

func replyWith(text string) func(http.ResponseWriter, string) {
	return func(w http.ResponseWriter, _ string) {
		_, _ = io.WriteString(w, text)
	}
}

// send fills the draft and clicks send, returning once OnSend has run.
func (h *harness) send(text string) {
	h.t.Helper()
	require.True(h.t, h.loop.Do(func() { h.input.SetValue(text) }))
	h.sendBtn.Click()
	require.True(h.t, h.loop.Do(func() {}))
}

func (h *harness) clearTranscript() {
	h.t.Helper()
	h.clear.Click()
	require.True(h.t, h.loop.Do(func() {}))
}

func (h *harness) entries() []string {
	h.t.Helper()
	var out []string
	require.True(h.t, h.loop.Do(func() { out = h.ctrl.View().Entries() }))
	return out
}

func (h *harness) draft() string {
	var out string
	require.True(h.t, h.loop.Do(func() { out = h.input.Value() }))
	return out
}

func (h *harness) scrolledToBottom() bool {
	var top, height int
	require.True(h.t, h.loop.Do(func() {
		top = h.history.ScrollTop()
		height = h.history.ScrollHeight()
	}))
	return top == height
}

func TestSendHelloReceivesReply(t *testing.T) {
	h := newHarness(t, replyWith("hi"))

	h.send("hello")
	h.ctrl.Wait()

	assert.Equal(t, []string{"You: hello", "Bot: hi"}, h.entries())
	assert.True(t, h.scrolledToBottom())
	assert.Equal(t, "", h.draft())
	assert.Equal(t, []string{"hello"}, h.stub.requests())
}

func TestWhitespaceInputIsIgnored(t *testing.T) {
	h := newHarness(t, replyWith("should not happen"))

	for _, in := range []string{"", "   ", "\t\n "} {
		h.send(in)
	}
	h.ctrl.Wait()

	assert.Empty(t, h.entries())
	assert.Empty(t, h.stub.requests())
	assert.Equal(t, "\t\n ", h.draft())
}

func TestServerErrorIsLoggedOnly(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ string) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "err")
	})

	h.send("a")
	h.ctrl.Wait()

	assert.Equal(t, []string{"You: a"}, h.entries())

	logged := h.logs.FilterMessage("chat request failed").All()
	require.Len(t, logged, 1)
	err, ok := logged[0].ContextMap()["error"].(string)
	require.True(t, ok)
	assert.Contains(t, err, "500")

	// Later sends still work.
	h.stub.setReply(replyWith("recovered"))
	h.send("b")
	h.ctrl.Wait()
	assert.Equal(t, []string{"You: a", "You: b", "Bot: recovered"}, h.entries())
}

func TestMarkupIsRenderedLiterally(t *testing.T) {
	h := newHarness(t, replyWith("<i>y</i>"))

	h.send("<b>x</b>")
	h.ctrl.Wait()

	assert.Equal(t, []string{"You: <b>x</b>", "Bot: <i>y</i>"}, h.entries())

	var markup string
	require.True(t, h.loop.Do(func() { markup = h.doc.String() }))
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)

	assert.Equal(t, 0, parsed.Find("#chat-history b, #chat-history i").Length())
	assert.Equal(t, 2, parsed.Find("#chat-history > div").Length())
	assert.Equal(t, "You: <b>x</b>", parsed.Find(".user-message").Text())
	assert.Equal(t, "Bot: <i>y</i>", parsed.Find(".bot-message").Text())
}

func TestOverlappingSendsAppendInCompletionOrder(t *testing.T) {
	releaseA := make(chan struct{})
	h := newHarness(t, func(w http.ResponseWriter, input string) {
		if input == "a" {
			<-releaseA
		}
		_, _ = io.WriteString(w, strings.ToUpper(input))
	})

	h.send("a")
	h.send("b")

	require.Eventually(t, func() bool { return len(h.entries()) == 3 }, 2*time.Second, 5*time.Millisecond)
	close(releaseA)
	h.ctrl.Wait()

	got := h.entries()
	require.Len(t, got, 4)
	assert.Equal(t, []string{"You: a", "You: b"}, got[:2])
	assert.Equal(t, []string{"Bot: B", "Bot: A"}, got[2:])
}

func TestSerialRepliesKeepSubmissionOrder(t *testing.T) {
	releaseA := make(chan struct{})
	h := newHarness(t, func(w http.ResponseWriter, input string) {
		if input == "a" {
			<-releaseA
		}
		_, _ = io.WriteString(w, strings.ToUpper(input))
	}, WithSerialReplies())

	h.send("a")
	h.send("b")
	time.AfterFunc(50*time.Millisecond, func() { close(releaseA) })
	h.ctrl.Wait()

	assert.Equal(t, []string{"You: a", "You: b", "Bot: A", "Bot: B"}, h.entries())
	assert.Equal(t, []string{"a", "b"}, h.stub.requests())
}

func TestClearThenSendAgain(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, input string) {
		if input == "again" {
			_, _ = io.WriteString(w, "ok")
			return
		}
		_, _ = io.WriteString(w, "hi")
	})

	h.send("hello")
	h.ctrl.Wait()
	require.Equal(t, []string{"You: hello", "Bot: hi"}, h.entries())

	h.clearTranscript()
	assert.Empty(t, h.entries())
	h.clearTranscript()
	assert.Empty(t, h.entries())

	h.send("again")
	h.ctrl.Wait()
	assert.Equal(t, []string{"You: again", "Bot: ok"}, h.entries())
}

func TestClearDoesNotAbortPendingReply(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(w http.ResponseWriter, _ string) {
		<-release
		_, _ = io.WriteString(w, "late")
	})

	h.send("slow")
	h.clearTranscript()
	assert.Empty(t, h.entries())

	close(release)
	h.ctrl.Wait()
	assert.Equal(t, []string{"Bot: late"}, h.entries())
}

func TestMountMissingElement(t *testing.T) {
	doc, err := htmldom.ParseString(`<html><body><input id="user-input"></body></html>`)
	require.NoError(t, err)

	_, _, err = Mount(context.Background(), doc, DefaultHostElements, nil, eventloop.New(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrElementMissing))
	assert.Contains(t, err.Error(), "#send-btn")
}

type gatedSender struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedSender() *gatedSender {
	return &gatedSender{started: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedSender) Send(ctx context.Context, text string) (string, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return "re: " + text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newSerialController(t *testing.T, ctx context.Context, sender Sender, opts ...Option) (*Controller, *eventloop.Loop, *htmldom.Element) {
	t.Helper()
	doc, err := htmldom.ParseString(hostPage)
	require.NoError(t, err)

	loopCtx, stop := context.WithCancel(context.Background())
	t.Cleanup(stop)
	loop := eventloop.New(16)
	go loop.Run(loopCtx)

	input := doc.Element("user-input")
	view := transcript.New(doc, doc.Element("chat-history"))
	opts = append(opts, WithSerialReplies())
	return New(ctx, input, view, sender, loop, opts...), loop, input
}

func waitWithin(t *testing.T, c *Controller, d time.Duration) bool {
	t.Helper()
	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func TestSerialSendAfterCancelStillFinishes(t *testing.T) {
	for i := 0; i < 40; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		ctrl, loop, input := newSerialController(t, ctx, newGatedSender())

		cancel()
		time.Sleep(2 * time.Millisecond)
		require.True(t, loop.Do(func() {
			input.SetValue("late")
			ctrl.OnSend()
		}))

		require.True(t, waitWithin(t, ctrl, time.Second), "Wait blocked on trial %d", i)
	}
}

func TestSerialQueueFullKeepsDraft(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, logs := observer.New(zapcore.WarnLevel)
	sender := newGatedSender()
	ctrl, loop, input := newSerialController(t, ctx, sender, WithLogger(zap.New(core)))

	send := func(text string) {
		require.True(t, loop.Do(func() {
			input.SetValue(text)
			ctrl.OnSend()
		}))
	}

	send("first")
	<-sender.started
	for i := 0; i < serialQueueSize; i++ {
		send("queued")
	}
	send("overflow")

	var draft string
	var entries int
	require.True(t, loop.Do(func() {
		draft = input.Value()
		entries = ctrl.View().Len()
	}))
	assert.Equal(t, "overflow", draft)
	assert.Equal(t, serialQueueSize+1, entries)
	assert.Equal(t, 1, logs.FilterMessage("send queue full, keeping draft").Len())

	close(sender.release)
	require.True(t, waitWithin(t, ctrl, 5*time.Second))
	require.True(t, loop.Do(func() { entries = ctrl.View().Len() }))
	assert.Equal(t, 2*(serialQueueSize+1), entries)
}

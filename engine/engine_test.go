package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fableloom/fableloom/events"
	"github.com/fableloom/fableloom/store"
)

type fakeCompleter struct {
	deltas   []string
	err      error
	requests []*CompletionRequest
	// When set, StreamCompletion signals entry and blocks until the
	// channel is closed.
	entered chan struct{}
	block   chan struct{}
}

func (f *fakeCompleter) StreamCompletion(ctx context.Context, provider *store.Provider, request *CompletionRequest, onDelta func(delta string)) (string, error) {
	f.requests = append(f.requests, request)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return "", f.err
	}
	var text string
	for _, delta := range f.deltas {
		onDelta(delta)
		text += delta
	}
	return text, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "fableloom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func localSnapshot() *Snapshot {
	return &Snapshot{
		Provider: &store.Provider{
			ID:      "local",
			Name:    "local",
			BaseURL: "http://localhost:11434/v1",
			APIKey:  "sk-test",
		},
		Model: "test-model",
	}
}

func TestSendPersistsTurn(t *testing.T) {
	s := newTestStore(t)
	chat, branch, err := s.CreateChat("test")
	require.NoError(t, err)

	collector := &events.Collector{}
	completer := &fakeCompleter{deltas: []string{"Hello ", "there"}}
	e := New(s, WithSink(collector), WithCompleter(completer))

	timeline, err := e.Send(context.Background(), localSnapshot(), &SendRequest{
		ChatID:  chat.ID,
		Content: "Hi",
	})
	require.NoError(t, err)
	require.Len(t, timeline, 2)

	user, assistant := timeline[0], timeline[1]
	require.Equal(t, store.UserRole, user.Role)
	require.Equal(t, "Hi", user.Content)
	require.Equal(t, branch.ID, user.BranchID)
	require.Empty(t, user.ParentID)

	require.Equal(t, store.AssistantRole, assistant.Role)
	require.Equal(t, "Hello there", assistant.Content)
	require.Equal(t, user.ID, assistant.ParentID)
	require.Greater(t, assistant.CreationTimestamp, user.CreationTimestamp)

	published := collector.Events()
	require.Len(t, published, 3)
	require.Equal(t, events.KindDelta, published[0].Kind)
	require.Equal(t, "Hello ", published[0].Delta)
	require.Equal(t, events.KindDelta, published[1].Kind)
	require.Equal(t, "there", published[1].Delta)
	require.Equal(t, events.KindStreamDone, published[2].Kind)
	require.Equal(t, assistant.ID, published[2].MessageID)
}

func TestSendBuildsFullContextInOrder(t *testing.T) {
	s := newTestStore(t)
	chat, _, err := s.CreateChat("test")
	require.NoError(t, err)

	completer := &fakeCompleter{deltas: []string{"one"}}
	e := New(s, WithCompleter(completer))

	_, err = e.Send(context.Background(), localSnapshot(), &SendRequest{ChatID: chat.ID, Content: "first"})
	require.NoError(t, err)
	_, err = e.Send(context.Background(), localSnapshot(), &SendRequest{ChatID: chat.ID, Content: "second"})
	require.NoError(t, err)

	require.Len(t, completer.requests, 2)
	request := completer.requests[1]
	require.Equal(t, "test-model", request.Model)
	require.True(t, request.Stream)
	require.InDelta(t, 0.9, request.Temperature, 1e-9)

	roles := make([]string, len(request.Messages))
	for i, message := range request.Messages {
		roles[i] = message.Role
	}
	require.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	require.Equal(t, "first", request.Messages[1].Content)
	require.Equal(t, "one", request.Messages[2].Content)
	require.Equal(t, "second", request.Messages[3].Content)
}

func TestSendInsertsSystemExtrasAfterBasePrompt(t *testing.T) {
	s := newTestStore(t)
	chat, _, err := s.CreateChat("test")
	require.NoError(t, err)

	completer := &fakeCompleter{deltas: []string{"one"}}
	e := New(s, WithCompleter(completer))

	_, err = e.Send(context.Background(), localSnapshot(), &SendRequest{
		ChatID:       chat.ID,
		Content:      "hello",
		SystemExtras: []string{"persona block", "worldbook block"},
	})
	require.NoError(t, err)

	require.Len(t, completer.requests, 1)
	messages := completer.requests[0].Messages
	require.Len(t, messages, 4)
	require.Equal(t, "system", messages[0].Role)
	require.Equal(t, "system", messages[1].Role)
	require.Equal(t, "persona block", messages[1].Content)
	require.Equal(t, "system", messages[2].Role)
	require.Equal(t, "worldbook block", messages[2].Content)
	require.Equal(t, "user", messages[3].Role)
	require.Equal(t, "hello", messages[3].Content)
}

func TestSendEmptyResponseLeavesNoAssistantMessage(t *testing.T) {
	s := newTestStore(t)
	chat, branch, err := s.CreateChat("test")
	require.NoError(t, err)

	e := New(s, WithCompleter(&fakeCompleter{deltas: []string{"  ", "\n"}}))
	_, err = e.Send(context.Background(), localSnapshot(), &SendRequest{ChatID: chat.ID, Content: "Hi"})
	require.ErrorIs(t, err, ErrEmptyResponse)

	timeline, err := s.Timeline(chat.ID, branch.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	require.Equal(t, store.UserRole, timeline[0].Role)
}

func TestSendPolicyGateBlocksBeforeNetwork(t *testing.T) {
	s := newTestStore(t)
	chat, _, err := s.CreateChat("test")
	require.NoError(t, err)

	completer := &fakeCompleter{deltas: []string{"never"}}
	e := New(s, WithCompleter(completer))

	snapshot := &Snapshot{
		Provider: &store.Provider{
			ID:            "remote",
			BaseURL:       "https://api.example.com",
			FullLocalOnly: true,
		},
		Model: "test-model",
	}
	_, err = e.Send(context.Background(), snapshot, &SendRequest{ChatID: chat.ID, Content: "Hi"})
	require.ErrorIs(t, err, ErrPolicyViolation)
	require.Empty(t, completer.requests)

	// Global full-local mode gates the same way.
	snapshot = localSnapshot()
	snapshot.Provider.BaseURL = "https://api.example.com"
	snapshot.FullLocalMode = true
	_, err = e.Send(context.Background(), snapshot, &SendRequest{ChatID: chat.ID, Content: "Hi"})
	require.ErrorIs(t, err, ErrPolicyViolation)
	require.Empty(t, completer.requests)
}

func TestSendMissingConfiguration(t *testing.T) {
	s := newTestStore(t)
	chat, _, err := s.CreateChat("test")
	require.NoError(t, err)

	e := New(s, WithCompleter(&fakeCompleter{}))
	_, err = e.Send(context.Background(), &Snapshot{}, &SendRequest{ChatID: chat.ID, Content: "Hi"})
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestSendRejectsConcurrentTurnOnBranch(t *testing.T) {
	s := newTestStore(t)
	chat, _, err := s.CreateChat("test")
	require.NoError(t, err)

	completer := &fakeCompleter{
		deltas:  []string{"slow"},
		entered: make(chan struct{}),
		block:   make(chan struct{}),
	}
	e := New(s, WithCompleter(completer))

	done := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), localSnapshot(), &SendRequest{ChatID: chat.ID, Content: "first"})
		done <- err
	}()
	// Wait for the first turn to hold the in-flight marker.
	<-completer.entered

	_, err = e.Send(context.Background(), localSnapshot(), &SendRequest{ChatID: chat.ID, Content: "second"})
	require.ErrorIs(t, err, ErrTurnInFlight)

	close(completer.block)
	require.NoError(t, <-done)
}

func TestRegenerateReplaysPipeline(t *testing.T) {
	s := newTestStore(t)
	chat, branch, err := s.CreateChat("test")
	require.NoError(t, err)

	completer := &fakeCompleter{deltas: []string{"first reply"}}
	e := New(s, WithCompleter(completer))

	_, err = e.Send(context.Background(), localSnapshot(), &SendRequest{ChatID: chat.ID, Content: "Hi"})
	require.NoError(t, err)

	completer.deltas = []string{"second reply"}
	timeline, err := e.Regenerate(context.Background(), localSnapshot(), chat.ID, "")
	require.NoError(t, err)
	require.Len(t, timeline, 3)

	regenerated := timeline[2]
	require.Equal(t, store.AssistantRole, regenerated.Role)
	require.Equal(t, "second reply", regenerated.Content)
	require.Equal(t, timeline[0].ID, regenerated.ParentID)
	require.Equal(t, branch.ID, regenerated.BranchID)
	// Regeneration went through the full provider pipeline.
	require.Len(t, completer.requests, 2)
}

func TestRegenerateWithoutUserMessage(t *testing.T) {
	s := newTestStore(t)
	chat, _, err := s.CreateChat("test")
	require.NoError(t, err)

	e := New(s, WithCompleter(&fakeCompleter{}))
	_, err = e.Regenerate(context.Background(), localSnapshot(), chat.ID, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestForkedBranchTimelinesStayIsolated(t *testing.T) {
	s := newTestStore(t)
	chat, rootBranch, err := s.CreateChat("test")
	require.NoError(t, err)

	completer := &fakeCompleter{deltas: []string{"root reply"}}
	e := New(s, WithCompleter(completer))

	rootTimeline, err := e.Send(context.Background(), localSnapshot(), &SendRequest{ChatID: chat.ID, Content: "root question"})
	require.NoError(t, err)
	forkPoint := rootTimeline[1]

	fork, err := s.CreateBranch(chat.ID, forkPoint.ID, "what-if")
	require.NoError(t, err)

	completer.deltas = []string{"fork reply"}
	forkTimeline, err := e.Send(context.Background(), localSnapshot(), &SendRequest{
		ChatID:   chat.ID,
		Content:  "fork question",
		BranchID: fork.ID,
	})
	require.NoError(t, err)

	// The fork never sees sibling-branch messages, and vice versa.
	require.Len(t, forkTimeline, 2)
	for _, message := range forkTimeline {
		require.Equal(t, fork.ID, message.BranchID)
	}
	rootTimeline, err = s.Timeline(chat.ID, rootBranch.ID)
	require.NoError(t, err)
	require.Len(t, rootTimeline, 2)
	for _, message := range rootTimeline {
		require.Equal(t, rootBranch.ID, message.BranchID)
	}
}

func TestSendDefaultsToEarliestBranch(t *testing.T) {
	s := newTestStore(t)
	chat, rootBranch, err := s.CreateChat("test")
	require.NoError(t, err)
	_, err = s.CreateBranch(chat.ID, "", "later")
	require.NoError(t, err)

	e := New(s, WithCompleter(&fakeCompleter{deltas: []string{"reply"}}))
	timeline, err := e.Send(context.Background(), localSnapshot(), &SendRequest{ChatID: chat.ID, Content: "Hi"})
	require.NoError(t, err)
	require.Equal(t, rootBranch.ID, timeline[0].BranchID)
}

func TestLoadSnapshotRequiresActiveSelection(t *testing.T) {
	s := newTestStore(t)
	_, err := LoadSnapshot(s)
	require.ErrorIs(t, err, ErrConfiguration)

	require.NoError(t, s.UpsertProvider(&store.Provider{
		ID:      "p1",
		Name:    "local",
		BaseURL: "http://127.0.0.1:1234",
		APIKey:  "sk-test",
	}))
	_, err = s.SetActiveSelection("p1", "test-model")
	require.NoError(t, err)

	snapshot, err := LoadSnapshot(s)
	require.NoError(t, err)
	require.Equal(t, "p1", snapshot.Provider.ID)
	require.Equal(t, "test-model", snapshot.Model)
}

func TestHTTPCompleterStreamsAgainstMockProvider(t *testing.T) {
	var authorization string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hello \"}}]}\n"))
		flusher.Flush()
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"there\"}}]}\n"))
		flusher.Flush()
		_, _ = w.Write([]byte("data: [DONE]\n"))
	}))
	defer server.Close()

	s := newTestStore(t)
	chat, _, err := s.CreateChat("test")
	require.NoError(t, err)

	collector := &events.Collector{}
	e := New(s, WithSink(collector))

	snapshot := &Snapshot{
		Provider: &store.Provider{ID: "mock", BaseURL: server.URL, APIKey: "sk-mock"},
		Model:    "test-model",
	}
	timeline, err := e.Send(context.Background(), snapshot, &SendRequest{ChatID: chat.ID, Content: "Hi"})
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	require.Equal(t, "Hello there", timeline[1].Content)
	require.Equal(t, "Bearer sk-mock", authorization)

	published := collector.Events()
	require.Len(t, published, 3)
	require.Equal(t, "Hello ", published[0].Delta)
	require.Equal(t, "there", published[1].Delta)
}

func TestHTTPCompleterUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := newTestStore(t)
	chat, branch, err := s.CreateChat("test")
	require.NoError(t, err)

	e := New(s)
	snapshot := &Snapshot{
		Provider: &store.Provider{ID: "mock", BaseURL: server.URL, APIKey: "sk-mock"},
		Model:    "test-model",
	}
	_, err = e.Send(context.Background(), snapshot, &SendRequest{ChatID: chat.ID, Content: "Hi"})
	require.ErrorIs(t, err, ErrUpstream)

	// The user message is never rolled back.
	timeline, err := s.Timeline(chat.ID, branch.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
}

func TestIsLoopbackURL(t *testing.T) {
	require.True(t, IsLoopbackURL("http://localhost:11434/v1"))
	require.True(t, IsLoopbackURL("http://127.0.0.1:1234"))
	require.True(t, IsLoopbackURL("http://[::1]:8080"))
	require.False(t, IsLoopbackURL("https://api.example.com/v1"))
	require.False(t, IsLoopbackURL("not a url"))
}

func TestCompressContextDigestsRecentMessages(t *testing.T) {
	s := newTestStore(t)
	chat, _, err := s.CreateChat("test")
	require.NoError(t, err)

	e := New(s, WithCompleter(&fakeCompleter{deltas: []string{"line one\nline two"}}))
	_, err = e.Send(context.Background(), localSnapshot(), &SendRequest{ChatID: chat.ID, Content: "question"})
	require.NoError(t, err)

	digest, err := e.CompressContext(chat.ID, "")
	require.NoError(t, err)
	require.Equal(t, "assistant: line one\nuser: question", digest)
}

package service

import (
	"context"
	"testing"
	"time"

	"topicrelay/internal/domain"
	"topicrelay/internal/metrics"
	"topicrelay/internal/platform"
	"topicrelay/internal/repository"
	"topicrelay/internal/repository/memory"
	"topicrelay/internal/testutil"
	"topicrelay/internal/worker"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testGroupID int64 = -1001234567890

// fixture wires every service against a mocked Bot API and an in-memory store
type fixture struct {
	api       *testutil.MockAPI
	verifier  *testutil.MockVerifier
	store     *memory.KVStore
	scheduler *worker.Scheduler
	metrics   *metrics.Metrics

	users      *repository.UserRepo
	bindings   *repository.BindingRepo
	ticketRepo *repository.TicketRepo
	batches    *repository.BatchRepo
	settings   *repository.SettingsRepo

	directory  *Directory
	acks       *Acknowledger
	aggregator *Aggregator
	tickets    *Tickets
	relay      *Relay
	admin      *Admin
}

func newFixture(t *testing.T, withVerification bool) *fixture {
	t.Helper()

	f := &fixture{
		api:      new(testutil.MockAPI),
		verifier: new(testutil.MockVerifier),
		store:    testutil.NewTestStore(t),
		metrics:  testutil.NewTestMetrics(),
	}
	logger := testutil.NewTestLogger()
	client := testutil.NewTestClient(f.api)
	f.scheduler = worker.NewScheduler(f.metrics, logger)

	f.users = repository.NewUserRepo(f.store)
	f.bindings = repository.NewBindingRepo(f.store)
	f.ticketRepo = repository.NewTicketRepo(f.store)
	f.batches = repository.NewBatchRepo(f.store)
	f.settings = repository.NewSettingsRepo(f.store)

	var verifier ChallengeVerifier
	if withVerification {
		verifier = f.verifier
	}

	f.directory = NewDirectory(f.bindings, client, testGroupID, f.metrics, logger)
	f.acks = NewAcknowledger(client, f.scheduler, f.metrics, logger,
		WithSettleDelay(20*time.Millisecond),
		WithRetryBackoff(time.Millisecond),
	)
	f.aggregator = NewAggregator(f.batches, client, f.scheduler, f.metrics, logger)
	f.aggregator.SetFlushDelay(20 * time.Millisecond)
	f.tickets = NewTickets(f.ticketRepo, f.users, f.settings, verifier, TicketsConfig{
		PublicURL: "https://relay.example.com/",
		VerifyTTL: DefaultVerifyTTL,
	}, f.metrics, logger)
	f.relay = NewRelay(f.users, f.directory, f.acks, f.aggregator, f.tickets, client, testGroupID, f.metrics, logger)
	f.admin = NewAdmin(f.users, f.settings, f.directory, f.tickets, logger)

	return f
}

// on stubs one Bot API method for any payload
func (f *fixture) on(method string, body []byte, err error) *mock.Call {
	return f.api.On("Raw", method, mock.Anything).Return(body, err)
}

// onOK stubs one Bot API method with a successful result
func (f *fixture) onOK(method string, result any) *mock.Call {
	return f.on(method, testutil.OK(result), nil)
}

// wait blocks until all deferred work has run
func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.scheduler.Wait(ctx))
}

// bind stores a binding directly
func (f *fixture) bind(t *testing.T, userID int64, threadID int) {
	t.Helper()
	require.NoError(t, f.bindings.Bind(context.Background(), userID, threadID))
}

// reactions returns the emoji applied to chatID/messageID, in call order; "" is a clear
func (f *fixture) reactions(chatID int64, messageID int) []string {
	var out []string
	for _, p := range f.api.CallsFor("setMessageReaction") {
		if p["chat_id"] != chatID || p["message_id"] != messageID {
			continue
		}
		list := p["reaction"].([]platform.Reaction)
		if len(list) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, list[0].Emoji)
	}
	return out
}

// sentTexts returns the texts sent to chatID
func (f *fixture) sentTexts(chatID int64) []string {
	var out []string
	for _, p := range f.api.CallsFor("sendMessage") {
		if p["chat_id"] == chatID {
			out = append(out, p["text"].(string))
		}
	}
	return out
}

func testProfile(userID int64) domain.Profile {
	return domain.NewProfile(userID, "Ada", "Lovelace", "ada")
}

func topic(threadID int) map[string]any {
	return map[string]any{"message_thread_id": threadID, "name": "topic", "icon_color": domain.ThreadIconColor}
}

// onFailure stubs one Bot API method with a rejection
func (f *fixture) onFailure(method string, code int, description string) *mock.Call {
	body, err := testutil.Failure(code, description)
	return f.on(method, body, err)
}

// onThreadMissing stubs one Bot API method with the deleted-thread rejection
func (f *fixture) onThreadMissing(method string) *mock.Call {
	body, err := testutil.ThreadNotFound()
	return f.on(method, body, err)
}

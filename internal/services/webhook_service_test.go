package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/fbos/fieldservice/internal/auth"
	"github.com/fbos/fieldservice/internal/billing"
	"github.com/fbos/fieldservice/internal/domain/subscription"
	"github.com/fbos/fieldservice/internal/pkg/cache"
	apperrors "github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookFixture struct {
	provider *testutil.MockBillingProvider
	profiles *testutil.MockProfileRepository
	subs     *testutil.MockSubscriptionRepository
	events   *testutil.MockEventRepository
	service  *WebhookService
}

func newWebhookFixture(t *testing.T, c cache.Cache) *webhookFixture {
	t.Helper()
	f := &webhookFixture{
		provider: testutil.NewMockBillingProvider(),
		profiles: testutil.NewMockProfileRepository(),
		subs:     testutil.NewMockSubscriptionRepository(),
		events:   testutil.NewMockEventRepository(),
	}
	f.service = NewWebhookService(f.provider, f.profiles, f.subs, f.events, c, testutil.NewTestLogger())
	return f
}

func (f *webhookFixture) deliver(t *testing.T, eventID, eventType string, created time.Time, sub *billing.Subscription) subscription.WebhookOutcome {
	t.Helper()
	outcome, err := f.service.Handle(context.Background(), testutil.SubscriptionEvent(eventID, eventType, created, sub), "valid-signature")
	require.NoError(t, err)
	return outcome
}

func TestWebhookService_InvalidSignature(t *testing.T) {
	f := newWebhookFixture(t, nil)
	payload := testutil.SubscriptionEvent("evt_1", billing.EventSubscriptionCreated, time.Now(), activeSub("sub_1", "cus_1", "u1"))

	for _, sig := range []string{"", "t=1,v1=deadbeef"} {
		_, err := f.service.Handle(context.Background(), payload, sig)
		require.Error(t, err)
		appErr := apperrors.From(err)
		assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
		assert.Contains(t, appErr.Message, "Webhook Error")
	}

	assert.Zero(t, f.subs.UpsertCalls, "rejected deliveries never touch the store")
	assert.Empty(t, f.events.Events)
}

func TestWebhookService_Lifecycle(t *testing.T) {
	f := newWebhookFixture(t, nil)
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	sub := activeSub("sub_1", "cus_1", "u1")
	assert.Equal(t, subscription.OutcomeApplied, f.deliver(t, "evt_1", billing.EventSubscriptionCreated, t0, sub))

	rec := f.subs.Records["sub_1"]
	require.NotNil(t, rec)
	assert.Equal(t, billing.StatusActive, rec.Status)
	assert.Equal(t, "u1", rec.UserID)
	require.NotNil(t, rec.CurrentPeriodEnd)
	assert.Equal(t, sub.CurrentPeriodEnd, *rec.CurrentPeriodEnd)

	updated := activeSub("sub_1", "cus_1", "u1")
	updated.CancelAtPeriodEnd = true
	assert.Equal(t, subscription.OutcomeApplied, f.deliver(t, "evt_2", billing.EventSubscriptionUpdated, t0.Add(time.Minute), updated))
	assert.True(t, f.subs.Records["sub_1"].CancelAtPeriodEnd)

	deleted := activeSub("sub_1", "cus_1", "u1")
	deleted.Status = billing.StatusCanceled
	assert.Equal(t, subscription.OutcomeApplied, f.deliver(t, "evt_3", billing.EventSubscriptionDeleted, t0.Add(2*time.Minute), deleted))
	assert.Equal(t, billing.StatusCanceled, f.subs.Records["sub_1"].Status)
	assert.Len(t, f.subs.Records, 1, "records are keyed by subscription id")
}

func TestWebhookService_Replay(t *testing.T) {
	f := newWebhookFixture(t, nil)
	t0 := time.Now().UTC().Truncate(time.Second)

	sub := activeSub("sub_1", "cus_1", "u1")
	assert.Equal(t, subscription.OutcomeApplied, f.deliver(t, "evt_1", billing.EventSubscriptionCreated, t0, sub))
	assert.Equal(t, subscription.OutcomeDuplicate, f.deliver(t, "evt_1", billing.EventSubscriptionCreated, t0, sub))
	assert.Equal(t, 1, f.subs.UpsertCalls)
}

func TestWebhookService_OutOfOrder(t *testing.T) {
	f := newWebhookFixture(t, nil)
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	deleted := activeSub("sub_1", "cus_1", "u1")
	deleted.Status = billing.StatusCanceled
	assert.Equal(t, subscription.OutcomeApplied, f.deliver(t, "evt_2", billing.EventSubscriptionDeleted, t0.Add(time.Minute), deleted))

	// The older "updated" event arrives late and must not resurrect the subscription
	assert.Equal(t, subscription.OutcomeStale, f.deliver(t, "evt_1", billing.EventSubscriptionUpdated, t0, activeSub("sub_1", "cus_1", "u1")))
	assert.Equal(t, billing.StatusCanceled, f.subs.Records["sub_1"].Status)

	// A stale event is still recorded so its replay is a duplicate
	assert.Equal(t, subscription.OutcomeDuplicate, f.deliver(t, "evt_1", billing.EventSubscriptionUpdated, t0, activeSub("sub_1", "cus_1", "u1")))
}

func TestWebhookService_IgnoredEvents(t *testing.T) {
	f := newWebhookFixture(t, nil)

	outcome := f.deliver(t, "evt_9", "invoice.paid", time.Now(), nil)
	assert.Equal(t, subscription.OutcomeIgnored, outcome)
	assert.Zero(t, f.subs.UpsertCalls)
}

func TestWebhookService_MissingSubscriptionObject(t *testing.T) {
	f := newWebhookFixture(t, nil)

	_, err := f.service.Handle(context.Background(),
		testutil.SubscriptionEvent("evt_1", billing.EventSubscriptionUpdated, time.Now(), nil), "valid-signature")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.From(err).StatusCode)
}

func TestWebhookService_UserFromLinkedCustomer(t *testing.T) {
	f := newWebhookFixture(t, nil)
	f.profiles.Customers["u7"] = "cus_7"

	sub := activeSub("sub_7", "cus_7", "")
	f.deliver(t, "evt_1", billing.EventSubscriptionCreated, time.Now(), sub)

	assert.Equal(t, "u7", f.subs.Records["sub_7"].UserID)
}

func TestWebhookService_StorageFailure(t *testing.T) {
	f := newWebhookFixture(t, nil)
	f.subs.UpsertError = apperrors.DatabaseError("Failed to upsert subscription", errors.New("disk full"))

	payload := testutil.SubscriptionEvent("evt_1", billing.EventSubscriptionCreated, time.Now(), activeSub("sub_1", "cus_1", "u1"))
	_, err := f.service.Handle(context.Background(), payload, "valid-signature")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.From(err).StatusCode)

	processed, _ := f.events.IsProcessed(context.Background(), "evt_1")
	assert.False(t, processed, "failed deliveries stay eligible for redelivery")
}

func TestWebhookService_InvalidatesCachedStatus(t *testing.T) {
	mem, err := cache.NewMemoryCache(16)
	require.NoError(t, err)
	ctx := context.Background()

	wf := newWebhookFixture(t, mem)
	wf.profiles.Customers["u1"] = "cus_1"

	billingSvc := NewBillingService(wf.provider, wf.profiles, wf.subs, BillingOptions{
		PriceID:      "price_pro",
		StatusSource: subscription.SourceLocal,
		Cache:        mem,
		CacheTTL:     time.Hour,
	}, testutil.NewTestLogger())
	user := &auth.User{ID: "u1"}

	t0 := time.Now().UTC().Truncate(time.Second)
	wf.deliver(t, "evt_1", billing.EventSubscriptionCreated, t0, activeSub("sub_1", "cus_1", "u1"))

	got, err := billingSvc.Status(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, got.Status)

	deleted := activeSub("sub_1", "cus_1", "u1")
	deleted.Status = billing.StatusCanceled
	wf.deliver(t, "evt_2", billing.EventSubscriptionDeleted, t0.Add(time.Second), deleted)

	got, err = billingSvc.Status(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusInactive, got.Status)
	assert.Nil(t, got.Subscription)
}

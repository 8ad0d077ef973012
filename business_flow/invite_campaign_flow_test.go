package businessflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glowdesk/invite-engine/app/dto"
	"github.com/glowdesk/invite-engine/app/services"
	"github.com/glowdesk/invite-engine/config"
	"github.com/glowdesk/invite-engine/models"
	"github.com/glowdesk/invite-engine/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type campaignFlowFixture struct {
	flow      InviteCampaignFlow
	campaigns *fakeCampaignRepo
	customers *fakeCustomerRepo
	messages  *fakeMessageRepo
	offers    *fakeOfferRepo
	salons    *fakeSalonRepo
	audits    *fakeAuditRepo
	gateway   *services.MockMessageGateway

	salon    *models.Salon
	operator *models.Operator
}

func newCampaignFlowFixture(t *testing.T) *campaignFlowFixture {
	t.Helper()

	fx := &campaignFlowFixture{
		campaigns: newFakeCampaignRepo(),
		customers: newFakeCustomerRepo(),
		messages:  newFakeMessageRepo(),
		offers:    newFakeOfferRepo(),
		salons:    newFakeSalonRepo(),
		audits:    newFakeAuditRepo(),
		gateway:   services.NewMockMessageGateway(),
	}

	fx.salon = &models.Salon{
		ID:           1,
		UUID:         uuid.New(),
		Name:         "Glow",
		DownloadLink: utils.ToPtr("https://glow.example/app"),
		IsActive:     utils.ToPtr(true),
	}
	fx.salons.add(fx.salon)

	fx.operator = &models.Operator{
		ID:      1,
		UUID:    uuid.New(),
		SalonID: fx.salon.ID,
		Email:   "ana@glow.example",
		Status:  "active",
	}

	fx.flow = NewInviteCampaignFlow(
		fx.campaigns, fx.customers, fx.messages, fx.offers, fx.salons, fx.audits,
		fx.gateway, services.NewRedisStatsCache(nil, "test"), nil,
		config.DispatchConfig{SendDelay: 0, SendTimeout: time.Second},
		30*time.Second,
	)
	return fx
}

func (fx *campaignFlowFixture) addCustomer(name, phone string, chatID *string) *models.ImportedCustomer {
	return fx.customers.add(&models.ImportedCustomer{
		UUID:     uuid.New(),
		SalonID:  fx.salon.ID,
		FullName: name,
		Phone:    phone,
		ChatID:   chatID,
		Status:   models.CustomerStatusPending,
	})
}

func (fx *campaignFlowFixture) addCampaign(channel string, status models.CampaignStatus) *models.InviteCampaign {
	return fx.campaigns.add(&models.InviteCampaign{
		UUID:         uuid.New(),
		SalonID:      fx.salon.ID,
		Title:        "Grand opening",
		Status:       status,
		Channel:      channel,
		TemplateText: "Hi {{customer_name}}, {{offer_amount}} off at {{salon_name}}! {{download_link}}",
	})
}

func TestLaunchCampaign_DispatchesAllChannels(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	offer := &models.WelcomeOffer{
		UUID:         uuid.New(),
		SalonID:      fx.salon.ID,
		Title:        "Welcome",
		DiscountText: "20%",
		IsActive:     utils.ToPtr(true),
	}
	require.NoError(t, fx.offers.Save(ctx, offer))

	ana := fx.addCustomer("Ana", "+15550000001", utils.ToPtr("chat-ana"))
	bea := fx.addCustomer("Bea", "+15550000002", utils.ToPtr("chat-bea"))
	cruz := fx.addCustomer("Cruz", "+15550000003", utils.ToPtr("chat-cruz"))
	fx.gateway.FailDestinations[cruz.Phone] = "destination blocked"

	campaign := fx.addCampaign(models.ChannelBoth, models.CampaignStatusDraft)
	campaign.WelcomeOfferID = &offer.ID
	require.NoError(t, fx.campaigns.Update(ctx, campaign))

	info, err := fx.flow.LaunchCampaign(ctx, fx.operator, campaign.UUID.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, string(models.CampaignStatusSending), info.Status)
	assert.Equal(t, uint(3), info.TotalTargets)

	fx.flow.WaitDispatch()

	// Two channels per customer; only Cruz's sms is rejected by the gateway.
	rows, err := fx.messages.ByFilter(ctx, models.InviteMessageFilter{CampaignID: &campaign.ID})
	require.NoError(t, err)
	require.Len(t, rows, 6)

	byKey := make(map[string]*models.InviteMessage)
	for _, row := range rows {
		byKey[fmt.Sprintf("%d:%s", row.CustomerID, row.Channel)] = row
	}

	assert.Equal(t, models.MessageStatusSent, byKey[fmt.Sprintf("%d:sms", ana.ID)].Status)
	assert.Equal(t, models.MessageStatusSent, byKey[fmt.Sprintf("%d:chat", ana.ID)].Status)
	assert.Equal(t, models.MessageStatusSent, byKey[fmt.Sprintf("%d:sms", bea.ID)].Status)
	assert.Equal(t, models.MessageStatusSent, byKey[fmt.Sprintf("%d:chat", bea.ID)].Status)
	assert.Equal(t, models.MessageStatusSent, byKey[fmt.Sprintf("%d:chat", cruz.ID)].Status)

	failedRow := byKey[fmt.Sprintf("%d:sms", cruz.ID)]
	assert.Equal(t, models.MessageStatusFailed, failedRow.Status)
	require.NotNil(t, failedRow.FailureReason)
	assert.Equal(t, "destination blocked", *failedRow.FailureReason)
	assert.Nil(t, failedRow.ProviderMessageID)

	sentRow := byKey[fmt.Sprintf("%d:sms", ana.ID)]
	assert.NotNil(t, sentRow.ProviderMessageID)
	assert.NotNil(t, sentRow.SentAt)
	assert.Equal(t, "Hi Ana, 20% off at Glow! https://glow.example/app", sentRow.Body)

	finished, err := fx.campaigns.ByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, finished.Status)
	assert.Equal(t, uint(5), finished.SentCount)
	assert.Equal(t, uint(1), finished.FailedCount)

	for _, c := range []*models.ImportedCustomer{ana, bea, cruz} {
		got, err := fx.customers.ByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CustomerStatusInvited, got.Status)
		assert.NotNil(t, got.LastInvitedAt)
	}
}

func TestLaunchCampaign_AllSendsFailed(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	customer := fx.addCustomer("Ana", "+15550000001", nil)
	fx.gateway.FailDestinations[customer.Phone] = "carrier rejected"
	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusDraft)

	_, err := fx.flow.LaunchCampaign(ctx, fx.operator, campaign.UUID.String(), nil)
	require.NoError(t, err)
	fx.flow.WaitDispatch()

	// Every send was rejected, but per-message failures never fail the
	// campaign; it completes with the rejections on the counters.
	finished, err := fx.campaigns.ByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, finished.Status)
	assert.Equal(t, uint(0), finished.SentCount)
	assert.Equal(t, uint(1), finished.FailedCount)

	// The customer was still attempted, so they count as invited.
	got, err := fx.customers.ByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CustomerStatusInvited, got.Status)
}

func TestLaunchCampaign_SkipsAlreadyInvited(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	invited := fx.addCustomer("Ana", "+15550000001", nil)
	require.NoError(t, fx.customers.UpdateStatus(ctx, invited.ID, models.CustomerStatusInvited, utils.UTCNowPtr()))
	pending := fx.addCustomer("Bea", "+15550000002", nil)

	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusDraft)

	info, err := fx.flow.LaunchCampaign(ctx, fx.operator, campaign.UUID.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, uint(1), info.TotalTargets)
	fx.flow.WaitDispatch()

	rows, err := fx.messages.ByFilter(ctx, models.InviteMessageFilter{CampaignID: &campaign.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pending.ID, rows[0].CustomerID)
}

func TestLaunchCampaign_OnlyInvitedCustomersMeansNoTargets(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	invited := fx.addCustomer("Ana", "+15550000001", nil)
	require.NoError(t, fx.customers.UpdateStatus(ctx, invited.ID, models.CustomerStatusInvited, utils.UTCNowPtr()))

	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusDraft)

	_, err := fx.flow.LaunchCampaign(ctx, fx.operator, campaign.UUID.String(), nil)
	require.Error(t, err)
	assert.True(t, IsCampaignNoTargets(err))

	got, _ := fx.campaigns.ByID(ctx, campaign.ID)
	assert.Equal(t, models.CampaignStatusDraft, got.Status)
}

func TestLaunchCampaign_NoTargets(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusDraft)

	_, err := fx.flow.LaunchCampaign(context.Background(), fx.operator, campaign.UUID.String(), nil)
	require.Error(t, err)
	assert.True(t, IsCampaignNoTargets(err))

	got, _ := fx.campaigns.ByID(context.Background(), campaign.ID)
	assert.Equal(t, models.CampaignStatusDraft, got.Status)
}

func TestLaunchCampaign_InvalidState(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	fx.addCustomer("Ana", "+15550000001", nil)
	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusCompleted)

	_, err := fx.flow.LaunchCampaign(context.Background(), fx.operator, campaign.UUID.String(), nil)
	require.Error(t, err)
	assert.True(t, IsCampaignInvalidState(err))
}

func TestLaunchCampaign_AccessDenied(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusDraft)

	outsider := &models.Operator{ID: 99, UUID: uuid.New(), SalonID: 42, Status: "active"}
	_, err := fx.flow.LaunchCampaign(context.Background(), outsider, campaign.UUID.String(), nil)
	require.Error(t, err)
	assert.True(t, IsCampaignAccessDenied(err))
}

// pausingGateway pauses the campaign after the first accepted send, the way an
// operator hitting pause mid-dispatch would.
type pausingGateway struct {
	inner      *services.MockMessageGateway
	campaigns  *fakeCampaignRepo
	campaignID uint
	paused     bool
}

func (g *pausingGateway) Send(ctx context.Context, channel, destination, body string) (*services.SendResult, error) {
	result, err := g.inner.Send(ctx, channel, destination, body)
	if !g.paused {
		g.paused = true
		g.campaigns.setStatus(g.campaignID, models.CampaignStatusPaused)
	}
	return result, err
}

func TestPauseAndResumeCampaign(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	ana := fx.addCustomer("Ana", "+15550000001", nil)
	bea := fx.addCustomer("Bea", "+15550000002", nil)
	cruz := fx.addCustomer("Cruz", "+15550000003", nil)
	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusDraft)

	gateway := &pausingGateway{inner: fx.gateway, campaigns: fx.campaigns, campaignID: campaign.ID}
	flow := NewInviteCampaignFlow(
		fx.campaigns, fx.customers, fx.messages, fx.offers, fx.salons, fx.audits,
		gateway, services.NewRedisStatsCache(nil, "test"), nil,
		config.DispatchConfig{SendDelay: 0, SendTimeout: time.Second},
		30*time.Second,
	)

	_, err := flow.LaunchCampaign(ctx, fx.operator, campaign.UUID.String(), nil)
	require.NoError(t, err)
	flow.WaitDispatch()

	// The pause landed during Ana's send; the loop stops at the next
	// customer boundary with only her row written.
	rows, err := fx.messages.ByFilter(ctx, models.InviteMessageFilter{CampaignID: &campaign.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ana.ID, rows[0].CustomerID)

	paused, _ := fx.campaigns.ByID(ctx, campaign.ID)
	assert.Equal(t, models.CampaignStatusPaused, paused.Status)
	// The counters reflect the rows written before the pause landed.
	assert.Equal(t, uint(1), paused.SentCount)

	for _, id := range []uint{bea.ID, cruz.ID} {
		got, _ := fx.customers.ByID(ctx, id)
		assert.Equal(t, models.CustomerStatusPending, got.Status)
	}

	info, err := flow.ResumeCampaign(ctx, fx.operator, campaign.UUID.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, string(models.CampaignStatusSending), info.Status)
	flow.WaitDispatch()

	// Resume picks up the remaining customers without re-sending Ana's.
	rows, err = fx.messages.ByFilter(ctx, models.InviteMessageFilter{CampaignID: &campaign.ID})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	perCustomer := make(map[uint]int)
	for _, row := range rows {
		perCustomer[row.CustomerID]++
	}
	assert.Equal(t, map[uint]int{ana.ID: 1, bea.ID: 1, cruz.ID: 1}, perCustomer)

	finished, _ := fx.campaigns.ByID(ctx, campaign.ID)
	assert.Equal(t, models.CampaignStatusCompleted, finished.Status)
}

// faultyGateway panics on every send, standing in for a provider client bug
type faultyGateway struct{}

func (g *faultyGateway) Send(ctx context.Context, channel, destination, body string) (*services.SendResult, error) {
	panic("gateway client bug")
}

func TestLaunchCampaign_LoopPanicMarksCampaignFailed(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	fx.addCustomer("Ana", "+15550000001", nil)
	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusDraft)

	flow := NewInviteCampaignFlow(
		fx.campaigns, fx.customers, fx.messages, fx.offers, fx.salons, fx.audits,
		&faultyGateway{}, services.NewRedisStatsCache(nil, "test"), nil,
		config.DispatchConfig{SendDelay: 0, SendTimeout: time.Second},
		30*time.Second,
	)

	_, err := flow.LaunchCampaign(ctx, fx.operator, campaign.UUID.String(), nil)
	require.NoError(t, err)
	flow.WaitDispatch()

	// A loop-level panic must not leave the campaign wedged in sending,
	// which would block pause, resume and delete forever.
	got, err := fx.campaigns.ByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusFailed, got.Status)
}

func TestLaunchCampaign_MissingChatDestination(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	customer := fx.addCustomer("Ana", "+15550000001", nil)
	campaign := fx.addCampaign(models.ChannelChat, models.CampaignStatusDraft)

	_, err := fx.flow.LaunchCampaign(ctx, fx.operator, campaign.UUID.String(), nil)
	require.NoError(t, err)
	fx.flow.WaitDispatch()

	// The unreachable channel still produces a ledger row, so the attempt
	// shows up in the aggregates instead of vanishing.
	rows, err := fx.messages.ByFilter(ctx, models.InviteMessageFilter{CampaignID: &campaign.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.MessageStatusFailed, rows[0].Status)
	require.NotNil(t, rows[0].FailureReason)
	assert.Equal(t, "no chat destination", *rows[0].FailureReason)

	finished, _ := fx.campaigns.ByID(ctx, campaign.ID)
	assert.Equal(t, models.CampaignStatusCompleted, finished.Status)
	assert.Equal(t, uint(0), finished.SentCount)
	assert.Equal(t, uint(1), finished.FailedCount)

	got, _ := fx.customers.ByID(ctx, customer.ID)
	assert.Equal(t, models.CustomerStatusInvited, got.Status)
}

func TestResumeCampaign_NotPaused(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusDraft)

	_, err := fx.flow.ResumeCampaign(context.Background(), fx.operator, campaign.UUID.String(), nil)
	require.Error(t, err)
	assert.True(t, IsCampaignInvalidState(err))
}

func TestGetCampaignStats_RecomputedFromLedger(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusCompleted)
	campaign.TotalTargets = 4
	require.NoError(t, fx.campaigns.Update(ctx, campaign))

	statuses := []models.MessageStatus{
		models.MessageStatusSent,
		models.MessageStatusDelivered,
		models.MessageStatusRead,
		models.MessageStatusFailed,
	}
	for i, status := range statuses {
		require.NoError(t, fx.messages.Save(ctx, &models.InviteMessage{
			UUID:       uuid.New(),
			CampaignID: campaign.ID,
			CustomerID: uint(i + 1),
			Channel:    models.ChannelSMS,
			Status:     status,
		}))
	}

	stats, err := fx.flow.GetCampaignStats(ctx, fx.operator, campaign.UUID.String())
	require.NoError(t, err)

	assert.Equal(t, campaign.UUID.String(), stats.CampaignUUID)
	assert.Equal(t, uint(4), stats.TotalTargets)
	assert.Equal(t, uint(0), stats.PendingCount)
	assert.Equal(t, uint(1), stats.SentCount)
	assert.Equal(t, uint(1), stats.DeliveredCount)
	assert.Equal(t, uint(1), stats.ReadCount)
	assert.Equal(t, uint(1), stats.FailedCount)
	// 2 confirmed deliveries (delivered + read) over 3 accepted sends.
	assert.InDelta(t, 0.67, stats.DeliveryRate, 0.001)
}

func TestCreateCampaign_Validation(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  dto.CreateCampaignRequest
		code string
	}{
		{
			name: "missing title",
			req:  dto.CreateCampaignRequest{Channel: models.ChannelSMS, TemplateText: "hi"},
			code: "CAMPAIGN_TITLE_REQUIRED",
		},
		{
			name: "missing template",
			req:  dto.CreateCampaignRequest{Title: "T", Channel: models.ChannelSMS},
			code: "CAMPAIGN_TEMPLATE_REQUIRED",
		},
		{
			name: "bad channel",
			req:  dto.CreateCampaignRequest{Title: "T", Channel: "fax", TemplateText: "hi"},
			code: "CAMPAIGN_CHANNEL_INVALID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.flow.CreateCampaign(ctx, fx.operator, &tt.req, nil)
			require.Error(t, err)
			var businessErr *BusinessError
			require.ErrorAs(t, err, &businessErr)
			assert.Equal(t, tt.code, businessErr.Code)
		})
	}
}

func TestCreateCampaign_ScheduledInPast(t *testing.T) {
	fx := newCampaignFlowFixture(t)

	past := utils.UTCNow().Add(-time.Hour)
	_, err := fx.flow.CreateCampaign(context.Background(), fx.operator, &dto.CreateCampaignRequest{
		Title:        "T",
		Channel:      models.ChannelSMS,
		TemplateText: "hi",
		ScheduledAt:  &past,
	}, nil)
	require.Error(t, err)
	var businessErr *BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, "SCHEDULE_TIME_IN_PAST", businessErr.Code)
}

func TestCreateCampaign_CountsPendingTargets(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	fx.addCustomer("Ana", "+15550000001", nil)
	fx.addCustomer("Bea", "+15550000002", nil)
	invited := fx.addCustomer("Cruz", "+15550000003", nil)
	require.NoError(t, fx.customers.UpdateStatus(ctx, invited.ID, models.CustomerStatusInvited, utils.UTCNowPtr()))

	info, err := fx.flow.CreateCampaign(ctx, fx.operator, &dto.CreateCampaignRequest{
		Title:        "Grand opening",
		Channel:      models.ChannelSMS,
		TemplateText: "Hi {{customer_name}}",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint(2), info.TotalTargets)
}

func TestListCampaigns_TotalCountsAllPages(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		fx.addCampaign(models.ChannelSMS, models.CampaignStatusDraft)
	}

	result, err := fx.flow.ListCampaigns(ctx, fx.operator, &dto.ListCampaignsRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, int64(3), result.Pagination.Total)

	result, err = fx.flow.ListCampaigns(ctx, fx.operator, &dto.ListCampaignsRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, int64(3), result.Pagination.Total)
}

func TestLaunchDue_ScheduledCampaign(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	fx.addCustomer("Ana", "+15550000001", nil)
	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusScheduled)
	campaign.ScheduledAt = utils.ToPtr(utils.UTCNow().Add(-time.Minute))
	require.NoError(t, fx.campaigns.Update(ctx, campaign))

	due, err := fx.campaigns.ListDueScheduled(ctx, utils.UTCNow(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, fx.flow.LaunchDue(ctx, due[0]))
	fx.flow.WaitDispatch()

	finished, _ := fx.campaigns.ByID(ctx, campaign.ID)
	assert.Equal(t, models.CampaignStatusCompleted, finished.Status)
	assert.Len(t, fx.gateway.Sent(), 1)
}

func TestDeleteCampaign(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusDraft)

	require.NoError(t, fx.flow.DeleteCampaign(ctx, fx.operator, campaign.UUID.String(), nil))

	gone, err := fx.campaigns.ByUUID(ctx, campaign.UUID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Contains(t, fx.audits.actions(), models.AuditActionCampaignDeleted)
}

func TestDeleteCampaign_WhileSending(t *testing.T) {
	fx := newCampaignFlowFixture(t)
	ctx := context.Background()

	campaign := fx.addCampaign(models.ChannelSMS, models.CampaignStatusSending)

	err := fx.flow.DeleteCampaign(ctx, fx.operator, campaign.UUID.String(), nil)
	require.Error(t, err)
	assert.True(t, IsCampaignInvalidState(err))

	still, err := fx.campaigns.ByUUID(ctx, campaign.UUID)
	require.NoError(t, err)
	require.NotNil(t, still)
	assert.Equal(t, models.CampaignStatusSending, still.Status)
}

package models

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestCampaignStatusTransitions(t *testing.T) {
	cases := []struct {
		from    CampaignStatus
		to      CampaignStatus
		allowed bool
	}{
		{CampaignStatusDraft, CampaignStatusScheduled, true},
		{CampaignStatusDraft, CampaignStatusSending, true},
		{CampaignStatusDraft, CampaignStatusCompleted, false},
		{CampaignStatusScheduled, CampaignStatusSending, true},
		{CampaignStatusScheduled, CampaignStatusDraft, true},
		{CampaignStatusScheduled, CampaignStatusPaused, false},
		{CampaignStatusSending, CampaignStatusPaused, true},
		{CampaignStatusSending, CampaignStatusCompleted, true},
		{CampaignStatusSending, CampaignStatusFailed, true},
		{CampaignStatusSending, CampaignStatusDraft, false},
		{CampaignStatusPaused, CampaignStatusSending, true},
		{CampaignStatusPaused, CampaignStatusCompleted, false},
		{CampaignStatusCompleted, CampaignStatusSending, false},
		{CampaignStatusFailed, CampaignStatusSending, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		assert.Equal(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestCampaignStatusTerminal(t *testing.T) {
	assert.True(t, CampaignStatusCompleted.IsTerminal())
	assert.True(t, CampaignStatusFailed.IsTerminal())
	assert.False(t, CampaignStatusSending.IsTerminal())
	assert.False(t, CampaignStatusPaused.IsTerminal())
}

func TestExpandChannels(t *testing.T) {
	assert.Equal(t, pq.StringArray{ChannelSMS}, ExpandChannels(ChannelSMS))
	assert.Equal(t, pq.StringArray{ChannelChat}, ExpandChannels(ChannelChat))
	assert.Equal(t, pq.StringArray{ChannelSMS, ChannelChat}, ExpandChannels(ChannelBoth))
}

func TestMessageStatusCounting(t *testing.T) {
	assert.True(t, MessageStatusSent.CountsAsSent())
	assert.True(t, MessageStatusDelivered.CountsAsSent())
	assert.True(t, MessageStatusRead.CountsAsSent())
	assert.False(t, MessageStatusPending.CountsAsSent())
	assert.False(t, MessageStatusFailed.CountsAsSent())

	assert.True(t, MessageStatusDelivered.CountsAsDelivered())
	assert.True(t, MessageStatusRead.CountsAsDelivered())
	assert.False(t, MessageStatusSent.CountsAsDelivered())
}

func TestMessageStatusTerminal(t *testing.T) {
	assert.True(t, MessageStatusRead.IsTerminal())
	assert.True(t, MessageStatusFailed.IsTerminal())
	assert.False(t, MessageStatusSent.IsTerminal())
	assert.False(t, MessageStatusDelivered.IsTerminal())
}

func TestCustomerInvitable(t *testing.T) {
	c := &ImportedCustomer{Status: CustomerStatusPending}
	assert.True(t, c.Invitable())
	c.Status = CustomerStatusInvited
	assert.True(t, c.Invitable())
	c.Status = CustomerStatusRegistered
	assert.False(t, c.Invitable())
	c.Status = CustomerStatusExpired
	assert.False(t, c.Invitable())
}

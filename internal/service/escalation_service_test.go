package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenwhite/servicedesk-sla/internal/domain"
	"github.com/greenwhite/servicedesk-sla/internal/events"
)

var escalationNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func newEscalationForTest(tickets *fakeTicketRepo, policies *fakePolicyRepo, teams *fakeTeamRepo, dispatcher events.Dispatcher) *EscalationService {
	if teams == nil {
		teams = &fakeTeamRepo{byID: map[string]*domain.Team{}}
	}
	svc := NewEscalationService(EscalationDependencies{
		TicketRepo: tickets,
		PolicyRepo: policies,
		TeamRepo:   teams,
		UserRepo:   &fakeUserRepo{byID: map[string]*domain.User{}},
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	svc.now = func() time.Time { return escalationNow }
	return svc
}

func escalationTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:          "t-1",
		Number:      "T-100",
		Subject:     "server down",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		CreatedAt:   escalationNow.Add(-2 * time.Hour),
		SlaPolicyID: strp("pol-1"),
	}
}

func policyWithRules(rules ...domain.EscalationRule) *fakePolicyRepo {
	policies := newFakePolicyRepo()
	policies.byID["pol-1"] = &domain.SlaPolicy{ID: "pol-1", Active: true, Escalations: rules}
	return policies
}

func TestEvaluateRuleFiring(t *testing.T) {
	rule := &domain.EscalationRule{
		ID:                   "esc-1",
		Name:                 "warn at 60",
		Type:                 domain.EscalationFirstResponse,
		TriggerMinutesBefore: 60,
		Action:               domain.ActionNotifyEmail,
		Active:               true,
	}

	t.Run("fires inside the trigger window", func(t *testing.T) {
		ticket := escalationTicket()
		ticket.FirstResponseDueAt = timep(escalationNow.Add(30 * time.Minute))

		alert, fired := evaluateRule(ticket, rule, escalationNow)
		require.True(t, fired)
		assert.Equal(t, 30, alert.MinutesUntilBreach)
		assert.False(t, alert.Breached)
		assert.Equal(t, domain.EscalationFirstResponse, alert.BreachType)
	})

	t.Run("does not fire outside the window", func(t *testing.T) {
		ticket := escalationTicket()
		ticket.FirstResponseDueAt = timep(escalationNow.Add(90 * time.Minute))

		_, fired := evaluateRule(ticket, rule, escalationNow)
		assert.False(t, fired)
	})

	t.Run("past due reports negative minutes", func(t *testing.T) {
		ticket := escalationTicket()
		ticket.FirstResponseDueAt = timep(escalationNow.Add(-10 * time.Minute))

		alert, fired := evaluateRule(ticket, rule, escalationNow)
		require.True(t, fired)
		assert.Equal(t, -10, alert.MinutesUntilBreach)
		assert.True(t, alert.Breached)
	})

	t.Run("answered first response never fires", func(t *testing.T) {
		ticket := escalationTicket()
		ticket.FirstResponseDueAt = timep(escalationNow.Add(-10 * time.Minute))
		ticket.FirstResponseAt = timep(escalationNow.Add(-5 * time.Minute))

		_, fired := evaluateRule(ticket, rule, escalationNow)
		assert.False(t, fired)
	})

	t.Run("resolution rule ignores resolved tickets", func(t *testing.T) {
		resolutionRule := &domain.EscalationRule{
			Type:                 domain.EscalationResolution,
			TriggerMinutesBefore: 60,
			Active:               true,
		}
		ticket := escalationTicket()
		ticket.ResolutionDueAt = timep(escalationNow.Add(-time.Hour))
		ticket.ResolvedAt = timep(escalationNow.Add(-30 * time.Minute))

		_, fired := evaluateRule(ticket, resolutionRule, escalationNow)
		assert.False(t, fired)
	})

	t.Run("missing due date never fires", func(t *testing.T) {
		_, fired := evaluateRule(escalationTicket(), rule, escalationNow)
		assert.False(t, fired)
	})
}

func TestEvaluateFiresEveryPoll(t *testing.T) {
	policies := policyWithRules(domain.EscalationRule{
		ID:                   "esc-1",
		Name:                 "notify",
		Type:                 domain.EscalationFirstResponse,
		TriggerMinutesBefore: 60,
		Action:               domain.ActionNotifyEmail,
		NotifyUserIDs:        []string{"u-1"},
		Active:               true,
	})
	dispatcher := &recordingDispatcher{}
	svc := newEscalationForTest(newFakeTicketRepo(), policies, nil, dispatcher)

	ticket := escalationTicket()
	ticket.FirstResponseDueAt = timep(escalationNow.Add(30 * time.Minute))

	alerts, err := svc.Evaluate(context.Background(), ticket)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	// No de-duplication: the same rule fires again on the next pass.
	alerts, err = svc.Evaluate(context.Background(), ticket)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Len(t, dispatcher.ofType(events.EventEscalationTriggered), 2)
}

func TestEvaluateSkipsInactiveRules(t *testing.T) {
	policies := policyWithRules(domain.EscalationRule{
		ID:                   "esc-1",
		Type:                 domain.EscalationFirstResponse,
		TriggerMinutesBefore: 60,
		Action:               domain.ActionNotifyEmail,
		Active:               false,
	})
	svc := newEscalationForTest(newFakeTicketRepo(), policies, nil, &recordingDispatcher{})

	ticket := escalationTicket()
	ticket.FirstResponseDueAt = timep(escalationNow.Add(10 * time.Minute))

	alerts, err := svc.Evaluate(context.Background(), ticket)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEvaluateWithoutPolicy(t *testing.T) {
	svc := newEscalationForTest(newFakeTicketRepo(), newFakePolicyRepo(), nil, &recordingDispatcher{})

	ticket := escalationTicket()
	ticket.SlaPolicyID = nil

	alerts, err := svc.Evaluate(context.Background(), ticket)
	require.NoError(t, err)
	assert.Nil(t, alerts)
}

func TestEvaluateMissingPolicyIsSkipped(t *testing.T) {
	svc := newEscalationForTest(newFakeTicketRepo(), newFakePolicyRepo(), nil, &recordingDispatcher{})

	ticket := escalationTicket() // references pol-1 which does not exist
	ticket.FirstResponseDueAt = timep(escalationNow.Add(10 * time.Minute))

	alerts, err := svc.Evaluate(context.Background(), ticket)
	require.NoError(t, err)
	assert.Nil(t, alerts)
}

func TestReassignTicketAction(t *testing.T) {
	policies := policyWithRules(domain.EscalationRule{
		ID:                   "esc-1",
		Name:                 "hand off",
		Type:                 domain.EscalationResolution,
		TriggerMinutesBefore: 120,
		Action:               domain.ActionReassignTicket,
		ReassignToID:         strp("u-senior"),
		Active:               true,
	})
	tickets := newFakeTicketRepo()
	dispatcher := &recordingDispatcher{}
	svc := newEscalationForTest(tickets, policies, nil, dispatcher)

	ticket := escalationTicket()
	ticket.AssigneeID = strp("u-junior")
	ticket.ResolutionDueAt = timep(escalationNow.Add(time.Hour))

	_, err := svc.Evaluate(context.Background(), ticket)
	require.NoError(t, err)

	require.NotNil(t, ticket.AssigneeID)
	assert.Equal(t, "u-senior", *ticket.AssigneeID)
	assert.Len(t, tickets.updates, 1)
	assert.Len(t, dispatcher.ofType(events.EventTicketReassigned), 1)
}

func TestEscalateToManagerAction(t *testing.T) {
	rule := domain.EscalationRule{
		ID:                   "esc-1",
		Name:                 "call the boss",
		Type:                 domain.EscalationResolution,
		TriggerMinutesBefore: 120,
		Action:               domain.ActionEscalateManager,
		Active:               true,
	}

	t.Run("assigns the team manager", func(t *testing.T) {
		teams := &fakeTeamRepo{byID: map[string]*domain.Team{
			"team-1": {ID: "team-1", Name: "Support", ManagerID: strp("u-manager")},
		}}
		tickets := newFakeTicketRepo()
		svc := newEscalationForTest(tickets, policyWithRules(rule), teams, &recordingDispatcher{})

		ticket := escalationTicket()
		ticket.TeamID = strp("team-1")
		ticket.ResolutionDueAt = timep(escalationNow.Add(time.Hour))

		_, err := svc.Evaluate(context.Background(), ticket)
		require.NoError(t, err)

		require.NotNil(t, ticket.AssigneeID)
		assert.Equal(t, "u-manager", *ticket.AssigneeID)
	})

	t.Run("no team means no reassignment", func(t *testing.T) {
		tickets := newFakeTicketRepo()
		svc := newEscalationForTest(tickets, policyWithRules(rule), nil, &recordingDispatcher{})

		ticket := escalationTicket()
		ticket.ResolutionDueAt = timep(escalationNow.Add(time.Hour))

		alerts, err := svc.Evaluate(context.Background(), ticket)
		require.NoError(t, err)
		assert.Len(t, alerts, 1) // the rule still fires and alerts
		assert.Nil(t, ticket.AssigneeID)
		assert.Empty(t, tickets.updates)
	})

	t.Run("team without manager means no reassignment", func(t *testing.T) {
		teams := &fakeTeamRepo{byID: map[string]*domain.Team{
			"team-1": {ID: "team-1", Name: "Support"},
		}}
		tickets := newFakeTicketRepo()
		svc := newEscalationForTest(tickets, policyWithRules(rule), teams, &recordingDispatcher{})

		ticket := escalationTicket()
		ticket.TeamID = strp("team-1")
		ticket.ResolutionDueAt = timep(escalationNow.Add(time.Hour))

		_, err := svc.Evaluate(context.Background(), ticket)
		require.NoError(t, err)
		assert.Nil(t, ticket.AssigneeID)
		assert.Empty(t, tickets.updates)
	})
}

func TestIncreasePriorityAction(t *testing.T) {
	rule := domain.EscalationRule{
		ID:                   "esc-1",
		Name:                 "bump",
		Type:                 domain.EscalationResolution,
		TriggerMinutesBefore: 120,
		Action:               domain.ActionIncreasePriority,
		Active:               true,
	}

	t.Run("bumps one step", func(t *testing.T) {
		tickets := newFakeTicketRepo()
		dispatcher := &recordingDispatcher{}
		svc := newEscalationForTest(tickets, policyWithRules(rule), nil, dispatcher)

		ticket := escalationTicket()
		ticket.ResolutionDueAt = timep(escalationNow.Add(time.Hour))

		_, err := svc.Evaluate(context.Background(), ticket)
		require.NoError(t, err)

		assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
		assert.Len(t, tickets.updates, 1)
		assert.Len(t, dispatcher.ofType(events.EventPriorityIncreased), 1)
	})

	t.Run("critical stays put without a write", func(t *testing.T) {
		tickets := newFakeTicketRepo()
		dispatcher := &recordingDispatcher{}
		svc := newEscalationForTest(tickets, policyWithRules(rule), nil, dispatcher)

		ticket := escalationTicket()
		ticket.Priority = domain.TicketPriorityCritical
		ticket.ResolutionDueAt = timep(escalationNow.Add(time.Hour))

		_, err := svc.Evaluate(context.Background(), ticket)
		require.NoError(t, err)

		assert.Equal(t, domain.TicketPriorityCritical, ticket.Priority)
		assert.Empty(t, tickets.updates)
		assert.Empty(t, dispatcher.ofType(events.EventPriorityIncreased))
	})
}

func TestProcessEscalationsContinuesPastFailures(t *testing.T) {
	policies := policyWithRules(domain.EscalationRule{
		ID:                   "esc-1",
		Type:                 domain.EscalationFirstResponse,
		TriggerMinutesBefore: 60,
		Action:               domain.ActionNotifyEmail,
		Active:               true,
	})
	svc := newEscalationForTest(newFakeTicketRepo(), policies, nil, &recordingDispatcher{})

	good := *escalationTicket()
	good.FirstResponseDueAt = timep(escalationNow.Add(30 * time.Minute))

	noPolicy := *escalationTicket()
	noPolicy.ID = "t-2"
	noPolicy.SlaPolicyID = nil
	noPolicy.FirstResponseDueAt = timep(escalationNow.Add(30 * time.Minute))

	alerts := svc.ProcessEscalations(context.Background(), []domain.Ticket{noPolicy, good})
	assert.Len(t, alerts, 1)
}

func TestNextPriorityLadder(t *testing.T) {
	cases := []struct {
		in   domain.TicketPriority
		want domain.TicketPriority
		ok   bool
	}{
		{domain.TicketPriorityLow, domain.TicketPriorityMedium, true},
		{domain.TicketPriorityMedium, domain.TicketPriorityHigh, true},
		{domain.TicketPriorityHigh, domain.TicketPriorityUrgent, true},
		{domain.TicketPriorityUrgent, domain.TicketPriorityCritical, true},
		{domain.TicketPriorityCritical, domain.TicketPriorityCritical, false},
	}
	for _, tc := range cases {
		got, ok := domain.NextPriority(tc.in)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.ok, ok)
	}
}

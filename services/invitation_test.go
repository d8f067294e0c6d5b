package services

import (
	"context"
	"sync"
	"testing"

	"okr-progression-system/models"
	"okr-progression-system/testutil"
)

type recordingNotifier struct {
	mu    sync.Mutex
	tasks []Task
}

func (n *recordingNotifier) Enqueue(task Task) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tasks = append(n.tasks, task)
	return true
}

type inviteFixture struct {
	challenges  *ChallengeService
	invitations *InvitationService
	notifier    *recordingNotifier
	challenge   *models.Challenge
}

func newInviteFixture(t *testing.T, users ...string) inviteFixture {
	t.Helper()
	db := testutil.OpenDB(t)
	for _, u := range users {
		testutil.SeedUser(t, db, u)
	}
	store := NewStore(db, 0)
	n := &recordingNotifier{}
	f := inviteFixture{
		challenges:  NewChallengeService(store, nil),
		invitations: NewInvitationService(store, n),
		notifier:    n,
	}
	f.challenge = mustCreateChallenge(t, f.challenges, "host")
	return f
}

func TestInviteRules(t *testing.T) {
	ctx := context.Background()
	f := newInviteFixture(t, "host", "p1", "p2")
	chID := f.challenge.ID

	inv, err := f.invitations.Invite(ctx, chID, "host", "p1")
	if err != nil {
		t.Fatalf("Invite() error: %v", err)
	}
	if inv.Status != models.InvitationPending {
		t.Errorf("Status = %s, want PENDING", inv.Status)
	}
	if len(f.notifier.tasks) != 1 || f.notifier.tasks[0].Kind != TaskChallengeInvitation || f.notifier.tasks[0].UserID != "p1" {
		t.Errorf("tasks = %+v, want one invitation task for p1", f.notifier.tasks)
	}

	tests := []struct {
		name              string
		challenge, caller string
		player            string
		kind              Kind
	}{
		{"duplicate", chID, "host", "p1", KindConflict},
		{"not host", chID, "p1", "p2", KindForbidden},
		{"self", chID, "host", "host", KindValidation},
		{"unknown user", chID, "host", "ghost", KindNotFound},
		{"unknown challenge", "missing", "host", "p2", KindNotFound},
		{"empty player", chID, "host", "", KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.invitations.Invite(ctx, tt.challenge, tt.caller, tt.player)
			if got := KindOf(err); got != tt.kind {
				t.Errorf("Invite() kind = %q, want %q (err: %v)", got, tt.kind, err)
			}
		})
	}
}

func TestInviteManyReportsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newInviteFixture(t, "host", "p1", "p2", "p3")
	if _, err := f.invitations.Invite(ctx, f.challenge.ID, "host", "p1"); err != nil {
		t.Fatalf("Invite() error: %v", err)
	}

	res, err := f.invitations.InviteMany(ctx, f.challenge.ID, "host", []string{"p1", "p2", "p2", "ghost", "p3"})
	if err != nil {
		t.Fatalf("InviteMany() error: %v", err)
	}
	if len(res.Invited) != 2 {
		t.Errorf("len(Invited) = %d, want 2 (p2, p3)", len(res.Invited))
	}
	skipped := map[string]bool{}
	for _, s := range res.Skipped {
		skipped[s.PlayerID] = true
	}
	for _, want := range []string{"p1", "p2", "ghost"} {
		if !skipped[want] {
			t.Errorf("Skipped missing %s: %+v", want, res.Skipped)
		}
	}

	if _, err := f.invitations.InviteMany(ctx, f.challenge.ID, "p1", []string{"p2"}); !IsKind(err, KindForbidden) {
		t.Errorf("InviteMany(not host) error = %v, want forbidden", err)
	}
	if _, err := f.invitations.InviteMany(ctx, f.challenge.ID, "host", nil); !IsKind(err, KindValidation) {
		t.Errorf("InviteMany(empty) error = %v, want validation", err)
	}
}

func TestRespondAcceptFillsChallenge(t *testing.T) {
	ctx := context.Background()
	f := newInviteFixture(t, "host", "p1", "p2")
	inv1, _ := f.invitations.Invite(ctx, f.challenge.ID, "host", "p1")
	inv2, _ := f.invitations.Invite(ctx, f.challenge.ID, "host", "p2")

	pending, err := f.invitations.ListForPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("ListForPlayer() error: %v", err)
	}
	if len(pending) != 1 || pending[0].Challenge == nil || pending[0].Challenge.Code != f.challenge.Code {
		t.Errorf("pending = %+v, want one invitation with its challenge", pending)
	}

	if _, err := f.invitations.Respond(ctx, inv1.ID, "p2", true); !IsKind(err, KindForbidden) {
		t.Errorf("Respond(other player) error = %v, want forbidden", err)
	}

	accepted, err := f.invitations.Respond(ctx, inv1.ID, "p1", true)
	if err != nil {
		t.Fatalf("Respond(accept) error: %v", err)
	}
	if accepted.Status != models.InvitationAccepted {
		t.Errorf("Status = %s, want ACCEPTED", accepted.Status)
	}
	ch, _ := f.challenges.Get(ctx, f.challenge.ID)
	if ch.Status != models.ChallengeReady || ch.PlayerID == nil || *ch.PlayerID != "p1" {
		t.Errorf("challenge = %+v, want READY with p1", ch)
	}

	if _, err := f.invitations.Respond(ctx, inv1.ID, "p1", false); !IsKind(err, KindConflict) {
		t.Errorf("Respond(twice) error = %v, want conflict", err)
	}

	// The late acceptance rolls back and leaves the invitation unanswered.
	if _, err := f.invitations.Respond(ctx, inv2.ID, "p2", true); !IsKind(err, KindConflict) {
		t.Fatalf("Respond(accept filled) error = %v, want conflict", err)
	}
	var stored models.ChallengeInvitation
	f.invitations.DB.Where("id = ?", inv2.ID).First(&stored)
	if stored.Status != models.InvitationPending {
		t.Errorf("late invitation status = %s, want PENDING after rollback", stored.Status)
	}

	rejected, err := f.invitations.Respond(ctx, inv2.ID, "p2", false)
	if err != nil {
		t.Fatalf("Respond(reject) error: %v", err)
	}
	if rejected.Status != models.InvitationRejected {
		t.Errorf("Status = %s, want REJECTED", rejected.Status)
	}
	if _, err := f.invitations.Respond(ctx, "missing", "p2", true); !IsKind(err, KindNotFound) {
		t.Errorf("Respond(missing) error = %v, want not found", err)
	}
}

func TestInviteClosedChallenge(t *testing.T) {
	ctx := context.Background()
	f := newInviteFixture(t, "host", "p1", "p2")
	if _, err := f.challenges.Join(ctx, f.challenge.Code, "p1"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if _, err := f.invitations.Invite(ctx, f.challenge.ID, "host", "p2"); !IsKind(err, KindConflict) {
		t.Errorf("Invite(filled) error = %v, want conflict", err)
	}
}

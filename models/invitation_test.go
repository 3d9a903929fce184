package models

import (
	"errors"
	"testing"
	"time"

	"carelink/db"
)

var testEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRespondToInvitation_Accept(t *testing.T) {
	setupTestDB(t)
	freezeTime(t, testEpoch)
	org, staff := createTestOrg(t, "northside")
	provider, _ := createTestProvider(t, "Dr Chen", "1234567890")
	inv := mustCreateInvitation(t, org, staff, provider)

	inv, conn := mustAccept(t, inv.Token)
	if inv.Status != InvitationAccepted {
		t.Errorf("invitation status = %s, want %s", inv.Status, InvitationAccepted)
	}
	if conn.Status != ConnectionAccepted {
		t.Errorf("connection status = %s, want %s", conn.Status, ConnectionAccepted)
	}
	if conn.AcceptedAt != testEpoch.Unix() {
		t.Errorf("connection AcceptedAt = %d, want %d", conn.AcceptedAt, testEpoch.Unix())
	}
	if conn.InvitationID == nil || *conn.InvitationID != inv.ID {
		t.Error("connection is not linked to its originating invitation")
	}
	var count int64
	db.Instance.Model(&Connection{}).Count(&count)
	if count != 1 {
		t.Errorf("connection count = %d, want 1", count)
	}

	// A second respond loses the compare-and-set and must not create
	// another connection
	_, _, err := RespondToInvitation(inv.Token, InviteActionAccept, "", 0)
	if !errors.Is(err, ErrAlreadyResponded) {
		t.Errorf("second accept error = %v, want ErrAlreadyResponded", err)
	}
	db.Instance.Model(&Connection{}).Count(&count)
	if count != 1 {
		t.Errorf("connection count after double-accept = %d, want 1", count)
	}
}

func TestRespondToInvitation_Reject(t *testing.T) {
	setupTestDB(t)
	freezeTime(t, testEpoch)
	org, staff := createTestOrg(t, "northside")
	provider, _ := createTestProvider(t, "Dr Chen", "1234567890")
	inv := mustCreateInvitation(t, org, staff, provider)

	inv, conn, err := RespondToInvitation(inv.Token, InviteActionReject, "not interested", 0)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if conn != nil {
		t.Error("reject must not create a connection")
	}
	if inv.Status != InvitationRejected {
		t.Errorf("status = %s, want %s", inv.Status, InvitationRejected)
	}
	stored, err := InvitationByID(inv.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.RejectionReason != "not interested" {
		t.Errorf("rejection reason = %q, want %q", stored.RejectionReason, "not interested")
	}
	var count int64
	db.Instance.Model(&Connection{}).Count(&count)
	if count != 0 {
		t.Errorf("connection count = %d, want 0", count)
	}
}

func TestRespondToInvitation_Expired(t *testing.T) {
	setupTestDB(t)
	setTime := freezeTime(t, testEpoch)
	org, staff := createTestOrg(t, "northside")
	provider, _ := createTestProvider(t, "Dr Chen", "1234567890")
	inv := mustCreateInvitation(t, org, staff, provider)

	setTime(time.Unix(inv.ExpiresAt, 0).Add(time.Hour))
	_, conn, err := RespondToInvitation(inv.Token, InviteActionAccept, "", 0)
	if !errors.Is(err, ErrInvitationExpired) {
		t.Fatalf("error = %v, want ErrInvitationExpired", err)
	}
	if conn != nil {
		t.Error("expired accept must not create a connection")
	}
	// The lapsed status is persisted by the write path that noticed it
	var stored Invitation
	if err := db.Instance.First(&stored, inv.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != InvitationExpired {
		t.Errorf("stored status = %s, want %s", stored.Status, InvitationExpired)
	}
	var count int64
	db.Instance.Model(&Connection{}).Count(&count)
	if count != 0 {
		t.Errorf("connection count = %d, want 0", count)
	}
}

func TestRespondToInvitation_NotFound(t *testing.T) {
	setupTestDB(t)
	freezeTime(t, testEpoch)
	_, _, err := RespondToInvitation("no-such-token", InviteActionAccept, "", 0)
	if !errors.Is(err, ErrInvitationNotFound) {
		t.Errorf("error = %v, want ErrInvitationNotFound", err)
	}
}

func TestRespondToInvitation_EmailInvitation(t *testing.T) {
	setupTestDB(t)
	freezeTime(t, testEpoch)
	org, staff := createTestOrg(t, "northside")
	provider, user := createTestProvider(t, "Dr Chen", "1234567890")

	inv, err := CreateInvitation(org.ID, nil, user.Email, "join us", staff.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	inv, conn := mustAccept(t, inv.Token)
	if inv.ProviderID == nil || *inv.ProviderID != provider.ID {
		t.Error("accept did not attach the provider registered under the invited e-mail")
	}
	if conn.ProviderID != provider.ID {
		t.Errorf("connection provider = %d, want %d", conn.ProviderID, provider.ID)
	}
}

func TestRespondToInvitation_NoProviderAccount(t *testing.T) {
	setupTestDB(t)
	freezeTime(t, testEpoch)
	org, staff := createTestOrg(t, "northside")

	inv, err := CreateInvitation(org.ID, nil, "nobody@example.com", "", staff.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, conn, err := RespondToInvitation(inv.Token, InviteActionAccept, "", 0)
	if !errors.Is(err, ErrNoProviderAccount) {
		t.Fatalf("error = %v, want ErrNoProviderAccount", err)
	}
	if conn != nil {
		t.Error("no connection may be created without a provider account")
	}
	// The invitation must still be actionable for when the account exists
	stored, _ := InvitationByID(inv.ID)
	if stored.Status != InvitationPending {
		t.Errorf("status = %s, want %s", stored.Status, InvitationPending)
	}
}

func TestCreateInvitation_DuplicatePending(t *testing.T) {
	setupTestDB(t)
	freezeTime(t, testEpoch)
	org, staff := createTestOrg(t, "northside")
	provider, _ := createTestProvider(t, "Dr Chen", "1234567890")
	inv := mustCreateInvitation(t, org, staff, provider)

	if _, err := CreateInvitation(org.ID, &provider.ID, "", "again", staff.ID); !errors.Is(err, ErrDuplicateInvitation) {
		t.Errorf("duplicate create error = %v, want ErrDuplicateInvitation", err)
	}
	// Once the pending invitation is terminal a fresh one is allowed
	if _, err := CancelInvitation(inv.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := CreateInvitation(org.ID, &provider.ID, "", "again", staff.ID); err != nil {
		t.Errorf("create after cancel: %v", err)
	}
}

func TestCancelInvitation(t *testing.T) {
	setupTestDB(t)
	freezeTime(t, testEpoch)
	org, staff := createTestOrg(t, "northside")
	provider, _ := createTestProvider(t, "Dr Chen", "1234567890")
	inv := mustCreateInvitation(t, org, staff, provider)

	cancelled, err := CancelInvitation(inv.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != InvitationCancelled {
		t.Errorf("status = %s, want %s", cancelled.Status, InvitationCancelled)
	}
	// Cancelled is terminal - neither cancel nor respond may touch it
	var invalid *InvalidTransitionError
	if _, err = CancelInvitation(inv.ID); !errors.As(err, &invalid) {
		t.Errorf("second cancel error = %v, want InvalidTransitionError", err)
	}
	if _, _, err = RespondToInvitation(inv.Token, InviteActionAccept, "", 0); !errors.As(err, &invalid) {
		t.Errorf("respond after cancel error = %v, want InvalidTransitionError", err)
	}
}

func TestListInvitations_LazyExpiry(t *testing.T) {
	setupTestDB(t)
	setTime := freezeTime(t, testEpoch)
	org, staff := createTestOrg(t, "northside")
	lapsing, _ := createTestProvider(t, "Dr Chen", "1234567890")
	fresh, _ := createTestProvider(t, "Dr Patel", "2234567890")

	lapsed := mustCreateInvitation(t, org, staff, lapsing)
	// Move past the first invitation's expiry, then invite the second
	setTime(time.Unix(lapsed.ExpiresAt, 0).Add(time.Hour))
	mustCreateInvitation(t, org, staff, fresh)

	pending := InvitationPending
	actionable, err := ListOrganizationInvitations(org.ID, &pending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(actionable) != 1 {
		t.Fatalf("actionable count = %d, want 1", len(actionable))
	}
	if actionable[0].ProviderID == nil || *actionable[0].ProviderID != fresh.ID {
		t.Error("actionable listing returned the lapsed invitation")
	}

	count, err := PendingInvitationCount(org.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("pending count = %d, want 1", count)
	}

	// The expired filter picks up rows whose stored status still lags
	expired := InvitationExpired
	lapsedList, err := ListOrganizationInvitations(org.ID, &expired)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(lapsedList) != 1 || lapsedList[0].ID != lapsed.ID {
		t.Fatalf("expired listing = %+v, want the lapsed invitation", lapsedList)
	}
	if lapsedList[0].Status != InvitationExpired {
		t.Errorf("listed status = %s, want %s", lapsedList[0].Status, InvitationExpired)
	}
}

func TestResendInvitation(t *testing.T) {
	setupTestDB(t)
	setTime := freezeTime(t, testEpoch)
	org, staff := createTestOrg(t, "northside")
	provider, _ := createTestProvider(t, "Dr Chen", "1234567890")
	inv := mustCreateInvitation(t, org, staff, provider)

	// Still actionable - no second invitation for the pair
	if _, err := ResendInvitation(inv.ID, org.ID, staff.ID); !errors.Is(err, ErrDuplicateInvitation) {
		t.Errorf("resend while actionable error = %v, want ErrDuplicateInvitation", err)
	}
	// Another organization cannot even see the invitation
	if _, err := ResendInvitation(inv.ID, org.ID+1, staff.ID); !errors.Is(err, ErrInvitationNotFound) {
		t.Errorf("foreign-org resend error = %v, want ErrInvitationNotFound", err)
	}

	setTime(time.Unix(inv.ExpiresAt, 0).Add(time.Hour))
	fresh, err := ResendInvitation(inv.ID, org.ID, staff.ID)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if fresh.Token == inv.Token {
		t.Error("resend must issue a fresh token")
	}
	if !fresh.IsActionable(TimeNow()) {
		t.Error("resent invitation is not actionable")
	}
}

package models

import (
	"errors"
	"time"

	"carelink/config"
	"carelink/db"
	"carelink/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvitationStatus string

const (
	InvitationPending        InvitationStatus = "pending"
	InvitationAccepted       InvitationStatus = "accepted"
	InvitationRejected       InvitationStatus = "rejected"
	InvitationCancelled      InvitationStatus = "cancelled"
	InvitationExpired        InvitationStatus = "expired"
	InvitationDeliveryFailed InvitationStatus = "delivery_failed"
)

const (
	InviteActionAccept = "accept"
	InviteActionReject = "reject"
)

type Invitation struct {
	ID              uint64 `gorm:"primaryKey"`
	CreatedAt       int64
	UpdatedAt       int64
	Token           string       `gorm:"type:varchar(120);index:uniq_invite_token,unique"`
	OrganizationID  uint64       `gorm:"not null;index"`
	Organization    Organization `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ProviderID      *uint64      `gorm:"index"` // nil until a provider account is attached
	Provider        *Provider    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Email           string       `gorm:"type:varchar(150);index"`
	InvitedByID     uint64
	InvitedBy       User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Message         string           `gorm:"type:varchar(500)"`
	ExpiresAt       int64            `gorm:"not null"`
	Status          InvitationStatus `gorm:"type:varchar(20);not null;index"`
	RejectionReason string           `gorm:"type:varchar(500)"`
}

// EffectiveStatus is what every read path must act on: a pending invitation
// past its expiry is expired, even while the stored row still says pending.
func (inv *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if inv.Status == InvitationPending && now.Unix() >= inv.ExpiresAt {
		return InvitationExpired
	}
	return inv.Status
}

func (inv *Invitation) IsActionable(now time.Time) bool {
	return inv.Status == InvitationPending && now.Unix() < inv.ExpiresAt
}

// actionableScope is the one shared predicate behind "pending and actionable"
// listings and the pending-count badge.
func actionableScope(tx *gorm.DB, now time.Time) *gorm.DB {
	return tx.Where("status = ? AND expires_at > ?", InvitationPending, now.Unix())
}

// CreateInvitation issues a new invitation from an organization to a provider,
// addressed either by provider ID or by e-mail. At most one actionable
// invitation may exist per pair; the check runs inside the same transaction
// as the insert.
func CreateInvitation(orgID uint64, providerID *uint64, email, message string, invitedByID uint64) (inv Invitation, err error) {
	now := TimeNow()
	inv = Invitation{
		Token:          utils.Rand16BytesToBase62(),
		OrganizationID: orgID,
		ProviderID:     providerID,
		Email:          email,
		InvitedByID:    invitedByID,
		Message:        message,
		Status:         InvitationPending,
		ExpiresAt:      now.Unix() + int64(config.INVITE_EXPIRY_DAYS)*86400,
	}
	err = db.Instance.Transaction(func(tx *gorm.DB) error {
		// Locking read: on MySQL the gap lock serializes concurrent
		// creates for the same pair, so both cannot count zero and
		// insert. SQLite has no row locks and single-writes anyway.
		query := actionableScope(tx.Model(&Invitation{}).Clauses(clause.Locking{Strength: "UPDATE"}), now).
			Where("organization_id = ?", orgID)
		if providerID != nil {
			query = query.Where("provider_id = ?", *providerID)
		} else {
			query = query.Where("email = ?", email)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateInvitation
		}
		return tx.Create(&inv).Error
	})
	return
}

// RespondToInvitation runs the accept/reject transition. The invitation flip
// and the connection creation are one transaction; the status update is
// guarded with a compare-and-set so a concurrent responder loses cleanly
// with ErrAlreadyResponded instead of producing a second connection.
// responderUserID attaches the accepting provider on invitations that were
// addressed by e-mail only; it may be 0 for token-only (public page) responds.
func RespondToInvitation(token, action, rejectionReason string, responderUserID uint64) (inv Invitation, conn *Connection, err error) {
	if action != InviteActionAccept && action != InviteActionReject {
		return inv, nil, ErrUnknownAction
	}
	result := db.Instance.First(&inv, "token = ?", token)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return inv, nil, ErrInvitationNotFound
	}
	if result.Error != nil {
		return inv, nil, result.Error
	}
	now := TimeNow()
	if expired, err := lazyExpire(&inv, now); expired || err != nil {
		if err != nil {
			return inv, nil, err
		}
		return inv, nil, ErrInvitationExpired
	}
	if inv.Status == InvitationAccepted || inv.Status == InvitationRejected {
		return inv, nil, ErrAlreadyResponded
	}
	if inv.Status != InvitationPending {
		return inv, nil, &InvalidTransitionError{Entity: "invitation", From: string(inv.Status), Action: action}
	}
	err = db.Instance.Transaction(func(tx *gorm.DB) error {
		providerID, perr := resolveProvider(tx, &inv, responderUserID)
		if action == InviteActionAccept && perr != nil {
			return perr
		}
		newStatus := InvitationAccepted
		updates := map[string]interface{}{"status": newStatus}
		if providerID != 0 {
			updates["provider_id"] = providerID
		}
		if action == InviteActionReject {
			newStatus = InvitationRejected
			updates["status"] = newStatus
			updates["rejection_reason"] = rejectionReason
		}
		// Compare-and-set: the pending + unexpired precondition is
		// re-verified here so a concurrent responder loses cleanly
		res := tx.Model(&Invitation{}).
			Where("id = ? AND status = ? AND expires_at > ?", inv.ID, InvitationPending, now.Unix()).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyResponded
		}
		inv.Status = newStatus
		inv.RejectionReason = rejectionReason
		if providerID != 0 {
			inv.ProviderID = &providerID
		}
		if action == InviteActionAccept {
			c, err := establishConnection(tx, &inv, providerID, now)
			if err != nil {
				return err
			}
			conn = c
		}
		return nil
	})
	if err != nil {
		conn = nil
	}
	return
}

// lazyExpire persists the expired status a read path has just computed for a
// lapsed pending invitation. Kept outside the respond/cancel transactions so
// the flip survives the operation failing.
func lazyExpire(inv *Invitation, now time.Time) (bool, error) {
	if inv.Status != InvitationPending || now.Unix() < inv.ExpiresAt {
		return false, nil
	}
	err := db.Instance.Model(&Invitation{}).
		Where("id = ? AND status = ?", inv.ID, InvitationPending).
		Update("status", InvitationExpired).Error
	inv.Status = InvitationExpired
	return true, err
}

// resolveProvider picks the provider an accept would connect: the invitation's
// own target, the logged-in responder, or the account registered under the
// invited e-mail address.
func resolveProvider(tx *gorm.DB, inv *Invitation, responderUserID uint64) (uint64, error) {
	if inv.ProviderID != nil {
		return *inv.ProviderID, nil
	}
	if responderUserID != 0 {
		var p Provider
		if err := tx.First(&p, "user_id = ?", responderUserID).Error; err == nil {
			return p.ID, nil
		}
	}
	if inv.Email != "" {
		var p Provider
		err := tx.Joins("join users on users.id = providers.user_id").
			Where("users.email = ?", inv.Email).
			First(&p).Error
		if err == nil {
			return p.ID, nil
		}
	}
	return 0, ErrNoProviderAccount
}

// CancelInvitation is the organization-side withdrawal; permitted only while
// the invitation is still actionable.
func CancelInvitation(id uint64) (inv Invitation, err error) {
	result := db.Instance.First(&inv, id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return inv, ErrInvitationNotFound
	}
	if result.Error != nil {
		return inv, result.Error
	}
	now := TimeNow()
	if expired, err := lazyExpire(&inv, now); expired || err != nil {
		if err != nil {
			return inv, err
		}
		return inv, ErrInvitationExpired
	}
	if inv.Status != InvitationPending {
		return inv, &InvalidTransitionError{Entity: "invitation", From: string(inv.Status), Action: "cancel"}
	}
	res := db.Instance.Model(&Invitation{}).
		Where("id = ? AND status = ? AND expires_at > ?", inv.ID, InvitationPending, now.Unix()).
		Update("status", InvitationCancelled)
	if res.Error != nil {
		return inv, res.Error
	}
	if res.RowsAffected == 0 {
		return inv, ErrAlreadyResponded
	}
	inv.Status = InvitationCancelled
	return inv, nil
}

// ResendInvitation issues a brand-new invitation for the same pair once the
// previous one is terminal - the remedy for an expired or undelivered invite.
// An invitation belonging to a different organization is reported as not
// found, never revealed.
func ResendInvitation(id, orgID, invitedByID uint64) (Invitation, error) {
	var prev Invitation
	result := db.Instance.First(&prev, id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return Invitation{}, ErrInvitationNotFound
	}
	if result.Error != nil {
		return Invitation{}, result.Error
	}
	if prev.OrganizationID != orgID {
		return Invitation{}, ErrInvitationNotFound
	}
	if prev.IsActionable(TimeNow()) {
		return Invitation{}, ErrDuplicateInvitation
	}
	return CreateInvitation(prev.OrganizationID, prev.ProviderID, prev.Email, prev.Message, invitedByID)
}

// MarkInvitationDeliveryFailed records that the invite notification never
// reached the provider. Only a still-pending invitation is flipped.
func MarkInvitationDeliveryFailed(id uint64) error {
	return db.Instance.Model(&Invitation{}).
		Where("id = ? AND status = ?", id, InvitationPending).
		Update("status", InvitationDeliveryFailed).Error
}

func InvitationByToken(token string) (inv Invitation, err error) {
	result := db.Instance.Preload("Organization").First(&inv, "token = ?", token)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return inv, ErrInvitationNotFound
	}
	if result.Error != nil {
		return inv, result.Error
	}
	// Read paths act on the effective status
	inv.Status = inv.EffectiveStatus(TimeNow())
	return inv, nil
}

func InvitationByID(id uint64) (inv Invitation, err error) {
	result := db.Instance.First(&inv, id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return inv, ErrInvitationNotFound
	}
	if result.Error != nil {
		return inv, result.Error
	}
	inv.Status = inv.EffectiveStatus(TimeNow())
	return inv, nil
}

// ListOrganizationInvitations returns an organization's invitations, newest
// first, optionally filtered by status. The filter is applied against the
// effective status, so "pending" never includes lapsed invitations and
// "expired" includes rows whose stored status lags behind the clock.
func ListOrganizationInvitations(orgID uint64, status *InvitationStatus) ([]Invitation, error) {
	query := db.Instance.Where("organization_id = ?", orgID)
	return listInvitations(query, status)
}

// ListProviderInvitations returns the invitations addressed to a provider,
// either directly or via the account's e-mail.
func ListProviderInvitations(providerID uint64, email string, status *InvitationStatus) ([]Invitation, error) {
	query := db.Instance.Where("provider_id = ? OR (provider_id IS NULL AND email = ?)", providerID, email)
	return listInvitations(query, status)
}

func listInvitations(query *gorm.DB, status *InvitationStatus) ([]Invitation, error) {
	now := TimeNow()
	if status != nil {
		switch *status {
		case InvitationPending:
			query = actionableScope(query, now)
		case InvitationExpired:
			query = query.Where("status = ? OR (status = ? AND expires_at <= ?)",
				InvitationExpired, InvitationPending, now.Unix())
		default:
			query = query.Where("status = ?", *status)
		}
	}
	invitations := []Invitation{}
	if err := query.Order("created_at DESC").Find(&invitations).Error; err != nil {
		return nil, err
	}
	for i := range invitations {
		invitations[i].Status = invitations[i].EffectiveStatus(now)
	}
	return invitations, nil
}

// PendingInvitationCount feeds the dashboard badge; it uses the same
// actionable predicate as the pending listing.
func PendingInvitationCount(orgID uint64) (count int64, err error) {
	err = actionableScope(db.Instance.Model(&Invitation{}), TimeNow()).
		Where("organization_id = ?", orgID).
		Count(&count).Error
	return
}

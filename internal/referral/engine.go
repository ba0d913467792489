package referral

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/aqqutelabs/gotoken-ledger/internal/config"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/account"
	ledgerdomain "github.com/aqqutelabs/gotoken-ledger/internal/domain/ledger"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/notification"
	"github.com/aqqutelabs/gotoken-ledger/internal/domain/shared"
	"github.com/aqqutelabs/gotoken-ledger/internal/ledger"
	notify "github.com/aqqutelabs/gotoken-ledger/internal/notification"
	"github.com/aqqutelabs/gotoken-ledger/internal/platform/persistence"
)

// Info summarizes an account's referral standing
type Info struct {
	ReferralCode  string          `json:"referral_code"`
	ReferralCount int             `json:"referral_count"`
	VerifiedCount int64           `json:"verified_count"`
	BonusEarned   decimal.Decimal `json:"bonus_earned"`
	BonusPerJoin  decimal.Decimal `json:"bonus_per_join"`
}

// Engine pays referral bonuses. It is the only producer of
// referral_bonus ledger entries; each referred account yields at most
// one bonus for its referrer.
type Engine struct {
	db       persistence.TxRunner
	accounts account.Repository
	entries  ledgerdomain.Repository
	ledger   *ledger.Service
	sink     notify.Sink
	bonus    decimal.Decimal
	logger   *slog.Logger
}

// NewEngine creates the referral engine
func NewEngine(logger *slog.Logger, cfg *config.ReferralConfig, db persistence.TxRunner, accounts account.Repository, entries ledgerdomain.Repository, ledgerSvc *ledger.Service, sink notify.Sink) *Engine {
	return &Engine{
		db:       db,
		accounts: accounts,
		entries:  entries,
		ledger:   ledgerSvc,
		sink:     sink,
		bonus:    cfg.BonusToken,
		logger:   logger,
	}
}

// AwardBonus credits the referrer of the given account. A repeated call
// for the same referred account logs a warning and changes nothing.
func (e *Engine) AwardBonus(ctx context.Context, referredAccountID uuid.UUID) error {
	referred, err := e.accounts.GetByID(ctx, referredAccountID)
	if err != nil {
		return err
	}
	if referred.ReferredBy == nil {
		e.logger.Debug("Account has no referrer", "account_id", referredAccountID.String())
		return nil
	}
	referrerID := *referred.ReferredBy

	awarded := false
	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accounts := e.accounts.WithTx(tx)
		entries := e.entries.WithTx(tx)

		// The duplicate check only holds under the referrer's row lock;
		// concurrent triggers for the same referred account serialize here
		if _, txErr := accounts.LockForUpdate(ctx, referrerID); txErr != nil {
			return txErr
		}

		exists, txErr := entries.ExistsByKindAndRelated(ctx, referrerID, shared.EntryKindReferralBonus, referredAccountID)
		if txErr != nil {
			return txErr
		}
		if exists {
			e.logger.Warn("Skipping duplicate referral bonus",
				"referrer_id", referrerID.String(),
				"referred_id", referredAccountID.String())
			return nil
		}

		relatedID := referredAccountID
		if _, txErr := e.ledger.CreditTx(ctx, tx, ledger.CreditParams{
			AccountID:   referrerID,
			Kind:        shared.EntryKindReferralBonus,
			Amount:      e.bonus,
			RelatedID:   &relatedID,
			RelatedType: shared.RelatedEntityAccount,
			Details: &ledgerdomain.Details{
				Description: fmt.Sprintf("Referral bonus for %s joining", referred.Username),
			},
		}); txErr != nil {
			return txErr
		}
		if txErr := accounts.AddReferralStats(ctx, referrerID, e.bonus); txErr != nil {
			return txErr
		}
		awarded = true
		return nil
	})
	if err != nil {
		return err
	}
	if !awarded {
		return nil
	}

	e.logger.Info("Awarded referral bonus",
		"referrer_id", referrerID.String(),
		"referred_id", referredAccountID.String(),
		"bonus", e.bonus.String())

	e.sink.Notify(ctx, referrerID, notification.EventReferralJoined,
		fmt.Sprintf("%s joined with your referral code. You earned %s GoToken.", referred.Username, e.bonus.String()),
		map[string]any{"referred_account_id": referredAccountID.String()})
	return nil
}

// MarkVerified records email verification for an account and pays the
// referrer on the first unverified to verified transition. Repeated
// verification changes nothing.
func (e *Engine) MarkVerified(ctx context.Context, accountID uuid.UUID) error {
	acct, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !acct.MarkEmailVerified() {
		e.logger.Debug("Account already verified", "account_id", accountID.String())
		return nil
	}

	if err := e.accounts.Update(ctx, acct); err != nil {
		return err
	}

	return e.AwardBonus(ctx, accountID)
}

// GetInfo returns the referral summary for an account
func (e *Engine) GetInfo(ctx context.Context, accountID uuid.UUID) (*Info, error) {
	acct, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	verified, err := e.accounts.CountReferred(ctx, accountID, true)
	if err != nil {
		return nil, err
	}

	return &Info{
		ReferralCode:  acct.ReferralCode,
		ReferralCount: acct.ReferralCount,
		VerifiedCount: verified,
		BonusEarned:   acct.BonusEarned,
		BonusPerJoin:  e.bonus,
	}, nil
}

package watchers

import (
	"context"
	"fmt"

	"github.com/dummy-library/inventory-core/internal/store"
)

// MilestoneRecipient receives the one-shot MILESTONE simulated email.
const MilestoneRecipient = "management@dummy-library.com"

// MilestoneThresholdCents is the wallet balance that triggers the one-shot
// milestone email (spec: "$2000").
const MilestoneThresholdCents = 200_000

// CheckMilestone flips LibraryWallet.milestoneReached the first time the
// balance crosses MilestoneThresholdCents, emitting exactly one email/event
// pair. Once reached, the flag never resets.
func CheckMilestone(ctx context.Context, tx store.Tx) error {
	wallet, err := tx.GetWallet(ctx)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	if wallet.MilestoneReached {
		return nil
	}

	// tx.WalletBalance is scoped to this caller's own transaction (its own
	// *sql.Tx on Postgres); it must run directly here, never behind a
	// process-wide cache or singleflight key, or concurrent transactions
	// would observe each other's balances instead of their own.
	balance, err := tx.WalletBalance(ctx)
	if err != nil {
		return fmt.Errorf("compute wallet balance: %w", err)
	}
	if balance <= MilestoneThresholdCents {
		return nil
	}

	if err := tx.SetMilestoneReached(ctx); err != nil {
		return fmt.Errorf("set milestone reached: %w", err)
	}

	if err := tx.AppendEmail(ctx, store.SimulatedEmail{
		Recipient: MilestoneRecipient,
		Subject:   "Library wallet crossed $2000",
		Body:      "The library's wallet balance has crossed $2000 for the first time.",
		Type:      store.EmailMilestone,
		DedupeKey: "MILESTONE:2000",
	}); err != nil {
		return fmt.Errorf("append milestone email: %w", err)
	}

	if err := tx.AppendEvent(ctx, store.Event{
		Type:      "MILESTONE_EMAIL",
		DedupeKey: "MILESTONE_EMAIL:2000",
	}); err != nil {
		return fmt.Errorf("append milestone event: %w", err)
	}

	return nil
}

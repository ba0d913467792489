package shared

// TokenCurrency is the code of the internal points currency. All account
// balances are denominated in it; fiat amounts are derived at event time.
const TokenCurrency = "GoToken"

// EntryKind defines the balance-affecting event categories
type EntryKind string

const (
	EntryKindReward        EntryKind = "reward"
	EntryKindReferralBonus EntryKind = "referral_bonus"
	EntryKindSwap          EntryKind = "swap"
	EntryKindSend          EntryKind = "send"
	EntryKindWithdrawal    EntryKind = "withdrawal"
	EntryKindReceive       EntryKind = "receive"
)

// EntryStatus defines ledger entry lifecycle states
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusCompleted || s == EntryStatusFailed || s == EntryStatusCancelled
}

// Channel identifies the rail a withdrawal or send moves funds over
type Channel string

const (
	ChannelBank        Channel = "bank"
	ChannelMobileMoney Channel = "mobile_money"
	ChannelCrypto      Channel = "crypto"
	ChannelScanToPay   Channel = "scan_to_pay"
)

// Internal reports whether the channel resolves to another account inside
// this system rather than an external payment rail
func (c Channel) Internal() bool {
	return c == ChannelScanToPay
}

// RelatedEntityType categorizes the entity a ledger entry references for audit
type RelatedEntityType string

const (
	RelatedEntityTask    RelatedEntityType = "task"
	RelatedEntityAccount RelatedEntityType = "account"
	RelatedEntityEntry   RelatedEntityType = "entry"
	RelatedEntityLink    RelatedEntityType = "payment_link"
)

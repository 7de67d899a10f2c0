package session

// PendingAction is a typed cross-screen handoff queued on the identity
// context: one screen records an intent, the destination screen takes it.
// At most one action is queued at a time, and taking it clears it.
type PendingActionKind uint8

const (
	PendingNone PendingActionKind = iota
	// PendingOpenChat: open the conversation with PartnerID after
	// navigation settles.
	PendingOpenChat
	// PendingComposePost: open the post composer.
	PendingComposePost
)

type PendingAction struct {
	Kind      PendingActionKind
	PartnerID string
}

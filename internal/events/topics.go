package events

// Topic constants for domain events emitted by the settlement core.
const (
	TopicOrderPaid         = "order.paid"
	TopicSettlementCreated = "settlement.created"
	TopicSettlementPaid    = "settlement.paid"
	TopicSettlementFailed  = "settlement.failed"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicOrderPaid,
		TopicSettlementCreated,
		TopicSettlementPaid,
		TopicSettlementFailed,
	}
}

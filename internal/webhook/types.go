package webhook

// WebhookArgs identifies a settled transaction to notify webhook endpoints
// about. Re-keyed on TransactionID (rather than the teacher's generic
// EventID/LedgerID pair) since this domain's notifiable unit is a
// transactions row, not a row in a generic events table.
type WebhookArgs struct {
	TransactionID string `json:"transaction_id"`
}

func (WebhookArgs) Kind() string {
	return "webhook_delivery"
}

// WebhookEndpoint is bank-wide rather than scoped to a tenant: BankAccount
// and Ledger aggregates are not owned by a dashboard tenant (they key off
// UserID/Currency), so endpoint scoping by tenant would require threading a
// tenant_id through transactions/journal_lines for no benefit.
type WebhookEndpoint struct {
	ID, URL, Secret string
}

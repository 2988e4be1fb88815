package types

// TxCallbacks are invoked by the transaction monitor. OnUpdate fires on every
// observed transition including the initial pending announcement; exactly one
// of OnConfirmed/OnFailed fires, and nothing fires after cancellation.
// Any field may be nil.
type TxCallbacks struct {
	OnUpdate    func(status TxStatus)
	OnConfirmed func(tx *Transaction)
	OnFailed    func(tx *Transaction, err error)
}

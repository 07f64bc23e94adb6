package engine

const (
	operationDeposit    = "deposit"
	operationWithdrawal = "withdrawal"
	operationDispute    = "dispute"
	operationResolve    = "resolve"
	operationChargeback = "chargeback"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)

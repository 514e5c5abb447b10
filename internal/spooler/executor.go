package spooler

import "context"

// Executor performs the transport- and transfer-level work one Operation
// names. Implemented by the sync engine, which has access to the session
// table, the transport, and the chunk transfer engine.
type Executor interface {
	Execute(ctx context.Context, op Operation) error
}

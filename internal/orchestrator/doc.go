// Package orchestrator is the conversational core of frontdesk. The
// Dispatcher receives inbound messages, routes new requests through the
// intent classifier, and drives each conversation's task through its agent's
// phase plan: confirmation, execution, review checkpoints with revision and
// rollback, and final cost accounting.
//
// Messages for the same conversation are processed strictly in arrival
// order; messages for different conversations proceed independently.
package orchestrator

// Package storage define os contratos transacionais compartilhados pelos repositórios.
//
// Os repositórios recebem um Tx explícito em todo método que lê ou altera
// estado dentro da transação do chamador. Métodos sem Tx rodam em uma
// transação implícita própria.
package storage

import "context"

// Tx interface para transações
type Tx interface {
	Commit() error
	Rollback() error
}

// TxManager abre transações no armazenamento subjacente
type TxManager interface {
	BeginTx(ctx context.Context) (Tx, error)
}

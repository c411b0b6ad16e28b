package ports

import "context"

// UnitOfWork управляет границей транзакции БД.
//
// Execute начинает транзакцию, внедряет её в context и выполняет fn.
// nil от fn - COMMIT, ошибка - ROLLBACK. Репозитории внутри fn обязаны
// использовать переданный txCtx.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(txCtx context.Context) error) error
}

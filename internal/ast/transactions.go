package ast

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/core/ecs"
)

// Transaction records one user change to the tree.
type Transaction struct {
	Id      uuid.UUID
	Ids     []Id
	Started time.Time
}

// STransaction tracks the transaction being recorded. Only one may be
// active per tree.
type STransaction struct {
	Active  bool
	Current Transaction
	Count   uint64
}

func (s *STransaction) CloneStatic() any {
	c := *s
	c.Current.Ids = append([]Id(nil), s.Current.Ids...)
	return &c
}

// PreChange opens a transaction over ids. Ids and all their ancestors are
// tagged CChanged and those bound to a file CFileDirty. Fails if another
// transaction is active.
func PreChange(acc *ecs.Access, ids []Id) bool {
	tx := ecs.GetOrSetStatic[STransaction](acc.Context())
	if tx.Active {
		acc.Log().Error("tried to record a transaction while another is active",
			zap.Stringer("active", tx.Current.Id),
		)
		return false
	}
	tx.Active = true
	tx.Current = Transaction{
		Id:      uuid.New(),
		Ids:     append([]Id(nil), ids...),
		Started: time.Now(),
	}
	tx.Count++

	changed := append(GetAllParents(acc, ids), ids...)
	ecs.AddN(acc, changed, CChanged{})
	changed = ecs.ExcludeIfNot(acc, changed, ecs.KindOf[CFileRef]())
	if len(changed) > 0 {
		ecs.AddN(acc, changed, CFileDirty{})
	}
	return true
}

// PostChange closes the active transaction.
func PostChange(acc *ecs.Access) bool {
	tx := ecs.GetOrSetStatic[STransaction](acc.Context())
	if !tx.Active {
		acc.Log().Error("cannot finish a transaction while none is recorded")
		return false
	}
	acc.Log().Debug("transaction recorded",
		zap.Stringer("tx", tx.Current.Id),
		zap.Int("ids", len(tx.Current.Ids)),
		zap.Duration("took", time.Since(tx.Current.Started)),
	)
	tx.Active = false
	tx.Current = Transaction{}
	return true
}

// ScopedChange opens a transaction over ids and returns the function
// closing it. The closer is a no-op when the transaction failed to open.
//
//	defer ast.ScopedChange(acc, ids)()
func ScopedChange(acc *ecs.Access, ids []Id) func() {
	if !PreChange(acc, ids) {
		return func() {}
	}
	return func() { PostChange(acc) }
}

// Package commit groups store mutations into bounded transactions.
//
// A Manager owns the open transaction of one writer. Callers perform a
// mutation on Manager.Tx and then call Tick; the manager commits every
// bufferSize ticks and once more on Close for the remainder:
//
//	m, err := commit.Open(ctx, store, 1000)
//	if err != nil {
//		return err
//	}
//	defer m.Abort()
//	for _, id := range ids {
//		if _, err := m.Tx().AddVertex(ctx, id); err != nil {
//			return err
//		}
//		if err := m.Tick(ctx); err != nil {
//			return err
//		}
//	}
//	return m.Close(ctx)
//
// A failed commit is rolled back and never retried. The manager stays broken
// and returns the same *Error from every later call.
package commit

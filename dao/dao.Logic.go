package dao

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/earthsight/oseo-server/events"
)

// txFunc runs inside a transaction. Returned events are published only after
// the transaction commits.
type txFunc func(tx *sqlx.Tx) ([]events.Event, error)

// withTransaction runs fn in a transaction at the database's default
// isolation level, retrying from scratch when the database reports a
// deadlock. The name is used for log correlation.
func (dao *DataAccessLayer) withTransaction(name string, fn txFunc) error {
	return dao.withIsolatedTransaction(name, sql.LevelDefault, fn)
}

// withIsolatedTransaction is withTransaction at an explicit isolation level.
// Order creation runs serializable so its read-validate-insert sequence sees
// a stable view; the serialization failures this produces surface as
// deadlocks and go through the same retry loop.
func (dao *DataAccessLayer) withIsolatedTransaction(name string, level sql.IsolationLevel, fn txFunc) error {
	logger := dao.GetLogger()

	deadlockRetryCounter := dao.DeadlockRetryCounter
	deadlockMessage := "Deadlock"

	for {
		tx, err := dao.MetadataDB.BeginTxx(context.Background(), &sql.TxOptions{Isolation: level})
		if err != nil {
			logger.Error("could not begin transaction", zap.String("operation", name), zap.Error(err))
			return err
		}
		pending, err := fn(tx)
		if err == nil {
			if err = tx.Commit(); err == nil {
				for _, e := range pending {
					dao.Publisher.Publish(e)
				}
				return nil
			}
		}
		tx.Rollback()
		if deadlockRetryCounter > 0 && strings.Contains(err.Error(), deadlockMessage) {
			logger.Info("deadlock, restarting transaction",
				zap.String("operation", name),
				zap.Int64("deadlockRetryCounter", deadlockRetryCounter))
			deadlockRetryCounter--
			time.Sleep(time.Duration(dao.DeadlockRetryDelay) * time.Millisecond)
			continue
		}
		logger.Error("error in transaction", zap.String("operation", name), zap.Error(err))
		return err
	}
}

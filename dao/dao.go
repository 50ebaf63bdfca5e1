package dao

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/earthsight/oseo-server/config"
	"github.com/earthsight/oseo-server/events"
	"github.com/earthsight/oseo-server/metadata/models"
)

// SchemaVersion marks compatibility with previously created databases.
var SchemaVersion = "20260115"

// DAO defines the contract the application has with the database.
type DAO interface {
	AckBatch(batchID int64) error
	ApproveOrder(orderID int64) (models.Order, error)
	CancelOrder(orderID int64) (models.Order, error)
	CreateOrder(order *models.Order) (models.Order, error)
	CreateOseoFile(file *models.OseoFile) (models.OseoFile, error)
	CreateUser(user models.OseoUser) (models.OseoUser, error)
	DequeueBatch(leaseDuration time.Duration) (*models.Batch, error)
	EnqueueBatch(batchID int64) error
	ExpireFiles(asOf time.Time) ([]models.OseoFile, error)
	GetDBState() (models.DBState, error)
	GetFileByURL(url string) (models.OseoFile, error)
	GetOrder(orderID int64) (models.Order, error)
	GetUserByName(username string) (models.OseoUser, error)
	PurgeFailedOrders(cutoff time.Time) (int64, error)
	RecordDownload(fileID int64) error
	SearchOrders(filter OrderFilter) ([]models.Order, error)
	SetCancelRequested(orderID int64) error
	SetLastDescribeResultAccessRequest(orderID int64, at time.Time) error
	TerminateUnavailableOrders(cutoff time.Time) (int64, error)
	UpdateOrderItemStatus(itemID int64, status models.Status, info models.NullString) error
	UpdateOrderStatus(orderID int64, status models.Status, info models.NullString) error
	GetLogger() *zap.Logger
}

// OrderFilter narrows SearchOrders results. Zero-valued fields are ignored.
type OrderFilter struct {
	// UserID restricts results to the owning user. Required.
	UserID int64
	// LastUpdate keeps orders whose status changed at or after this time.
	LastUpdate models.NullTime
	// LastUpdateEnd keeps orders whose status changed at or before this time.
	LastUpdateEnd models.NullTime
	// Reference keeps orders with a matching client reference.
	Reference models.NullString
	// Statuses keeps orders in any of the listed states.
	Statuses []models.Status
}

// DataAccessLayer is a concrete DAO implementation with a true DB connection.
type DataAccessLayer struct {
	// MetadataDB is the connection.
	MetadataDB *sqlx.DB
	// Logger has a default, but can be updated by passing options to constructor.
	Logger *zap.Logger
	// Publisher receives status change events after their transaction commits.
	Publisher events.Publisher
	// DeadlockRetryCounter is how many times to retry a deadlocked transaction.
	DeadlockRetryCounter int64
	// DeadlockRetryDelay is the pause between retries in milliseconds.
	DeadlockRetryDelay int64
}

// Opt sets an option on DataAccessLayer.
type Opt func(*DataAccessLayer)

// WithLogger sets a custom logger on DataAccessLayer.
func WithLogger(logger *zap.Logger) Opt {
	return func(d *DataAccessLayer) {
		d.Logger = logger
	}
}

// WithPublisher sets the event publisher on DataAccessLayer.
func WithPublisher(publisher events.Publisher) Opt {
	return func(d *DataAccessLayer) {
		d.Publisher = publisher
	}
}

// NewDataAccessLayer constructs a new DataAccessLayer with defaults and
// options. A string database identifier is also returned.
func NewDataAccessLayer(conf config.DatabaseConfiguration, opts ...Opt) (*DataAccessLayer, string, error) {

	db, err := conf.GetDatabaseHandle()
	if err != nil {
		return nil, "", err
	}
	d := DataAccessLayer{MetadataDB: db}

	defaults(&d)
	for _, opt := range opts {
		opt(&d)
	}

	err = pingDB(&d)
	if err != nil {
		return nil, "", fmt.Errorf("could not ping database: %v", err)
	}

	state, err := d.GetDBState()
	if err != nil {
		return nil, "", fmt.Errorf("getting db state failed: %v", err)
	}

	return &d, state.Identifier, nil
}

func defaults(d *DataAccessLayer) {
	d.Logger = config.RootLogger.With(zap.String("node", config.NodeID))
	d.Publisher = events.NullPublisher{}
	d.DeadlockRetryCounter = 5
	d.DeadlockRetryDelay = 250
}

// GetLogger is a logger, probably for this session
func (d *DataAccessLayer) GetLogger() *zap.Logger {
	return d.Logger
}

func daoCompileCheck() DAO {
	// function exists to make compiler complain when interface changes.
	return &DataAccessLayer{}
}

func pingDB(d *DataAccessLayer) error {

	logger := d.GetLogger()

	attempts := 0
	max := 20
	sleep := 3

	var err error

	for attempts < max {

		attempts++

		err = d.MetadataDB.Ping()
		if err == nil {
			_, err = d.GetDBState()
			if err == nil {
				return nil
			}
			logger.Info("db available but schema not populated")
		} else {
			logger.Info("db sleep for retry")
		}
		time.Sleep(time.Duration(sleep) * time.Second)

	}
	return err
}

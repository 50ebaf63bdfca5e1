package dao

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/earthsight/oseo-server/metadata/models"
)

// FakeDAO is suitable for tests. It keeps orders, users, files and the batch
// queue in memory and mirrors the lifecycle rules of the real DAO. Setting
// Err makes every method fail with it.
type FakeDAO struct {
	mu     sync.Mutex
	Err    error
	Logger *zap.Logger

	users  map[string]models.OseoUser
	orders map[int64]*models.Order
	queue  []int64
	nextID int64
}

// NewFakeDAO constructs an empty FakeDAO.
func NewFakeDAO() *FakeDAO {
	return &FakeDAO{
		Logger: zap.NewNop(),
		users:  make(map[string]models.OseoUser),
		orders: make(map[int64]*models.Order),
	}
}

// GetLogger for FakeDAO.
func (fake *FakeDAO) GetLogger() *zap.Logger {
	return fake.Logger
}

// GetDBState for FakeDAO.
func (fake *FakeDAO) GetDBState() (models.DBState, error) {
	return models.DBState{SchemaVersion: SchemaVersion, Identifier: "fake"}, fake.Err
}

func (fake *FakeDAO) id() int64 {
	fake.nextID++
	return fake.nextID
}

// GetUserByName for FakeDAO.
func (fake *FakeDAO) GetUserByName(username string) (models.OseoUser, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return models.OseoUser{}, fake.Err
	}
	user, ok := fake.users[username]
	if !ok {
		return models.OseoUser{}, ErrNoRows
	}
	return user, nil
}

// CreateUser for FakeDAO.
func (fake *FakeDAO) CreateUser(user models.OseoUser) (models.OseoUser, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return models.OseoUser{}, fake.Err
	}
	if user.Username == "" {
		return models.OseoUser{}, ErrMissingUserID
	}
	if existing, ok := fake.users[user.Username]; ok {
		return existing, nil
	}
	user.ID = fake.id()
	fake.users[user.Username] = user
	return user, nil
}

// CreateOrder for FakeDAO.
func (fake *FakeDAO) CreateOrder(order *models.Order) (models.Order, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return models.Order{}, fake.Err
	}
	if order.UserID == 0 {
		return models.Order{}, ErrMissingUserID
	}
	if !order.OrderType.Valid() {
		return models.Order{}, ErrMissingOrderType
	}
	if len(order.Items) == 0 {
		return models.Order{}, ErrNoItems
	}
	now := time.Now().UTC()
	stored := *order
	stored.ID = fake.id()
	if stored.Status == "" {
		stored.Status = models.StatusSubmitted
	}
	stored.CreatedOn = now
	stored.StatusChangedOn = now
	stored.Items = append([]models.OrderItem(nil), order.Items...)
	for i := range stored.Items {
		item := &stored.Items[i]
		item.ID = fake.id()
		item.OrderID = stored.ID
		if item.Status == "" {
			item.Status = stored.Status
		}
		item.CreatedOn = now
		item.StatusChangedOn = now
	}
	if stored.OrderType == models.OrderTypeProduct || stored.OrderType == models.OrderTypeMassive {
		batchSize := len(stored.Items)
		if stored.OrderType == models.OrderTypeMassive {
			batchSize = massiveBatchSize
		}
		for start := 0; start < len(stored.Items); start += batchSize {
			end := start + batchSize
			if end > len(stored.Items) {
				end = len(stored.Items)
			}
			batch := models.Batch{ID: fake.id(), OrderID: stored.ID, CreatedOn: now}
			for i := start; i < end; i++ {
				stored.Items[i].BatchID = models.ToNullInt64(batch.ID)
			}
			stored.Batches = append(stored.Batches, batch)
			if stored.Status == models.StatusAccepted {
				fake.queue = append(fake.queue, batch.ID)
			}
		}
	}
	fake.orders[stored.ID] = &stored
	return fake.copyOrder(&stored), nil
}

// GetOrder for FakeDAO.
func (fake *FakeDAO) GetOrder(orderID int64) (models.Order, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return models.Order{}, fake.Err
	}
	order, ok := fake.orders[orderID]
	if !ok {
		return models.Order{}, ErrNoRows
	}
	return fake.copyOrder(order), nil
}

// SearchOrders for FakeDAO.
func (fake *FakeDAO) SearchOrders(filter OrderFilter) ([]models.Order, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return nil, fake.Err
	}
	if filter.UserID == 0 {
		return nil, ErrMissingUserID
	}
	var out []models.Order
	for _, order := range fake.orders {
		if order.UserID != filter.UserID {
			continue
		}
		if filter.LastUpdate.Valid && order.StatusChangedOn.Before(filter.LastUpdate.Time) {
			continue
		}
		if filter.LastUpdateEnd.Valid && order.StatusChangedOn.After(filter.LastUpdateEnd.Time) {
			continue
		}
		if filter.Reference.Valid && (!order.Reference.Valid || order.Reference.String != filter.Reference.String) {
			continue
		}
		if len(filter.Statuses) > 0 {
			matched := false
			for _, s := range filter.Statuses {
				if order.Status == s {
					matched = true
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, fake.copyOrder(order))
	}
	return out, nil
}

// UpdateOrderItemStatus for FakeDAO.
func (fake *FakeDAO) UpdateOrderItemStatus(itemID int64, status models.Status, info models.NullString) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return fake.Err
	}
	now := time.Now().UTC()
	for _, order := range fake.orders {
		for i := range order.Items {
			item := &order.Items[i]
			if item.ID != itemID {
				continue
			}
			if item.Status.IsTerminal() || item.Status == status {
				return nil
			}
			fake.applyItemStatus(item, status, info, now)
			fake.rederiveOrderStatus(order, now)
			return nil
		}
	}
	return ErrNoRows
}

// UpdateOrderStatus for FakeDAO.
func (fake *FakeDAO) UpdateOrderStatus(orderID int64, status models.Status, info models.NullString) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return fake.Err
	}
	order, ok := fake.orders[orderID]
	if !ok {
		return ErrNoRows
	}
	if order.Status.IsTerminal() {
		return ErrTerminalOrder
	}
	now := time.Now().UTC()
	for i := range order.Items {
		item := &order.Items[i]
		if item.Status.IsTerminal() || item.Status == status {
			continue
		}
		fake.applyItemStatus(item, status, info, now)
	}
	fake.applyOrderStatus(order, status, info, now)
	return nil
}

// ApproveOrder for FakeDAO.
func (fake *FakeDAO) ApproveOrder(orderID int64) (models.Order, error) {
	fake.mu.Lock()
	if fake.Err != nil {
		fake.mu.Unlock()
		return models.Order{}, fake.Err
	}
	order, ok := fake.orders[orderID]
	if !ok {
		fake.mu.Unlock()
		return models.Order{}, ErrNoRows
	}
	if order.Status != models.StatusSubmitted {
		fake.mu.Unlock()
		return models.Order{}, ErrNotApprovable
	}
	order.Approved = true
	now := time.Now().UTC()
	for i := range order.Items {
		item := &order.Items[i]
		if !item.Status.IsTerminal() {
			fake.applyItemStatus(item, models.StatusAccepted, models.NullString{}, now)
		}
	}
	fake.applyOrderStatus(order, models.StatusAccepted, models.NullString{}, now)
	for _, batch := range order.Batches {
		fake.enqueue(batch.ID)
	}
	fake.mu.Unlock()
	return fake.GetOrder(orderID)
}

// CancelOrder for FakeDAO.
func (fake *FakeDAO) CancelOrder(orderID int64) (models.Order, error) {
	fake.mu.Lock()
	if fake.Err != nil {
		fake.mu.Unlock()
		return models.Order{}, fake.Err
	}
	order, ok := fake.orders[orderID]
	if !ok {
		fake.mu.Unlock()
		return models.Order{}, ErrNoRows
	}
	if order.Status != models.StatusCancelled {
		if order.Status.IsTerminal() {
			fake.mu.Unlock()
			return models.Order{}, ErrTerminalOrder
		}
		order.CancelRequested = true
		inProduction := false
		for i := range order.Items {
			if order.Items[i].Status == models.StatusInProduction {
				inProduction = true
			}
		}
		if !inProduction {
			now := time.Now().UTC()
			for _, batch := range order.Batches {
				fake.removeFromQueue(batch.ID)
			}
			for i := range order.Items {
				item := &order.Items[i]
				if !item.Status.IsTerminal() {
					fake.applyItemStatus(item, models.StatusCancelled, models.NullString{}, now)
				}
			}
			fake.applyOrderStatus(order, models.StatusCancelled, models.NullString{}, now)
		}
	}
	fake.mu.Unlock()
	return fake.GetOrder(orderID)
}

// SetCancelRequested for FakeDAO.
func (fake *FakeDAO) SetCancelRequested(orderID int64) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return fake.Err
	}
	order, ok := fake.orders[orderID]
	if !ok {
		return ErrNoRows
	}
	order.CancelRequested = true
	return nil
}

// SetLastDescribeResultAccessRequest for FakeDAO.
func (fake *FakeDAO) SetLastDescribeResultAccessRequest(orderID int64, at time.Time) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return fake.Err
	}
	order, ok := fake.orders[orderID]
	if !ok {
		return ErrNoRows
	}
	order.LastDescribeResultAccessRequest = models.ToNullTime(at.UTC())
	return nil
}

// CreateOseoFile for FakeDAO.
func (fake *FakeDAO) CreateOseoFile(file *models.OseoFile) (models.OseoFile, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return models.OseoFile{}, fake.Err
	}
	for _, order := range fake.orders {
		for i := range order.Items {
			item := &order.Items[i]
			if item.ID != file.OrderItemID {
				continue
			}
			for f := range item.Files {
				if item.Files[f].URL == file.URL {
					item.Files[f].ExpiresOn = file.ExpiresOn
					item.Files[f].Available = true
					return item.Files[f], nil
				}
			}
			stored := *file
			stored.ID = fake.id()
			stored.CreatedOn = time.Now().UTC()
			stored.Available = true
			item.Files = append(item.Files, stored)
			return stored, nil
		}
	}
	return models.OseoFile{}, ErrNoRows
}

// GetFileByURL for FakeDAO.
func (fake *FakeDAO) GetFileByURL(url string) (models.OseoFile, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return models.OseoFile{}, fake.Err
	}
	for _, order := range fake.orders {
		for i := range order.Items {
			for _, f := range order.Items[i].Files {
				if f.URL == url {
					return f, nil
				}
			}
		}
	}
	return models.OseoFile{}, ErrNoRows
}

// RecordDownload for FakeDAO.
func (fake *FakeDAO) RecordDownload(fileID int64) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return fake.Err
	}
	now := time.Now().UTC()
	for _, order := range fake.orders {
		for i := range order.Items {
			item := &order.Items[i]
			for f := range item.Files {
				if item.Files[f].ID != fileID {
					continue
				}
				item.Files[f].DownloadCount++
				if item.Status != models.StatusCompleted {
					return nil
				}
				for _, other := range item.Files {
					if other.Available && other.DownloadCount == 0 {
						return nil
					}
				}
				fake.applyItemStatus(item, models.StatusDownloaded, models.NullString{}, now)
				fake.rederiveOrderStatus(order, now)
				return nil
			}
		}
	}
	return ErrNoRows
}

// ExpireFiles for FakeDAO.
func (fake *FakeDAO) ExpireFiles(asOf time.Time) ([]models.OseoFile, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return nil, fake.Err
	}
	var expired []models.OseoFile
	for _, order := range fake.orders {
		for i := range order.Items {
			item := &order.Items[i]
			for f := range item.Files {
				file := &item.Files[f]
				if file.Available && file.ExpiresOn.Valid && !file.ExpiresOn.Time.After(asOf) {
					file.Available = false
					expired = append(expired, *file)
				}
			}
		}
	}
	return expired, nil
}

// TerminateUnavailableOrders for FakeDAO.
func (fake *FakeDAO) TerminateUnavailableOrders(cutoff time.Time) (int64, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return 0, fake.Err
	}
	now := time.Now().UTC()
	var terminated int64
	for _, order := range fake.orders {
		if order.Status != models.StatusCompleted && order.Status != models.StatusDownloaded {
			continue
		}
		hasFiles := false
		allStale := true
		for i := range order.Items {
			for _, f := range order.Items[i].Files {
				hasFiles = true
				if f.Available || !f.ExpiresOn.Valid || f.ExpiresOn.Time.After(cutoff) {
					allStale = false
				}
			}
		}
		if !hasFiles || !allStale {
			continue
		}
		info := models.ToNullString("all produced files expired")
		for i := range order.Items {
			item := &order.Items[i]
			if item.Status != models.StatusTerminated {
				fake.applyItemStatus(item, models.StatusTerminated, info, now)
			}
		}
		fake.applyOrderStatus(order, models.StatusTerminated, info, now)
		terminated++
	}
	return terminated, nil
}

// PurgeFailedOrders for FakeDAO.
func (fake *FakeDAO) PurgeFailedOrders(cutoff time.Time) (int64, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return 0, fake.Err
	}
	var purged int64
	for id, order := range fake.orders {
		if order.Status == models.StatusFailed && !order.StatusChangedOn.After(cutoff) {
			delete(fake.orders, id)
			purged++
		}
	}
	return purged, nil
}

// EnqueueBatch for FakeDAO.
func (fake *FakeDAO) EnqueueBatch(batchID int64) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return fake.Err
	}
	fake.enqueue(batchID)
	return nil
}

// DequeueBatch for FakeDAO. The lease duration is ignored.
func (fake *FakeDAO) DequeueBatch(leaseDuration time.Duration) (*models.Batch, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return nil, fake.Err
	}
	if len(fake.queue) == 0 {
		return nil, nil
	}
	batchID := fake.queue[0]
	fake.queue = fake.queue[1:]
	for _, order := range fake.orders {
		for _, batch := range order.Batches {
			if batch.ID != batchID {
				continue
			}
			out := batch
			out.Items = nil
			for i := range order.Items {
				if order.Items[i].BatchID.Valid && order.Items[i].BatchID.Int64 == batchID {
					out.Items = append(out.Items, order.Items[i])
				}
			}
			return &out, nil
		}
	}
	return nil, ErrNoRows
}

// AckBatch for FakeDAO.
func (fake *FakeDAO) AckBatch(batchID int64) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.Err != nil {
		return fake.Err
	}
	fake.removeFromQueue(batchID)
	return nil
}

// QueueLength reports how many batches are waiting. Test helper.
func (fake *FakeDAO) QueueLength() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return len(fake.queue)
}

func (fake *FakeDAO) enqueue(batchID int64) {
	for _, queued := range fake.queue {
		if queued == batchID {
			return
		}
	}
	fake.queue = append(fake.queue, batchID)
}

func (fake *FakeDAO) removeFromQueue(batchID int64) {
	out := fake.queue[:0]
	for _, queued := range fake.queue {
		if queued != batchID {
			out = append(out, queued)
		}
	}
	fake.queue = out
}

func (fake *FakeDAO) applyItemStatus(item *models.OrderItem, status models.Status, info models.NullString, now time.Time) {
	item.Status = status
	item.AdditionalStatusInfo = info
	item.StatusChangedOn = now
	if status.IsTerminal() && !item.CompletedOn.Valid {
		item.CompletedOn = models.ToNullTime(now)
	}
}

func (fake *FakeDAO) applyOrderStatus(order *models.Order, status models.Status, info models.NullString, now time.Time) {
	order.Status = status
	order.AdditionalStatusInfo = info
	order.StatusChangedOn = now
	if status.IsTerminal() && !order.CompletedOn.Valid {
		order.CompletedOn = models.ToNullTime(now)
	}
}

func (fake *FakeDAO) rederiveOrderStatus(order *models.Order, now time.Time) {
	statuses := make([]models.Status, 0, len(order.Items))
	for _, item := range order.Items {
		statuses = append(statuses, item.Status)
	}
	derived := models.MinimumStatus(statuses)
	if derived != order.Status {
		fake.applyOrderStatus(order, derived, models.NullString{}, now)
	}
}

func (fake *FakeDAO) copyOrder(order *models.Order) models.Order {
	out := *order
	out.Items = append([]models.OrderItem(nil), order.Items...)
	for i := range out.Items {
		out.Items[i].Options = append([]models.SelectedOption(nil), order.Items[i].Options...)
		out.Items[i].DeliveryOptions = append([]models.SelectedDeliveryOption(nil), order.Items[i].DeliveryOptions...)
		out.Items[i].Files = append([]models.OseoFile(nil), order.Items[i].Files...)
	}
	out.Options = append([]models.SelectedOption(nil), order.Options...)
	out.DeliveryOptions = append([]models.SelectedDeliveryOption(nil), order.DeliveryOptions...)
	out.Batches = append([]models.Batch(nil), order.Batches...)
	for b := range out.Batches {
		out.Batches[b].Items = nil
		for i := range out.Items {
			if out.Items[i].BatchID.Valid && out.Items[i].BatchID.Int64 == out.Batches[b].ID {
				out.Batches[b].Items = append(out.Batches[b].Items, out.Items[i])
			}
		}
	}
	return out
}

func fakeCompileCheck() DAO {
	return NewFakeDAO()
}

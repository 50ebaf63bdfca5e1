package dao

import "github.com/earthsight/oseo-server/metadata/models"

// SearchOrders retrieves a user's orders matching the filter, newest first,
// each loaded with its items and options.
func (dao *DataAccessLayer) SearchOrders(filter OrderFilter) ([]models.Order, error) {
	if filter.UserID == 0 {
		return nil, ErrMissingUserID
	}

	stmt := `select ` + orderColumns + `
        from orders o
        inner join oseo_user u on u.id = o.user_id
        where o.user_id = ?`
	args := []interface{}{filter.UserID}

	if filter.LastUpdate.Valid {
		stmt += ` and o.status_changed_on >= ?`
		args = append(args, filter.LastUpdate.Time)
	}
	if filter.LastUpdateEnd.Valid {
		stmt += ` and o.status_changed_on <= ?`
		args = append(args, filter.LastUpdateEnd.Time)
	}
	if filter.Reference.Valid {
		stmt += ` and o.reference = ?`
		args = append(args, filter.Reference.String)
	}
	if len(filter.Statuses) > 0 {
		stmt += ` and o.status in (?` + repeatPlaceholder(len(filter.Statuses)-1) + `)`
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}
	stmt += ` order by o.created_on desc, o.id desc`

	var orders []models.Order
	if err := dao.MetadataDB.Select(&orders, stmt, args...); err != nil {
		return nil, err
	}
	for i := range orders {
		if err := loadOrderRelations(dao.MetadataDB, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ",?"
	}
	return out
}

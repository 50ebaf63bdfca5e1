package dao

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/earthsight/oseo-server/events"
	"github.com/earthsight/oseo-server/metadata/models"
)

// GetUserByName retrieves a user by login name, with the group name joined
// when the user belongs to a group. Returns sql.ErrNoRows when unknown.
func (dao *DataAccessLayer) GetUserByName(username string) (models.OseoUser, error) {
	var user models.OseoUser
	stmt := `
        select u.id, u.username, u.disk_quota, u.group_id, u.delete_downloaded,
               g.name group_name
        from oseo_user u
        left outer join oseo_group g on g.id = u.group_id
        where u.username = ?`
	err := dao.MetadataDB.Get(&user, stmt, username)
	return user, err
}

// CreateUser adds the passed in user to the database. Once added, the record
// is retrieved and returned.
func (dao *DataAccessLayer) CreateUser(user models.OseoUser) (models.OseoUser, error) {
	var created models.OseoUser
	err := dao.withTransaction("CreateUser", func(tx *sqlx.Tx) ([]events.Event, error) {
		var err error
		created, err = createUserInTransaction(tx, user)
		return nil, err
	})
	if err != nil {
		return models.OseoUser{}, err
	}
	return dao.GetUserByName(created.Username)
}

func createUserInTransaction(tx *sqlx.Tx, user models.OseoUser) (models.OseoUser, error) {
	if user.Username == "" {
		return user, ErrMissingUserID
	}
	stmt := `insert into oseo_user (username, disk_quota, group_id, delete_downloaded)
        values (?, ?, ?, ?)`
	result, err := tx.Exec(stmt, user.Username, user.DiskQuota, user.GroupID, user.DeleteDownloaded)
	if err != nil {
		return user, err
	}
	user.ID, err = result.LastInsertId()
	return user, err
}

func getUserByIDInTransaction(tx *sqlx.Tx, userID int64) (models.OseoUser, error) {
	var user models.OseoUser
	stmt := `
        select u.id, u.username, u.disk_quota, u.group_id, u.delete_downloaded,
               g.name group_name
        from oseo_user u
        left outer join oseo_group g on g.id = u.group_id
        where u.id = ?`
	err := tx.Get(&user, stmt, userID)
	if err == sql.ErrNoRows {
		return user, ErrNoRows
	}
	return user, err
}

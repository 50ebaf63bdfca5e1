package models

// OseoUser is an authenticated principal. Users are never destroyed while
// any order references them.
type OseoUser struct {
	ID int64 `db:"id"`
	// Username is the unique login name.
	Username string `db:"username"`
	// DiskQuota is the user's quota in bytes. Zero means unlimited.
	DiskQuota int64 `db:"disk_quota"`
	// GroupID references the OseoGroup the user belongs to.
	GroupID NullInt64 `db:"group_id"`
	// GroupName is populated on reads joining the group table.
	GroupName NullString `db:"group_name"`
	// DeleteDownloaded indicates downloaded files may be removed eagerly.
	DeleteDownloaded bool `db:"delete_downloaded"`
}

// OseoGroup is a set of users sharing collection authorisations.
type OseoGroup struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	// AuthenticationClass optionally names a group-specific authenticator.
	AuthenticationClass NullString `db:"authentication_class"`
}

package dao

import "github.com/earthsight/oseo-server/metadata/models"

// GetDBState retrieves the schema version and identifier of the database.
func (dao *DataAccessLayer) GetDBState() (models.DBState, error) {
	var state models.DBState
	err := dao.MetadataDB.Get(&state,
		`select schema_version, identifier, created_on from dbstate`)
	return state, err
}

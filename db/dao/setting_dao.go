package dao

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/trackify-io/trackify/db/entities"
	"github.com/trackify-io/trackify/pkg/types"
)

type settingDAO struct {
	*DAO[entities.Setting]
}

func NewSettingDAO(db *sqlx.DB, dialect Dialect) SettingDAO {
	return &settingDAO{
		DAO: NewDAO[entities.Setting]("settings", db, dialect),
	}
}

func (dao *settingDAO) GetByName(ctx context.Context, name string) (*entities.Setting, error) {
	return dao.selectByField(ctx, "name", name)
}

func (dao *settingDAO) Save(ctx context.Context, setting *entities.Setting) error {
	setting.UpdatedAt = types.Now()
	statement, args := dao.psql.Insert(dao.table).
		Columns("name", "value", "updated_at").
		Values(setting.Name, setting.Value, setting.UpdatedAt).
		Suffix("ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		MustSql()
	dao.debugSQL(statement, args)
	_, err := dao.DB(ctx).ExecContext(ctx, statement, args...)
	return err
}

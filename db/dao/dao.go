package dao

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/trackify-io/trackify/db/errs"
	"github.com/trackify-io/trackify/db/query"
	"github.com/trackify-io/trackify/db/transaction"
	"github.com/trackify-io/trackify/pkg/types"
	"github.com/trackify-io/trackify/utils"
	"go.uber.org/zap"
)

var (
	ErrNoRows = sql.ErrNoRows
)

// Queryable is an interface to be used interchangeably for sqlx.Db and sqlx.Tx
type Queryable interface {
	sqlx.ExtContext
	GetContext(context.Context, interface{}, string, ...interface{}) error
	SelectContext(context.Context, interface{}, string, ...interface{}) error
}

type DAO[T any] struct {
	log   *zap.SugaredLogger
	db    *sqlx.DB
	table string
	psql  sq.StatementBuilderType
}

func NewDAO[T any](table string, db *sqlx.DB, dialect Dialect) *DAO[T] {
	dao := DAO[T]{
		log:   zap.S(),
		db:    db,
		table: table,
		psql:  dialect.StatementBuilder(),
	}
	return &dao
}

func (dao *DAO[T]) debugSQL(sql string, args []interface{}) {
	dao.log.Debugf("[dao] execute: %s", sql)
}

func (dao *DAO[T]) DB(ctx context.Context) Queryable {
	if ctx == nil {
		ctx = context.TODO()
	}

	if tx, ok := transaction.FromContext(ctx); ok {
		return tx
	}

	return dao.db
}

func (dao *DAO[T]) UnsafeDB(ctx context.Context) Queryable {
	db := dao.DB(ctx)

	if tx, ok := db.(*sqlx.Tx); ok {
		return tx.Unsafe()
	}

	return db.(*sqlx.DB).Unsafe()
}

func (dao *DAO[T]) Get(ctx context.Context, id interface{}) (entity *T, err error) {
	return dao.selectByField(ctx, "id", id)
}

func (dao *DAO[T]) selectByField(ctx context.Context, field string, value interface{}) (entity *T, err error) {
	builder := dao.psql.Select("*").From(dao.table).Where(sq.Eq{field: value})
	statement, args := builder.MustSql()
	dao.debugSQL(statement, args)
	entity = new(T)
	err = dao.UnsafeDB(ctx).GetContext(ctx, entity, statement, args...)
	if errors.Is(err, ErrNoRows) {
		return nil, nil
	}
	return
}

func (dao *DAO[T]) Delete(ctx context.Context, id interface{}) (bool, error) {
	rows, err := dao.DeleteWhere(ctx, sq.Eq{"id": id})
	return rows > 0, err
}

// DeleteWhere deletes every row matching where and returns the affected count.
func (dao *DAO[T]) DeleteWhere(ctx context.Context, where sq.Sqlizer) (int64, error) {
	builder := dao.psql.Delete(dao.table)
	if where != nil {
		builder = builder.Where(where)
	}
	statement, args := builder.MustSql()
	dao.debugSQL(statement, args)
	result, err := dao.DB(ctx).ExecContext(ctx, statement, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (dao *DAO[T]) Page(ctx context.Context, q query.Queryer) (list []*T, total int64, err error) {
	total, err = dao.Count(ctx, q.Where())
	if err != nil {
		return
	}
	list, err = dao.List(ctx, q)
	return
}

func (dao *DAO[T]) Count(ctx context.Context, where sq.Sqlizer) (total int64, err error) {
	builder := dao.psql.Select("COUNT(*)").From(dao.table)
	if where != nil {
		builder = builder.Where(where)
	}
	statement, args := builder.MustSql()
	dao.debugSQL(statement, args)
	err = dao.DB(ctx).GetContext(ctx, &total, statement, args...)
	return
}

func (dao *DAO[T]) List(ctx context.Context, q query.Queryer) (list []*T, err error) {
	builder := dao.psql.Select("*").From(dao.table)
	if where := q.Where(); where != nil {
		builder = builder.Where(where)
	}
	if q.Limit() != 0 {
		builder = builder.Offset(uint64(q.Offset()))
		builder = builder.Limit(uint64(q.Limit()))
	}
	for _, order := range q.Orders() {
		builder = builder.OrderBy(order.String())
	}
	statement, args := builder.MustSql()
	dao.debugSQL(statement, args)
	list = make([]*T, 0)
	err = dao.UnsafeDB(ctx).SelectContext(ctx, &list, statement, args...)
	return
}

// EachField traverse each database field
func EachField(entity interface{}, fn func(field reflect.StructField, value reflect.Value, column string)) {
	t := reflect.TypeOf(entity)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	v := reflect.ValueOf(entity)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i)
		column := utils.DefaultIfZero(field.Tag.Get("db"), strings.ToLower(field.Name))
		if column == "-" {
			continue
		}
		if field.Anonymous {
			EachField(value.Addr().Interface(), fn)
		} else {
			fn(field, value, column)
		}
	}
}

// columns returns the insertable columns of entity. A zero id is left to the
// database and zero timestamps are set to now.
func columns(entity interface{}) ([]string, []interface{}) {
	cols := make([]string, 0)
	values := make([]interface{}, 0)
	now := types.Now()
	EachField(entity, func(f reflect.StructField, v reflect.Value, column string) {
		switch column {
		case "id":
			if v.IsZero() {
				return
			}
		case "created_at", "updated_at":
			if v.IsZero() && v.CanSet() {
				v.Set(reflect.ValueOf(now))
			}
		}
		cols = append(cols, column)
		values = append(values, v.Interface())
	})
	return cols, values
}

func (dao *DAO[T]) Insert(ctx context.Context, entity *T) error {
	cols, values := columns(entity)
	statement, args := dao.psql.Insert(dao.table).Columns(cols...).Values(values...).
		Suffix("RETURNING *").
		MustSql()
	dao.debugSQL(statement, args)
	err := dao.UnsafeDB(ctx).QueryRowxContext(ctx, statement, args...).StructScan(entity)
	return errs.ConvertError(err)
}

func (dao *DAO[T]) BatchInsert(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}

	cols, _ := columns(entities[0])
	builder := dao.psql.Insert(dao.table).Columns(cols...)
	for _, entity := range entities {
		_, values := columns(entity)
		builder = builder.Values(values...)
	}

	statement, args := builder.Suffix("RETURNING *").MustSql()
	dao.debugSQL(statement, args)
	rows, err := dao.UnsafeDB(ctx).QueryxContext(ctx, statement, args...)
	if err != nil {
		return errs.ConvertError(err)
	}
	defer func() { _ = rows.Close() }()
	i := 0
	for rows.Next() {
		err = rows.StructScan(entities[i])
		if err != nil {
			return err
		}
		i++
	}
	return rows.Err()
}

func (dao *DAO[T]) Truncate(ctx context.Context) error {
	_, err := dao.DeleteWhere(ctx, nil)
	return err
}

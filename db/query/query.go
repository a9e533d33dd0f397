package query

import sq "github.com/Masterminds/squirrel"

type Queryer interface {
	Offset() int64
	Limit() int64
	Where() sq.Sqlizer
	Orders() []*Order
}

type Query struct {
	offset int64
	limit  int64
	orders []*Order
}

func (q *Query) Page(pageNo, pageSize uint64) {
	if pageNo < 1 {
		pageNo = 1
	}
	offset := (pageNo - 1) * pageSize
	q.offset = int64(offset)
	q.limit = int64(int(pageSize))
}

func (q *Query) SetLimit(limit int64) {
	q.limit = limit
}

func (q *Query) Offset() int64 {
	return q.offset
}

func (q *Query) Limit() int64 {
	return q.limit
}

func (q *Query) Where() sq.Sqlizer {
	return nil
}

func (q *Query) Orders() []*Order {
	return q.orders
}

func (q *Query) Order(column string, sort Sort) {
	q.orders = append(q.orders, &Order{column, sort})
}

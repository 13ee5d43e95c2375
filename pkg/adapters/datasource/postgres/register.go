package postgres

import "github.com/coursekit/warehouse-engine/pkg/adapters/datasource"

func init() {
	datasource.Register("postgres", New)
}

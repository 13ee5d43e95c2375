package mssql

import "github.com/coursekit/warehouse-engine/pkg/adapters/datasource"

func init() {
	datasource.Register("mssql", New)
}

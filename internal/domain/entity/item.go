package entity

import "time"

// Item es un artículo del catálogo. El catálogo se administra fuera de este
// núcleo; aquí solo se consulta (existencia, vigencia y umbrales).
type Item struct {
	ID           int64
	Name         string
	Unit         string
	IsActive     bool
	MinThreshold int64
	MaxThreshold int64
	CreatedAt    time.Time
}

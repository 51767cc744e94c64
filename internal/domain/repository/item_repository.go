package repository

import "github.com/jhoicas/almacen-api/internal/domain/entity"

// ItemRepository es el puerto de consulta del catálogo (solo lectura aquí:
// la administración de artículos vive fuera de este núcleo).
type ItemRepository interface {
	GetByID(id int64) (*entity.Item, error)
}

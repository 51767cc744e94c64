package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/ledger"
)

// InventoryHandler maneja las peticiones HTTP de movimientos, existencias y
// libro de inventario (protegido).
type InventoryHandler struct {
	engine *ledger.Engine
	query  *ledger.StockQuery
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(engine *ledger.Engine, query *ledger.StockQuery) *InventoryHandler {
	return &InventoryHandler{engine: engine, query: query}
}

// ApplyMovement godoc
// @Summary      Registrar un movimiento de inventario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ApplyMovementRequest  true  "item_id, type (IN|OUT|RETURN|ADJUST), quantity, withdrawal_line_id (RETURN), remark"
// @Success      201   {object}  dto.ApplyMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) ApplyMovement(c *fiber.Ctx) error {
	actorID := GetUserID(c)
	if actorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ApplyMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	newBalance, err := h.engine.ApplyMovement(c.Context(), ledger.MovementInput{
		ItemID:   in.ItemID,
		Type:     in.Type,
		Quantity: in.Quantity,
		ActorID:  actorID,
		LineID:   in.LineID,
		Remark:   in.Remark,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ApplyMovementResponse{NewBalance: newBalance})
}

// ListStock godoc
// @Summary      Listar existencias de artículos activos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        page   query  int  false  "Página (1..)"
// @Param        limit  query  int  false  "Tamaño de página"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inventory [get]
func (h *InventoryHandler) ListStock(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	list, total, err := h.query.ListStock(c.Context(), limit, (page-1)*limit)
	if err != nil {
		return errorResponse(c, err)
	}
	items := make([]dto.StockItemDTO, 0, len(list))
	for _, v := range list {
		items = append(items, dto.StockItemDTO{
			ItemID:    v.ItemID,
			Name:      v.Name,
			Unit:      v.Unit,
			Quantity:  v.Quantity,
			UpdatedAt: v.UpdatedAt,
		})
	}
	return c.JSON(fiber.Map{
		"inventory":  items,
		"pagination": dto.NewPagination(total, page, limit),
	})
}

// GetQuantity godoc
// @Summary      Existencia actual de un artículo (puede servirse de caché)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id  path  int  true  "Id del artículo"
// @Success      200  {object}  map[string]int64
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{item_id} [get]
func (h *InventoryHandler) GetQuantity(c *fiber.Ctx) error {
	itemID, err := c.ParamsInt("item_id")
	if err != nil || itemID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "item_id inválido"})
	}
	qty, err := h.query.CurrentQuantity(c.Context(), int64(itemID))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"item_id": itemID, "quantity": qty})
}

// ListLedger godoc
// @Summary      Listar el libro de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id     query  int     false  "Filtrar por artículo"
// @Param        start_date  query  string  false  "Desde (RFC3339 o YYYY-MM-DD)"
// @Param        end_date    query  string  false  "Hasta (RFC3339 o YYYY-MM-DD)"
// @Param        page        query  int     false  "Página (1..)"
// @Param        limit       query  int     false  "Tamaño de página"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inventory/log [get]
func (h *InventoryHandler) ListLedger(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	itemID := int64(c.QueryInt("item_id"))
	from := parseDateQuery(c.Query("start_date"), false)
	to := parseDateQuery(c.Query("end_date"), true)

	entries, total, err := h.query.ListLedger(c.Context(), itemID, from, to, limit, (page-1)*limit)
	if err != nil {
		return errorResponse(c, err)
	}
	out := make([]dto.LedgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.LedgerEntryFromEntity(e))
	}
	return c.JSON(fiber.Map{
		"inventory_log": out,
		"pagination":    dto.NewPagination(total, page, limit),
	})
}

// Audit godoc
// @Summary      Contrastar la proyección contra la suma del libro
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id  path  int  true  "Id del artículo"
// @Success      200  {object}  dto.AuditResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{item_id}/audit [get]
func (h *InventoryHandler) Audit(c *fiber.Ctx) error {
	itemID, err := c.ParamsInt("item_id")
	if err != nil || itemID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "item_id inválido"})
	}
	res, err := h.query.Audit(c.Context(), int64(itemID))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(dto.AuditResponse{
		ItemID:     res.ItemID,
		Projected:  res.Projected,
		LedgerSum:  res.LedgerSum,
		Consistent: res.Consistent,
	})
}

// pageParams lee page y limit de la query con los defaults del listado.
func pageParams(c *fiber.Ctx) (page, limit int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// parseDateQuery acepta RFC3339 o YYYY-MM-DD; endOfDay extiende la fecha al
// final del día (para end_date inclusivo).
func parseDateQuery(s string, endOfDay bool) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}

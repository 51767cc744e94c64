package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/almacen-api/internal/application/dto"
	"github.com/jhoicas/almacen-api/internal/application/withdrawal"
)

// WithdrawalHandler maneja las peticiones HTTP de documentos de retiro (protegido).
type WithdrawalHandler struct {
	uc *withdrawal.UseCase
}

// NewWithdrawalHandler construye el handler.
func NewWithdrawalHandler(uc *withdrawal.UseCase) *WithdrawalHandler {
	return &WithdrawalHandler{uc: uc}
}

// Create godoc
// @Summary      Crear un documento de retiro (sin tocar existencias)
// @Tags         withdrawals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateWithdrawalRequest  true  "topic y líneas {item_id, quantity}"
// @Success      201   {object}  map[string]int64
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/withdrawals [post]
func (h *WithdrawalHandler) Create(c *fiber.Ctx) error {
	actorID := GetUserID(c)
	if actorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateWithdrawalRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	lines := make([]withdrawal.LineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, withdrawal.LineInput{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	docID, err := h.uc.Create(c.Context(), withdrawal.CreateInput{
		RequestedBy: actorID,
		Topic:       in.Topic,
		Lines:       lines,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"withdrawal_id": docID})
}

// List godoc
// @Summary      Listar documentos de retiro
// @Tags         withdrawals
// @Security     Bearer
// @Produce      json
// @Param        page   query  int  false  "Página (1..)"
// @Param        limit  query  int  false  "Tamaño de página"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/withdrawals [get]
func (h *WithdrawalHandler) List(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	docs, total, err := h.uc.List(c.Context(), limit, (page-1)*limit)
	if err != nil {
		return errorResponse(c, err)
	}
	out := make([]dto.WithdrawalDTO, 0, len(docs))
	for _, d := range docs {
		out = append(out, dto.WithdrawalFromEntity(d, nil))
	}
	return c.JSON(fiber.Map{
		"withdrawals": out,
		"pagination":  dto.NewPagination(total, page, limit),
	})
}

// Get godoc
// @Summary      Detalle de un documento de retiro con sus líneas
// @Tags         withdrawals
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "Id del documento"
// @Success      200  {object}  dto.WithdrawalDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/withdrawals/{id} [get]
func (h *WithdrawalHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	doc, lines, err := h.uc.Get(c.Context(), int64(id))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(dto.WithdrawalFromEntity(doc, lines))
}

// Dispose godoc
// @Summary      Aplicar disposiciones (aprobar/parcial/rechazar) a líneas pendientes
// @Description  Al quedar todas las líneas decididas el documento se vuelve
//               terminal; si se aprueba, las deducciones de stock ocurren en la
//               misma transacción: todas descuentan o ninguna.
// @Tags         withdrawals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int  true  "Id del documento"
// @Param        body  body  dto.DisposeRequest  true  "dispositions y note"
// @Success      200   {object}  dto.DisposeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/withdrawals/{id}/dispositions [post]
func (h *WithdrawalHandler) Dispose(c *fiber.Ctx) error {
	actorID := GetUserID(c)
	if actorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	var in dto.DisposeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	dispositions := make([]withdrawal.Disposition, 0, len(in.Dispositions))
	for _, d := range in.Dispositions {
		dispositions = append(dispositions, withdrawal.Disposition{
			LineID:           d.LineID,
			ApprovedQuantity: d.ApprovedQuantity,
			RejectReason:     d.RejectReason,
		})
	}
	result, err := h.uc.Dispose(c.Context(), withdrawal.DisposeInput{
		DocumentID:   int64(id),
		Dispositions: dispositions,
		ApproverID:   actorID,
		Note:         in.Note,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(dto.DisposeResponse{
		DocumentStatus: string(result.Status),
		LinesRemaining: result.LinesRemaining,
	})
}

// ReturnLine godoc
// @Summary      Devolver cantidad retirada de una línea aprobada
// @Tags         withdrawals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  int  true  "Id del documento"
// @Param        line_id  path  int  true  "Id de la línea"
// @Param        body     body  dto.ReturnLineRequest  true  "quantity"
// @Success      200  {object}  map[string]bool
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/withdrawals/{id}/lines/{line_id}/return [post]
func (h *WithdrawalHandler) ReturnLine(c *fiber.Ctx) error {
	actorID := GetUserID(c)
	if actorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	lineID, err := c.ParamsInt("line_id")
	if err != nil || lineID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "line_id inválido"})
	}
	var in dto.ReturnLineRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.uc.ReturnLine(c.Context(), int64(id), int64(lineID), in.Quantity, actorID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Cancel godoc
// @Summary      Cancelar un documento aún no finalizado
// @Tags         withdrawals
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "Id del documento"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/withdrawals/{id}/cancel [post]
func (h *WithdrawalHandler) Cancel(c *fiber.Ctx) error {
	actorID := GetUserID(c)
	if actorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	if err := h.uc.Cancel(c.Context(), int64(id), actorID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

package inventory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/matheusmosca/bookverse/internal/auth"
	"github.com/matheusmosca/bookverse/internal/catalog"
)

// Handler contém os handlers HTTP do ledger de estoque
type Handler struct {
	ledger *Ledger
}

// NewHandler cria uma nova instância de Handler
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func actor(c *gin.Context) string {
	id, _ := auth.FromContext(c.Request.Context())
	return id.UserID
}

func (h *Handler) ImportStock(c *gin.Context) {
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Actor = actor(c)

	t, err := h.ledger.ImportStock(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": t})
}

func (h *Handler) ExportStock(c *gin.Context) {
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Actor = actor(c)

	t, err := h.ledger.ExportStock(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": t})
}

func (h *Handler) AdjustStock(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Actor = actor(c)

	t, err := h.ledger.AdjustStock(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if t == nil {
		c.JSON(http.StatusOK, gin.H{"changed": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"changed": true, "transaction": t})
}

// ListTransactions lista o histórico paginado
func (h *Handler) ListTransactions(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.ledger.History(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ExportTransactions escreve todo o histórico filtrado como CSV
func (h *Handler) ExportTransactions(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.ledger.ExportAll(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="inventory-transactions-%s.csv"`,
		time.Now().Format("20060102")))
	c.Status(http.StatusOK)

	if err := WriteCSV(c.Writer, items); err != nil {
		slog.ErrorContext(c.Request.Context(), "❌ csv export failed", "error", err)
	}
}

func (h *Handler) GetTransaction(c *gin.Context) {
	t, err := h.ledger.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": t})
}

var csvHeader = []string{
	"id", "created_at", "book_id", "book_title", "type", "quantity", "stock_before", "stock_after",
	"reason", "note", "created_by", "reference_type", "reference_id",
}

// WriteCSV serializa as transações no formato de relatório
func WriteCSV(w io.Writer, items []Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range items {
		if err := cw.Write([]string{
			t.ID, t.CreatedAt.Format(time.RFC3339), t.BookID, t.BookTitle, string(t.Type),
			strconv.Itoa(t.Quantity), strconv.Itoa(t.StockBefore), strconv.Itoa(t.StockAfter),
			t.Reason, t.Note, t.CreatedBy, string(t.ReferenceType), t.ReferenceID,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseFilter(c *gin.Context) (HistoryFilter, error) {
	typ, err := ParseTransactionType(c.Query("type"))
	if err != nil {
		return HistoryFilter{}, fmt.Errorf("%w: unknown type %q", err, c.Query("type"))
	}

	f := HistoryFilter{BookID: c.Query("book_id"), Type: typ}

	if f.From, err = parseTime(c.Query("from"), false); err != nil {
		return HistoryFilter{}, err
	}
	if f.To, err = parseTime(c.Query("to"), true); err != nil {
		return HistoryFilter{}, err
	}
	if f.Page, err = parseInt(c.Query("page")); err != nil {
		return HistoryFilter{}, err
	}
	if f.Size, err = parseInt(c.Query("size")); err != nil {
		return HistoryFilter{}, err
	}
	return f, nil
}

// parseTime accepts RFC3339 or a bare date. A bare end date covers the whole day.
func parseTime(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidFilter, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrInvalidFilter, s)
	}
	return n, nil
}

// StatusFor maps ledger errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidStock), errors.Is(err, ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, ErrTransactionNotFound):
		return http.StatusNotFound
	default:
		return catalog.StatusFor(err)
	}
}

func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "❌ inventory request failed", "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

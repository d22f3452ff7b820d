package admin

import (
	"strings"

	"github.com/dinepoints/internal/http/handlers/shared"
	"github.com/dinepoints/internal/http/response"
	"github.com/dinepoints/internal/repository"
	"github.com/dinepoints/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WalletChangeRequest 钱包充值/扣款请求
type WalletChangeRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	Remark    string          `json:"remark"`
}

var walletErrorRules = shared.ConcatMappedHandlerErrors(shared.LedgerErrorRules, shared.CustomerErrorRules)

// CreditWallet 钱包充值
func (h *Handler) CreditWallet(c *gin.Context) {
	h.changeWallet(c, h.WalletService.Credit)
}

// DebitWallet 钱包扣款
func (h *Handler) DebitWallet(c *gin.Context) {
	h.changeWallet(c, h.WalletService.Debit)
}

func (h *Handler) changeWallet(c *gin.Context, apply func(service.WalletChangeInput) (*service.WalletChangeResult, error)) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req WalletChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := apply(service.WalletChangeInput{
		TenantID:   tenantID,
		CustomerID: customerID,
		Amount:     req.Amount,
		Reference:  req.Reference,
		Remark:     req.Remark,
	})
	if err != nil {
		respondWithMappedError(c, err, walletErrorRules, response.CodeInternal, "error.wallet_process_failed")
		return
	}
	response.Success(c, result)
}

// ListWalletTransactions 钱包流水
func (h *Handler) ListWalletTransactions(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	customerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	txns, total, err := h.WalletService.ListTransactions(repository.WalletTransactionListFilter{
		Page:       page,
		PageSize:   pageSize,
		TenantID:   tenantID,
		CustomerID: customerID,
		Type:       strings.TrimSpace(c.Query("type")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.transaction_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, txns, shared.BuildPagination(page, pageSize, total))
}

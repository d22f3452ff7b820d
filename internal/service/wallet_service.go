package service

import (
	"strings"
	"time"

	"github.com/dinepoints/internal/constants"
	"github.com/dinepoints/internal/models"
	"github.com/dinepoints/internal/repository"

	"github.com/shopspring/decimal"
)

// WalletService 客户钱包服务
type WalletService struct {
	ledger     *LedgerService
	settingSvc *SettingService
	walletRepo repository.WalletRepository
	now        func() time.Time
}

// WalletChangeInput 钱包入账/扣款输入
type WalletChangeInput struct {
	TenantID   uint
	CustomerID uint
	Amount     decimal.Decimal
	Reference  string
	Remark     string
}

// WalletChangeResult 钱包变动结果
type WalletChangeResult struct {
	Transaction *models.WalletTransaction `json:"transaction"`
	Balance     models.Money              `json:"wallet_balance"`
	Duplicate   bool                      `json:"duplicate,omitempty"`
}

// NewWalletService 创建钱包服务
func NewWalletService(ledger *LedgerService, settingSvc *SettingService, walletRepo repository.WalletRepository) *WalletService {
	return &WalletService{
		ledger:     ledger,
		settingSvc: settingSvc,
		walletRepo: walletRepo,
		now:        time.Now,
	}
}

// Credit 钱包入账
func (s *WalletService) Credit(input WalletChangeInput) (*WalletChangeResult, error) {
	return s.changeBalance(input, constants.WalletTxnTypeCredit, input.Amount.Round(2))
}

// Debit 钱包扣款，余额不足返回 ErrInsufficientWallet
func (s *WalletService) Debit(input WalletChangeInput) (*WalletChangeResult, error) {
	return s.changeBalance(input, constants.WalletTxnTypeDebit, input.Amount.Round(2).Neg())
}

// ListTransactions 查询钱包流水
func (s *WalletService) ListTransactions(filter repository.WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	return s.walletRepo.ListTransactions(filter)
}

func (s *WalletService) changeBalance(input WalletChangeInput, txnType string, delta decimal.Decimal) (*WalletChangeResult, error) {
	if !input.Amount.Round(2).IsPositive() {
		return nil, ErrInvalidAmount
	}
	setting, err := s.settingSvc.GetLoyaltySetting(input.TenantID)
	if err != nil {
		return nil, err
	}
	result := &WalletChangeResult{}
	err = s.ledger.withCustomer(input.TenantID, input.CustomerID, setting, s.now(), func(scope *ledgerScope) error {
		reference := strings.TrimSpace(input.Reference)
		if reference != "" {
			existing, err := scope.wallets.GetTransactionByReference(scope.customer.ID, reference)
			if err != nil {
				return err
			}
			if existing != nil {
				result.Transaction = existing
				result.Duplicate = true
				result.Balance = scope.customer.WalletBalance
				return nil
			}
		}
		txn, err := scope.postWallet(delta, txnType, reference, cleanWalletRemark(input.Remark, walletDefaultRemark(txnType)))
		if err != nil {
			return err
		}
		result.Transaction = txn
		result.Balance = scope.customer.WalletBalance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func walletDefaultRemark(txnType string) string {
	switch txnType {
	case constants.WalletTxnTypeCredit:
		return "Wallet credit"
	case constants.WalletTxnTypeDebit:
		return "Wallet debit"
	}
	return "Wallet change"
}

func cleanWalletRemark(raw string, fallback string) string {
	remark := strings.TrimSpace(raw)
	if remark == "" {
		return fallback
	}
	return remark
}

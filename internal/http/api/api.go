// Package api exposes the ledger's operations over a thin gin surface.
// The handlers do request plumbing only; every business rule lives in the
// ledger service.
package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cardspring/rewardsledger/internal/http/api/handlers"
	"github.com/cardspring/rewardsledger/internal/ledger"
)

// RegisterLedgerRoutes registers the ledger routes under /v0/ledger.
func RegisterLedgerRoutes(r *gin.Engine, db *gorm.DB, svc *ledger.Service) {
	if r == nil || db == nil || svc == nil {
		return
	}

	group := r.Group("/v0/ledger")

	lotHandler := handlers.NewLotHandler(db, svc)
	group.POST("/lots", lotHandler.Create)
	group.GET("/lots/:id", lotHandler.Get)
	group.GET("/customers/:id/lots", lotHandler.ListByCustomer)

	balanceHandler := handlers.NewBalanceHandler(db, svc)
	group.GET("/customers/:id/balance", balanceHandler.Balance)
	group.GET("/customers/:id/history", balanceHandler.History)

	redemptionHandler := handlers.NewRedemptionHandler(svc)
	group.POST("/customers/:id/redeem", redemptionHandler.RedeemCustomer)
	group.POST("/lots/:id/redeem", redemptionHandler.RedeemLot)
	group.POST("/redemptions/cancel", redemptionHandler.Cancel)

	refundHandler := handlers.NewRefundHandler(svc)
	group.POST("/refunds/clawback", refundHandler.Clawback)

	sweepHandler := handlers.NewSweepHandler(svc)
	group.POST("/sweep", sweepHandler.Run)
}

package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/gold"
	"github.com/egaotan/solana-gold/opstatus"
	"github.com/egaotan/solana-gold/statesync"
	"github.com/egaotan/solana-gold/store"
	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Kind  errs.Kind `json:"kind"`
	Field string    `json:"field,omitempty"`
	// Fields names every invalid field when several were rejected at once.
	Fields  []string `json:"fields,omitempty"`
	Message string   `json:"message"`
}

type OperationResponse struct {
	Operation gold.Operation  `json:"operation"`
	Status    opstatus.Status `json:"status"`
	Error     *ErrorResponse  `json:"error,omitempty"`
}

type StateResponse struct {
	Snapshot *statesync.StateSnapshot `json:"snapshot"`
	Sync     statesync.SyncStatus     `json:"sync"`
}

type BalancesResponse struct {
	Snapshot *statesync.BalanceSnapshot `json:"snapshot"`
	Sync     statesync.SyncStatus       `json:"sync"`
}

type AddressesResponse struct {
	ProgramId       string `json:"program_id"`
	GoldMint        string `json:"gold_mint"`
	UsdcMint        string `json:"usdc_mint"`
	State           string `json:"state"`
	VaultToken      string `json:"vault_token"`
	VaultUsdc       string `json:"vault_usdc"`
	PriceFeed       string `json:"price_feed"`
	UserToken       string `json:"user_token,omitempty"`
	UserUsdc        string `json:"user_usdc,omitempty"`
	ConnectedWallet string `json:"connected_wallet,omitempty"`
}

func errorResponse(err error) *ErrorResponse {
	if err == nil {
		return nil
	}
	resp := &ErrorResponse{Kind: errs.KindOf(err), Message: err.Error()}
	var e *errs.Error
	if errors.As(err, &e) {
		resp.Field = e.Field
	}
	if fields := errs.Fields(err); len(fields) > 1 {
		resp.Fields = fields
	}
	return resp
}

func httpStatus(err error) int {
	switch errs.KindOf(err) {
	case "":
		if err == nil {
			return http.StatusOK
		}
		return http.StatusInternalServerError
	case errs.KindInvalidInput, errs.KindWalletNotConnected, errs.KindAddressDerivation:
		return http.StatusBadRequest
	case errs.KindOperationInProgress:
		return http.StatusConflict
	case errs.KindSubmissionUnknown:
		return http.StatusAccepted
	case errs.KindReadFailure:
		return http.StatusBadGateway
	case errs.KindNotInitialized:
		return http.StatusNotFound
	}
	return http.StatusUnprocessableEntity
}

// Router serves the presentation api under /api.
func (app *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	g := router.Group("/api")
	g.GET("/state", app.getState)
	g.GET("/balances", app.getBalances)
	g.GET("/status", app.getStatus)
	g.GET("/addresses", app.getAddresses)
	g.GET("/journal", app.getJournal)
	g.POST("/refresh", app.refresh)
	g.POST("/initialize", app.operation(gold.OpInitialize))
	g.POST("/price", app.operation(gold.OpUpdatePrice))
	g.POST("/mint", app.operation(gold.OpMint))
	g.POST("/buy", app.operation(gold.OpBuy))
	g.POST("/sell", app.operation(gold.OpSell))
	g.POST("/redeem", app.operation(gold.OpRedeem))
	if app.metrics != nil {
		g.GET("/metrics", gin.WrapH(app.metrics.Handler()))
	}
	return router
}

func (app *App) getState(c *gin.Context) {
	sync := app.orchestrator.Synchronizer()
	c.JSON(http.StatusOK, &StateResponse{
		Snapshot: sync.State(),
		Sync:     sync.Health().State,
	})
}

func (app *App) getBalances(c *gin.Context) {
	sync := app.orchestrator.Synchronizer()
	c.JSON(http.StatusOK, &BalancesResponse{
		Snapshot: sync.Balances(),
		Sync:     sync.Health().Balances,
	})
}

func (app *App) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, app.orchestrator.Status())
}

func (app *App) getAddresses(c *gin.Context) {
	addr := app.program.Addresses()
	resp := &AddressesResponse{
		ProgramId: addr.ProgramID().String(),
		GoldMint:  addr.GoldMint().String(),
		UsdcMint:  addr.UsdcMint().String(),
	}
	derived := []struct {
		into   *string
		derive func() (solana.PublicKey, error)
	}{
		{&resp.State, addr.StateAddress},
		{&resp.VaultToken, addr.VaultTokenAccount},
		{&resp.VaultUsdc, addr.VaultUsdcAccount},
		{&resp.PriceFeed, addr.PriceFeedAddress},
	}
	for _, d := range derived {
		key, err := d.derive()
		if err != nil {
			c.JSON(httpStatus(err), errorResponse(err))
			return
		}
		*d.into = key.String()
	}
	if owner, ok := app.orchestrator.Owner(); ok {
		resp.ConnectedWallet = owner.String()
		if key, err := addr.UserTokenAccount(owner); err == nil {
			resp.UserToken = key.String()
		}
		if key, err := addr.UserUsdcAccount(owner); err == nil {
			resp.UserUsdc = key.String()
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (app *App) getJournal(c *gin.Context) {
	if app.store == nil {
		c.JSON(http.StatusNotFound, &ErrorResponse{Message: "journal is not configured"})
		return
	}
	limit := 20
	if limitStr, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, errorResponse(errs.InvalidInput("limit", "must be between 1 and 500")))
			return
		}
		limit = n
	}
	var records []*store.OperationRecord
	var err error
	if id, ok := c.GetQuery("id"); ok {
		var rec *store.OperationRecord
		if rec, err = app.store.GetOperation(id); err == nil {
			records = []*store.OperationRecord{rec}
		}
	} else {
		records, err = app.store.GetRecent(c.Query("operation"), limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, &ErrorResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (app *App) refresh(c *gin.Context) {
	err := app.orchestrator.Refresh(c.Request.Context())
	sync := app.orchestrator.Synchronizer()
	c.JSON(httpStatus(err), gin.H{
		"state":    &StateResponse{Snapshot: sync.State(), Sync: sync.Health().State},
		"balances": &BalancesResponse{Snapshot: sync.Balances(), Sync: sync.Health().Balances},
		"error":    errorResponse(err),
	})
}

func (app *App) operation(op gold.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in gold.Inputs
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&in); err != nil {
				c.JSON(http.StatusBadRequest, errorResponse(errs.InvalidInput("body", err.Error())))
				return
			}
		}
		status, err := app.orchestrator.Execute(c.Request.Context(), op, in)
		c.JSON(httpStatus(err), &OperationResponse{
			Operation: op,
			Status:    status,
			Error:     errorResponse(err),
		})
	}
}

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"agrimarket-ledger/internal/ledger"
	"agrimarket-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	users          *ledger.UserService
	crops          *ledger.CropService
	orders         *ledger.OrderService
	settlements    *ledger.SettlementService
	predictions    *ledger.PredictionService
	requestTimeout time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(
	users *ledger.UserService,
	crops *ledger.CropService,
	orders *ledger.OrderService,
	settlements *ledger.SettlementService,
	predictions *ledger.PredictionService,
	requestTimeout time.Duration,
) *Handler {
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	return &Handler{
		users:          users,
		crops:          crops,
		orders:         orders,
		settlements:    settlements,
		predictions:    predictions,
		requestTimeout: requestTimeout,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/users/register", h.registerUser)
		v1.GET("/users/:id", h.getUser)
		v1.PUT("/users/:id", h.updateUser)

		v1.POST("/crops", h.addCrop)
		v1.GET("/crops", h.listCrops)
		v1.GET("/crops/:id", h.getCrop)
		v1.PUT("/crops/:id", h.updateCrop)
		v1.DELETE("/crops/:id", h.deleteCrop)

		v1.POST("/orders", h.placeOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", h.updateOrderStatus)

		v1.POST("/transactions", h.recordTransaction)
		v1.PATCH("/transactions/:id", h.settleTransaction)
		v1.GET("/transactions/user/:userId", h.getUserTransactions)

		v1.PUT("/predictions", h.upsertPrediction)
		v1.GET("/predictions", h.getPrediction)
	}
}

// requestContext applies the store timeout so a slow backend surfaces as
// Timeout instead of hanging the request.
func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.requestTimeout)
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// registerUser handles user registration
func (h *Handler) registerUser(c *gin.Context) {
	var req ledger.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.users.Register(ctx, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.users.GetUser(ctx, id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) updateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ledger.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.users.UpdateProfile(ctx, id, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// addCrop handles new listings
func (h *Handler) addCrop(c *gin.Context) {
	var req ledger.AddCropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	crop, err := h.crops.AddCrop(ctx, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"crop": crop})
}

func (h *Handler) listCrops(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	crops, err := h.crops.ListCrops(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"crops": crops})
}

func (h *Handler) getCrop(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	crop, farmer, err := h.crops.GetCrop(ctx, id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"crop": crop, "farmer": farmer})
}

func (h *Handler) updateCrop(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ledger.UpdateCropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	crop, err := h.crops.UpdateCrop(ctx, id, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"crop": crop})
}

func (h *Handler) deleteCrop(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.crops.DeleteCrop(ctx, id); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "crop deleted"})
}

// placeOrder reserves stock and creates the order, recording the payment
// transaction alongside it.
func (h *Handler) placeOrder(c *gin.Context) {
	var req ledger.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.orders.PlaceOrder(ctx, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	txn, err := h.settlements.RecordTransaction(ctx, &ledger.RecordTransactionRequest{
		UserID:        order.BuyerID,
		OrderID:       order.ID,
		Amount:        order.TotalPrice,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		// The order stands; payment can be recorded again via POST
		// /transactions.
		c.JSON(http.StatusCreated, gin.H{"order": order, "payment_error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order, "transaction": txn})
}

func (h *Handler) listOrders(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, crop, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order, "crop": crop})
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed delivered cancelled"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.orders.UpdateOrderStatus(ctx, id, req.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) recordTransaction(c *gin.Context) {
	var req ledger.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	txn, err := h.settlements.RecordTransaction(ctx, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": txn})
}

type settleTransactionRequest struct {
	Outcome      string `json:"outcome" binding:"required,oneof=completed failed"`
	ProviderTxID string `json:"provider_tx_id,omitempty"`
}

func (h *Handler) settleTransaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req settleTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	txn, err := h.settlements.SettleTransaction(ctx, id, req.Outcome, req.ProviderTxID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

func (h *Handler) getUserTransactions(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	txns, err := h.settlements.GetUserTransactions(ctx, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

func (h *Handler) upsertPrediction(c *gin.Context) {
	var req ledger.UpsertPredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	p, err := h.predictions.Upsert(ctx, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"prediction": p})
}

func (h *Handler) getPrediction(c *gin.Context) {
	cropName := c.Query("cropName")
	region := c.Query("region")
	if cropName == "" || region == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cropName and region are required"})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	p, err := h.predictions.Get(ctx, cropName, region)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"prediction": p})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"course-payment-service/internal/apperr"
	"course-payment-service/internal/service"
	"course-payment-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	payments     *service.PaymentService
	stateMachine *service.PaymentStateMachine
	access       *service.AccessService
	certificates *service.CertificateService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	payments *service.PaymentService,
	stateMachine *service.PaymentStateMachine,
	access *service.AccessService,
	certificates *service.CertificateService,
) *Handler {
	return &Handler{
		payments:     payments,
		stateMachine: stateMachine,
		access:       access,
		certificates: certificates,
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
		v1.POST("/payments", h.createPayment)
		v1.POST("/payments/retry", h.retryPayment)
		v1.GET("/payments/:id", h.getPayment)
		v1.PATCH("/payments/:id/invoice", h.invoicePayment)
		v1.PATCH("/payments/:id/confirm", h.confirmPayment)
		v1.PATCH("/payments/:id/reject", h.rejectPayment)
		v1.DELETE("/payments/:id", h.deletePayment)
		v1.GET("/courses/:id/access", h.courseAccess)
		v1.GET("/users/:id/courses", h.listUserCourses)
		v1.GET("/users/:id/payments", h.listUserPayments)
		v1.POST("/certificates/issue", h.issueCertificate)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createPayment handles new purchase intents
func (h *Handler) createPayment(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_BODY",
			"message": err.Error(),
		})
		return
	}

	payment, err := h.payments.CreatePayment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// retryPayment handles retry after rejection or expiry
func (h *Handler) retryPayment(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_BODY",
			"message": err.Error(),
		})
		return
	}

	payment, err := h.payments.RetryPayment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// getPayment handles get payment by ID
func (h *Handler) getPayment(c *gin.Context) {
	paymentID, ok := paramID(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

type invoiceRequest struct {
	InvoiceURL string `json:"invoice_url" binding:"required,url"`
}

// invoicePayment attaches an invoice URL (admin action)
func (h *Handler) invoicePayment(c *gin.Context) {
	paymentID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_BODY",
			"message": err.Error(),
		})
		return
	}

	if err := h.stateMachine.Invoice(c.Request.Context(), paymentID, req.InvoiceURL); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "invoiced"})
}

// confirmPayment confirms a payment and grants access (admin action)
func (h *Handler) confirmPayment(c *gin.Context) {
	paymentID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.stateMachine.Confirm(c.Request.Context(), paymentID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

// rejectPayment rejects a payment (admin action)
func (h *Handler) rejectPayment(c *gin.Context) {
	paymentID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.stateMachine.Reject(c.Request.Context(), paymentID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// deletePayment removes the caller's own pending payment
func (h *Handler) deletePayment(c *gin.Context) {
	paymentID, ok := paramID(c, "id")
	if !ok {
		return
	}

	userID, ok := headerUserID(c)
	if !ok {
		return
	}

	if err := h.payments.DeletePayment(c.Request.Context(), userID, paymentID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// courseAccess reports whether the caller can open a course
func (h *Handler) courseAccess(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}

	userID, ok := headerUserID(c)
	if !ok {
		return
	}

	hasAccess, err := h.access.HasAccess(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"has_access": hasAccess})
}

// listUserCourses lists the user's accessible courses
func (h *Handler) listUserCourses(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	courses, err := h.access.ListAccessibleCourses(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// listUserPayments lists the user's payment history, newest first
func (h *Handler) listUserPayments(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	payments, err := h.payments.ListPayments(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

type issueCertificateRequest struct {
	UserID   int64 `json:"user_id" binding:"required"`
	CourseID int64 `json:"course_id" binding:"required"`
}

// issueCertificate triggers eligibility-gated certificate issuance
func (h *Handler) issueCertificate(c *gin.Context) {
	var req issueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_BODY",
			"message": err.Error(),
		})
		return
	}

	cert, err := h.certificates.IssueIfEligible(c.Request.Context(), req.UserID, req.CourseID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cert)
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_ID",
			"message": "identifier must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func headerUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_USER",
			"message": "X-User-ID header is required",
		})
		return 0, false
	}
	return userID, true
}

func respondError(c *gin.Context, err error) {
	if ae, ok := apperr.As(err); ok {
		c.JSON(ae.Status, gin.H{"error": ae.Code, "message": ae.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "INTERNAL",
		"message": "unexpected error",
	})
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

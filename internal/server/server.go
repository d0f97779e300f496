package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/invoiced/internal/config"
	customerdomain "github.com/smallbiznis/invoiced/internal/customer/domain"
	dashboarddomain "github.com/smallbiznis/invoiced/internal/dashboard/domain"
	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
	"github.com/smallbiznis/invoiced/internal/observability"
	obsmiddleware "github.com/smallbiznis/invoiced/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/invoiced/internal/observability/metrics"
	obstracing "github.com/smallbiznis/invoiced/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/invoiced/internal/payment/domain"
	productdomain "github.com/smallbiznis/invoiced/internal/product/domain"
	"github.com/smallbiznis/invoiced/internal/providers/pdf"
	"github.com/smallbiznis/invoiced/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	customerSvc    customerdomain.Service
	productSvc     productdomain.Service
	invoiceSvc     invoicedomain.Service
	paymentSvc     paymentdomain.Service
	dashboardSvc   dashboarddomain.Service
	pdfProvider    pdf.Provider
	paymentLimiter *ratelimit.PaymentLimiter
	obsMetrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	CustomerSvc    customerdomain.Service
	ProductSvc     productdomain.Service
	InvoiceSvc     invoicedomain.Service
	PaymentSvc     paymentdomain.Service
	DashboardSvc   dashboarddomain.Service
	PDFProvider    pdf.Provider
	PaymentLimiter *ratelimit.PaymentLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		customerSvc:    p.CustomerSvc,
		productSvc:     p.ProductSvc,
		invoiceSvc:     p.InvoiceSvc,
		paymentSvc:     p.PaymentSvc,
		dashboardSvc:   p.DashboardSvc,
		pdfProvider:    p.PDFProvider,
		paymentLimiter: p.PaymentLimiter,
		obsMetrics:     p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Customers --------
	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers/:id", s.GetCustomerByID)
	api.PUT("/customers/:id", s.UpdateCustomer)
	api.DELETE("/customers/:id", s.DeleteCustomer)

	// -------- Products --------
	api.GET("/products", s.ListProducts)
	api.POST("/products", s.CreateProduct)
	api.GET("/products/popular", s.ListPopularProducts)
	api.GET("/products/:id", s.GetProductByID)
	api.PUT("/products/:id", s.UpdateProduct)
	api.DELETE("/products/:id", s.DeleteProduct)

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PUT("/invoices/:id", s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.DeleteInvoice)
	api.PATCH("/invoices/:id/status", s.SetInvoiceStatus)
	api.GET("/invoices/:id/pdf", s.GetInvoicePDF)
	api.POST("/invoices/overdue-sweep", s.SweepOverdueInvoices)

	// -------- Payments --------
	api.POST("/invoices/:id/payments", s.PaymentRateLimit(), s.RecordPayment)
	api.GET("/invoices/:id/payments", s.ListPayments)
	api.GET("/invoices/:id/payments/:paymentId/receipt", s.GetPaymentReceipt)

	// -------- Dashboard --------
	api.GET("/dashboard/stats", s.GetDashboardStats)
}

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ruledomain "github.com/smallbiznis/kontera/internal/assignmentrule/domain"
	budgetdomain "github.com/smallbiznis/kontera/internal/budget/domain"
	"github.com/smallbiznis/kontera/internal/config"
	contactdomain "github.com/smallbiznis/kontera/internal/contact/domain"
	costcenterdomain "github.com/smallbiznis/kontera/internal/costcenter/domain"
	documentdomain "github.com/smallbiznis/kontera/internal/document/domain"
	"github.com/smallbiznis/kontera/internal/observability"
	obsmiddleware "github.com/smallbiznis/kontera/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/kontera/internal/observability/metrics"
	obstracing "github.com/smallbiznis/kontera/internal/observability/tracing"
	productdomain "github.com/smallbiznis/kontera/internal/product/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
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
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	costCenterSvc costcenterdomain.Service
	contactSvc    contactdomain.Service
	productSvc    productdomain.Service
	ruleSvc       ruledomain.Service
	documentSvc   documentdomain.Service
	budgetSvc     budgetdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	CostCenterSvc costcenterdomain.Service
	ContactSvc    contactdomain.Service
	ProductSvc    productdomain.Service
	RuleSvc       ruledomain.Service
	DocumentSvc   documentdomain.Service
	BudgetSvc     budgetdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		costCenterSvc: p.CostCenterSvc,
		contactSvc:    p.ContactSvc,
		productSvc:    p.ProductSvc,
		ruleSvc:       p.RuleSvc,
		documentSvc:   p.DocumentSvc,
		budgetSvc:     p.BudgetSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	costCenters := v1.Group("/cost_centers")
	costCenters.POST("", s.CreateCostCenter)
	costCenters.GET("", s.ListCostCenters)
	costCenters.GET("/:id", s.GetCostCenter)
	costCenters.PATCH("/:id", s.UpdateCostCenter)
	costCenters.POST("/:id/activate", s.ActivateCostCenter)
	costCenters.POST("/:id/deactivate", s.DeactivateCostCenter)
	costCenters.DELETE("/:id", s.DeleteCostCenter)

	contacts := v1.Group("/contacts")
	contacts.POST("", s.CreateContact)
	contacts.GET("", s.ListContacts)
	contacts.GET("/:id", s.GetContact)
	contacts.PATCH("/:id", s.UpdateContact)
	contacts.PUT("/:id/tag", s.SetContactTag)

	products := v1.Group("/products")
	products.POST("", s.CreateProduct)
	products.GET("", s.ListProducts)
	products.GET("/:id", s.GetProduct)
	products.PATCH("/:id", s.UpdateProduct)

	rules := v1.Group("/assignment_rules")
	rules.POST("", s.CreateAssignmentRule)
	rules.GET("", s.ListAssignmentRules)
	rules.GET("/:id", s.GetAssignmentRule)
	rules.PATCH("/:id", s.UpdateAssignmentRule)
	rules.PUT("/:id/enabled", s.SetAssignmentRuleEnabled)
	rules.POST("/resolve", s.ResolveCostCenter)

	documents := v1.Group("/documents")
	documents.POST("", s.CreateDocument)
	documents.GET("", s.ListDocuments)
	documents.GET("/:id", s.GetDocument)
	documents.PUT("/:id/lines", s.UpdateDocumentLines)
	documents.POST("/:id/post", s.PostDocument)
	documents.POST("/:id/payments", s.RegisterDocumentPayment)
	documents.POST("/:id/cancel", s.CancelDocument)

	budgets := v1.Group("/budgets")
	budgets.POST("", s.CreateBudget)
	budgets.GET("", s.ListBudgets)
	budgets.GET("/:id", s.GetBudget)
	budgets.PATCH("/:id", s.UpdateBudget)
	budgets.POST("/:id/confirm", s.ConfirmBudget)
	budgets.POST("/:id/revise", s.ReviseBudget)
	budgets.POST("/:id/archive", s.ArchiveBudget)
	budgets.POST("/:id/recalculate", s.RecalculateBudget)
	budgets.GET("/:id/revisions", s.ListBudgetRevisions)
	budgets.POST("/aggregate", s.AggregateBudget)
}

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seftec/platform/internal/config"
	"github.com/seftec/platform/internal/creditlimit"
	"github.com/seftec/platform/internal/featureflag"
	"github.com/seftec/platform/internal/featureflag/broadcast"
	flagdomain "github.com/seftec/platform/internal/featureflag/domain"
	"github.com/seftec/platform/internal/observability"
	obsmiddleware "github.com/seftec/platform/internal/observability/logger"
	obsmetrics "github.com/seftec/platform/internal/observability/metrics"
	obstracing "github.com/seftec/platform/internal/observability/tracing"
	"github.com/seftec/platform/internal/tradefinance"
	tfdomain "github.com/seftec/platform/internal/tradefinance/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	creditlimit.Module,
	featureflag.Module,
	tradefinance.Module,
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	flagSvc         flagdomain.Service
	flagHub         *broadcast.Hub
	tradeFinanceSvc tfdomain.Service
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	FlagSvc         flagdomain.Service
	FlagHub         *broadcast.Hub
	TradeFinanceSvc tfdomain.Service
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		flagSvc:         p.FlagSvc,
		flagHub:         p.FlagHub,
		tradeFinanceSvc: p.TradeFinanceSvc,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerFlagRoutes()
	svc.registerTradeFinanceRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerFlagRoutes() {
	flags := s.engine.Group("/v1/flags")

	// Evaluation accepts anonymous callers; admin operations require a user.
	flags.GET("/:name/evaluate", s.UserOptional(), s.EvaluateFlag)
	flags.POST("/evaluate", s.UserOptional(), s.EvaluateFlags)
	flags.GET("/stream", s.UserOptional(), s.StreamFlagChanges)

	flags.GET("", s.UserRequired(), s.ListFlags)
	flags.PATCH("/:name", s.UserRequired(), s.UpdateFlag)
}

func (s *Server) registerTradeFinanceRoutes() {
	tf := s.engine.Group("/v1/trade-finance", s.UserRequired())

	tf.GET("/summary", s.GetTradeFinanceSummary)

	applications := tf.Group("/applications")
	{
		applications.GET("", s.ListApplications)
		applications.POST("", s.CreateApplication)
		applications.GET("/:id", s.GetApplication)
		applications.PATCH("/:id", s.UpdateApplication)
		applications.POST("/:id/submit", s.SubmitApplication)
		applications.POST("/:id/withdraw", s.WithdrawApplication)
		applications.GET("/:id/documents", s.ListApplicationDocuments)
		applications.POST("/:id/documents", s.AttachApplicationDocument)
		applications.GET("/:id/transactions", s.ListApplicationTransactions)
	}
}

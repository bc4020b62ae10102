package router

import (
	"time"

	"gestionventas/internal/config"
	"gestionventas/internal/handler"
	"gestionventas/internal/infra"
	"gestionventas/internal/middleware"
	"gestionventas/internal/model"
	"gestionventas/internal/repository"
	"gestionventas/internal/service"
	"gestionventas/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

const serviceName = "gestionventas"

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil: jobs then fall back to direct writes and the cache is off.
// eventos may be nil as well: sales are then not broadcast.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker, eventos *infra.EventPublisher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	proformaRepo := repository.NewProformaRepository(db)
	clienteRepo := repository.NewClienteRepository(db)
	contadorRepo := repository.NewContadorRepository(db)
	comprobanteRepo := repository.NewComprobanteRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)
	auditoriaRepo := repository.NewAuditoriaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	// Worker dispatcher: injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)
	cache := service.NewProductoCache(rdb, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	ventaCfg := service.VentaConfig{
		IGVRate:     decimal.NewFromFloat(cfg.IGVRate),
		IGVIncluido: cfg.IGVIncluido,
		MaxRetries:  cfg.TxMaxRetries,
	}

	auditoriaSvc := service.NewAuditoriaService(auditoriaRepo, dispatcher)
	secuenciador := service.NewSecuenciador(contadorRepo)
	authSvc := service.NewAuthService(usuarioRepo, auditoriaSvc, cfg)
	inventarioSvc := service.NewInventarioService(productoRepo, movimientoStockRepo, auditoriaSvc, cache, cfg.TxMaxRetries)
	productoSvc := service.NewProductoService(productoRepo, secuenciador, inventarioSvc, auditoriaSvc, cache, cfg.TxMaxRetries)
	documentos := infra.NewDocumentoClient(cfg, infra.NewCircuitBreaker(infra.DefaultCBConfig("documentos")))
	clienteSvc := service.NewClienteService(clienteRepo, proformaRepo, auditoriaSvc, documentos)
	proformaSvc := service.NewProformaService(proformaRepo, clienteRepo, secuenciador, auditoriaSvc, ventaCfg)
	ventaSvc := service.NewVentaService(
		ventaRepo, proformaRepo, clienteRepo, comprobanteRepo,
		secuenciador, inventarioSvc, auditoriaSvc, dispatcher, cache, eventos, ventaCfg,
	)
	reporteSvc := service.NewReporteService(ventaRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	productosH := handler.NewProductosHandler(productoSvc, inventarioSvc)
	inventarioH := handler.NewInventarioHandler(inventarioSvc)
	ventasH := handler.NewVentasHandler(ventaSvc)
	proformasH := handler.NewProformasHandler(proformaSvc)
	clientesH := handler.NewClientesHandler(clienteSvc)
	auditoriaH := handler.NewAuditoriaHandler(auditoriaSvc)
	contadoresH := handler.NewContadoresHandler(secuenciador, auditoriaSvc)
	reportesH := handler.NewReportesHandler(reporteSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, smtpCB, documentos.Breaker()))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Roles: admin manages everything, seller sells and manages
	// proformas/clientes, viewer reads.
	lectura := middleware.RequireRole(model.RolAdmin, model.RolSeller, model.RolViewer)
	venta := middleware.RequireRole(model.RolAdmin, model.RolSeller)
	admin := middleware.RequireRole(model.RolAdmin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		ventas := v1.Group("/ventas")
		{
			ventas.POST("", venta, ventasH.RegistrarVenta)
			ventas.GET("", lectura, ventasH.ListarVentas)
			ventas.GET("/:id", lectura, ventasH.ObtenerVenta)
			ventas.GET("/:id/pdf", lectura, ventasH.DescargarPDF)
		}

		proformas := v1.Group("/proformas")
		{
			proformas.POST("", venta, proformasH.Crear)
			proformas.GET("", lectura, proformasH.Listar)
			proformas.GET("/:id", lectura, proformasH.Obtener)
			proformas.PUT("/:id", venta, proformasH.Actualizar)
			proformas.PATCH("/:id/confirmar", venta, proformasH.Confirmar)
		}

		clientes := v1.Group("/clientes")
		{
			clientes.POST("", venta, clientesH.Crear)
			clientes.GET("", lectura, clientesH.Listar)
			clientes.GET("/:id", lectura, clientesH.Obtener)
			clientes.GET("/documento/:numero", venta, clientesH.ConsultarDocumento)
			clientes.PUT("/:id", venta, clientesH.Actualizar)
			clientes.DELETE("/:id", venta, clientesH.Eliminar)
		}

		productos := v1.Group("/productos")
		{
			productos.GET("", lectura, productosH.Listar)
			productos.GET("/:id", lectura, productosH.ObtenerPorID)
			productos.GET("/codigo/:codigo", lectura, productosH.ObtenerPorCodigo)
			// Write operations: admin only
			productos.POST("", admin, productosH.Crear)
			productos.POST("/importar", admin, productosH.ImportarCSV)
			productos.PUT("/:id", admin, productosH.Actualizar)
			productos.DELETE("/:id", admin, productosH.Desactivar)
			productos.PATCH("/:id/stock", admin, productosH.AjustarStock)
		}

		inv := v1.Group("/inventario", venta)
		{
			inv.GET("/alertas", inventarioH.ObtenerAlertas)
			inv.GET("/movimientos", inventarioH.ListarMovimientos)
		}

		reportes := v1.Group("/reportes", middleware.RequireRole(model.RolAdmin, model.RolViewer))
		{
			reportes.GET("/resumen", reportesH.Resumen)
			reportes.GET("/por-dia", reportesH.PorDia)
			reportes.GET("/top-productos", reportesH.TopProductos)
		}

		v1.GET("/auditoria", admin, auditoriaH.Listar)

		contadores := v1.Group("/contadores", admin)
		{
			contadores.GET("", contadoresH.Listar)
			contadores.GET("/:id", contadoresH.Obtener)
			contadores.PUT("/:id", contadoresH.Reiniciar)
		}

		usuarios := v1.Group("/usuarios", admin)
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
			usuarios.PUT("/:id", usuariosH.Actualizar)
			usuarios.DELETE("/:id", usuariosH.Desactivar)
			usuarios.PATCH("/:id/reactivar", usuariosH.Reactivar)
		}
	}

	// Swagger UI: only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

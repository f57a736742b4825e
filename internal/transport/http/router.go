package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/meghatales/bookstore/internal/handlers"
	"github.com/meghatales/bookstore/internal/service/token"
)

type Deps struct {
	AuthHandler      *handlers.AuthHandler
	CatalogHandler   *handlers.CatalogHandler
	LibraryHandler   *handlers.LibraryHandler
	CartHandler      *handlers.CartHandler
	PreviewHandler   *handlers.PreviewHandler
	DashboardHandler *handlers.DashboardHandler
	SearchHandler    *handlers.SearchHandler
	TokenService     *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	e.GET("/files/:path", d.LibraryHandler.ServeFile)

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.GET("/search", d.SearchHandler.Search)

	v1.GET("/books", d.CatalogHandler.GetBooks)
	v1.GET("/books/:id", d.CatalogHandler.GetBook)
	v1.GET("/pdfs", d.LibraryHandler.GetPDFs)
	v1.GET("/magazine", d.CatalogHandler.GetMagazinePosts)
	v1.GET("/materials", d.LibraryHandler.GetStudyMaterials)
	v1.GET("/edu-books", d.CatalogHandler.GetEducationalBooks)

	admin := v1.Group("/admin", d.TokenService.AutoRefreshMiddlewareAdmin)
	admin.POST("/books", d.CatalogHandler.CreateBook)
	admin.PATCH("/books/:id", d.CatalogHandler.PatchBook)
	admin.DELETE("/books/:id", d.CatalogHandler.DeleteBook)
	admin.POST("/pdfs", d.LibraryHandler.UploadPDF)
	admin.DELETE("/pdfs/:id", d.LibraryHandler.DeletePDF)
	admin.POST("/materials", d.LibraryHandler.UploadStudyMaterial)
	admin.POST("/magazine", d.CatalogHandler.CreateMagazinePost)
	admin.DELETE("/magazine/:id", d.CatalogHandler.DeleteMagazinePost)

	// the cart is anonymous session state, checkout alone needs a login
	crt := v1.Group("/cart")
	crt.GET("", d.CartHandler.GetCart)
	crt.POST("", d.CartHandler.AddToCart)
	crt.PATCH("/:id", d.CartHandler.UpdateQuantity)
	crt.DELETE("/:id", d.CartHandler.RemoveFromCart)
	crt.DELETE("", d.CartHandler.ClearCart)
	crt.POST("/checkout", d.CartHandler.Checkout, d.TokenService.AutoRefreshMiddleware)

	prev := v1.Group("/preview", d.TokenService.AutoRefreshMiddleware)
	prev.POST("/:id/start", d.PreviewHandler.Start)
	prev.POST("/tick", d.PreviewHandler.Tick)
	prev.POST("/stop", d.PreviewHandler.Stop)
	prev.GET("/remaining", d.PreviewHandler.Remaining)

	v1.GET("/dashboard", d.DashboardHandler.GetDashboard, d.TokenService.AutoRefreshMiddleware)
}

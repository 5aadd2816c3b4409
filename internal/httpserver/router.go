package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/veritas_shop/internal/metrics"
	middleware "github.com/Skotchmaster/veritas_shop/pkg/middleware/auth"
)

type Deps struct {
	UserHandler    *UserHTTP
	ProductHandler *ProductHTTP
	CartHandler    *CartHTTP
	OrderHandler   *OrderHTTP
	BlogHandler    *BlogHTTP
	WebhookHandler *WebhookHTTP

	Auth *middleware.AutoRefreshMiddleware

	// Ready reports whether the process can serve traffic, usually a DB ping.
	Ready func(ctx context.Context) error

	FrontendDir string
	UploadsDir  string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api")
	api.POST("/verify-token", d.UserHandler.VerifyToken)
	api.GET("/get-session", d.UserHandler.GetSession, d.Auth.RequireAuth)

	users := api.Group("/users")
	users.POST("/register", d.UserHandler.Register)
	users.POST("/login", d.UserHandler.Login)
	users.POST("/admin-login", d.UserHandler.AdminLogin)
	users.POST("/refresh", d.UserHandler.Refresh)
	users.GET("/verify-email/:token", d.UserHandler.VerifyEmail)
	users.POST("/resend-verification", d.UserHandler.ResendVerification)
	users.POST("/forgot-password", d.UserHandler.ForgotPassword)
	users.POST("/reset-password", d.UserHandler.ResetPassword)

	me := users.Group("", d.Auth.RequireAuth)
	me.GET("/logout", d.UserHandler.Logout)
	me.PUT("/change-name", d.UserHandler.ChangeName)
	me.PUT("/change-password", d.UserHandler.ChangePassword)
	me.GET("/getuser", d.UserHandler.GetUser)
	me.GET("/current-plan", d.UserHandler.CurrentPlan)
	me.PUT("/upgrade-plan", d.UserHandler.UpgradePlan)

	usersAdmin := users.Group("", d.Auth.RequireAdmin)
	usersAdmin.GET("/admin-logout", d.UserHandler.Logout)
	usersAdmin.GET("/getalluser", d.UserHandler.GetAllUsers)
	usersAdmin.PUT("/ban-user/:id", d.UserHandler.BanUser)
	usersAdmin.PUT("/unban-user/:id", d.UserHandler.UnbanUser)

	products := api.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/search", d.ProductHandler.SearchProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("/:id/review", d.ProductHandler.AddReview, d.Auth.RequireAuth)

	productsAdmin := products.Group("", d.Auth.RequireAdmin)
	productsAdmin.POST("/addproduct", d.ProductHandler.CreateProduct)
	productsAdmin.PUT("/:id", d.ProductHandler.UpdateProduct)
	productsAdmin.DELETE("/:id", d.ProductHandler.DeleteProduct)

	cart := api.Group("/cart", d.Auth.RequireAuth)
	cart.GET("/getcart", d.CartHandler.GetCart)
	cart.POST("/addtocart", d.CartHandler.AddToCart)
	cart.POST("/removefromcart", d.CartHandler.RemoveFromCart)
	cart.POST("/checkout", d.CartHandler.StartCheckout)
	cart.POST("/buycart", d.CartHandler.BuyCart)
	cart.DELETE("", d.CartHandler.ClearCart)

	orders := api.Group("/orders")
	orders.GET("/mine", d.OrderHandler.MyOrders, d.Auth.RequireAuth)

	ordersAdmin := orders.Group("", d.Auth.RequireAdmin)
	ordersAdmin.GET("/all", d.OrderHandler.AllOrders)
	ordersAdmin.GET("/:id", d.OrderHandler.GetOrder)
	ordersAdmin.PUT("/:id/status", d.OrderHandler.UpdateStatus)
	ordersAdmin.DELETE("/:id", d.OrderHandler.DeleteOrder)

	blog := api.Group("/blog")
	blog.GET("/all", d.BlogHandler.ListBlogs)
	blog.GET("/:id", d.BlogHandler.GetBlog)
	blog.POST("/:id/comment", d.BlogHandler.AddComment)

	blogAdmin := blog.Group("", d.Auth.RequireAdmin)
	blogAdmin.POST("/create", d.BlogHandler.CreateBlog)
	blogAdmin.PUT("/:id", d.BlogHandler.UpdateBlog)
	blogAdmin.DELETE("/:id", d.BlogHandler.DeleteBlog)

	api.POST("/stripe/webhook", d.WebhookHandler.Stripe)

	registerStatic(e, d.FrontendDir, d.UploadsDir)
}

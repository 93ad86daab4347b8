package api

import (
	"database/sql"
	"net/http"

	"tradepost/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	itemsHandler := &ItemsHandler{DB: db}
	categoriesHandler := &CategoriesHandler{DB: db}
	conversationsHandler := &ConversationsHandler{DB: db}
	reviewsHandler := &ReviewsHandler{DB: db}
	sellersHandler := &SellersHandler{DB: db}
	wishlistHandler := &WishlistHandler{DB: db}
	settingsHandler := &SettingsHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret)
	optionalMW := OptionalAuth(jwtSecret)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public: account creation and login.
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Public browsing. Optional auth so signed-in users get wishlist flags.
	mux.Handle("GET /api/items", optionalMW(http.HandlerFunc(itemsHandler.Browse)))
	mux.Handle("GET /api/items/{id}", optionalMW(http.HandlerFunc(itemsHandler.Get)))
	mux.HandleFunc("GET /api/items/{id}/image", itemsHandler.GetImage)
	mux.HandleFunc("GET /api/feed", itemsHandler.Feed)
	mux.HandleFunc("GET /api/lookup", itemsHandler.Lookup)
	mux.HandleFunc("GET /api/categories", categoriesHandler.List)
	mux.HandleFunc("GET /api/sellers/{id}", sellersHandler.Get)
	mux.HandleFunc("GET /api/sellers/{id}/reviews", reviewsHandler.List)

	// Account.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Listings: create freely, modify only your own.
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("PUT /api/items/{id}/sold", authMW(http.HandlerFunc(itemsHandler.MarkSold)))
	mux.Handle("PUT /api/items/{id}/image", authMW(http.HandlerFunc(itemsHandler.UploadImage)))
	mux.Handle("GET /api/dashboard", authMW(http.HandlerFunc(itemsHandler.Dashboard)))

	// Messaging.
	mux.Handle("POST /api/items/{id}/contact", authMW(http.HandlerFunc(conversationsHandler.Contact)))
	mux.Handle("GET /api/conversations", authMW(http.HandlerFunc(conversationsHandler.Inbox)))
	mux.Handle("GET /api/conversations/{id}", authMW(http.HandlerFunc(conversationsHandler.Get)))
	mux.Handle("POST /api/conversations/{id}/messages", authMW(http.HandlerFunc(conversationsHandler.PostMessage)))

	// Reviews.
	mux.Handle("POST /api/sellers/{id}/reviews", authMW(http.HandlerFunc(reviewsHandler.Create)))

	// Wishlist.
	mux.Handle("POST /api/items/{id}/wishlist", authMW(http.HandlerFunc(wishlistHandler.Toggle)))
	mux.Handle("GET /api/wishlist", authMW(http.HandlerFunc(wishlistHandler.List)))

	// Admin.
	mux.Handle("POST /api/categories", authMW(requireAdmin(http.HandlerFunc(categoriesHandler.Create))))
	mux.Handle("PUT /api/settings/page-size", authMW(requireAdmin(http.HandlerFunc(settingsHandler.SetPageSize))))

	return mux
}

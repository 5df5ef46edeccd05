package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/koino/internal/config"
	"github.com/example/koino/internal/handlers"
	"github.com/example/koino/internal/middleware"
	"github.com/example/koino/internal/models"
	"github.com/example/koino/internal/services"
)

// Register wires up all HTTP routes. Mutating routes follow the gate
// order auth -> access -> validation, so validation failures never leak
// resource existence to unauthorized callers.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, chain *services.BlockchainService, files *services.FileService, log zerolog.Logger) {
	authHandler := handlers.NewAuthHandler(db, cfg, chain, log)
	resetHandler := handlers.NewPasswordResetHandler(db, cfg)
	loyaltyHandler := handlers.NewLoyaltyHandler(db, chain, log)
	campaignHandler := handlers.NewCampaignHandler(db, files, log)
	supportHandler := handlers.NewSupportHandler(db, chain, log)
	partnerHandler := handlers.NewPartnerHandler(db, files, log)
	contentHandler := handlers.NewContentHandler(db)
	adminHandler := handlers.NewAdminHandler(db)
	statusHandler := handlers.NewStatusHandler(db, chain, cfg)

	requireAuth := middleware.Auth(db, cfg)
	optionalAuth := middleware.OptionalAuth(db, cfg)
	onlyMerchant := middleware.RequireRoles(models.RoleMerchant)
	merchantOrAdmin := middleware.RequireRoles(models.RoleMerchant, models.RoleAdmin)
	onlyAdmin := middleware.RequireRoles(models.RoleAdmin)
	resolveCustomer := middleware.ResolveCustomer(db)

	// Auth
	auth := app.Group("/auth")
	auth.Post("/register", middleware.ValidateBody[handlers.RegisterRequest](), authHandler.Register)
	auth.Post("/login", middleware.ValidateBody[handlers.LoginRequest](), authHandler.Login)
	auth.Post("/forgot_pass", middleware.ValidateBody[handlers.ForgotPasswordRequest](), resetHandler.ForgotPassword)
	auth.Post("/reset_pass", middleware.ValidateBody[handlers.ResetPasswordRequest](), resetHandler.ResetPassword)

	// Loyalty points
	loyalty := app.Group("/loyalty")
	loyalty.Post("/earn", requireAuth, onlyMerchant,
		middleware.ValidateBody[handlers.EarnPointsRequest](), resolveCustomer, loyaltyHandler.Earn)
	loyalty.Post("/redeem", requireAuth, onlyMerchant,
		middleware.ValidateBody[handlers.RedeemPointsRequest](), resolveCustomer, loyaltyHandler.Redeem)
	loyalty.Get("/balance", requireAuth, loyaltyHandler.Balance)
	loyalty.Get("/balance/:_to", requireAuth, onlyMerchant, resolveCustomer, loyaltyHandler.BalanceOf)
	loyalty.Get("/badge", requireAuth, loyaltyHandler.Badge)
	loyalty.Get("/badge/:_to", requireAuth, onlyMerchant, resolveCustomer, loyaltyHandler.BadgeOf)
	loyalty.Get("/transactions", requireAuth, loyaltyHandler.Transactions)
	loyalty.Get("/partners_info", requireAuth, loyaltyHandler.PartnersInfo)
	loyalty.Get("/transactions_info", requireAuth, loyaltyHandler.TransactionsInfo)

	// Microcredit campaigns
	micro := app.Group("/microcredit")
	micro.Get("/campaigns/public/:merchant_id?", campaignHandler.ListPublic)
	micro.Get("/campaigns/private/:merchant_id?", requireAuth, campaignHandler.ListPrivate)
	micro.Post("/campaigns/:merchant_id", requireAuth, merchantOrAdmin, middleware.RequireOwner("merchant_id"),
		middleware.ValidateBody[handlers.CampaignRequest](), campaignHandler.Create)
	micro.Get("/campaigns/:merchant_id/:campaign_id", requireAuth, merchantOrAdmin, middleware.RequireOwner("merchant_id"),
		middleware.RequireUUIDParams("merchant_id", "campaign_id"), campaignHandler.Get)
	micro.Get("/campaigns/:merchant_id/:campaign_id/totals", requireAuth, merchantOrAdmin, middleware.RequireOwner("merchant_id"),
		middleware.RequireUUIDParams("merchant_id", "campaign_id"), campaignHandler.Totals)
	micro.Put("/campaigns/:merchant_id/:campaign_id", requireAuth, merchantOrAdmin, middleware.RequireOwner("merchant_id"),
		middleware.RequireUUIDParams("merchant_id", "campaign_id"),
		middleware.ValidateBody[handlers.UpdateCampaignRequest](), campaignHandler.Update)
	micro.Delete("/campaigns/:merchant_id/:campaign_id", requireAuth, merchantOrAdmin, middleware.RequireOwner("merchant_id"),
		middleware.RequireUUIDParams("merchant_id", "campaign_id"), campaignHandler.Delete)

	// Microcredit supports
	micro.Post("/earn/:merchant_id/:campaign_id", requireAuth,
		middleware.RequireUUIDParams("merchant_id", "campaign_id"),
		middleware.ValidateBody[handlers.PromiseRequest](), supportHandler.Promise)
	micro.Put("/supports/:merchant_id/:campaign_id/:support_id/confirm", requireAuth, merchantOrAdmin,
		middleware.RequireOwner("merchant_id"),
		middleware.RequireUUIDParams("merchant_id", "campaign_id", "support_id"), supportHandler.Confirm)
	micro.Put("/supports/:merchant_id/:campaign_id/:support_id/revert", requireAuth, merchantOrAdmin,
		middleware.RequireOwner("merchant_id"),
		middleware.RequireUUIDParams("merchant_id", "campaign_id", "support_id"), supportHandler.Revert)
	micro.Post("/redeem/:merchant_id/:campaign_id/:support_id", requireAuth, merchantOrAdmin,
		middleware.RequireOwner("merchant_id"),
		middleware.RequireUUIDParams("merchant_id", "campaign_id", "support_id"),
		middleware.ValidateBody[handlers.SpendRequest](), supportHandler.Spend)

	// Partner directory and profile
	partners := app.Group("/partners")
	partners.Get("/public/:offset", partnerHandler.List)
	partners.Get("/:partner_id", partnerHandler.Get)
	partners.Put("/:partner_id", requireAuth, merchantOrAdmin, middleware.RequireOwner("partner_id"),
		middleware.ValidateBody[handlers.UpdatePartnerRequest](), partnerHandler.Update)

	// Merchant community content
	partners.Get("/:merchant_id/offers", contentHandler.ListOffers)
	partners.Post("/:merchant_id/offers", requireAuth, merchantOrAdmin, middleware.RequireOwner("merchant_id"),
		middleware.ValidateBody[handlers.OfferRequest](), contentHandler.CreateOffer)
	partners.Put("/:merchant_id/offers/:offer_id", requireAuth, merchantOrAdmin, middleware.RequireOwner("merchant_id"),
		middleware.RequireUUIDParams("merchant_id", "offer_id"),
		middleware.ValidateBody[handlers.OfferRequest](), contentHandler.UpdateOffer)
	partners.Delete("/:merchant_id/offers/:offer_id", requireAuth, merchantOrAdmin, middleware.RequireOwner("merchant_id"),
		middleware.RequireUUIDParams("merchant_id", "offer_id"), contentHandler.DeleteOffer)

	partners.Get("/:merchant_id/posts", optionalAuth, contentHandler.ListPosts)
	partners.Post("/:merchant_id/posts", requireAuth, merchantOrAdmin, middleware.RequireOwner("merchant_id"),
		middleware.ValidateBody[handlers.PostRequest](), contentHandler.CreatePost)
	partners.Delete("/:merchant_id/posts/:post_id", requireAuth, merchantOrAdmin, middleware.RequireOwner("merchant_id"),
		middleware.RequireUUIDParams("merchant_id", "post_id"), contentHandler.DeletePost)

	partners.Get("/:merchant_id/events", optionalAuth, contentHandler.ListEvents)
	partners.Post("/:merchant_id/events", requireAuth, merchantOrAdmin, middleware.RequireOwner("merchant_id"),
		middleware.ValidateBody[handlers.EventRequest](), contentHandler.CreateEvent)
	partners.Delete("/:merchant_id/events/:event_id", requireAuth, merchantOrAdmin, middleware.RequireOwner("merchant_id"),
		middleware.RequireUUIDParams("merchant_id", "event_id"), contentHandler.DeleteEvent)

	// Community-wide content feeds
	community := app.Group("/community")
	community.Get("/offers", contentHandler.ListOffers)
	community.Get("/posts", optionalAuth, contentHandler.ListPosts)
	community.Get("/events", optionalAuth, contentHandler.ListEvents)

	// Admin
	app.Get("/admin/stats", requireAuth, onlyAdmin, adminHandler.Stats)

	// Health probe
	app.Get("/status", statusHandler.Status)
}

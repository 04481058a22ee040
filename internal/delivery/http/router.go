package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"estateadmin/internal/delivery/http/controllers"
	"estateadmin/internal/delivery/http/middleware"
	"estateadmin/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes. The
// invite write routes (create/revoke) are rate-limited in addition to being
// authenticated.
func NewRouter(
	verifier domain.TokenVerifier,
	limiter *middleware.SlidingWindow,
	authController *controllers.AuthController,
	estateController *controllers.EstateController,
	inviteController *controllers.InviteController,
) *http.ServeMux {
	mux := http.NewServeMux()

	auth := middleware.RequireAuth(verifier)
	limited := middleware.RateLimit(limiter)

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)
	mux.HandleFunc("GET /me", auth(authController.Me))

	// Estates
	mux.HandleFunc("POST /estates", auth(estateController.Create))
	mux.HandleFunc("GET /estates", auth(estateController.List))
	mux.HandleFunc("GET /estates/{estateID}", auth(estateController.Get))

	// Collaborators
	mux.HandleFunc("GET /estates/{estateID}/collaborators", auth(estateController.ListCollaborators))
	mux.HandleFunc("PATCH /estates/{estateID}/collaborators/{userID}", auth(estateController.ChangeCollaboratorRole))
	mux.HandleFunc("DELETE /estates/{estateID}/collaborators/{userID}", auth(estateController.RemoveCollaborator))

	// Audit trail
	mux.HandleFunc("GET /estates/{estateID}/audit", auth(estateController.ListAuditEvents))

	// Invites
	mux.HandleFunc("GET /estates/{estateID}/invites", auth(inviteController.List))
	mux.HandleFunc("POST /estates/{estateID}/invites", auth(limited(inviteController.Create)))
	mux.HandleFunc("DELETE /estates/{estateID}/invites", auth(limited(inviteController.Revoke)))
	mux.HandleFunc("POST /estates/{estateID}/invites/{token}/accept", auth(inviteController.Accept))
	mux.HandleFunc("POST /invites/{token}/accept", auth(inviteController.AcceptByToken))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

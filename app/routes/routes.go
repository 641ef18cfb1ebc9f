package routes

import (
	"net/http"
	"time"

	"blogapi/app/controllers"
	"blogapi/app/metrics"
	"blogapi/app/middleware"
	"blogapi/app/services"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Dependencies are the services and settings the HTTP layer is built from.
type Dependencies struct {
	Posts    *services.PostService
	Votes    *services.VoteService
	Comments *services.CommentService
	Users    *services.UserService
	Search   *services.SearchService

	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	Version        string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(deps Dependencies) *mux.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Route-aware middleware; the outer chain lives in NewHandler.
	router.Use(middleware.Metrics(deps.Metrics))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Timeout(deps.RequestTimeout))

	homeController := controllers.NewHomeController(deps.Version)
	postController := controllers.NewPostController(deps.Posts, deps.Votes, deps.Comments, logger.Named("http"))
	commentController := controllers.NewCommentController(deps.Comments, logger.Named("http"))
	voteController := controllers.NewVoteController(deps.Votes, logger.Named("http"))
	searchController := controllers.NewSearchController(deps.Search, logger.Named("http"))
	authController := controllers.NewAuthController(deps.Users, logger.Named("http"))

	requireAuth := middleware.RequireAuth(deps.Users)
	optionalAuth := middleware.OptionalAuth(deps.Users)
	protected := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }

	router.HandleFunc("/", homeController.Index).Methods("GET")
	router.HandleFunc("/ping", homeController.Ping).Methods("GET")
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}

	// API routes
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", authController.Register).Methods("POST")
	api.HandleFunc("/auth/login", authController.Login).Methods("POST")
	api.Handle("/auth/me", protected(authController.Me)).Methods("GET")
	api.Handle("/users/{id:[0-9]+}", optionalAuth(http.HandlerFunc(authController.ShowUser))).Methods("GET")

	// Posts API endpoints
	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", postController.Index).Methods("GET")
	posts.Handle("", protected(postController.Create)).Methods("POST")
	posts.HandleFunc("/{id:[0-9]+}", postController.Show).Methods("GET")
	posts.Handle("/{id:[0-9]+}", protected(postController.Update)).Methods("PUT")
	posts.Handle("/{id:[0-9]+}", protected(postController.Delete)).Methods("DELETE")

	// Comments API endpoints
	posts.HandleFunc("/{id:[0-9]+}/comments", commentController.Index).Methods("GET")
	posts.Handle("/{id:[0-9]+}/comments", protected(commentController.Create)).Methods("POST")

	// Votes
	posts.Handle("/{id:[0-9]+}/vote", protected(voteController.Vote)).Methods("POST")
	posts.Handle("/{id:[0-9]+}/vote-status", protected(voteController.Status)).Methods("GET")

	api.HandleFunc("/search", searchController.Search).Methods("GET")

	return router
}

// NewHandler wraps the router with the middleware that must also see
// unmatched requests: request ids, access logging, panic recovery and CORS.
func NewHandler(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	var h http.Handler = SetupRoutes(deps)
	h = middleware.Recoverer(logger)(h)
	h = middleware.Logger(logger.Named("access"))(h)
	h = middleware.RequestID(h)
	h = cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	})(h)
	return h
}

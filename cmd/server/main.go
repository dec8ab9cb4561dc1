package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"classquiz/internal/auth"
	"classquiz/internal/class"
	"classquiz/internal/config"
	"classquiz/internal/httpx"
	"classquiz/internal/models"
	"classquiz/internal/quiz"
	"classquiz/pkg/cache"
	"classquiz/pkg/database"
	"classquiz/pkg/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.NewPostgresDB(&cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db, models.All()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis is optional; without it every read goes to the database.
	var quizCache quiz.Cache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			log.Printf("Warning: redis at %s unreachable, continuing without cache: %v", cfg.RedisAddr, err)
		} else {
			quizCache = redisCache
			defer redisCache.Close()
		}
		cancel()
	}

	wsHub := websocket.NewHub(cfg.CORSOrigins)
	go wsHub.Run()

	// Initialize repositories
	authRepo := auth.NewRepository(db)
	classRepo := class.NewRepository(db)
	quizRepo := quiz.NewRepository(db)

	// Initialize services
	authService := auth.NewService(authRepo, cfg.JWTSecret, cfg.TokenTTL)
	classService := class.NewService(classRepo)
	quizService := quiz.NewService(quizRepo, classService, quizCache, wsHub)

	// Initialize handlers
	authHandler := auth.NewHandler(authService)
	classHandler := class.NewHandler(classService)
	quizHandler := quiz.NewHandler(quizService, wsHub)

	router := mux.NewRouter()
	router.Use(httpx.RequestLogger)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// Auth routes - no JWT required
	router.HandleFunc("/api/auth/signup", authHandler.Signup).Methods("POST")
	router.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")

	// Everything else - JWT required
	api := router.PathPrefix("/api").Subrouter()
	api.Use(authService.Middleware)

	teacherOnly := auth.RequireRole(models.RoleTeacher)
	studentOnly := auth.RequireRole(models.RoleStudent)

	api.HandleFunc("/users/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/users/me", authHandler.UpdateMe).Methods("PUT")

	api.HandleFunc("/classes", classHandler.ListClasses).Methods("GET")
	api.Handle("/classes", teacherOnly(http.HandlerFunc(classHandler.CreateClass))).Methods("POST")
	api.HandleFunc("/classes/{classId}", classHandler.GetClass).Methods("GET")
	api.Handle("/classes/{classId}", teacherOnly(http.HandlerFunc(classHandler.RenameClass))).Methods("PUT")
	api.Handle("/classes/{classId}", teacherOnly(http.HandlerFunc(classHandler.DeleteClass))).Methods("DELETE")
	api.Handle("/classes/{classId}/students", teacherOnly(http.HandlerFunc(classHandler.AddStudent))).Methods("POST")
	api.Handle("/classes/{classId}/students/{studentId}", teacherOnly(http.HandlerFunc(classHandler.RemoveStudent))).Methods("DELETE")
	api.Handle("/classes/{classId}/join", studentOnly(http.HandlerFunc(classHandler.Join))).Methods("POST")
	api.Handle("/classes/{classId}/leave", studentOnly(http.HandlerFunc(classHandler.Leave))).Methods("POST")

	quizzes := api.PathPrefix("/classes/{classId}/quizzes").Subrouter()
	quizzes.HandleFunc("", quizHandler.ListQuizzes).Methods("GET")
	quizzes.Handle("", teacherOnly(http.HandlerFunc(quizHandler.CreateQuiz))).Methods("POST")
	quizzes.HandleFunc("/{quizId}", quizHandler.GetQuiz).Methods("GET")
	quizzes.Handle("/{quizId}", teacherOnly(http.HandlerFunc(quizHandler.UpdateQuiz))).Methods("PUT")
	quizzes.Handle("/{quizId}", teacherOnly(http.HandlerFunc(quizHandler.DeleteQuiz))).Methods("DELETE")
	quizzes.Handle("/{quizId}/submit", studentOnly(http.HandlerFunc(quizHandler.SubmitResponses))).Methods("POST")
	quizzes.Handle("/{quizId}/result", studentOnly(http.HandlerFunc(quizHandler.MyResult))).Methods("GET")
	quizzes.Handle("/{quizId}/results", teacherOnly(http.HandlerFunc(quizHandler.Results))).Methods("GET")
	quizzes.Handle("/{quizId}/results/export", teacherOnly(http.HandlerFunc(quizHandler.ExportResults))).Methods("GET")
	quizzes.HandleFunc("/{quizId}/results/{studentId}", quizHandler.StudentResult).Methods("GET")
	quizzes.HandleFunc("/{quizId}/leaderboard", quizHandler.Leaderboard).Methods("GET")

	// WebSocket endpoint; the token may come as ?token=
	ws := router.PathPrefix("/ws").Subrouter()
	ws.Use(authService.Middleware)
	ws.Handle("/classes/{classId}/quizzes/{quizId}", teacherOnly(http.HandlerFunc(quizHandler.Watch)))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", httpx.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition", httpx.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      corsMiddleware.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s (%s)", cfg.HTTPAddr, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown setup
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server shutdown gracefully")
}

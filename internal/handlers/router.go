package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"library-lending/internal/lending"
	"library-lending/internal/middleware"
)

type Deps struct {
	Borrowals      *lending.Service
	Books          BookStore
	Users          UserStore
	AuditLogger    lending.AuditLogger
	Log            *zap.Logger
	Prefix         string
	TokenTTL       time.Duration
	RequestTimeout time.Duration
	HashCost       int
	Now            func() time.Time // defaults to time.Now
}

func adminOnly(fn http.HandlerFunc) http.Handler {
	return middleware.AdminOnly(fn)
}

// NewRouter wires every route under d.Prefix; /healthz stays at the root.
func NewRouter(d Deps) *mux.Router {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log), middleware.JSONMiddleware, middleware.Timeout(d.RequestTimeout))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"OK"}`))
	}).Methods("GET")

	api := r
	if d.Prefix != "" {
		api = r.PathPrefix(d.Prefix).Subrouter()
	}

	authHandler := &AuthHandler{Users: d.Users, AuditLogger: d.AuditLogger, TokenTTL: d.TokenTTL, Log: log}
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	borrowalHandler := NewBorrowalHandler(d.Borrowals)
	borrowals := api.PathPrefix("/borrowal").Subrouter()
	borrowals.Use(middleware.JWTAuthMiddleware)
	borrowals.HandleFunc("/getAll", borrowalHandler.GetAll).Methods("GET")
	borrowals.HandleFunc("/get/{id}", borrowalHandler.Get).Methods("GET")
	borrowals.HandleFunc("/add", borrowalHandler.Add).Methods("POST")
	borrowals.HandleFunc("/update/{id}", borrowalHandler.Update).Methods("PUT")
	borrowals.HandleFunc("/delete/{id}", borrowalHandler.Delete).Methods("DELETE")
	borrowals.HandleFunc("/pay-fine/{id}", borrowalHandler.PayFine).Methods("PUT")

	bookHandler := NewBookHandler(d.Books, d.AuditLogger)
	bookHandler.Now = now
	books := api.PathPrefix("/book").Subrouter()
	books.Use(middleware.JWTAuthMiddleware)
	books.HandleFunc("/getAll", bookHandler.GetBooks).Methods("GET")
	books.HandleFunc("/get/{id}", bookHandler.GetBook).Methods("GET")
	books.HandleFunc("/category/{category}", bookHandler.GetBooksByCategory).Methods("GET")
	books.HandleFunc("/status/{status}", bookHandler.GetBooksByStatus).Methods("GET")
	books.Handle("/add", adminOnly(bookHandler.AddBook)).Methods("POST")
	books.Handle("/update/{id}", adminOnly(bookHandler.UpdateBook)).Methods("PUT")
	books.Handle("/delete/{id}", adminOnly(bookHandler.DeleteBook)).Methods("DELETE")

	userHandler := NewUserHandler(d.Users, d.AuditLogger)
	userHandler.HashCost = d.HashCost
	userHandler.Now = now
	users := api.PathPrefix("/user").Subrouter()
	users.Use(middleware.JWTAuthMiddleware)
	users.Handle("/add", adminOnly(userHandler.RegisterUser)).Methods("POST")
	users.Handle("/getAll", adminOnly(userHandler.GetUsers)).Methods("GET")
	users.HandleFunc("/get/{id}", userHandler.GetUser).Methods("GET")

	metricsHandler := &MetricsHandler{Books: d.Books, Users: d.Users, Borrowals: d.Borrowals, Now: now}
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.JWTAuthMiddleware, middleware.AdminOnly)
	admin.HandleFunc("/metrics", metricsHandler.GetMetrics).Methods("GET")

	return r
}

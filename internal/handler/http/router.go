package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterOptions carries the deployment values the router needs.
type RouterOptions struct {
	AllowedOrigins []string
	Env            string
	Version        string
}

func NewRouter(JWTService jwt.Service, opts RouterOptions, payrollHandler PayrollHandler, debtHandler DebtHandler, missionHandler MissionHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-payroll-engine"),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1/payroll", func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

		// Manager or owner
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireManager)

			r.Route("/runs", func(r chi.Router) {
				r.Post("/compute", payrollHandler.Compute)
				r.Post("/persist", payrollHandler.Persist)
			})

			r.Route("/periods/{year}/{month}", func(r chi.Router) {
				r.Get("/totals", payrollHandler.PeriodTotals)
				r.Get("/settlements", payrollHandler.ListSettlements)
			})

			r.Route("/settlements/{employeeId}/{year}/{month}", func(r chi.Router) {
				r.Get("/", payrollHandler.GetSettlement)
				r.Post("/validate", payrollHandler.Validate)

				// Owner only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireOwner)
					r.Post("/revert", payrollHandler.RevertToDraft)
					r.Post("/pay", payrollHandler.MarkPaid)
				})
			})

			r.Post("/advances", debtHandler.CreateAdvance)
			r.Route("/credits", func(r chi.Router) {
				r.Post("/", debtHandler.CreateCredit)
				r.Get("/{id}", debtHandler.GetCredit)
			})

			r.Post("/missions/distance", missionHandler.BillableDistance)
		})

		// Owner only
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOwner)

			r.Route("/parameters", func(r chi.Router) {
				r.Get("/", payrollHandler.ListParameters)
				r.Post("/", payrollHandler.CreateParameters)
				r.Post("/{version}/activate", payrollHandler.ActivateParameters)
			})

			r.Route("/tax-tables", func(r chi.Router) {
				r.Get("/", payrollHandler.ListTaxTables)
				r.Post("/", payrollHandler.CreateTaxTable)
				r.Post("/{version}/activate", payrollHandler.ActivateTaxTable)
			})
		})
	})
	return r
}

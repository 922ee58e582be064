// Command jwtkeys administra las claves de firma JWT por app: aprovisiona la
// tabla, lista y rota claves, firma tokens de prueba y sirve el JWKS por HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	httpx "github.com/dropDatabas3/jwtkeys/internal/http"
	jwtx "github.com/dropDatabas3/jwtkeys/internal/jwt"
	"github.com/dropDatabas3/jwtkeys/internal/observability/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile    string
		configPath string
		out        string
	)

	root := &cobra.Command{
		Use:           "jwtkeys",
		Short:         "Claves de firma JWT multi-app sobre Postgres",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				_ = godotenv.Load(envFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "ruta a .env (se ignora si no existe)")
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "ruta a config.yaml (env CONFIG_PATH)")
	root.PersistentFlags().StringVar(&out, "out", "text", "formato de salida: json|text")

	// withApp carga config, arma dependencias y las libera al terminar.
	withApp := func(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(ctx, a, args)
		}
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Crea la tabla de claves de firma y su índice (idempotente)",
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			if err := a.schema.Provision(ctx, a.pool); err != nil {
				return err
			}
			fmt.Println("ok:", a.cfg.JWTSigningKeysTable())
			return nil
		}),
	}

	var appID string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lista las claves de un app (la más reciente primero)",
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			ks, err := a.manager.VerificationKeys(ctx, appID)
			if err != nil {
				return err
			}
			rows := make([]keyRow, 0, len(ks))
			for _, k := range ks {
				rows = append(rows, newKeyRow(k))
			}
			return printRows(out, rows)
		}),
	}

	rotateCmd := &cobra.Command{
		Use:   "rotate",
		Short: "Fuerza una clave estática nueva para el app",
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			k, err := a.manager.Rotate(ctx, appID)
			if err != nil {
				return err
			}
			return printRows(out, []keyRow{newKeyRow(k)})
		}),
	}

	var (
		sub string
		aud string
		ttl time.Duration
	)
	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "Emite un access token de prueba con la clave vigente del app",
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			if sub == "" {
				return fmt.Errorf("--sub es requerido")
			}
			iss := a.newIssuer()
			iss.AccessTTL = ttl
			tok, exp, err := iss.IssueAccess(ctx, appID, sub, aud, nil)
			if err != nil {
				return err
			}
			if out == "json" {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{"token": tok, "expires_at": exp})
			}
			fmt.Println(tok)
			return nil
		}),
	}
	signCmd.Flags().StringVar(&sub, "sub", "", "claim sub")
	signCmd.Flags().StringVar(&aud, "aud", "", "claim aud (opcional)")
	signCmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "vida del token")

	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Sirve /apps/{appID}/.well-known/jwks.json, /healthz y /metrics",
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			c, err := a.newCache(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			mh, err := httpx.RegisterMetrics(httpx.MetricsConfig{Pool: a.pool})
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			h := httpx.NewRouter(httpx.Deps{
				JWKS:    jwtx.NewJWKSCacheFromKeys(c, a.cfg.JWKSTTL(), a.manager),
				Health:  map[string]httpx.Pinger{"postgres": a.pool, "cache": c},
				Metrics: mh,
			})
			return httpx.Serve(ctx, addr, h)
		}),
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "dirección de escucha (default server.addr)")

	for _, c := range []*cobra.Command{listCmd, rotateCmd, signCmd} {
		c.Flags().StringVar(&appID, "app", "public", "app dueño de las claves")
	}

	root.AddCommand(migrateCmd, listCmd, rotateCmd, signCmd, serveCmd)
	return root
}

// keyRow es la vista de una clave sin el material secreto.
type keyRow struct {
	KeyID     string    `json:"key_id"`
	Algorithm string    `json:"algorithm"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

func printRows(out string, rows []keyRow) error {
	if out == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY_ID\tALG\tKIND\tCREATED_AT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.KeyID, r.Algorithm, r.Kind, r.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"linearmcp/internal/app"
	"linearmcp/internal/config"
	"linearmcp/internal/linear"
	"linearmcp/internal/resolve"
	apiserver "linearmcp/internal/server"
	"linearmcp/internal/webhook"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "lmcp",
	Short: "Linear MCP server",
	Long: `lmcp exposes Linear as MCP tools and receives Linear webhooks.
- Tools accept human references (ENG-123, team keys, emails, state and label names) and resolve them to Linear IDs.
- Webhooks are accepted only with a valid linear-signature and a fresh webhookTimestamp; accepted deliveries can be relayed downstream.
- Configuration lives in linearmcp.yml; LMCP_* environment variables override it.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("LMCP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", config.Path("."), "config file")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides config)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(stdioCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(teamsCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(statesCmd())
	rootCmd.AddCommand(labelsCmd())
	rootCmd.AddCommand(webhookCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(configCmd())
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over HTTP, the resolve API and the webhook endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			a, err := app.Wire(cfg, logger, version)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"addr":      ln.Addr().String(),
				"base_path": cfg.Server.BasePath,
				"mcp":       apiserver.MCPPath,
				"webhook":   apiserver.WebhookPath,
				"relay":     a.Relay != nil,
			}).Info("serving")
			srv := &http.Server{Handler: a.Handler, ReadHeaderTimeout: 10 * time.Second}
			if err := runServer(ctx, srv, ln, a.Drain, logger); err != nil {
				return err
			}
			logger.Info("stopped")
			return nil
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides config)")
	_ = viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func stdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve the MCP tools over stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			a, err := app.Wire(cfg, logger, version)
			if err != nil {
				return err
			}
			return server.ServeStdio(a.MCP)
		},
	}
}

func resolveCmd() *cobra.Command {
	var teamKey string
	cmd := &cobra.Command{
		Use:   "resolve <classify|issue|team|user|state|project|labels> <ref>...",
		Short: "Resolve references to Linear IDs",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, refs := args[0], args[1:]
			if kind == "classify" {
				rows := make([]resolvedRow, 0, len(refs))
				for _, ref := range refs {
					c := resolve.Classify(ref)
					detail := ""
					if c.Kind == resolve.CompoundKey {
						detail = fmt.Sprintf("team=%s number=%d", c.TeamKey, c.Number)
					}
					rows = append(rows, resolvedRow{Kind: c.Kind.String(), Ref: ref, ID: detail})
				}
				return printResolved(rows)
			}
			return withResolver(cmd.Context(), func(ctx context.Context, _ *linear.Client, r *resolve.Resolver) error {
				teamID := ""
				if teamKey != "" {
					id, err := r.TeamID(ctx, teamKey)
					if err != nil {
						return err
					}
					teamID = id
				}
				needTeam := func() error {
					if teamID == "" {
						return fmt.Errorf("--team required for %s", kind)
					}
					return nil
				}
				var rows []resolvedRow
				switch kind {
				case "labels":
					ids, err := r.LabelIDs(ctx, refs, teamID)
					if err != nil {
						return err
					}
					for i, id := range ids {
						rows = append(rows, resolvedRow{Kind: resolve.KindLabel, Ref: refs[i], ID: id})
					}
					return printResolved(rows)
				case "state", "project":
					if err := needTeam(); err != nil {
						return err
					}
				}
				for _, ref := range refs {
					var id, label string
					var err error
					switch kind {
					case "issue":
						label = resolve.KindIssue
						id, err = r.IssueID(ctx, ref)
					case "team":
						label = resolve.KindTeam
						id, err = r.TeamID(ctx, ref)
					case "user":
						label = resolve.KindUser
						id, err = r.UserIDByEmail(ctx, ref)
					case "state":
						label = resolve.KindState
						id, err = r.StateID(ctx, ref, teamID)
					case "project":
						label = resolve.KindProject
						id, err = r.ProjectID(ctx, ref, teamID)
					default:
						return fmt.Errorf("unknown kind %q", kind)
					}
					if err != nil {
						return err
					}
					rows = append(rows, resolvedRow{Kind: label, Ref: ref, ID: id})
				}
				return printResolved(rows)
			})
		},
	}
	cmd.Flags().StringVar(&teamKey, "team", "", "team key scoping state, project and label lookups")
	return cmd
}

func teamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teams",
		Short: "List teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd.Context(), func(ctx context.Context, c *linear.Client, _ *resolve.Resolver) error {
				var data linear.TeamsData
				if err := c.Query(ctx, linear.QueryTeams, nil, &data); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(data.Teams.Nodes)
				}
				tw := newTable("ID", "Key", "Name")
				for _, t := range data.Teams.Nodes {
					tw.AppendRow(table.Row{t.ID, t.Key, t.Name})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd.Context(), func(ctx context.Context, c *linear.Client, _ *resolve.Resolver) error {
				var data linear.UsersData
				if err := c.Query(ctx, linear.QueryUsers, nil, &data); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(data.Users.Nodes)
				}
				tw := newTable("ID", "Name", "Email")
				for _, u := range data.Users.Nodes {
					tw.AppendRow(table.Row{u.ID, u.Name, u.Email})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func statesCmd() *cobra.Command {
	var teamKey string
	cmd := &cobra.Command{
		Use:   "states",
		Short: "List the workflow states of a team",
		RunE: func(cmd *cobra.Command, args []string) error {
			if teamKey == "" {
				return fmt.Errorf("--team required")
			}
			return withResolver(cmd.Context(), func(ctx context.Context, _ *linear.Client, r *resolve.Resolver) error {
				teamID, err := r.TeamID(ctx, teamKey)
				if err != nil {
					return err
				}
				states, err := r.States(ctx, teamID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(states)
				}
				tw := newTable("ID", "Name", "Type")
				for _, s := range states {
					tw.AppendRow(table.Row{s.ID, s.Name, s.Type})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&teamKey, "team", "", "team key")
	return cmd
}

func labelsCmd() *cobra.Command {
	var teamKey string
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "List issue labels, optionally for one team",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withResolver(cmd.Context(), func(ctx context.Context, _ *linear.Client, r *resolve.Resolver) error {
				teamID := ""
				if teamKey != "" {
					id, err := r.TeamID(ctx, teamKey)
					if err != nil {
						return err
					}
					teamID = id
				}
				labels, err := r.Labels(ctx, teamID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(labels)
				}
				tw := newTable("ID", "Name")
				for _, l := range labels {
					tw.AppendRow(table.Row{l.ID, l.Name})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&teamKey, "team", "", "team key")
	return cmd
}

func webhookCmd() *cobra.Command {
	hook := &cobra.Command{Use: "webhook", Short: "Webhook helpers"}
	hook.AddCommand(webhookSignCmd())
	return hook
}

func webhookSignCmd() *cobra.Command {
	var file, secret string
	var stamp bool
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the linear-signature for a payload (stdin or --file)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = viper.GetString("webhook_secret")
			}
			if secret == "" {
				return fmt.Errorf("--secret or LMCP_WEBHOOK_SECRET required")
			}
			var body []byte
			var err error
			if file == "" || file == "-" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}
			if stamp {
				body, err = stampTimestamp(body, time.Now())
				if err != nil {
					return err
				}
			}
			sig := webhook.Sign(secret, body)
			if viper.GetBool("json") {
				return printJSON(map[string]string{webhook.SignatureHeader: sig, "body": string(body)})
			}
			if stamp {
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "payload file (default stdin)")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (default LMCP_WEBHOOK_SECRET)")
	cmd.Flags().BoolVar(&stamp, "stamp", false, "set webhookTimestamp to now before signing and print the body")
	return cmd
}

// stampTimestamp rewrites webhookTimestamp in a JSON object payload.
func stampTimestamp(body []byte, now time.Time) ([]byte, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	payload["webhookTimestamp"] = now.UnixMilli()
	return json.Marshal(payload)
}

func tokenCmd() *cobra.Command {
	var subject string
	var scopes []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for /mcp and the resolve API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(io.Discard)
			if err != nil {
				return err
			}
			token, err := apiserver.IssueToken(cfg.Server.JWTSecret, subject, scopes, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "local-agent", "token subject")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{apiserver.ScopeTools, apiserver.ScopeResolve}, "scopes to embed (tools for /mcp, resolve for the API)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime (0 for no expiry)")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect linearmcp.yml",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("config")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(io.Discard)
			if err != nil {
				return err
			}
			redacted := cfg.Redacted()
			if viper.GetBool("json") {
				return printJSON(redacted)
			}
			out, err := yaml.Marshal(redacted)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

// --- helpers ---

const shutdownTimeout = 10 * time.Second

// runServer serves on ln until ctx is done, then shuts the server down and
// drains pending work within shutdownTimeout before returning.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener, drain func(context.Context) error, logger logrus.FieldLogger) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("http shutdown")
		}
		if err := drain(shutdownCtx); err != nil {
			logger.WithError(err).Warn("relay deliveries still pending at shutdown")
		}
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

// loadConfig reads the config file, applies LMCP_* overrides and builds the
// logger writing to logOut.
func loadConfig(logOut io.Writer) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadOptional(viper.GetString("config"))
	if err != nil {
		return nil, nil, err
	}
	applyOverrides(cfg, viper.GetString)
	if err := cfg.Finalize(); err != nil {
		return nil, nil, err
	}
	logger, err := app.NewLogger(cfg, logOut)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func applyOverrides(cfg *config.Config, get func(string) string) {
	fields := map[string]*string{
		"addr":           &cfg.Server.Addr,
		"base_path":      &cfg.Server.BasePath,
		"jwt_secret":     &cfg.Server.JWTSecret,
		"linear_api_key": &cfg.Linear.APIKey,
		"graphql_url":    &cfg.Linear.GraphQLURL,
		"webhook_secret": &cfg.Webhook.Secret,
		"forward_url":    &cfg.Webhook.ForwardURL,
		"forward_secret": &cfg.Webhook.ForwardSecret,
		"log_level":      &cfg.Log.Level,
		"log_format":     &cfg.Log.Format,
	}
	for key, dst := range fields {
		if v := strings.TrimSpace(get(key)); v != "" {
			*dst = v
		}
	}
}

func withResolver(ctx context.Context, fn func(context.Context, *linear.Client, *resolve.Resolver) error) error {
	cfg, logger, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	client, err := app.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	r := resolve.New(client)
	r.Logger = logger
	return fn(ctx, client, r)
}

type resolvedRow struct {
	Kind string `json:"kind"`
	Ref  string `json:"ref"`
	ID   string `json:"id"`
}

func printResolved(rows []resolvedRow) error {
	if viper.GetBool("json") {
		return printJSON(rows)
	}
	tw := newTable("Kind", "Ref", "ID")
	for _, r := range rows {
		tw.AppendRow(table.Row{r.Kind, r.Ref, r.ID})
	}
	tw.Render()
	return nil
}

func newTable(headers ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(headers))
	return tw
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

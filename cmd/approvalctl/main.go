package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/garyjia/finance-approval/internal/config"
	"github.com/garyjia/finance-approval/internal/container"
	domainwf "github.com/garyjia/finance-approval/internal/domain/workflow"
	"github.com/garyjia/finance-approval/pkg/utils"
)

// cli carries the flag-bound settings shared by every subcommand
type cli struct {
	v *viper.Viper
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if cat := domainwf.Classify(err); cat != domainwf.CategoryInternal {
			fmt.Fprintln(os.Stderr, "category:", cat)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix("APPROVALCTL")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "approvalctl",
		Short: "Operate the document approval engine from the command line",
		Long: `approvalctl drives settlements and purchase orders through the approval chain.
It opens the same database as the API server and applies actions in-process.

Identity is taken from --actor-id and --role; every action needs a signature.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "path to the YAML config file")
	flags.Bool("json", false, "output JSON")
	flags.String("actor-id", "cli-user", "actor identifier")
	flags.String("role", "", "actor role (SUBMITTER, AM_ADMIN, HOD_ADMIN, AUDITOR, FINANCE, CEO_OFFICE)")
	flags.String("log-level", "warn", "log level written to stderr")
	for _, name := range []string{"config", "json", "actor-id", "role", "log-level"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(c.documentCmd())
	root.AddCommand(c.actionCmd())
	root.AddCommand(c.observationCmd())
	root.AddCommand(c.settleCmd())
	root.AddCommand(c.payableCmd())
	root.AddCommand(c.exportCmd())
	root.AddCommand(c.migrateCmd())
	return root
}

// withContainer loads configuration, starts the container without serving HTTP and closes it after fn
func (c *cli) withContainer(ctx context.Context, fn func(context.Context, *container.Container) error) error {
	cfg, err := config.Load(c.v.GetString("config"))
	if err != nil {
		return err
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      c.v.GetString("log-level"),
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctr, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := ctr.Start(ctx); err != nil {
		return err
	}
	defer ctr.Close()

	return fn(ctx, ctr)
}

func (c *cli) actorID() string {
	return c.v.GetString("actor-id")
}

// role returns the --role flag, failing when it is not a known role
func (c *cli) role() (domainwf.Role, error) {
	role := domainwf.Role(strings.ToUpper(strings.TrimSpace(c.v.GetString("role"))))
	if !role.IsValid() {
		return "", fmt.Errorf("--role must be a known role, got %q", role)
	}
	return role, nil
}

func (c *cli) jsonOutput() bool {
	return c.v.GetBool("json")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

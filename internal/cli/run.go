package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vvka-141/dsload/internal/audit"
	"github.com/vvka-141/dsload/internal/config"
	"github.com/vvka-141/dsload/internal/db"
	"github.com/vvka-141/dsload/internal/loader"
	"github.com/vvka-141/dsload/internal/logging"
	"github.com/vvka-141/dsload/internal/normalize"
	"github.com/vvka-141/dsload/internal/reader"
	"github.com/vvka-141/dsload/pkg/dsload"
)

var runCmd = &cobra.Command{
	Use:   "run [source_dir]",
	Short: "Load all configured source files into the warehouse",
	Long: `Run loads every configured table from its source file into the warehouse.

The run command:
1. Verifies that every mapped source file exists
2. Connects to PostgreSQL using the configured authentication method
3. Waits the configured startup delay, then loads tables in order
4. Records every attempt in the logs.etl_logs audit table

A table that fails to load is recorded as failed and the run continues with
the remaining tables; the exit code stays 0. Check the audit trail or the
printed summary for per-table outcomes.

Arguments:
  source_dir    Directory containing the source files and an optional
                dsload.yaml (default: current directory)

Password Authentication:
  Use $DB_PASSWORD, a .env file, dsload.yaml, or the -W prompt.
  Never pass passwords in shell commands (visible in history and process list)

Examples:
  # Load the built-in table set from the current directory
  dsload run

  # Load from a data directory against a remote warehouse
  dsload run /data/incoming --host warehouse.internal -d bank_db -U etl -W

  # Load with AWS RDS IAM authentication
  dsload run /data/incoming --aws --aws-region eu-west-1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

type runFlagValues struct {
	host, username, database, sslMode    string
	port                                 int
	passwordPrompt                       bool
	azure                                bool
	azureTenantID, azureClientID         string
	aws                                  bool
	awsRegion                            string
	google                               bool
	googleInstance                       string
	startupDelay                         time.Duration
	batchSize                            int
}

var runFlags runFlagValues

func init() {
	rootCmd.AddCommand(runCmd)

	// Granular connection flags
	// Precedence: flag > environment variable > dsload.yaml > default
	runCmd.Flags().StringVarP(&runFlags.host, "host", "h", "",
		"PostgreSQL server host\n"+
			"Precedence: --host > $DB_HOST > dsload.yaml > localhost")
	runCmd.Flags().IntVarP(&runFlags.port, "port", "p", 0,
		"PostgreSQL server port\n"+
			"Precedence: --port > $DB_PORT > dsload.yaml > 5432")
	runCmd.Flags().StringVarP(&runFlags.username, "username", "U", "",
		"PostgreSQL user (default: $DB_USER or postgres)")
	runCmd.Flags().StringVarP(&runFlags.database, "database", "d", "",
		"Target database name (default: $DB_NAME or bank_db)")
	runCmd.Flags().StringVar(&runFlags.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full")
	runCmd.Flags().BoolVarP(&runFlags.passwordPrompt, "password-prompt", "W", false,
		"Prompt for the password on the terminal before connecting")

	// Azure Entra ID flags
	runCmd.Flags().BoolVar(&runFlags.azure, "azure", false,
		"Enable Azure Entra ID authentication\n"+
			"Uses DefaultAzureCredential chain (Managed Identity, Azure CLI, etc.)")
	runCmd.Flags().StringVar(&runFlags.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	runCmd.Flags().StringVar(&runFlags.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")

	// AWS RDS IAM flags
	runCmd.Flags().BoolVar(&runFlags.aws, "aws", false,
		"Enable AWS RDS IAM database authentication")
	runCmd.Flags().StringVar(&runFlags.awsRegion, "aws-region", "",
		"AWS region of the RDS instance (overrides $AWS_REGION)")

	// Google Cloud SQL flags
	runCmd.Flags().BoolVar(&runFlags.google, "google", false,
		"Enable Google Cloud SQL IAM authentication")
	runCmd.Flags().StringVar(&runFlags.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")

	// Pipeline flags
	runCmd.Flags().DurationVar(&runFlags.startupDelay, "startup-delay", dsload.DefaultStartupDelay,
		"Fixed pause before the first table loads\n"+
			"Gives co-scheduled infrastructure time to come up. Use 0s to skip.")
	runCmd.Flags().IntVar(&runFlags.batchSize, "batch-size", 0,
		"Rows per database round trip (default 1000)")
}

// flagAuthMethod maps the mutually exclusive auth flags to an AuthMethod.
func flagAuthMethod() (dsload.AuthMethod, error) {
	enabled := 0
	method := dsload.AuthMethodStandard
	if runFlags.aws {
		enabled++
		method = dsload.AuthMethodAWSIAM
	}
	if runFlags.google {
		enabled++
		method = dsload.AuthMethodGoogleIAM
	}
	if runFlags.azure {
		enabled++
		method = dsload.AuthMethodAzureEntraID
	}
	if enabled > 1 {
		return 0, fmt.Errorf("--aws, --google and --azure are mutually exclusive: %w", dsload.ErrInvalidConfig)
	}
	return method, nil
}

// buildRunConfig resolves connection and pipeline settings from flags,
// environment and dsload.yaml.
func buildRunConfig(cmd *cobra.Command, sourceDir string, logger dsload.Logger) (dsload.ConnectionConfig, dsload.PipelineConfig, error) {
	_ = godotenv.Load()

	projectCfg, err := config.Load(sourceDir)
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			return dsload.ConnectionConfig{}, dsload.PipelineConfig{},
				fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
		}
		projectCfg = nil
	}

	method, err := flagAuthMethod()
	if err != nil {
		return dsload.ConnectionConfig{}, dsload.PipelineConfig{}, err
	}

	flagConn := dsload.ConnectionConfig{
		Host:           runFlags.host,
		Port:           runFlags.port,
		Username:       runFlags.username,
		Database:       runFlags.database,
		SSLMode:        runFlags.sslMode,
		AuthMethod:     method,
		AWSRegion:      runFlags.awsRegion,
		GoogleInstance: runFlags.googleInstance,
		AzureTenantID:  runFlags.azureTenantID,
		AzureClientID:  runFlags.azureClientID,
		AppName:        "dsload",
	}

	connCfg, err := config.ResolveConnection(flagConn, projectCfg)
	if err != nil {
		return dsload.ConnectionConfig{}, dsload.PipelineConfig{}, err
	}

	if runFlags.passwordPrompt {
		password, err := readPassword()
		if err != nil {
			return dsload.ConnectionConfig{}, dsload.PipelineConfig{}, err
		}
		connCfg.Password = password
	}

	pipeCfg, err := config.ResolvePipeline(projectCfg)
	if err != nil {
		return dsload.ConnectionConfig{}, dsload.PipelineConfig{}, err
	}
	if cmd.Flags().Changed("startup-delay") {
		pipeCfg.StartupDelay = runFlags.startupDelay
	}
	if runFlags.batchSize > 0 {
		pipeCfg.BatchSize = runFlags.batchSize
	}

	logger.Verbose("connection resolved: host=%s port=%d database=%s user=%s auth=%s",
		connCfg.Host, connCfg.Port, connCfg.Database, connCfg.Username, connCfg.AuthMethod)

	return connCfg, pipeCfg, nil
}

// readPassword reads the password from the terminal without echo.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("-W requires an interactive terminal: %w", dsload.ErrInvalidConfig)
	}
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(raw), nil
}

// checkSourceFiles verifies that every mapped file exists before anything
// touches the database. A missing file is fatal for the whole run.
func checkSourceFiles(sourceDir string, tables []dsload.TableSpec) error {
	var missing []error
	for _, spec := range tables {
		path := filepath.Join(sourceDir, spec.File)
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, fmt.Errorf("table %s: %s: %w", spec.Name, path, dsload.ErrMissingSourceFile))
		}
	}
	return errors.Join(missing...)
}

func runLoad(cmd *cobra.Command, args []string) error {
	sourceDir := "."
	if len(args) == 1 {
		sourceDir = args[0]
	}

	verbose := getVerboseFlag(cmd)
	logger := logging.NewConsoleLogger(verbose)

	connCfg, pipeCfg, err := buildRunConfig(cmd, sourceDir, logger)
	if err != nil {
		return err
	}

	if err := checkSourceFiles(sourceDir, pipeCfg.Tables); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connector, err := db.NewConnector(&connCfg)
	if err != nil {
		return err
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tableLoader := loader.NewTableLoader(
		reader.New(logger),
		normalize.New(),
		audit.NewRecorder(pool, logger),
		pool,
		logger,
		pipeCfg.BatchSize,
	)
	pipeline := loader.NewPipeline(tableLoader, logger, pipeCfg, sourceDir)

	records, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, loader.Summary(records))
	return nil
}

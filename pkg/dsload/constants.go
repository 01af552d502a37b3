package dsload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Run finished (individual tables may still have failed)
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to the warehouse
	ExitMissingSource   = 12 // A mapped source file does not exist
	ExitExecutionFailed = 13 // SQL execution failed outside table isolation
)

const (
	// DefaultBatchSize is the number of rows sent per database round trip.
	// A throughput/memory trade-off, not a correctness requirement.
	DefaultBatchSize = 1000

	// DefaultStartupDelay is the fixed pause before the first table loads.
	DefaultStartupDelay = 5 * time.Second

	// AuditTable is the schema-qualified audit trail table.
	AuditTable = "logs.etl_logs"

	// DefaultRetryInitialDelay is the default initial delay before the
	// first connection retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retries.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of retries.
	DefaultRetryMaxAttempts = 3
)

// Default connection parameters. Each can be overridden by environment
// variables (DB_HOST, DB_NAME, DB_USER, DB_PASSWORD, DB_PORT), the config
// file, or CLI flags.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 5432
	DefaultDatabase = "bank_db"
	DefaultUser     = "postgres"
	DefaultPassword = "postgres"
)

// Normalization profile names understood by the normalizer registry.
const (
	ProfileBalance  = "balance"
	ProfileCurrency = "currency"
)

// DefaultTables is the built-in table set of the bank warehouse.
// A config file replaces this list wholesale when it declares tables.
func DefaultTables() []TableSpec {
	return []TableSpec{
		{Name: "ds.ft_balance_f", File: "ft_balance_f.csv", PrimaryKey: []string{"on_date", "account_rk"}, Profile: ProfileBalance},
		{Name: "ds.ft_posting_f", File: "ft_posting_f.csv", Replace: true},
		{Name: "ds.md_account_d", File: "md_account_d.csv", PrimaryKey: []string{"data_actual_date", "account_rk"}},
		{Name: "ds.md_currency_d", File: "md_currency_d.csv", PrimaryKey: []string{"currency_rk", "data_actual_date"}, Profile: ProfileCurrency},
		{Name: "ds.md_exchange_rate_d", File: "md_exchange_rate_d.csv", PrimaryKey: []string{"data_actual_date", "currency_rk"}},
		{Name: "ds.md_ledger_account_s", File: "md_ledger_account_s.csv", PrimaryKey: []string{"ledger_account", "start_date"}},
	}
}

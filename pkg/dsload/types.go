package dsload

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TableSpec describes one target table and its source file.
// Specs are immutable configuration: build them once at startup and
// pass the full set into the pipeline via PipelineConfig.
type TableSpec struct {
	// Name is the schema-qualified table name, e.g. "ds.ft_balance_f".
	Name string

	// File is the path to the delimited source file for this table.
	File string

	// PrimaryKey lists the conflict-key columns in declaration order.
	// Empty means append-only semantics: no conflict clause is generated
	// and duplicate rows are possible.
	PrimaryKey []string

	// Replace marks the table as replace-on-load: its contents are
	// truncated before each load. Used for tables without a natural key.
	Replace bool

	// Profile selects the normalization profile applied after the
	// generic column cleanup. Empty means no table-specific transform.
	Profile string
}

// HasPrimaryKey reports whether the spec declares conflict-key columns.
func (s TableSpec) HasPrimaryKey() bool {
	return len(s.PrimaryKey) > 0
}

// ParsedTable is the in-memory form of one source file: a header and an
// ordered sequence of row tuples. Cell values are either string or nil.
// Produced fresh per load attempt and never persisted.
type ParsedTable struct {
	// Columns holds the header names in file order.
	Columns []string

	// Rows holds the data tuples. Each row has len(Columns) cells.
	Rows [][]any

	// Encoding records which encoding successfully decoded the file.
	Encoding string
}

// PlannedStatement is the executable insert derived from a TableSpec and
// the parsed column list. The SQL is parameterized with one placeholder
// per column in ParsedTable order.
type PlannedStatement struct {
	SQL     string
	Columns []string
}

// RunStatus is the lifecycle state of one load attempt in the audit trail.
type RunStatus string

const (
	StatusStarted   RunStatus = "started"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// RunRecord describes one load attempt. A record is created as
// StatusStarted and finalized exactly once as StatusCompleted or
// StatusFailed; it is never updated again after that.
type RunRecord struct {
	ID            uuid.UUID
	TableName     string
	StartedAt     time.Time
	EndedAt       time.Time // zero until the attempt finishes
	Status        RunStatus
	RowsProcessed int
	ErrorMessage  string
}

// Failed reports whether the attempt ended in failure.
func (r RunRecord) Failed() bool {
	return r.Status == StatusFailed
}

// PipelineConfig carries everything the pipeline needs for one run.
// It is built by the CLI layer and passed into the pipeline constructor;
// the pipeline never reads process-wide state.
type PipelineConfig struct {
	// Tables are processed sequentially in slice order.
	Tables []TableSpec

	// StartupDelay is the fixed pause before the first table loads.
	StartupDelay time.Duration

	// BatchSize is the number of rows sent per database round trip.
	// Zero means DefaultBatchSize.
	BatchSize int
}

// Validate checks the configuration before a run starts.
// It returns a multi-error if multiple validation failures occur.
func (c *PipelineConfig) Validate() error {
	var errs []error

	if len(c.Tables) == 0 {
		errs = append(errs, fmt.Errorf("at least one table must be configured: %w", ErrInvalidConfig))
	}
	for _, t := range c.Tables {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("table name is required: %w", ErrInvalidConfig))
		}
		if t.File == "" {
			errs = append(errs, fmt.Errorf("source file for table %q is required: %w", t.Name, ErrInvalidConfig))
		}
	}
	if c.StartupDelay < 0 {
		errs = append(errs, fmt.Errorf("startup delay cannot be negative: %w", ErrInvalidConfig))
	}
	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch size cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ConnectionConfig holds database connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use.
	AuthMethod AuthMethod

	// AppName is reported to the server as application_name.
	AppName string

	ConnectTimeout time.Duration

	// AWSRegion is required for AuthMethodAWSIAM.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name
	// (project:region:instance), required for AuthMethodGoogleIAM.
	GoogleInstance string

	// Azure Entra ID parameters (AuthMethodAzureEntraID). If all three
	// are set, Service Principal authentication is used; otherwise the
	// DefaultAzureCredential chain applies.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS RDS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod maps a configuration string to an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch s {
	case "", "standard":
		return AuthMethodStandard, nil
	case "aws_iam":
		return AuthMethodAWSIAM, nil
	case "google_iam":
		return AuthMethodGoogleIAM, nil
	case "azure":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("unknown auth method %q: %w", s, ErrUnsupportedAuthMethod)
	}
}

package schema

import (
	"context"
	"fmt"

	"github.com/vvka-141/koboload/pkg/koboload"
)

// Provisioner makes sure the destination exists and is empty.
type Provisioner struct {
	namespace string
	table     string
	logger    koboload.Logger
}

// NewProvisioner creates a Provisioner for namespace.table.
func NewProvisioner(namespace, table string, logger koboload.Logger) *Provisioner {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Provisioner{namespace: namespace, table: table, logger: logger}
}

// Provision creates the namespace if absent, then drops and recreates the
// table. Existing rows are discarded; there is no confirmation step.
// exec may be a pool (each statement commits on its own) or a transaction.
func (p *Provisioner) Provision(ctx context.Context, exec koboload.Executor) error {
	if _, err := exec.Exec(ctx, CreateNamespaceSQL(p.namespace)); err != nil {
		return fmt.Errorf("failed to create schema %q: %w: %w", p.namespace, err, koboload.ErrProvisionFailed)
	}
	p.logger.Info("Schema %q ensured", p.namespace)

	if _, err := exec.Exec(ctx, RecreateTableSQL(p.namespace, p.table)); err != nil {
		return fmt.Errorf("failed to recreate table %s: %w: %w", QualifiedName(p.namespace, p.table), err, koboload.ErrProvisionFailed)
	}
	p.logger.Info("Table %s dropped and recreated with %d columns", QualifiedName(p.namespace, p.table), len(columns)+1)

	return nil
}

// Target returns the quoted destination name.
func (p *Provisioner) Target() string {
	return QualifiedName(p.namespace, p.table)
}

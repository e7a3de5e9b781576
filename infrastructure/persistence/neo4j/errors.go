package neo4j

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/TeleViaBox/mini-neo4j-agent-backend/pkg/errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4j status codes the store reacts to.
const (
	codeConstraintViolation = "Neo.ClientError.Schema.ConstraintValidationFailed"
	codeProcedureFailed     = "Neo.ClientError.Procedure.ProcedureCallFailed"
	codeIndexNotFound       = "Neo.ClientError.Schema.IndexNotFound"
	codeDatabaseUnavailable = "Neo.TransientError.General.DatabaseUnavailable"
)

// classify maps a driver error onto the application error taxonomy.
func (s *Store) classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isUnavailable(err) {
		return pkgerrors.NewUnavailableError("neo4j").WithCause(err)
	}

	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		switch {
		case neoErr.Code == codeConstraintViolation:
			return pkgerrors.NewDatabaseError(op, err).WithCode(pkgerrors.CodeDuplicateMemoryID)
		case isIndexMissing(neoErr):
			return pkgerrors.NewIndexUnavailableError(IndexName).WithCause(err)
		case neoErr.Code == codeProcedureFailed && strings.Contains(neoErr.Msg, "Cannot parse"):
			return pkgerrors.NewValidationError("query could not be parsed").
				WithCode(pkgerrors.CodeInvalidQuery).
				WithCause(err)
		}
	}

	s.logger.Error("Neo4j operation failed", zap.String("operation", op), zap.Error(err))
	return pkgerrors.NewDatabaseError(op, err)
}

func isUnavailable(err error) bool {
	var connErr *neo4j.ConnectivityError
	if errors.As(err, &connErr) || neo4j.IsConnectivityError(err) {
		return true
	}
	var neoErr *neo4j.Neo4jError
	return errors.As(err, &neoErr) && neoErr.Code == codeDatabaseUnavailable
}

func isIndexMissing(neoErr *neo4j.Neo4jError) bool {
	if neoErr.Code == codeIndexNotFound {
		return true
	}
	return neoErr.Code == codeProcedureFailed &&
		strings.Contains(strings.ToLower(neoErr.Msg), "no such fulltext schema index")
}

package dbconfig

import (
	"context"
	"database/sql"
	"strings"

	commonerrors "github.com/ClipFinance/swap-router/common/errors"
	"github.com/ClipFinance/swap-router/dbconfig/models"
	"github.com/pkg/errors"
)

const chainColumns = `
          id,
          chain_id,
          name,
          spender_address,
          native_token,
          fusion_enabled,
          fee_model,
          tx_type,
          active,
          created_at,
          updated_at
      FROM aggregator_chains`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// GetChains returns all aggregator chains from the database, optionally filtering by active status.
func (r *DBConfig) GetChains(ctx context.Context, activeOnly bool) ([]models.Chain, error) {
	db, err := sql.Open(r.driverName, r.dbConnStr)
	if err != nil {
		return nil, dbError(err)
	}
	defer db.Close()

	query := "SELECT" + chainColumns

	var args []interface{}
	if activeOnly {
		query += " WHERE active = $1"
		args = append(args, true)
	}

	query += " ORDER BY chain_id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	var chains []models.Chain
	for rows.Next() {
		chain, err := scanChain(rows)
		if err != nil {
			return nil, dbError(err)
		}
		chains = append(chains, *chain)
	}

	if err = rows.Err(); err != nil {
		return nil, dbError(err)
	}

	return chains, nil
}

// dbError wraps a database failure so callers can match ErrDatabaseConnect without losing the cause.
func dbError(err error) error {
	return errors.Wrap(commonerrors.ErrDatabaseConnect, err.Error())
}

func scanChain(row rowScanner) (*models.Chain, error) {
	var chain models.Chain
	var nativeToken sql.NullString
	var feeModel sql.NullString
	var txType sql.NullInt64

	err := row.Scan(
		&chain.ID,
		&chain.ChainID,
		&chain.Name,
		&chain.Spender,
		&nativeToken,
		&chain.FusionEnabled,
		&feeModel,
		&txType,
		&chain.Active,
		&chain.CreatedAt,
		&chain.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if nativeToken.Valid {
		chain.NativeToken = nativeToken.String
	}
	if feeModel.Valid {
		chain.FeeModel = strings.ToUpper(feeModel.String)
	}
	if txType.Valid && txType.Int64 > 0 {
		chain.TxType = uint64(txType.Int64)
	}

	return &chain, nil
}

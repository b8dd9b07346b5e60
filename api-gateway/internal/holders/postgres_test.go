package holders

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestHolderTokenCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM tokens WHERE collection = $1`)).
		WithArgs("stars1collection").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := NewOracle(db, "stars1collection").HolderTokenCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(42), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnsAny(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	oracle := NewOracle(db, "stars1collection")

	query := regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM tokens WHERE collection = $1 AND owner = $2)`)
	mock.ExpectQuery(query).WithArgs("stars1collection", "stars1alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(query).WithArgs("stars1collection", "stars1bob").
		WillReturnError(errors.New("connection reset"))

	owns, err := oracle.OwnsAny(context.Background(), "stars1alice")
	require.NoError(t, err)
	require.True(t, owns)

	_, err = oracle.OwnsAny(context.Background(), "stars1bob")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

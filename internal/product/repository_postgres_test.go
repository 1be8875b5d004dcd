package product

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wichananm65/zynapse-backend/internal/apperror"
)

var productRowColumns = []string{"id", "name", "description", "price", "stock", "link", "category", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db, zap.NewNop()), mock
}

func TestPostgresGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`FROM products WHERE id = \$1`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(1, "Hollow Knight", "Metroidvania", "14.99", 10, "https://store.steampowered.com/app/367520", "Indie", ts, ts))

	p, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Hollow Knight", p.Name)
	assert.True(t, decimal.RequireFromString("14.99").Equal(p.Price))
	require.NotNil(t, p.Link)
	assert.Equal(t, "https://store.steampowered.com/app/367520", *p.Link)
	assert.Equal(t, ts, p.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByID_NotFoundAndFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM products WHERE id = \$1`).WithArgs(7).WillReturnError(sql.ErrNoRows)
	_, err := repo.GetByID(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)

	boom := errors.New("connection reset")
	mock.ExpectQuery(`FROM products WHERE id = \$1`).WithArgs(8).WillReturnError(boom)
	_, err = repo.GetByID(context.Background(), 8)
	require.Error(t, err)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.Equal(t, "Database read failed.", apperror.MessageOf(err))
	assert.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByCategory(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(`WHERE lower\(category\) = lower\(\$1\) ORDER BY id`).WithArgs("indie").
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(1, "Hollow Knight", "", "14.99", 10, nil, "Indie", ts, ts).
			AddRow(2, "Celeste", "", "19.99", 5, nil, "Indie", ts, ts))

	products, err := repo.ListByCategory(context.Background(), "indie")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Nil(t, products[0].Link)
	assert.Equal(t, "Celeste", products[1].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByIDs(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = ANY($1::int[])`)).WithArgs("{1,3}").
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(3, "Elden Ring", "", "59.99", 3, nil, "RPG", ts, ts))

	found, err := repo.GetByIDs(context.Background(), []int{1, 3})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Elden Ring", found[3].Name)

	empty, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRandom_Empty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`ORDER BY random\(\) LIMIT 1`).WithArgs("").WillReturnError(sql.ErrNoRows)
	_, err := repo.Random(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoProducts)

	mock.ExpectQuery(`ORDER BY random\(\) LIMIT 1`).WithArgs("Racing").WillReturnError(sql.ErrNoRows)
	_, err = repo.Random(context.Background(), "Racing")
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, "No products found for category: Racing.", apperror.MessageOf(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCategories(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT DISTINCT category FROM products`).
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("Indie").AddRow("RPG"))

	categories, err := repo.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Indie", "RPG"}, categories)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO products`).
		WithArgs("Hades", "Roguelike", sqlmock.AnyArg(), 7, nil, "Indie", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(4, "Hades", "Roguelike", "24.99", 7, nil, "Indie", ts, ts))

	p, err := repo.Create(context.Background(), Product{Name: "Hades", Description: "Roguelike", Price: decimal.RequireFromString("24.99"), Stock: 7, Category: "Indie"})
	require.NoError(t, err)
	assert.Equal(t, 4, p.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateAndDelete_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE products SET`).WillReturnError(sql.ErrNoRows)
	_, err := repo.Update(context.Background(), 9, Product{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(`DELETE FROM products WHERE id = \$1`).WithArgs(9).WillReturnError(sql.ErrNoRows)
	_, err = repo.Delete(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(`DELETE FROM products WHERE id = \$1`).WithArgs(10).WillReturnError(errors.New("deadlock"))
	_, err = repo.Delete(context.Background(), 10)
	assert.Equal(t, "Database update failed.", apperror.MessageOf(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

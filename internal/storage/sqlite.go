package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/smartsearch/pkg/types"
)

// SQLiteStorage implements Storage using SQLite
type SQLiteStorage struct {
	db        *sql.DB
	dimension int
}

// Compile-time check: SQLiteStorage implements Storage.
var _ Storage = (*SQLiteStorage)(nil)

var entityTables = map[types.EntityType]string{
	types.EntityItem:     "items",
	types.EntityShop:     "shops",
	types.EntityCategory: "categories",
}

var visibilityColumns = map[types.EntityType]string{
	types.EntityItem:     "is_active",
	types.EntityShop:     "is_approved",
	types.EntityCategory: "is_active",
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens dbPath, applies migrations and enforces vectors of
// exactly dimension floats (0 accepts any non-empty vector).
func NewSQLiteStorage(dbPath string, dimension int) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, dimension: dimension}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// withTx runs fn inside a transaction, committing on success
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableID lets SQLite assign the rowid when the caller did not choose one
func nullableID(id int64) interface{} {
	if id <= 0 {
		return nil
	}
	return id
}

func createdAtOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func decodeEmbedding(blob []byte) ([]float32, error) {
	if blob == nil {
		return nil, nil
	}
	return deserializeVector(blob)
}

func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// Category operations

func createCategoryWithQuerier(ctx context.Context, q querier, c *types.Category) error {
	c.CreatedAt = createdAtOrNow(c.CreatedAt)

	var parent interface{}
	if c.ParentID != nil {
		parent = *c.ParentID
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, parent_id, icon, position, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableID(c.ID), c.Name, c.Slug, parent, c.Icon, c.Position, boolToInt(c.IsActive), c.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (s *SQLiteStorage) CreateCategory(ctx context.Context, c *types.Category) error {
	return createCategoryWithQuerier(ctx, s.querier(), c)
}

func updateCategoryWithQuerier(ctx context.Context, q querier, c *types.Category) error {
	var parent interface{}
	if c.ParentID != nil {
		parent = *c.ParentID
	}

	res, err := q.ExecContext(ctx, `
		UPDATE categories SET name = ?, slug = ?, parent_id = ?, icon = ?, position = ?, is_active = ?
		WHERE id = ?`,
		c.Name, c.Slug, parent, c.Icon, c.Position, boolToInt(c.IsActive), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireAffected(res, "category", c.ID)
}

func (s *SQLiteStorage) UpdateCategory(ctx context.Context, c *types.Category) error {
	return updateCategoryWithQuerier(ctx, s.querier(), c)
}

func (s *SQLiteStorage) GetCategory(ctx context.Context, id int64) (*types.Category, error) {
	var (
		c         types.Category
		parent    sql.NullInt64
		createdAt int64
		blob      []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, parent_id, icon, position, is_active, created_at, embedding
		FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Slug, &parent, &c.Icon, &c.Position, &c.IsActive, &createdAt, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	if parent.Valid {
		c.ParentID = &parent.Int64
	}
	c.CreatedAt = fromUnixNano(createdAt)
	if c.Embedding, err = decodeEmbedding(blob); err != nil {
		return nil, fmt.Errorf("category %d embedding: %w", id, err)
	}
	return &c, nil
}

// Shop operations

func replaceShopCategories(ctx context.Context, q querier, shopID int64, categoryIDs []int64) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM shop_categories WHERE shop_id = ?", shopID); err != nil {
		return fmt.Errorf("failed to clear shop categories: %w", err)
	}
	for pos, cid := range categoryIDs {
		if _, err := q.ExecContext(ctx,
			"INSERT OR IGNORE INTO shop_categories (shop_id, category_id, position) VALUES (?, ?, ?)",
			shopID, cid, pos); err != nil {
			return fmt.Errorf("failed to link shop %d to category %d: %w", shopID, cid, err)
		}
	}
	return nil
}

func createShopWithQuerier(ctx context.Context, q querier, sh *types.Shop) error {
	sh.CreatedAt = createdAtOrNow(sh.CreatedAt)

	res, err := q.ExecContext(ctx, `
		INSERT INTO shops (id, name, description, owner_name, city, is_approved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullableID(sh.ID), sh.Name, sh.Description, sh.OwnerName, sh.City, boolToInt(sh.IsApproved), sh.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create shop: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sh.ID = id
	return replaceShopCategories(ctx, q, id, sh.CategoryIDs)
}

func (s *SQLiteStorage) CreateShop(ctx context.Context, sh *types.Shop) error {
	return s.withTx(ctx, func(q querier) error {
		return createShopWithQuerier(ctx, q, sh)
	})
}

func updateShopWithQuerier(ctx context.Context, q querier, sh *types.Shop) error {
	res, err := q.ExecContext(ctx, `
		UPDATE shops SET name = ?, description = ?, owner_name = ?, city = ?, is_approved = ?
		WHERE id = ?`,
		sh.Name, sh.Description, sh.OwnerName, sh.City, boolToInt(sh.IsApproved), sh.ID)
	if err != nil {
		return fmt.Errorf("failed to update shop: %w", err)
	}
	if err := requireAffected(res, "shop", sh.ID); err != nil {
		return err
	}
	return replaceShopCategories(ctx, q, sh.ID, sh.CategoryIDs)
}

func (s *SQLiteStorage) UpdateShop(ctx context.Context, sh *types.Shop) error {
	return s.withTx(ctx, func(q querier) error {
		return updateShopWithQuerier(ctx, q, sh)
	})
}

func (s *SQLiteStorage) GetShop(ctx context.Context, id int64) (*types.Shop, error) {
	var (
		sh        types.Shop
		createdAt int64
		blob      []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner_name, city, is_approved, created_at, embedding
		FROM shops WHERE id = ?`, id).
		Scan(&sh.ID, &sh.Name, &sh.Description, &sh.OwnerName, &sh.City, &sh.IsApproved, &createdAt, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shop %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	sh.CreatedAt = fromUnixNano(createdAt)
	if sh.Embedding, err = decodeEmbedding(blob); err != nil {
		return nil, fmt.Errorf("shop %d embedding: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT category_id FROM shop_categories WHERE shop_id = ? ORDER BY position, category_id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to list shop categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var cid int64
		if err := rows.Scan(&cid); err != nil {
			return nil, fmt.Errorf("failed to scan shop category: %w", err)
		}
		sh.CategoryIDs = append(sh.CategoryIDs, cid)
	}
	return &sh, rows.Err()
}

// ShopCategoryName returns the name of the shop's first associated category
func (s *SQLiteStorage) ShopCategoryName(ctx context.Context, shopID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT c.name
		FROM shop_categories sc
		INNER JOIN categories c ON c.id = sc.category_id
		WHERE sc.shop_id = ?
		ORDER BY sc.position, c.id
		LIMIT 1`, shopID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get shop category: %w", err)
	}
	return name, nil
}

// Item operations

func replaceItemTags(ctx context.Context, q querier, itemID int64, tags []string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM item_tags WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("failed to clear item tags: %w", err)
	}
	for pos, tag := range tags {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO item_tags (item_id, position, tag) VALUES (?, ?, ?)", itemID, pos, tag); err != nil {
			return fmt.Errorf("failed to tag item %d: %w", itemID, err)
		}
	}
	return nil
}

func createItemWithQuerier(ctx context.Context, q querier, it *types.Item) error {
	it.CreatedAt = createdAtOrNow(it.CreatedAt)

	res, err := q.ExecContext(ctx, `
		INSERT INTO items (id, shop_id, title, description, city, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullableID(it.ID), it.ShopID, it.Title, it.Description, it.City, boolToInt(it.IsActive), it.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = id
	return replaceItemTags(ctx, q, id, it.Tags)
}

func (s *SQLiteStorage) CreateItem(ctx context.Context, it *types.Item) error {
	return s.withTx(ctx, func(q querier) error {
		return createItemWithQuerier(ctx, q, it)
	})
}

func updateItemWithQuerier(ctx context.Context, q querier, it *types.Item) error {
	res, err := q.ExecContext(ctx, `
		UPDATE items SET shop_id = ?, title = ?, description = ?, city = ?, is_active = ?
		WHERE id = ?`,
		it.ShopID, it.Title, it.Description, it.City, boolToInt(it.IsActive), it.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if err := requireAffected(res, "item", it.ID); err != nil {
		return err
	}
	return replaceItemTags(ctx, q, it.ID, it.Tags)
}

func (s *SQLiteStorage) UpdateItem(ctx context.Context, it *types.Item) error {
	return s.withTx(ctx, func(q querier) error {
		return updateItemWithQuerier(ctx, q, it)
	})
}

func (s *SQLiteStorage) GetItem(ctx context.Context, id int64) (*types.Item, error) {
	var (
		it        types.Item
		createdAt int64
		blob      []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, shop_id, title, description, city, is_active, created_at, embedding
		FROM items WHERE id = ?`, id).
		Scan(&it.ID, &it.ShopID, &it.Title, &it.Description, &it.City, &it.IsActive, &createdAt, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	it.CreatedAt = fromUnixNano(createdAt)
	if it.Embedding, err = decodeEmbedding(blob); err != nil {
		return nil, fmt.Errorf("item %d embedding: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT tag FROM item_tags WHERE item_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("failed to list item tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan item tag: %w", err)
		}
		it.Tags = append(it.Tags, tag)
	}
	return &it, rows.Err()
}

// ListIDs returns every id of type t in ascending order
func (s *SQLiteStorage) ListIDs(ctx context.Context, t types.EntityType) ([]int64, error) {
	table, ok := entityTables[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, t)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w", table, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Embedding operations

func (s *SQLiteStorage) checkDimension(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if s.dimension > 0 && len(vec) != s.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), s.dimension)
	}
	return nil
}

func (s *SQLiteStorage) updateEmbeddingWithQuerier(ctx context.Context, q querier, t types.EntityType, id int64, vec []float32) error {
	table, ok := entityTables[t]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntityType, t)
	}
	if err := s.checkDimension(vec); err != nil {
		return err
	}

	res, err := q.ExecContext(ctx,
		"UPDATE "+table+" SET embedding = ?, embedding_dim = ?, embedded_at = ? WHERE id = ?",
		serializeVector(vec), len(vec), time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to store %s embedding: %w", t.Scope(), err)
	}
	return requireAffected(res, t.Scope(), id)
}

func (s *SQLiteStorage) UpdateEmbedding(ctx context.Context, t types.EntityType, id int64, vec []float32) error {
	return s.updateEmbeddingWithQuerier(ctx, s.querier(), t, id, vec)
}

func clearEmbeddingWithQuerier(ctx context.Context, q querier, t types.EntityType, id int64) error {
	table, ok := entityTables[t]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntityType, t)
	}

	res, err := q.ExecContext(ctx,
		"UPDATE "+table+" SET embedding = NULL, embedding_dim = NULL, embedded_at = NULL WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to clear %s embedding: %w", t.Scope(), err)
	}
	return requireAffected(res, t.Scope(), id)
}

func (s *SQLiteStorage) ClearEmbedding(ctx context.Context, t types.EntityType, id int64) error {
	return clearEmbeddingWithQuerier(ctx, s.querier(), t, id)
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, t types.EntityType, vector []float32, limit int) ([]VectorResult, error) {
	return searchVectorWithQuerier(ctx, s.querier(), t, vector, limit)
}

func (s *SQLiteStorage) SearchLexical(ctx context.Context, t types.EntityType, query string, limit int) ([]LexicalResult, error) {
	return searchLexicalWithQuerier(ctx, s.querier(), t, query, limit)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	version, err := currentVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}

	status := &Status{
		SchemaVersion: version.String(),
		Dimension:     s.dimension,
		Types:         make(map[types.EntityType]TypeStatus, len(entityTables)),
	}

	for _, t := range types.AllEntityTypes() {
		var ts TypeStatus
		err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*),
				COALESCE(SUM(`+visibilityColumns[t]+`), 0),
				COALESCE(SUM(CASE WHEN embedding IS NOT NULL THEN 1 ELSE 0 END), 0)
			FROM `+entityTables[t]).Scan(&ts.Total, &ts.Visible, &ts.Embedded)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", entityTables[t], err)
		}
		status.Types[t] = ts
	}

	return status, nil
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) CreateCategory(ctx context.Context, c *types.Category) error {
	return createCategoryWithQuerier(ctx, t.tx, c)
}

func (t *sqliteTx) UpdateCategory(ctx context.Context, c *types.Category) error {
	return updateCategoryWithQuerier(ctx, t.tx, c)
}

func (t *sqliteTx) CreateShop(ctx context.Context, sh *types.Shop) error {
	return createShopWithQuerier(ctx, t.tx, sh)
}

func (t *sqliteTx) UpdateShop(ctx context.Context, sh *types.Shop) error {
	return updateShopWithQuerier(ctx, t.tx, sh)
}

func (t *sqliteTx) CreateItem(ctx context.Context, it *types.Item) error {
	return createItemWithQuerier(ctx, t.tx, it)
}

func (t *sqliteTx) UpdateItem(ctx context.Context, it *types.Item) error {
	return updateItemWithQuerier(ctx, t.tx, it)
}

func (t *sqliteTx) UpdateEmbedding(ctx context.Context, et types.EntityType, id int64, vec []float32) error {
	return t.storage.updateEmbeddingWithQuerier(ctx, t.tx, et, id, vec)
}

func (t *sqliteTx) ClearEmbedding(ctx context.Context, et types.EntityType, id int64) error {
	return clearEmbeddingWithQuerier(ctx, t.tx, et, id)
}

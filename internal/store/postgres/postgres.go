// Package postgres is the production Repository backed by PostgreSQL
// through the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"estoquepro/backend/internal/domain"
	"estoquepro/backend/internal/store"
	"estoquepro/backend/internal/xid"
)

// Older installs kept acquisition cost in a differently named column.
// The capability probe at startup decides which one this database has
// so normal operation never depends on parsing error text.
const (
	costColumnCurrent = "cost_cents"
	costColumnLegacy  = "last_purchase_value_cents"
)

type Store struct {
	db *sql.DB

	// costColumn is fixed at startup by probeSchema and only ever holds
	// one of the two known column names.
	costColumn string
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, costColumn: costColumnCurrent}
	if err := s.probeSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// probeSchema asks information_schema which cost column the products
// table carries and caches the answer.
func (s *Store) probeSchema(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = 'products' AND column_name = ANY($1)
	`, []string{costColumnCurrent, costColumnLegacy})
	if err != nil {
		return err
	}
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	switch {
	case found[costColumnCurrent]:
		s.costColumn = costColumnCurrent
	case found[costColumnLegacy]:
		s.costColumn = costColumnLegacy
		log.Printf("[postgres] WARN: products table uses legacy cost column %s", costColumnLegacy)
	default:
		return fmt.Errorf("products table has no recognized cost column")
	}
	return nil
}

func isUndefinedColumn(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42703"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func mapColumnErr(err error) error {
	if isUndefinedColumn(err) {
		return store.ErrSchemaMismatch
	}
	return err
}

func (s *Store) ListProducts(ctx context.Context, ownerID string) ([]domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, barcode, name, quantity, %s, sale_cents, COALESCE(category_id, '')
		FROM products
		WHERE owner_id = $1
		ORDER BY name
	`, s.costColumn)

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		// Some hosted databases refuse to sort with a broken collation
		// extension. An unsorted catalog is still a catalog; the service
		// sorts before use anyway.
		log.Printf("[postgres] WARN: ordered product list failed, retrying unsorted: %v", err)
		unsorted := fmt.Sprintf(`
			SELECT id, owner_id, barcode, name, quantity, %s, sale_cents, COALESCE(category_id, '')
			FROM products
			WHERE owner_id = $1
		`, s.costColumn)
		rows, err = s.db.QueryContext(ctx, unsorted, ownerID)
		if err != nil {
			return nil, mapColumnErr(err)
		}
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		var cost sql.NullInt64
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Barcode, &p.Name, &p.Quantity, &cost, &p.SaleCents, &p.CategoryID); err != nil {
			return nil, err
		}
		if cost.Valid {
			c := cost.Int64
			p.CostCents = &c
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, ownerID string, barcode string) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, barcode, name, quantity, %s, sale_cents, COALESCE(category_id, '')
		FROM products
		WHERE owner_id = $1 AND barcode = $2
	`, s.costColumn)

	var p domain.Product
	var cost sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, ownerID, barcode).Scan(
		&p.ID, &p.OwnerID, &p.Barcode, &p.Name, &p.Quantity, &cost, &p.SaleCents, &p.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, mapColumnErr(err)
	}
	if cost.Valid {
		c := cost.Int64
		p.CostCents = &c
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, ownerID string, ins domain.ProductInsert) (*domain.Product, error) {
	return s.createProduct(ctx, ownerID, ins, s.costColumn)
}

func (s *Store) CreateProductLegacy(ctx context.Context, ownerID string, ins domain.ProductInsert) (*domain.Product, error) {
	return s.createProduct(ctx, ownerID, ins, costColumnLegacy)
}

func (s *Store) createProduct(ctx context.Context, ownerID string, ins domain.ProductInsert, costCol string) (*domain.Product, error) {
	if ins.Barcode == "" || ins.Name == "" || ins.Quantity < 0 || ins.SaleCents < 0 {
		return nil, store.ErrInvalidInput
	}

	p := domain.Product{
		ID:        xid.New("prod"),
		OwnerID:   ownerID,
		Barcode:   ins.Barcode,
		Name:      ins.Name,
		Quantity:  ins.Quantity,
		SaleCents: ins.SaleCents,
	}
	var cost sql.NullInt64
	if ins.CostCents > 0 {
		cost = sql.NullInt64{Int64: ins.CostCents, Valid: true}
		c := ins.CostCents
		p.CostCents = &c
	}

	query := fmt.Sprintf(`
		INSERT INTO products (id, owner_id, barcode, name, quantity, %s, sale_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
	`, costCol)
	_, err := s.db.ExecContext(ctx, query, p.ID, p.OwnerID, p.Barcode, p.Name, p.Quantity, cost, p.SaleCents)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, mapColumnErr(err)
	}
	created := p
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, ownerID string, productID string, upd domain.ProductUpdateRequest) (*domain.Product, error) {
	set := make([]string, 0, 5)
	args := []any{ownerID, productID}
	next := 3
	add := func(col string, v any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, next))
		args = append(args, v)
		next++
	}

	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return nil, store.ErrInvalidInput
		}
		add("name", *upd.Name)
	}
	if upd.Quantity != nil {
		if *upd.Quantity < 0 {
			return nil, store.ErrInvalidInput
		}
		add("quantity", *upd.Quantity)
	}
	if upd.CostCents != nil {
		add(s.costColumn, *upd.CostCents)
	}
	if upd.SaleCents != nil {
		if *upd.SaleCents < 0 {
			return nil, store.ErrInvalidInput
		}
		add("sale_cents", *upd.SaleCents)
	}
	if upd.CategoryID != nil {
		add("category_id", *upd.CategoryID)
	}
	if len(set) == 0 {
		return nil, store.ErrInvalidInput
	}

	query := fmt.Sprintf(`
		UPDATE products
		SET %s, updated_at = now()
		WHERE owner_id = $1 AND id = $2
		RETURNING id, owner_id, barcode, name, quantity, %s, sale_cents, COALESCE(category_id, '')
	`, strings.Join(set, ", "), s.costColumn)

	var p domain.Product
	var cost sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.OwnerID, &p.Barcode, &p.Name, &p.Quantity, &cost, &p.SaleCents, &p.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, mapColumnErr(err)
	}
	if cost.Valid {
		c := cost.Int64
		p.CostCents = &c
	}
	return &p, nil
}

func (s *Store) ApplyStockUpdate(ctx context.Context, ownerID string, upd domain.StockUpdate) error {
	return s.applyStockUpdate(ctx, ownerID, upd, s.costColumn)
}

func (s *Store) ApplyStockUpdateLegacy(ctx context.Context, ownerID string, upd domain.StockUpdate) error {
	return s.applyStockUpdate(ctx, ownerID, upd, costColumnLegacy)
}

func (s *Store) applyStockUpdate(ctx context.Context, ownerID string, upd domain.StockUpdate, costCol string) error {
	if upd.ProductID == "" || upd.NewQuantity < 0 {
		return store.ErrInvalidInput
	}

	set := []string{"quantity = $3"}
	args := []any{ownerID, upd.ProductID, upd.NewQuantity}
	next := 4
	if upd.CostCents != nil {
		set = append(set, fmt.Sprintf("%s = $%d", costCol, next))
		args = append(args, *upd.CostCents)
		next++
	}
	if upd.SaleCents != nil {
		set = append(set, fmt.Sprintf("sale_cents = $%d", next))
		args = append(args, *upd.SaleCents)
	}

	query := fmt.Sprintf(`
		UPDATE products
		SET %s, updated_at = now()
		WHERE owner_id = $1 AND id = $2
	`, strings.Join(set, ", "))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapColumnErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetQuantity(ctx context.Context, ownerID string, productID string, quantity int) error {
	if quantity < 0 {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET quantity = $3, updated_at = now()
		WHERE owner_id = $1 AND id = $2
	`, ownerID, productID, quantity)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, ownerID string, productID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM products
		WHERE owner_id = $1 AND id = $2
	`, ownerID, productID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateSaleRecord(ctx context.Context, rec domain.SaleRecord) error {
	if rec.OwnerID == "" || rec.ProductID == "" || rec.Quantity < 1 {
		return store.ErrInvalidInput
	}
	if rec.ID == "" {
		rec.ID = xid.New("sale")
	}
	if rec.SoldAt.IsZero() {
		rec.SoldAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sale_records (
			id, sale_id, owner_id, product_id, barcode, product_name,
			quantity, unit_cents, total_cents, sold_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, rec.ID, rec.SaleID, rec.OwnerID, rec.ProductID, rec.Barcode, rec.ProductName,
		rec.Quantity, rec.UnitCents, rec.TotalCents, rec.SoldAt)
	return err
}

func (s *Store) ListSaleRecords(ctx context.Context, ownerID string, from time.Time, to time.Time, limit int) ([]domain.SaleRecord, error) {
	if limit < 1 {
		limit = 500
	}

	query := `
		SELECT id, sale_id, owner_id, product_id, barcode, product_name,
			quantity, unit_cents, total_cents, sold_at
		FROM sale_records
		WHERE owner_id = $1
	`
	args := []any{ownerID}
	next := 2
	if !from.IsZero() {
		query += fmt.Sprintf(" AND sold_at >= $%d", next)
		args = append(args, from)
		next++
	}
	if !to.IsZero() {
		query += fmt.Sprintf(" AND sold_at < $%d", next)
		args = append(args, to)
		next++
	}
	query += fmt.Sprintf(" ORDER BY sold_at DESC LIMIT $%d", next)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.SaleRecord, 0, limit)
	for rows.Next() {
		var rec domain.SaleRecord
		if err := rows.Scan(&rec.ID, &rec.SaleID, &rec.OwnerID, &rec.ProductID, &rec.Barcode,
			&rec.ProductName, &rec.Quantity, &rec.UnitCents, &rec.TotalCents, &rec.SoldAt); err != nil {
			return nil, err
		}
		rec.SoldAt = rec.SoldAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) GetStoreSettings(ctx context.Context, ownerID string) (*domain.StoreSettings, error) {
	var settings domain.StoreSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT owner_id, name, COALESCE(logo_url, ''), updated_at
		FROM store_settings
		WHERE owner_id = $1
	`, ownerID).Scan(&settings.OwnerID, &settings.Name, &settings.LogoURL, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return &settings, nil
}

func (s *Store) UpsertStoreSettings(ctx context.Context, settings domain.StoreSettings) error {
	if settings.OwnerID == "" || strings.TrimSpace(settings.Name) == "" {
		return store.ErrInvalidInput
	}
	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_settings (owner_id, name, logo_url, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (owner_id)
		DO UPDATE SET name = EXCLUDED.name, logo_url = EXCLUDED.logo_url, updated_at = EXCLUDED.updated_at
	`, settings.OwnerID, settings.Name, settings.LogoURL, settings.UpdatedAt)
	return err
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1,$2,$3,$4)
	`, user.ID, email, user.Password, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))).Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, owner_id, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.OwnerID, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, ownerID string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.OwnerID, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

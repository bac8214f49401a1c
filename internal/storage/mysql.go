package storage

import (
	"database/sql"
	"fmt"

	"gccpay-gateway/internal/config"
	"gccpay-gateway/internal/logger"
	"gccpay-gateway/internal/models"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLStore struct {
	db  *sql.DB
	log *logger.Logger
}

func NewMySQLStore(cfg config.DatabaseConfig, log *logger.Logger) (*MySQLStore, error) {
	log.LogDatabase("CONNECT", "mysql", fmt.Sprintf("Connecting to MySQL at %s:%s", cfg.Host, cfg.Port))

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Error("DATABASE", "Failed to open MySQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.Ping(); err != nil {
		log.Error("DATABASE", "Failed to ping MySQL: "+err.Error())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &MySQLStore{db: db, log: log}

	if err := store.initTables(); err != nil {
		log.Error("DATABASE", "Failed to initialize tables: "+err.Error())
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	log.LogDatabase("SUCCESS", "mysql", "MySQL connection established and tables initialized")
	return store, nil
}

func (s *MySQLStore) initTables() error {
	s.log.LogDatabase("MIGRATE", "mysql", "Creating gateway tables if not exist")

	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
        order_id VARCHAR(64) PRIMARY KEY,
        user_id VARCHAR(64) NOT NULL DEFAULT '',
        status VARCHAR(32) NOT NULL DEFAULT 'pending',
        total DECIMAL(12,2) NOT NULL,
        currency VARCHAR(8) NOT NULL,
        transaction_ref VARCHAR(128) NOT NULL DEFAULT '',
        billing_phone VARCHAR(32) NOT NULL DEFAULT '',
        customer_email VARCHAR(255) NOT NULL DEFAULT '',
        customer_name VARCHAR(255) NOT NULL DEFAULT '',
        shipping_address TEXT,
        registered_at VARCHAR(32) NOT NULL DEFAULT '',
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        INDEX idx_orders_status (status)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		`CREATE TABLE IF NOT EXISTS order_items (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        order_id VARCHAR(64) NOT NULL,
        product_id VARCHAR(64) NOT NULL,
        variation_id VARCHAR(64) NOT NULL DEFAULT '',
        name VARCHAR(255) NOT NULL,
        quantity INT NOT NULL,
        unit_price DECIMAL(12,2) NOT NULL,
        line_total DECIMAL(12,2) NOT NULL,
        image_url TEXT,
        description TEXT,
        permalink TEXT,
        INDEX idx_items_order (order_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		`CREATE TABLE IF NOT EXISTS payment_sessions (
        order_id VARCHAR(64) PRIMARY KEY,
        session_id VARCHAR(128) NOT NULL,
        ticket VARCHAR(255) NOT NULL,
        merchant_order_id VARCHAR(128) NOT NULL,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		`CREATE TABLE IF NOT EXISTS refunds (
        merchant_refund_id VARCHAR(128) PRIMARY KEY,
        order_id VARCHAR(64) NOT NULL,
        refund_id VARCHAR(128) NOT NULL,
        status VARCHAR(32) NOT NULL,
        amount DECIMAL(12,2) NOT NULL,
        reason TEXT,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        INDEX idx_refunds_order (order_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		`CREATE TABLE IF NOT EXISTS order_notes (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        order_id VARCHAR(64) NOT NULL,
        note TEXT NOT NULL,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        INDEX idx_notes_order (order_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
		`CREATE TABLE IF NOT EXISTS carts (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        user_id VARCHAR(64) NOT NULL,
        payload TEXT,
        INDEX idx_carts_user (user_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	s.log.LogDatabase("SUCCESS", "mysql", "Gateway tables ready")
	return nil
}

func (s *MySQLStore) SaveOrder(order *models.Order) error {
	s.log.LogDatabase("INSERT", "orders", fmt.Sprintf("Saving order %s", order.OrderID))

	query := `
    INSERT INTO orders (
        order_id, user_id, status, total, currency, transaction_ref,
        billing_phone, customer_email, customer_name, shipping_address, registered_at, created_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON DUPLICATE KEY UPDATE
        status = VALUES(status), total = VALUES(total), currency = VALUES(currency)
    `

	_, err := s.db.Exec(query,
		order.OrderID, order.UserID, order.Status, order.Total, order.Currency, order.TransactionRef,
		order.BillingPhone, order.CustomerEmail, order.CustomerName, order.ShippingAddress,
		order.RegisteredAt, order.CreatedAt,
	)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save order %s: %s", order.OrderID, err.Error()))
		return fmt.Errorf("failed to save order: %w", err)
	}

	for _, item := range order.Items {
		itemQuery := `
        INSERT INTO order_items (order_id, product_id, variation_id, name, quantity, unit_price, line_total, image_url, description, permalink)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        `
		if _, err := s.db.Exec(itemQuery,
			order.OrderID, item.ProductID, item.VariationID, item.Name, item.Quantity,
			item.UnitPrice, item.LineTotal, item.ImageURL, item.Description, item.Permalink,
		); err != nil {
			s.log.Error("DATABASE", fmt.Sprintf("Failed to save item for order %s: %s", order.OrderID, err.Error()))
			return fmt.Errorf("failed to save order item: %w", err)
		}
	}

	s.log.LogDatabase("SUCCESS", "orders", fmt.Sprintf("Order %s saved successfully", order.OrderID))
	return nil
}

func (s *MySQLStore) GetOrder(orderID string) (*models.Order, error) {
	s.log.LogDatabase("SELECT", "orders", fmt.Sprintf("Fetching order %s", orderID))

	query := `
    SELECT order_id, user_id, status, total, currency, transaction_ref,
           billing_phone, customer_email, customer_name, shipping_address, registered_at, created_at
    FROM orders WHERE order_id = ?
    `

	order := &models.Order{}
	err := s.db.QueryRow(query, orderID).Scan(
		&order.OrderID, &order.UserID, &order.Status, &order.Total, &order.Currency, &order.TransactionRef,
		&order.BillingPhone, &order.CustomerEmail, &order.CustomerName, &order.ShippingAddress,
		&order.RegisteredAt, &order.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			s.log.LogDatabase("NOT_FOUND", "orders", fmt.Sprintf("Order %s not found", orderID))
			return nil, ErrOrderNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get order %s: %s", orderID, err.Error()))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	itemQuery := `
    SELECT id, order_id, product_id, variation_id, name, quantity, unit_price, line_total, image_url, description, permalink
    FROM order_items WHERE order_id = ?
    `
	rows, err := s.db.Query(itemQuery, orderID)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to list items for order %s: %s", orderID, err.Error()))
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := models.OrderItem{}
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.VariationID, &item.Name, &item.Quantity,
			&item.UnitPrice, &item.LineTotal, &item.ImageURL, &item.Description, &item.Permalink,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return order, nil
}

// MarkOrderPaid is a compare-and-set on the order status. The WHERE
// clause guarantees only one of two racing confirmations performs the
// transition; the loser sees zero affected rows.
func (s *MySQLStore) MarkOrderPaid(orderID, transactionRef string) (bool, error) {
	s.log.LogDatabase("UPDATE", "orders", fmt.Sprintf("Marking order %s paid (txn %s)", orderID, transactionRef))

	query := `UPDATE orders SET status = ?, transaction_ref = ? WHERE order_id = ? AND status <> ?`
	res, err := s.db.Exec(query, models.OrderStatusPaid, transactionRef, orderID, models.OrderStatusPaid)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to mark order %s paid: %s", orderID, err.Error()))
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		s.log.LogDatabase("NOOP", "orders", fmt.Sprintf("Order %s already paid", orderID))
		return false, nil
	}

	s.log.LogDatabase("SUCCESS", "orders", fmt.Sprintf("Order %s marked paid", orderID))
	return true, nil
}

func (s *MySQLStore) AddOrderNote(orderID, note string) error {
	s.log.LogDatabase("INSERT", "order_notes", fmt.Sprintf("Adding note to order %s", orderID))

	if _, err := s.db.Exec(`INSERT INTO order_notes (order_id, note) VALUES (?, ?)`, orderID, note); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to add note to order %s: %s", orderID, err.Error()))
		return fmt.Errorf("failed to add order note: %w", err)
	}
	return nil
}

func (s *MySQLStore) ListOrderNotes(orderID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT note FROM order_notes WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order notes: %w", err)
	}
	defer rows.Close()

	var notes []string
	for rows.Next() {
		var note string
		if err := rows.Scan(&note); err != nil {
			return nil, fmt.Errorf("failed to scan order note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (s *MySQLStore) GetSession(orderID string) (*models.PaymentSession, error) {
	s.log.LogDatabase("SELECT", "payment_sessions", fmt.Sprintf("Fetching session for order %s", orderID))

	query := `SELECT order_id, session_id, ticket, merchant_order_id, created_at FROM payment_sessions WHERE order_id = ?`

	session := &models.PaymentSession{}
	err := s.db.QueryRow(query, orderID).Scan(
		&session.OrderID, &session.SessionID, &session.Ticket, &session.MerchantOrderID, &session.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			s.log.LogDatabase("NOT_FOUND", "payment_sessions", fmt.Sprintf("No session for order %s", orderID))
			return nil, ErrSessionNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get session for order %s: %s", orderID, err.Error()))
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// PutSession overwrites any prior session for the order; a checkout
// retry gets a fresh session tied to the same order.
func (s *MySQLStore) PutSession(session *models.PaymentSession) error {
	s.log.LogDatabase("UPSERT", "payment_sessions", fmt.Sprintf("Saving session %s for order %s", session.SessionID, session.OrderID))

	query := `
    INSERT INTO payment_sessions (order_id, session_id, ticket, merchant_order_id, created_at)
    VALUES (?, ?, ?, ?, ?)
    ON DUPLICATE KEY UPDATE
        session_id = VALUES(session_id), ticket = VALUES(ticket),
        merchant_order_id = VALUES(merchant_order_id), created_at = VALUES(created_at)
    `
	if _, err := s.db.Exec(query,
		session.OrderID, session.SessionID, session.Ticket, session.MerchantOrderID, session.CreatedAt,
	); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save session for order %s: %s", session.OrderID, err.Error()))
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *MySQLStore) PutRefund(refund *models.RefundRecord) error {
	s.log.LogDatabase("INSERT", "refunds", fmt.Sprintf("Saving refund %s for order %s", refund.MerchantRefundID, refund.OrderID))

	query := `
    INSERT INTO refunds (merchant_refund_id, order_id, refund_id, status, amount, reason, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	if _, err := s.db.Exec(query,
		refund.MerchantRefundID, refund.OrderID, refund.RefundID, refund.Status,
		refund.Amount, refund.Reason, refund.CreatedAt,
	); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save refund %s: %s", refund.MerchantRefundID, err.Error()))
		return fmt.Errorf("failed to save refund: %w", err)
	}
	return nil
}

func (s *MySQLStore) ListRefunds(orderID string) ([]*models.RefundRecord, error) {
	query := `
    SELECT merchant_refund_id, order_id, refund_id, status, amount, reason, created_at
    FROM refunds WHERE order_id = ? ORDER BY created_at
    `
	rows, err := s.db.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	defer rows.Close()

	var refunds []*models.RefundRecord
	for rows.Next() {
		refund := &models.RefundRecord{}
		if err := rows.Scan(
			&refund.MerchantRefundID, &refund.OrderID, &refund.RefundID, &refund.Status,
			&refund.Amount, &refund.Reason, &refund.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		refunds = append(refunds, refund)
	}
	return refunds, rows.Err()
}

func (s *MySQLStore) ClearCart(userID string) error {
	s.log.LogDatabase("DELETE", "carts", fmt.Sprintf("Clearing cart for user %s", userID))

	if _, err := s.db.Exec(`DELETE FROM carts WHERE user_id = ?`, userID); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to clear cart for user %s: %s", userID, err.Error()))
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (s *MySQLStore) HealthCheck() error {
	return s.db.Ping()
}

func (s *MySQLStore) Close() error {
	s.log.LogDatabase("CLOSE", "mysql", "Closing MySQL connection")
	return s.db.Close()
}
